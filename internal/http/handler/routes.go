package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"familyvault/internal/service"
)

// Deps are the collaborators of the HTTP routes.
type Deps struct {
	Accounts  service.AccountService
	Documents service.DocumentService
	// DB backs the readiness probe; nil for the memory backend.
	DB Pinger
	// Auth guards every /api route except /api/auth.
	Auth fiber.Handler
	Log  *zap.Logger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	var guard []fiber.Handler
	if d.Auth != nil {
		guard = append(guard, d.Auth)
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", RegisterAccount(d.Accounts, log))
	authGroup.Post("/verify-otp", VerifyOTP(d.Accounts, log))
	authGroup.Post("/login", Login(d.Accounts, log))
	authGroup.Post("/resend-otp", ResendOTP(d.Accounts, log))

	users := api.Group("/users", guard...)
	users.Get("/profile", GetProfile(d.Accounts, log))
	users.Put("/profile", UpdateProfile(d.Accounts, log))
	users.Post("/family-members", AddFamilyMember(d.Accounts, log))
	users.Get("/search", SearchUser(d.Accounts, log))

	docs := api.Group("/documents", guard...)
	docs.Get("/", ListDocuments(d.Documents, log))
	docs.Post("/upload", UploadDocument(d.Documents, log))
	docs.Get("/:id", GetDocument(d.Documents, log))
	docs.Get("/:id/download", DownloadDocument(d.Documents, log))
	docs.Put("/:id", UpdateDocument(d.Documents, log))
	docs.Delete("/:id", DeleteDocument(d.Documents, log))
	docs.Post("/:id/share", ShareDocument(d.Documents, log))
}
