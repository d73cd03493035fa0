package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"familyvault/internal/auth"
	"familyvault/internal/config"
	"familyvault/internal/http/middleware"
	"familyvault/internal/otp"
	"familyvault/internal/repository/memory"
	"familyvault/internal/service"
	"familyvault/internal/storage"
)

// newVaultApp wires the full route table over the memory backend.
func newVaultApp(t *testing.T) *fiber.App {
	t.Helper()
	tokens, err := auth.NewTokenService(config.JWTConfig{Secret: "e2e-secret", Issuer: "familyvault", Expiry: time.Hour})
	require.NoError(t, err)

	st := memory.NewStore()
	accounts := memory.NewAccountMemory(st)
	log := zap.NewNop()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log), BodyLimit: 12 << 20})
	app.Use(middleware.RequestID())
	RegisterRoutes(app, Deps{
		Accounts: service.NewAccountService(service.AccountDeps{
			Accounts:  accounts,
			Tokens:    tokens,
			Codes:     otp.NewGenerator(10 * time.Minute),
			Log:       log,
			ExposeOTP: true,
		}),
		Documents: service.NewDocumentService(service.DocumentDeps{
			Store:     storage.NewMemory(),
			Documents: memory.NewDocumentMemory(st),
			Accounts:  accounts,
			Log:       log,
		}),
		Auth: middleware.RequireAuth(tokens),
		Log:  log,
	})
	return app
}

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func (c *client) do(req *http.Request) (*http.Response, map[string]any) {
	c.t.Helper()
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)

	var body map[string]any
	if resp.Header.Get(fiber.HeaderContentType) == fiber.MIMEApplicationJSON {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func (c *client) json(method, target string, payload any) (*http.Response, map[string]any) {
	c.t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(c.t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.do(req)
}

// signUp registers, verifies and logs in; suffix must be two digits.
func signUp(t *testing.T, app *fiber.App, suffix string) *client {
	t.Helper()
	c := &client{t: t, app: app}
	email := "member" + suffix + "@example.com"

	resp, body := c.json(http.MethodPost, "/api/auth/register", map[string]any{
		"firstName":     "Member",
		"lastName":      "Test",
		"email":         email,
		"password":      "secret123",
		"phoneNumber":   "98765432" + suffix,
		"aadhaarNumber": "1234567890" + suffix,
		"dateOfBirth":   "1990-05-01",
		"address":       map[string]any{"city": "Pune", "pincode": "411001"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	userID := body["userId"].(string)
	code := body["otp"].(string)

	resp, body = c.json(http.MethodPost, "/api/auth/login", map[string]any{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "ACCOUNT_NOT_VERIFIED", body["error"].(map[string]any)["code"])

	resp, body = c.json(http.MethodPost, "/api/auth/verify-otp", map[string]any{"userId": userID, "otp": code})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = c.json(http.MethodPost, "/api/auth/verify-otp", map[string]any{"userId": userID, "otp": code})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_VERIFIED", body["error"].(map[string]any)["code"])

	resp, body = c.json(http.MethodPost, "/api/auth/login", map[string]any{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	c.token = body["token"].(string)
	return c
}

func TestVaultEndToEnd(t *testing.T) {
	app := newVaultApp(t)
	owner := signUp(t, app, "01")
	viewer := signUp(t, app, "02")

	payload := make([]byte, 2<<20)
	copy(payload, "%PDF-1.4\n")
	for i := 16; i < len(payload); i++ {
		payload[i] = byte(i % 251)
	}

	form, ct := multipartUpload(t, "document", "passport.pdf", "application/pdf", payload, map[string][]string{
		"title":        {"Passport"},
		"documentType": {"passport"},
		"tags":         {"travel"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", form)
	req.Header.Set(fiber.HeaderContentType, ct)
	resp, body := owner.do(req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	doc := body["document"].(map[string]any)
	docID := doc["id"].(string)
	assert.Equal(t, float64(len(payload)), doc["fileSize"])
	assert.NotContains(t, doc, "fileData")

	resp, body = owner.do(httptest.NewRequest(http.MethodGet, "/api/documents?type=passport", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	docs := body["documents"].([]any)
	require.Len(t, docs, 1)
	assert.NotContains(t, docs[0].(map[string]any), "fileData")
	assert.Equal(t, float64(1), body["pagination"].(map[string]any)["totalDocuments"])

	resp, body = owner.do(httptest.NewRequest(http.MethodGet, "/api/documents/"+docID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decoded, err := base64.StdEncoding.DecodeString(body["document"].(map[string]any)["fileData"].(string))
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)

	// Before sharing, the viewer cannot tell the document exists.
	resp, _ = viewer.do(httptest.NewRequest(http.MethodGet, "/api/documents/"+docID, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = owner.json(http.MethodPost, "/api/documents/"+docID+"/share", map[string]any{
		"userEmail":   "member02@example.com",
		"permissions": map[string]any{"canView": true},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	shared := body["document"].(map[string]any)["sharedWith"].([]any)
	require.Len(t, shared, 1)

	resp, body = owner.json(http.MethodPost, "/api/documents/"+docID+"/share", map[string]any{"userEmail": "member02@example.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE_SHARE", body["error"].(map[string]any)["code"])

	resp, body = viewer.do(httptest.NewRequest(http.MethodGet, "/api/documents/"+docID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["document"].(map[string]any)["fileData"])

	resp, body = viewer.do(httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/download", nil))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "DOWNLOAD_NOT_PERMITTED", body["error"].(map[string]any)["code"])

	resp, _ = owner.do(httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/download", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, raw)

	resp, _ = viewer.do(httptest.NewRequest(http.MethodDelete, "/api/documents/"+docID, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = owner.do(httptest.NewRequest(http.MethodDelete, "/api/documents/"+docID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range []*client{owner, viewer} {
		resp, body = c.do(httptest.NewRequest(http.MethodGet, "/api/documents", nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, body["documents"])
	}
}

func TestVaultFamilyAndProfile(t *testing.T) {
	app := newVaultApp(t)
	owner := signUp(t, app, "01")
	signUp(t, app, "02")

	resp, body := owner.do(httptest.NewRequest(http.MethodGet, "/api/users/search?aadhaar=123456789002", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "member02@example.com", body["user"].(map[string]any)["email"])

	resp, body = owner.json(http.MethodPost, "/api/users/family-members", map[string]any{
		"aadhaarNumber":    "123456789002",
		"relationshipType": "sibling",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Len(t, body["familyMembers"], 1)

	resp, body = owner.json(http.MethodPost, "/api/users/family-members", map[string]any{
		"aadhaarNumber":    "123456789002",
		"relationshipType": "sibling",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE_FAMILY_MEMBER", body["error"].(map[string]any)["code"])

	resp, body = owner.json(http.MethodPut, "/api/users/profile", map[string]any{"phoneNumber": "9876543202"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "PHONE_IN_USE", body["error"].(map[string]any)["code"])

	resp, body = owner.json(http.MethodPut, "/api/users/profile", map[string]any{"address": map[string]any{"city": "Nashik"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = owner.do(httptest.NewRequest(http.MethodGet, "/api/users/profile", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	assert.Equal(t, "Nashik", user["address"].(map[string]any)["city"])
	assert.Len(t, user["familyMembers"], 1)
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "otp")
}

func TestVaultListFarPage(t *testing.T) {
	app := newVaultApp(t)
	owner := signUp(t, app, "01")

	form, ct := multipartUpload(t, "document", "scan.pdf", "application/pdf", append([]byte("%PDF-1.4\n"), make([]byte, 512)...), map[string][]string{
		"title":        {"Scan"},
		"documentType": {"medical"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", form)
	req.Header.Set(fiber.HeaderContentType, ct)
	resp, body := owner.do(req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	for _, target := range []string{
		"/api/documents?page=4611686018427387905&limit=3",
		"/api/documents?page=9223372036854775807&limit=50",
	} {
		resp, body = owner.do(httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, resp.StatusCode, target)
		assert.Empty(t, body["documents"], target)
		assert.Equal(t, float64(1), body["pagination"].(map[string]any)["totalDocuments"], target)
	}

	resp, body = owner.do(httptest.NewRequest(http.MethodGet, "/api/documents?page=9223372036854775808", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])
}
