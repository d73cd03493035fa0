package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"familyvault/internal/service"
)

func badBody(c *fiber.Ctx) error {
	return writeValidation(c, map[string]string{"body": "must be a valid JSON object"})
}

// RegisterAccount creates an unverified account and dispatches a verification code.
//
// @Summary     Register an account
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       body body service.RegisterInput true "Registration"
// @Success     201 {object} map[string]any
// @Failure     400 {object} errorPayload
// @Failure     409 {object} errorPayload
// @Router      /api/auth/register [post]
func RegisterAccount(svc service.AccountService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.RegisterInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}

		res, err := svc.Register(c.UserContext(), in)
		if err != nil {
			return respondError(c, log, err)
		}

		body := fiber.Map{
			"message": "User registered successfully. Please verify OTP.",
			"userId":  res.UserID,
		}
		if res.OTP != "" {
			body["otp"] = res.OTP
		}
		return c.Status(fiber.StatusCreated).JSON(body)
	}
}

// VerifyOTP verifies a pending account and signs it in.
//
// @Summary     Verify a registration code
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       body body service.VerifyInput true "Code"
// @Success     200 {object} map[string]any
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Failure     409 {object} errorPayload
// @Failure     429 {object} errorPayload
// @Router      /api/auth/verify-otp [post]
func VerifyOTP(svc service.AccountService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.VerifyInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}

		res, err := svc.VerifyOTP(c.UserContext(), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"message": "Account verified successfully",
			"token":   res.Token,
			"user":    res.Account,
		})
	}
}

// Login exchanges credentials of a verified account for a bearer token.
//
// @Summary     Log in
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       body body service.LoginInput true "Credentials"
// @Success     200 {object} map[string]any
// @Failure     400 {object} errorPayload
// @Failure     401 {object} errorPayload
// @Router      /api/auth/login [post]
func Login(svc service.AccountService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.LoginInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}

		res, err := svc.Login(c.UserContext(), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"message": "Login successful",
			"token":   res.Token,
			"user":    res.Account,
		})
	}
}

// ResendOTP issues a fresh code for a pending account.
//
// @Summary     Resend a registration code
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       body body service.ResendInput true "Account"
// @Success     200 {object} map[string]any
// @Failure     404 {object} errorPayload
// @Failure     409 {object} errorPayload
// @Failure     429 {object} errorPayload
// @Router      /api/auth/resend-otp [post]
func ResendOTP(svc service.AccountService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.ResendInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}

		res, err := svc.ResendOTP(c.UserContext(), in)
		if err != nil {
			return respondError(c, log, err)
		}

		body := fiber.Map{"message": "OTP sent successfully"}
		if res.OTP != "" {
			body["otp"] = res.OTP
		}
		return c.JSON(body)
	}
}
