package handler

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"familyvault/internal/http/middleware"
	"familyvault/internal/logger"
	"familyvault/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return writeErrorFields(c, status, code, message, nil)
}

func writeErrorFields(c *fiber.Ctx, status int, code, message string, fields map[string]string) error {
	res := errorPayload{
		RequestID: middleware.GetRequestID(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
			Fields:  fields,
		},
	}
	return c.Status(status).JSON(res)
}

func writeValidation(c *fiber.Ctx, fields map[string]string) error {
	return writeErrorFields(c, fiber.StatusBadRequest, "VALIDATION_FAILED", "validation failed", fields)
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable maps service sentinels to responses. Messages come from the
// sentinel text, which never carries internal detail.
var errorTable = []errorMapping{
	{service.ErrInvalidID, fiber.StatusBadRequest, "INVALID_ID"},
	{service.ErrFileRequired, fiber.StatusBadRequest, "FILE_REQUIRED"},
	{service.ErrFileTooLarge, fiber.StatusBadRequest, "FILE_TOO_LARGE"},
	{service.ErrUnsupportedType, fiber.StatusBadRequest, "UNSUPPORTED_FILE_TYPE"},
	{service.ErrInvalidOTP, fiber.StatusBadRequest, "INVALID_OTP"},

	{service.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{service.ErrUserNotFound, fiber.StatusNotFound, "USER_NOT_FOUND"},
	{service.ErrAccountNotFound, fiber.StatusNotFound, "USER_NOT_FOUND"},

	{service.ErrAccountExists, fiber.StatusConflict, "ACCOUNT_EXISTS"},
	{service.ErrPhoneInUse, fiber.StatusConflict, "PHONE_IN_USE"},
	{service.ErrAlreadyVerified, fiber.StatusConflict, "ALREADY_VERIFIED"},
	{service.ErrDuplicateShare, fiber.StatusConflict, "DUPLICATE_SHARE"},
	{service.ErrSelfShare, fiber.StatusConflict, "SELF_SHARE"},
	{service.ErrDuplicateFamily, fiber.StatusConflict, "DUPLICATE_FAMILY_MEMBER"},
	{service.ErrSelfFamily, fiber.StatusConflict, "SELF_FAMILY_MEMBER"},

	{service.ErrInvalidCredentials, fiber.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{service.ErrNotVerified, fiber.StatusUnauthorized, "ACCOUNT_NOT_VERIFIED"},

	{service.ErrDownloadNotPermitted, fiber.StatusForbidden, "DOWNLOAD_NOT_PERMITTED"},
	{service.ErrTooManyAttempts, fiber.StatusTooManyRequests, "TOO_MANY_ATTEMPTS"},
}

// respondError translates a service error. Unknown errors are logged and
// reported as INTERNAL_ERROR.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return writeValidation(c, verr.Fields)
	}
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return writeError(c, m.status, m.code, m.err.Error())
		}
	}

	logger.FromContext(c.UserContext(), log).Error("request_failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if !errors.As(err, &e) {
			return respondError(c, log, err)
		}

		switch e.Code {
		case fiber.StatusBadRequest:
			return writeError(c, e.Code, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, e.Code, "UNAUTHORIZED", "authentication required")
		case fiber.StatusNotFound:
			return writeError(c, e.Code, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, e.Code, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, e.Code, "FILE_TOO_LARGE", service.ErrFileTooLarge.Error())
		case fiber.StatusTooManyRequests:
			return writeError(c, e.Code, "TOO_MANY_ATTEMPTS", service.ErrTooManyAttempts.Error())
		default:
			if e.Code < fiber.StatusInternalServerError {
				return writeError(c, e.Code, "BAD_REQUEST", http.StatusText(e.Code))
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
