package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AccountIDLocalKey is the locals key holding the authenticated account id.
const AccountIDLocalKey = "account_id"

// TokenValidator resolves a bearer token to the account id it was issued for.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// RequireAuth rejects requests without a valid bearer token. Missing, malformed,
// expired and forged tokens all produce the same 401.
func RequireAuth(tokens TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}

		accountID, err := tokens.Validate(strings.TrimSpace(token))
		if err != nil || accountID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}

		c.Locals(AccountIDLocalKey, accountID)
		return c.Next()
	}
}

// AccountID returns the account id stored by RequireAuth, or "".
func AccountID(c *fiber.Ctx) string {
	if v, ok := c.Locals(AccountIDLocalKey).(string); ok {
		return v
	}
	return ""
}
