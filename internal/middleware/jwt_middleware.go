package middleware

import (
	"strings"

	"userhub/internal/models"
	"userhub/internal/services"
	"userhub/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// TokenVerifier turns a bearer token into the identity it was issued for.
type TokenVerifier interface {
	Verify(token string) (models.Identity, error)
}

var _ TokenVerifier = (*services.TokenService)(nil)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// Failures are returned as faults so the error handler renders the envelope.
func AuthRequired(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperror.Unauthenticated("authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return apperror.Unauthenticated("authorization header format must be 'Bearer <token>'")
		}

		identity, err := tokens.Verify(parts[1])
		if err != nil {
			return err
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// CurrentUser returns the identity stored by AuthRequired.
func CurrentUser(c *fiber.Ctx) (models.Identity, bool) {
	identity, ok := c.Locals(identityKey).(models.Identity)
	return identity, ok
}
