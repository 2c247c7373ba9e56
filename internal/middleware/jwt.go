package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/banka/internal/access"
)

// Authenticator resolves a bearer token into a session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (access.Session, error)
}

// JWTAuth validates the bearer token and attaches the resulting session to
// the request context.
func JWTAuth(authn Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("bearer "):])
		sess, err := authn.Authenticate(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid or revoked token")
		}

		c.SetUserContext(access.WithSession(c.UserContext(), sess))
		c.Locals("user_id", sess.UserID)
		return c.Next()
	}
}
