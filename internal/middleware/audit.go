package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/banka/internal/access"
)

// Audit logs one structured line per request, tagged with the acting user
// when a session is present.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
		}
		if id := RequestIDFrom(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if sess := access.FromContext(c.UserContext()); sess.LoggedIn() {
			attrs = append(attrs, slog.String("user_id", sess.UserID), slog.String("role", string(sess.Role)))
		}
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				attrs[2] = slog.Int("status", fe.Code)
				if fe.Code < fiber.StatusInternalServerError {
					logger.Warn("request rejected", append(attrs, slog.String("error", fe.Message))...)
					return err
				}
			}
			logger.Error("request failed", append(attrs, slog.Any("error", err))...)
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}
