package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/banka/internal/auth"
)

// RegisterAuthRoutes wires the public login and refresh endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/refresh", h.Refresh)
}

// RegisterLogoutRoute wires logout, which needs an authenticated session.
func RegisterLogoutRoute(r fiber.Router, h *auth.Handler) {
	r.Post("/auth/logout", h.Logout)
}
