package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/banka/internal/identity"
)

// RegisterIdentityRoutes wires self-service registration.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/identity/register", h.Register)
}
