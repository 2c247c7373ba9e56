package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/banka/internal/banking"
)

// RegisterUserRoutes wires the profile and user administration endpoints.
func RegisterUserRoutes(r fiber.Router, h *banking.Handler) {
	r.Get("/me", h.Me)
	r.Get("/users", h.ListUsers)
	r.Post("/users", h.CreateUser)
	r.Patch("/users/:username/role", h.ChangeRole)
	r.Delete("/users/:username", h.DeleteUser)
}

// RegisterClockRoutes wires the time simulation endpoints.
func RegisterClockRoutes(r fiber.Router, h *banking.Handler) {
	r.Get("/clock", h.Clock)
	r.Post("/clock/simulate", h.SimulateTime)
	r.Post("/clock/advance", h.AdvanceTime)
	r.Post("/clock/real", h.RealTime)
}
