package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/banka/internal/banking"
)

// RegisterAccountRoutes wires account, money movement and interest endpoints.
// idem guards the routes that move money.
func RegisterAccountRoutes(r fiber.Router, h *banking.Handler, idem fiber.Handler) {
	r.Post("/accounts", h.OpenAccount)
	r.Get("/accounts", h.ListAccounts)
	r.Get("/accounts/all", h.ListAllAccounts)
	r.Get("/accounts/:id", h.GetAccount)
	r.Delete("/accounts/:id", h.CloseAccount)
	r.Get("/accounts/:id/transactions", h.Transactions)
	r.Post("/accounts/:id/link-savings", h.LinkSavings)

	r.Post("/accounts/:id/deposit", idem, h.Deposit)
	r.Post("/accounts/:id/withdraw", idem, h.Withdraw)
	r.Post("/accounts/:id/interest", idem, h.AccrueInterest)
	r.Post("/accounts/:id/transfer-to-savings", idem, h.TransferToSavings)
	r.Post("/transfers", idem, h.Transfer)
	r.Post("/interest/run", idem, h.InterestRun)
}
