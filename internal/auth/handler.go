package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/banka/internal/access"
	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/banking"
	"github.com/congo-pay/banka/internal/identity"
)

// Handler exposes auth endpoints for login/refresh/logout.
type Handler struct {
	bank *banking.Service
	svc  *Service
}

func NewHandler(bank *banking.Service, svc *Service) *Handler {
	return &Handler{bank: bank, svc: svc}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID       string        `json:"user_id"`
	Role         identity.Role `json:"role"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
}

// Login validates credentials and returns a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	_, user, err := h.bank.Login(c.UserContext(), identity.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		return fiber.NewError(bankerr.Status(err), err.Error())
	}
	pair, err := h.svc.Login(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		UserID:       user.ID,
		Role:         user.Role,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh issues a new access token using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, exp, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"access_token": token, "expires_in": exp})
}

// Logout ends the caller's session and invalidates its tokens.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if _, err := h.bank.Logout(c.UserContext(), access.FromContext(c.UserContext())); err != nil {
		return fiber.NewError(bankerr.Status(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}
