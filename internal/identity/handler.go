package identity

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/banka/internal/bankerr"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse strips credentials from a user.
func ToResponse(user User) UserResponse {
	return UserResponse{UserID: user.ID, Username: user.Username, Role: user.Role, CreatedAt: user.CreatedAt}
}

// Register handles self-service onboarding; new users are always clients.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), Credentials{Username: req.Username, Password: req.Password}, RoleClient)
	if err != nil {
		return fiber.NewError(bankerr.Status(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(ToResponse(user))
}
