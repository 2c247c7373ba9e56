package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/congo-pay/banka/internal/bankerr"
)

// Role is the access level of a user.
type Role string

const (
	RoleClient Role = "Client"
	RoleBanker Role = "Banker"
	RoleAdmin  Role = "Admin"
)

// ParseRole accepts role names case-insensitively.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client":
		return RoleClient, nil
	case "banker":
		return RoleBanker, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", bankerr.ErrInvalidOperation, s)
	}
}

// IsStaff reports whether the role may act on accounts it does not own.
func (r Role) IsStaff() bool {
	return r == RoleBanker || r == RoleAdmin
}

// User represents a registered bank user.
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	Role         Role
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Username string
	Password string
}
