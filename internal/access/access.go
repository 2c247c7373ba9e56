// Package access holds the role-based authorization rules that gate every
// account and user operation.
package access

import (
	"context"
	"fmt"

	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/identity"
)

// Session is the acting identity. The zero value is a logged out session.
type Session struct {
	UserID   string
	Username string
	Role     identity.Role
}

// NewSession starts a session for user.
func NewSession(user identity.User) Session {
	return Session{UserID: user.ID, Username: user.Username, Role: user.Role}
}

// LoggedIn reports whether the session carries an identity.
func (s Session) LoggedIn() bool {
	return s.UserID != ""
}

type sessionKey struct{}

// WithSession stores the session on ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored on ctx, or a logged out session.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey{}).(Session)
	return s
}

// Controller evaluates authorization rules.
type Controller struct{}

// NewController builds an access controller.
func NewController() Controller {
	return Controller{}
}

// RequireLogin rejects logged out sessions.
func (Controller) RequireLogin(s Session) error {
	if !s.LoggedIn() {
		return bankerr.ErrNotAuthenticated
	}
	return nil
}

// AuthorizeAccount allows staff on any account and clients on their own.
func (c Controller) AuthorizeAccount(s Session, ownerID string) error {
	if err := c.RequireLogin(s); err != nil {
		return err
	}
	if s.Role.IsStaff() || s.UserID == ownerID {
		return nil
	}
	return fmt.Errorf("%w: account belongs to another user", bankerr.ErrForbidden)
}

// AuthorizeTransfer checks the source account and requires staff when money
// leaves for another owner.
func (c Controller) AuthorizeTransfer(s Session, fromOwnerID, toOwnerID string) error {
	if err := c.AuthorizeAccount(s, fromOwnerID); err != nil {
		return err
	}
	if fromOwnerID != toOwnerID && !s.Role.IsStaff() {
		return fmt.Errorf("%w: transfers between different owners require a banker", bankerr.ErrForbidden)
	}
	return nil
}

// RequireStaff allows bankers and admins.
func (c Controller) RequireStaff(s Session) error {
	if err := c.RequireLogin(s); err != nil {
		return err
	}
	if !s.Role.IsStaff() {
		return fmt.Errorf("%w: banker or admin access required", bankerr.ErrForbidden)
	}
	return nil
}

// RequireAdmin allows admins only.
func (c Controller) RequireAdmin(s Session) error {
	if err := c.RequireLogin(s); err != nil {
		return err
	}
	if s.Role != identity.RoleAdmin {
		return fmt.Errorf("%w: admin access required", bankerr.ErrForbidden)
	}
	return nil
}

// AuthorizeUserCreation lets staff create clients; other roles need an admin.
func (c Controller) AuthorizeUserCreation(s Session, role identity.Role) error {
	if role == identity.RoleClient {
		return c.RequireStaff(s)
	}
	return c.RequireAdmin(s)
}

// AuthorizeUserDeletion requires an admin and forbids deleting oneself.
func (c Controller) AuthorizeUserDeletion(s Session, targetUserID string) error {
	if err := c.RequireAdmin(s); err != nil {
		return err
	}
	if s.UserID == targetUserID {
		return fmt.Errorf("%w: cannot delete your own user", bankerr.ErrInvalidOperation)
	}
	return nil
}
