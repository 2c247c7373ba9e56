package banking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/congo-pay/banka/internal/access"
	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/identity"
)

// Login verifies credentials and starts a session.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (access.Session, identity.User, error) {
	user, err := s.users.Authenticate(ctx, creds)
	if err != nil {
		s.logger.WarnContext(ctx, "failed login attempt", slog.String("username", creds.Username))
		return access.Session{}, identity.User{}, err
	}
	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID), slog.String("username", user.Username))
	return access.NewSession(user), user, nil
}

// Logout ends the session and revokes the user's outstanding tokens. The
// returned session is logged out.
func (s *Service) Logout(ctx context.Context, sess access.Session) (access.Session, error) {
	if err := s.access.RequireLogin(sess); err != nil {
		return access.Session{}, err
	}
	if err := s.users.RevokeTokens(ctx, sess.UserID); err != nil {
		return sess, err
	}
	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", sess.UserID))
	return access.Session{}, nil
}

// RegisterUser creates a user on behalf of staff. Only admins create bankers
// and admins.
func (s *Service) RegisterUser(ctx context.Context, sess access.Session, creds identity.Credentials, role identity.Role) (identity.User, error) {
	role, err := identity.ParseRole(string(role))
	if err != nil {
		return identity.User{}, err
	}
	if err := s.access.AuthorizeUserCreation(sess, role); err != nil {
		return identity.User{}, err
	}
	user, err := s.users.Register(ctx, creds, role)
	if err != nil {
		return identity.User{}, err
	}
	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID), slog.String("role", string(role)), slog.String("by", sess.UserID))
	return user, nil
}

// ListUsers returns every user. Staff only.
func (s *Service) ListUsers(ctx context.Context, sess access.Session) ([]identity.User, error) {
	if err := s.access.RequireStaff(sess); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// ChangeRole sets a user's role. Admin only.
func (s *Service) ChangeRole(ctx context.Context, sess access.Session, username string, role identity.Role) (identity.User, error) {
	if err := s.access.RequireAdmin(sess); err != nil {
		return identity.User{}, err
	}
	user, err := s.users.ChangeRole(ctx, username, role)
	if err != nil {
		return identity.User{}, err
	}
	s.logger.InfoContext(ctx, "role changed", slog.String("user_id", user.ID), slog.String("role", string(user.Role)), slog.String("by", sess.UserID))
	return user, nil
}

// DeleteUser removes a user who owns no accounts. Admin only, and never the
// acting admin.
func (s *Service) DeleteUser(ctx context.Context, sess access.Session, username string) error {
	if err := s.access.RequireAdmin(sess); err != nil {
		return err
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.access.AuthorizeUserDeletion(sess, user.ID); err != nil {
		return err
	}
	owned, err := s.store.Accounts().ListByOwner(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(owned) > 0 {
		return fmt.Errorf("%w: user %s still owns %d accounts", bankerr.ErrInvalidOperation, username, len(owned))
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", user.ID), slog.String("by", sess.UserID))
	return nil
}
