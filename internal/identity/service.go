package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/clock"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

// ErrInvalidCredentials is returned for an unknown username or wrong password.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", bankerr.ErrNotAuthenticated)

// Service manages identity lifecycle.
type Service struct {
	repo  Repository
	clock clock.Clock
}

// NewService creates a new identity service.
func NewService(repo Repository, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{repo: repo, clock: clk}
}

// Register creates a user with the given role and stores a hashed password.
func (s *Service) Register(ctx context.Context, creds Credentials, role Role) (User, error) {
	username := strings.TrimSpace(creds.Username)
	if len(username) < minUsernameLength {
		return User{}, fmt.Errorf("%w: username must be at least %d characters", bankerr.ErrInvalidOperation, minUsernameLength)
	}
	if len(creds.Password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", bankerr.ErrInvalidOperation, minPasswordLength)
	}
	return s.create(ctx, username, creds.Password, role)
}

func (s *Service) create(ctx context.Context, username, password string, role Role) (User, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies credentials.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, bankerr.ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// EnsureAdmin registers the bootstrap administrator when no admin exists yet.
// The registration length rules do not apply, so the default admin/admin
// works. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, creds Credentials) (bool, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.Role == RoleAdmin {
			return false, nil
		}
	}
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return false, fmt.Errorf("%w: admin credentials are required", bankerr.ErrInvalidOperation)
	}
	if _, err := s.create(ctx, username, creds.Password, RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

// FindByUsername looks a user up.
func (s *Service) FindByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// FindByID looks a user up by id.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns every user.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// ChangeRole sets a user's role and revokes their outstanding tokens so the
// new role takes effect on the next login.
func (s *Service) ChangeRole(ctx context.Context, username string, role Role) (User, error) {
	role, err := ParseRole(string(role))
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if err := s.repo.UpdateRole(ctx, user.ID, role); err != nil {
		return User{}, err
	}
	if err := s.repo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1); err != nil {
		return User{}, err
	}
	user.Role = role
	user.TokenVersion++
	return user, nil
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// RevokeTokens increments the token version so older tokens become invalid.
func (s *Service) RevokeTokens(ctx context.Context, id string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}
