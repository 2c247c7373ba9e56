package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/congo-pay/banka/internal/access"
	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/config"
	"github.com/congo-pay/banka/internal/identity"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Service issues and verifies session tokens. Tokens carry the user's token
// version; bumping it in the identity store revokes them.
type Service struct {
	cfg   config.Config
	users identity.Repository
	now   func() time.Time
}

// NewService builds a token service.
func NewService(cfg config.Config, users identity.Repository) *Service {
	return &Service{cfg: cfg, users: users, now: time.Now}
}

// TokenPair is returned on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues an access and refresh token for an authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	accessToken, err := s.sign(user, kindAccess, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(user, kindRefresh, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: accessToken, RefreshToken: refresh, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

func (s *Service) sign(user identity.User, kind, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	return SignHS256(Claims{
		Subject:   user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		Version:   user.TokenVersion,
		Kind:      kind,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}, []byte(secret))
}

// Refresh verifies the refresh token and returns a new access token if valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	user, err := s.verify(ctx, refreshToken, kindRefresh, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	token, err := s.sign(user, kindAccess, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return token, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Authenticate turns an access token into a session. The role comes from the
// identity store, not from the token.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (access.Session, error) {
	user, err := s.verify(ctx, accessToken, kindAccess, s.cfg.JWTSecret)
	if err != nil {
		return access.Session{}, err
	}
	return access.NewSession(user), nil
}

func (s *Service) verify(ctx context.Context, token, kind, secret string) (identity.User, error) {
	claims, err := ParseAndVerifyHS256(token, []byte(secret), s.now())
	if err != nil {
		return identity.User{}, fmt.Errorf("%w: %w", bankerr.ErrNotAuthenticated, err)
	}
	if claims.Kind != kind {
		return identity.User{}, fmt.Errorf("%w: wrong token type", bankerr.ErrNotAuthenticated)
	}
	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return identity.User{}, fmt.Errorf("%w: user not found", bankerr.ErrNotAuthenticated)
	}
	if user.TokenVersion != claims.Version {
		return identity.User{}, fmt.Errorf("%w: token version invalidated", bankerr.ErrNotAuthenticated)
	}
	return user, nil
}
