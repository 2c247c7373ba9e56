package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/clock"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository(), clock.Fixed{T: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Username: "alice", Password: "secret1"}, RoleClient)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != RoleClient {
		t.Fatalf("expected Client, got %s", user.Role)
	}
	if string(user.PasswordHash) == "secret1" {
		t.Fatalf("password stored in clear text")
	}

	authed, err := svc.Authenticate(ctx, Credentials{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, authed.ID)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Username: "alice", Password: "wrong-password"}); !errors.Is(err, bankerr.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Username: "bob", Password: "secret1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []Credentials{
		{Username: "al", Password: "secret1"},
		{Username: "alice", Password: "12345"},
		{Username: "   ", Password: "secret1"},
	}
	for _, creds := range cases {
		if _, err := svc.Register(ctx, creds, RoleClient); !errors.Is(err, bankerr.ErrInvalidOperation) {
			t.Fatalf("register %+v: expected invalid operation, got %v", creds, err)
		}
	}

	if _, err := svc.Register(ctx, Credentials{Username: "alice", Password: "secret1"}, RoleClient); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Username: "alice", Password: "other-pass"}, RoleClient); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}
}

func TestEnsureAdminSeedsOnce(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, Credentials{Username: "admin", Password: "admin"})
	if err != nil || !created {
		t.Fatalf("expected admin seeded, created=%v err=%v", created, err)
	}
	created, err = svc.EnsureAdmin(ctx, Credentials{Username: "admin2", Password: "admin-pass"})
	if err != nil || created {
		t.Fatalf("expected no second admin, created=%v err=%v", created, err)
	}

	admin, err := svc.FindByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if admin.Role != RoleAdmin {
		t.Fatalf("expected Admin, got %s", admin.Role)
	}
}

func TestChangeRoleRevokesTokens(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Username: "carol", Password: "secret1"}, RoleClient)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	updated, err := svc.ChangeRole(ctx, "carol", "banker")
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if updated.Role != RoleBanker || updated.TokenVersion != user.TokenVersion+1 {
		t.Fatalf("unexpected user after role change: %+v", updated)
	}

	stored, err := svc.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Role != RoleBanker || stored.TokenVersion != updated.TokenVersion {
		t.Fatalf("role change not persisted: %+v", stored)
	}

	if _, err := svc.ChangeRole(ctx, "carol", "superuser"); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("expected invalid role error, got %v", err)
	}
	if _, err := svc.ChangeRole(ctx, "nobody", RoleAdmin); !errors.Is(err, bankerr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
