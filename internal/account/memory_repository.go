package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/bankerr"
)

// MemoryRepository keeps accounts in memory for tests and development. It
// stores and hands out copies, so callers never share state with it.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewMemoryRepository constructs an empty in-memory account store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]*Account)}
}

func (r *MemoryRepository) Create(_ context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[a.ID]; exists {
		return fmt.Errorf("%w: account %s exists", bankerr.ErrInvalidOperation, a.ID)
	}
	r.accounts[a.ID] = a.Clone()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", bankerr.ErrNotFound, id)
	}
	return a.Clone(), nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]*Account, error) {
	return r.filter(func(a *Account) bool { return a.OwnerID == ownerID }), nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*Account, error) {
	return r.filter(func(*Account) bool { return true }), nil
}

func (r *MemoryRepository) filter(keep func(*Account) bool) []*Account {
	r.mu.RLock()
	var out []*Account
	for _, a := range r.accounts {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *MemoryRepository) SaveBalance(_ context.Context, id string, balance decimal.Decimal, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("%w: account %s", bankerr.ErrNotFound, id)
	}
	a.Balance = balance
	if a.History != nil {
		a.History.Record(at, balance)
	}
	return nil
}

func (r *MemoryRepository) LinkSavings(_ context.Context, checkingID, savingsID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[checkingID]
	if !ok || a.Kind != KindChecking {
		return fmt.Errorf("%w: checking account %s", bankerr.ErrNotFound, checkingID)
	}
	if _, ok := r.accounts[savingsID]; !ok {
		return fmt.Errorf("%w: account %s", bankerr.ErrNotFound, savingsID)
	}
	a.LinkedSavingsID = savingsID
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return fmt.Errorf("%w: account %s", bankerr.ErrNotFound, id)
	}
	delete(r.accounts, id)
	for _, a := range r.accounts {
		if a.LinkedSavingsID == id {
			a.LinkedSavingsID = ""
		}
	}
	return nil
}

// Snapshot copies the current state and returns a function restoring it.
func (r *MemoryRepository) Snapshot() (restore func()) {
	r.mu.RLock()
	saved := make(map[string]*Account, len(r.accounts))
	for id, a := range r.accounts {
		saved[id] = a.Clone()
	}
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.accounts = saved
	}
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)
