package store

import (
	"context"
	"sync"

	"github.com/congo-pay/banka/internal/account"
	"github.com/congo-pay/banka/internal/ledger"
)

// Memory is an in-memory Store for tests and development. Units of work are
// serialized and rolled back by restoring snapshots.
type Memory struct {
	mu       sync.Mutex
	accounts *account.MemoryRepository
	ledger   *ledger.InMemory
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{accounts: account.NewMemoryRepository(), ledger: ledger.NewInMemory()}
}

func (m *Memory) Accounts() account.Repository { return m.accounts }

func (m *Memory) Ledger() ledger.Ledger { return m.ledger }

func (m *Memory) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	restoreAccounts := m.accounts.Snapshot()
	restoreLedger := m.ledger.Snapshot()
	if err := fn(ctx, Tx{Accounts: m.accounts, Ledger: m.ledger}); err != nil {
		restoreAccounts()
		restoreLedger()
		return err
	}
	return nil
}

var _ Store = (*Memory)(nil)
