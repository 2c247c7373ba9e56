package ledger

import (
	"context"
	"iter"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemory is a concurrency-safe in-memory ledger useful for unit tests and
// development.
type InMemory struct {
	mu      sync.RWMutex
	records []Transaction
}

// NewInMemory creates an empty in-memory ledger.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (l *InMemory) Append(_ context.Context, tx Transaction) (Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, tx)
	return tx, nil
}

func (l *InMemory) History(_ context.Context, accountID string) iter.Seq2[Transaction, error] {
	return func(yield func(Transaction, error) bool) {
		l.mu.RLock()
		var matched []Transaction
		for i := len(l.records) - 1; i >= 0; i-- {
			if l.records[i].AccountID == accountID {
				matched = append(matched, l.records[i])
			}
		}
		l.mu.RUnlock()

		// matched is newest-inserted first; the stable sort keeps that order
		// among equal timestamps.
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		})
		for _, tx := range matched {
			if !yield(tx, nil) {
				return
			}
		}
	}
}

// Len returns the number of stored transactions.
func (l *InMemory) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Snapshot captures the current records and returns a function restoring them.
func (l *InMemory) Snapshot() (restore func()) {
	l.mu.RLock()
	n := len(l.records)
	l.mu.RUnlock()
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if n <= len(l.records) {
			l.records = l.records[:n]
		}
	}
}

var _ Ledger = (*InMemory)(nil)
