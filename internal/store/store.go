// Package store groups the account repository and the ledger behind a unit of
// work, so a balance update and its ledger records commit together or not at
// all.
package store

import (
	"context"

	"github.com/congo-pay/banka/internal/account"
	"github.com/congo-pay/banka/internal/ledger"
)

// Tx is the view of the repositories inside a unit of work.
type Tx struct {
	Accounts account.Repository
	Ledger   ledger.Ledger
}

// Store exposes the repositories and runs units of work.
type Store interface {
	Accounts() account.Repository
	Ledger() ledger.Ledger
	// WithinTx runs fn in a unit of work. When fn returns an error every
	// write made through tx is discarded.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
