package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/banka/internal/account"
	"github.com/congo-pay/banka/internal/ledger"
)

// Postgres is a Store backed by a pgx pool; units of work are database
// transactions.
type Postgres struct {
	db       *pgxpool.Pool
	accounts *account.PostgresRepository
	ledger   *ledger.PostgresLedger
}

// NewPostgres wraps a connection pool.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{
		db:       db,
		accounts: account.NewPostgresRepository(db),
		ledger:   ledger.NewPostgresLedger(db),
	}
}

func (p *Postgres) Accounts() account.Repository { return p.accounts }

func (p *Postgres) Ledger() ledger.Ledger { return p.ledger }

func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(ctx, Tx{Accounts: account.NewPostgresRepository(tx), Ledger: ledger.NewPostgresLedger(tx)}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ Store = (*Postgres)(nil)
