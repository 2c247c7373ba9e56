package ledger

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/infra"
)

// PostgresLedger persists transaction records in PostgreSQL.
type PostgresLedger struct {
	db infra.DBTX
}

// NewPostgresLedger constructs a Postgres-backed ledger. db may be a pool or
// a transaction.
func NewPostgresLedger(db infra.DBTX) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Append inserts a transaction record.
func (l *PostgresLedger) Append(ctx context.Context, tx Transaction) (Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	txID, err := uuid.Parse(tx.ID)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse transaction id: %w", err)
	}
	accountID, err := uuid.Parse(tx.AccountID)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse account id: %w", err)
	}
	_, err = l.db.Exec(ctx, `INSERT INTO transactions (id, account_id, kind, amount, new_balance, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, txID, accountID, tx.Kind, tx.Amount, tx.Balance, tx.Timestamp.UTC())
	if err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// History streams an account's transactions newest first, querying on each
// iteration.
func (l *PostgresLedger) History(ctx context.Context, accountID string) iter.Seq2[Transaction, error] {
	return func(yield func(Transaction, error) bool) {
		id, err := uuid.Parse(accountID)
		if err != nil {
			yield(Transaction{}, fmt.Errorf("parse account id: %w", err))
			return
		}
		rows, err := l.db.Query(ctx, `SELECT id, account_id, kind, amount, new_balance, created_at
            FROM transactions WHERE account_id = $1 ORDER BY created_at DESC, seq DESC`, id)
		if err != nil {
			yield(Transaction{}, fmt.Errorf("query transactions: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				txID, accID     uuid.UUID
				amount, balance decimal.Decimal
				createdAt       time.Time
				tx              Transaction
			)
			if err := rows.Scan(&txID, &accID, &tx.Kind, &amount, &balance, &createdAt); err != nil {
				yield(Transaction{}, fmt.Errorf("scan transaction: %w", err))
				return
			}
			tx.ID = txID.String()
			tx.AccountID = accID.String()
			tx.Amount = amount
			tx.Balance = balance
			tx.Timestamp = createdAt.UTC()
			if !yield(tx, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Transaction{}, err)
		}
	}
}

var _ Ledger = (*PostgresLedger)(nil)
