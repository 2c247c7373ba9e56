package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/infra"
)

// Repository persists accounts and their balance history.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	Get(ctx context.Context, id string) (*Account, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Account, error)
	List(ctx context.Context) ([]*Account, error)
	// SaveBalance stores a new balance and appends it to the account history.
	SaveBalance(ctx context.Context, id string, balance decimal.Decimal, at time.Time) error
	LinkSavings(ctx context.Context, checkingID, savingsID string) error
	Delete(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db infra.DBTX
}

// NewPostgresRepository builds a Postgres-backed account repository. db may
// be a pool or a transaction.
func NewPostgresRepository(db infra.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectAccount = `SELECT id, owner_id, kind, balance, created_at, interest_rate, daily_withdrawal_limit,
        single_withdrawal_limit, credit_limit, grace_period_end, linked_savings_id FROM accounts`

// Create inserts the account and its seed history snapshot.
func (r *PostgresRepository) Create(ctx context.Context, a *Account) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(a.OwnerID)
	if err != nil {
		return err
	}
	var linked *uuid.UUID
	if a.LinkedSavingsID != "" {
		l, err := uuid.Parse(a.LinkedSavingsID)
		if err != nil {
			return err
		}
		linked = &l
	}

	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, owner_id, kind, balance, created_at, interest_rate,
        daily_withdrawal_limit, single_withdrawal_limit, credit_limit, grace_period_end, linked_savings_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, ownerID, string(a.Kind), a.Balance, a.CreatedAt.UTC(),
		nullable(a.Kind.TracksHistory(), a.InterestRate),
		nullable(a.Kind.IsSavings(), a.DailyWithdrawalLimit),
		nullable(a.Kind == KindStudentSavings, a.SingleWithdrawalLimit),
		nullable(a.Kind == KindCredit, a.CreditLimit),
		nullableTime(a.Kind == KindCredit, a.GracePeriodEnd),
		linked,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	for _, s := range a.History.Snapshots() {
		if err := r.insertSnapshot(ctx, id, s.At, s.Balance); err != nil {
			return err
		}
	}
	return nil
}

// Get fetches an account with its balance history.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: account %s", bankerr.ErrNotFound, id)
	}
	a, err := scanAccount(r.db.QueryRow(ctx, selectAccount+` WHERE id = $1`, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", bankerr.ErrNotFound, id)
		}
		return nil, err
	}
	if err := r.loadHistory(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByOwner returns the accounts a user owns, oldest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Account, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s", bankerr.ErrNotFound, ownerID)
	}
	return r.list(ctx, selectAccount+` WHERE owner_id = $1 ORDER BY created_at, id`, owner)
}

// List returns every account, oldest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Account, error) {
	return r.list(ctx, selectAccount+` ORDER BY created_at, id`)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*Account, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var accounts []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		accounts = append(accounts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if err := r.loadHistory(ctx, a); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

// SaveBalance updates the balance and records the history snapshot.
func (r *PostgresRepository) SaveBalance(ctx context.Context, id string, balance decimal.Decimal, at time.Time) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: account %s", bankerr.ErrNotFound, id)
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, accountID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", bankerr.ErrNotFound, id)
	}
	return r.insertSnapshot(ctx, accountID, at, balance)
}

// LinkSavings points a checking account at its savings account.
func (r *PostgresRepository) LinkSavings(ctx context.Context, checkingID, savingsID string) error {
	checking, err := uuid.Parse(checkingID)
	if err != nil {
		return fmt.Errorf("%w: account %s", bankerr.ErrNotFound, checkingID)
	}
	savings, err := uuid.Parse(savingsID)
	if err != nil {
		return fmt.Errorf("%w: account %s", bankerr.ErrNotFound, savingsID)
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET linked_savings_id = $1 WHERE id = $2 AND kind = 'Checking'`, savings, checking)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: checking account %s", bankerr.ErrNotFound, checkingID)
	}
	return nil
}

// Delete removes the account; its history goes with it.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: account %s", bankerr.ErrNotFound, id)
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", bankerr.ErrNotFound, id)
	}
	return nil
}

func (r *PostgresRepository) insertSnapshot(ctx context.Context, accountID uuid.UUID, at time.Time, balance decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `INSERT INTO balance_history (account_id, recorded_at, balance) VALUES ($1, $2, $3)`,
		accountID, at.UTC(), balance)
	if err != nil {
		return fmt.Errorf("insert balance snapshot: %w", err)
	}
	return nil
}

func (r *PostgresRepository) loadHistory(ctx context.Context, a *Account) error {
	if !a.Kind.TracksHistory() {
		return nil
	}
	rows, err := r.db.Query(ctx, `SELECT recorded_at, balance FROM balance_history
        WHERE account_id = $1 ORDER BY recorded_at, seq`, uuid.MustParse(a.ID))
	if err != nil {
		return err
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.At, &s.Balance); err != nil {
			return err
		}
		s.At = s.At.UTC()
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	a.History = NewHistory(snapshots...)
	return nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		id, ownerID                 uuid.UUID
		kind                        string
		a                           Account
		rate, daily, single, credit decimal.NullDecimal
		graceEnd                    *time.Time
		linked                      *uuid.UUID
	)
	if err := row.Scan(&id, &ownerID, &kind, &a.Balance, &a.CreatedAt, &rate, &daily, &single, &credit, &graceEnd, &linked); err != nil {
		return nil, err
	}
	a.ID = id.String()
	a.OwnerID = ownerID.String()
	a.Kind = Kind(kind)
	a.CreatedAt = a.CreatedAt.UTC()
	a.InterestRate = rate.Decimal
	a.DailyWithdrawalLimit = daily.Decimal
	a.SingleWithdrawalLimit = single.Decimal
	a.CreditLimit = credit.Decimal
	if graceEnd != nil {
		a.GracePeriodEnd = graceEnd.UTC()
	}
	if linked != nil {
		a.LinkedSavingsID = linked.String()
	}
	return &a, nil
}

func nullable(set bool, d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: set}
}

func nullableTime(set bool, t time.Time) *time.Time {
	if !set {
		return nil
	}
	u := t.UTC()
	return &u
}
