// Package banking orchestrates account operations: it authorizes the acting
// session, lets the account validate the change, and commits the new balance
// together with its ledger records in one unit of work.
package banking

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/access"
	"github.com/congo-pay/banka/internal/account"
	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/clock"
	"github.com/congo-pay/banka/internal/config"
	"github.com/congo-pay/banka/internal/identity"
	"github.com/congo-pay/banka/internal/ledger"
	"github.com/congo-pay/banka/internal/logging"
	"github.com/congo-pay/banka/internal/metrics"
	"github.com/congo-pay/banka/internal/notification"
	"github.com/congo-pay/banka/internal/store"
)

// Options wires the service dependencies. Store and Users are required.
type Options struct {
	Store    store.Store
	Users    *identity.Service
	Clock    clock.Clock
	Products config.Products
	// InterestPeriodDays is the averaging window for interest; zero means 30.
	InterestPeriodDays int
	Notifier           notification.Notifier
	Logger             *slog.Logger
}

// Service is the banking facade used by the HTTP layer.
type Service struct {
	store      store.Store
	users      *identity.Service
	access     access.Controller
	clock      clock.Clock
	products   config.Products
	periodDays int
	notifier   notification.Notifier
	logger     *slog.Logger
	locks      *lockSet
}

// NewService constructs a banking service.
func NewService(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.InterestPeriodDays <= 0 {
		opts.InterestPeriodDays = account.DefaultPeriodDays
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Service{
		store:      opts.Store,
		users:      opts.Users,
		access:     access.NewController(),
		clock:      opts.Clock,
		products:   opts.Products,
		periodDays: opts.InterestPeriodDays,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		locks:      newLockSet(),
	}
}

// TransferResult carries both balances after a transfer.
type TransferResult struct {
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
}

// GetAccount returns an account the session may see.
func (s *Service) GetAccount(ctx context.Context, sess access.Session, id string) (*account.Account, error) {
	if err := s.access.RequireLogin(sess); err != nil {
		return nil, err
	}
	a, err := s.store.Accounts().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeAccount(sess, a.OwnerID); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAccounts returns the accounts of ownerID; an empty ownerID means the
// session's own accounts.
func (s *Service) ListAccounts(ctx context.Context, sess access.Session, ownerID string) ([]*account.Account, error) {
	if ownerID == "" {
		ownerID = sess.UserID
	}
	if err := s.access.AuthorizeAccount(sess, ownerID); err != nil {
		return nil, err
	}
	return s.store.Accounts().ListByOwner(ctx, ownerID)
}

// ListAllAccounts returns every account. Staff only.
func (s *Service) ListAllAccounts(ctx context.Context, sess access.Session) ([]*account.Account, error) {
	if err := s.access.RequireStaff(sess); err != nil {
		return nil, err
	}
	return s.store.Accounts().List(ctx)
}

// Deposit adds amount to the account and returns the new balance.
func (s *Service) Deposit(ctx context.Context, sess access.Session, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.mutate(ctx, sess, "deposit", []string{id}, amount, func(ctx context.Context, tx store.Tx, accts []*account.Account) error {
		a := accts[0]
		if err := s.access.AuthorizeAccount(sess, a.OwnerID); err != nil {
			return err
		}
		c, err := a.PrepareDeposit(amount, s.clock.Now())
		if err != nil {
			return err
		}
		if err := commit(ctx, tx, c); err != nil {
			return err
		}
		balance = c.Balance
		return nil
	})
	return balance, err
}

// Withdraw removes amount from the account and returns the new balance. On a
// credit account this borrows.
func (s *Service) Withdraw(ctx context.Context, sess access.Session, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.mutate(ctx, sess, "withdraw", []string{id}, amount, func(ctx context.Context, tx store.Tx, accts []*account.Account) error {
		a := accts[0]
		if err := s.access.AuthorizeAccount(sess, a.OwnerID); err != nil {
			return err
		}
		c, err := a.PrepareWithdraw(amount, s.clock.Now())
		if err != nil {
			return err
		}
		if err := commit(ctx, tx, c); err != nil {
			return err
		}
		balance = c.Balance
		return nil
	})
	return balance, err
}

// Transfer moves amount between two accounts. Moving money to another owner
// requires a banker or admin. Either both legs commit or neither does.
func (s *Service) Transfer(ctx context.Context, sess access.Session, fromID, toID string, amount decimal.Decimal) (TransferResult, error) {
	if fromID == toID {
		err := fmt.Errorf("%w: cannot transfer to the same account", bankerr.ErrInvalidOperation)
		s.observe(ctx, sess, "transfer", fromID, amount, err)
		return TransferResult{}, err
	}

	var (
		res     TransferResult
		from    *account.Account
		to      *account.Account
		crossed bool
	)
	err := s.mutate(ctx, sess, "transfer", []string{fromID, toID}, amount, func(ctx context.Context, tx store.Tx, accts []*account.Account) error {
		from, to = accts[0], accts[1]
		if err := s.access.AuthorizeTransfer(sess, from.OwnerID, to.OwnerID); err != nil {
			return err
		}
		now := s.clock.Now()
		out, err := from.PrepareWithdraw(amount, now)
		if err != nil {
			return err
		}
		in, err := to.PrepareDeposit(amount, now)
		if err != nil {
			return err
		}
		out.Kind, in.Kind = ledger.KindTransferOut, ledger.KindTransferIn
		if err := commit(ctx, tx, out, in); err != nil {
			return err
		}
		res = TransferResult{FromBalance: out.Balance, ToBalance: in.Balance}
		crossed = from.OwnerID != to.OwnerID
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	if crossed {
		s.notify(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: to.OwnerID,
			Body:        fmt.Sprintf("You received %s into account %s", amount.StringFixed(2), to.ID),
		})
	}
	return res, nil
}

// TransferToSavings moves amount from a checking account into its linked
// savings account and returns the checking balance.
func (s *Service) TransferToSavings(ctx context.Context, sess access.Session, checkingID string, amount decimal.Decimal) (TransferResult, error) {
	checking, err := s.GetAccount(ctx, sess, checkingID)
	if err != nil {
		s.observe(ctx, sess, "transfer_to_savings", checkingID, amount, err)
		return TransferResult{}, err
	}
	savingsID := checking.LinkedSavingsID
	if savingsID == "" {
		err := fmt.Errorf("%w: account %s has no linked savings account", bankerr.ErrInvalidOperation, checkingID)
		s.observe(ctx, sess, "transfer_to_savings", checkingID, amount, err)
		return TransferResult{}, err
	}

	var res TransferResult
	err = s.mutate(ctx, sess, "transfer_to_savings", []string{checkingID, savingsID}, amount, func(ctx context.Context, tx store.Tx, accts []*account.Account) error {
		checking, savings := accts[0], accts[1]
		if checking.LinkedSavingsID != savings.ID {
			return fmt.Errorf("%w: savings link changed", bankerr.ErrInvalidOperation)
		}
		if err := s.access.AuthorizeAccount(sess, checking.OwnerID); err != nil {
			return err
		}
		out, in, err := checking.PrepareTransferToSavings(amount, savings, s.clock.Now())
		if err != nil {
			return err
		}
		if err := commit(ctx, tx, out, in); err != nil {
			return err
		}
		res = TransferResult{FromBalance: out.Balance, ToBalance: in.Balance}
		return nil
	})
	return res, err
}

// LinkSavings attaches a savings account to a checking account of the same
// owner.
func (s *Service) LinkSavings(ctx context.Context, sess access.Session, checkingID, savingsID string) error {
	return s.mutate(ctx, sess, "link_savings", []string{checkingID, savingsID}, decimal.Zero, func(ctx context.Context, tx store.Tx, accts []*account.Account) error {
		checking, savings := accts[0], accts[1]
		if checking.Kind != account.KindChecking || !savings.Kind.IsSavings() {
			return fmt.Errorf("%w: link requires a checking and a savings account", bankerr.ErrInvalidOperation)
		}
		if err := s.access.AuthorizeAccount(sess, checking.OwnerID); err != nil {
			return err
		}
		if err := s.access.AuthorizeAccount(sess, savings.OwnerID); err != nil {
			return err
		}
		if checking.OwnerID != savings.OwnerID {
			return fmt.Errorf("%w: accounts must belong to the same owner", bankerr.ErrInvalidOperation)
		}
		return tx.Accounts.LinkSavings(ctx, checking.ID, savings.ID)
	})
}

// CloseAccount deletes an account whose balance is exactly zero.
func (s *Service) CloseAccount(ctx context.Context, sess access.Session, id string) error {
	var ownerID string
	err := s.mutate(ctx, sess, "close_account", []string{id}, decimal.Zero, func(ctx context.Context, tx store.Tx, accts []*account.Account) error {
		a := accts[0]
		if err := s.access.AuthorizeAccount(sess, a.OwnerID); err != nil {
			return err
		}
		if !a.Balance.IsZero() {
			return fmt.Errorf("%w: account balance is %s, must be zero to close", bankerr.ErrInvalidOperation, a.Balance.StringFixed(2))
		}
		ownerID = a.OwnerID
		return tx.Accounts.Delete(ctx, a.ID)
	})
	if err != nil {
		return err
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindAccountClosed,
		Destination: ownerID,
		Body:        fmt.Sprintf("Account %s was closed", id),
	})
	return nil
}

// History returns the account's transactions, newest first. The sequence
// reads the ledger each time it is ranged over.
func (s *Service) History(ctx context.Context, sess access.Session, id string) (iter.Seq2[ledger.Transaction, error], error) {
	if _, err := s.GetAccount(ctx, sess, id); err != nil {
		return nil, err
	}
	return s.store.Ledger().History(ctx, id), nil
}

// mutate locks ids, loads the accounts inside a unit of work and runs fn.
// The outcome is logged and counted under operation.
func (s *Service) mutate(ctx context.Context, sess access.Session, operation string, ids []string, amount decimal.Decimal, fn func(ctx context.Context, tx store.Tx, accts []*account.Account) error) error {
	err := s.access.RequireLogin(sess)
	if err == nil {
		unlock := s.locks.lock(ids...)
		err = s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			accts := make([]*account.Account, len(ids))
			for i, id := range ids {
				a, err := tx.Accounts.Get(ctx, id)
				if err != nil {
					return err
				}
				accts[i] = a
			}
			return fn(ctx, tx, accts)
		})
		unlock()
	}
	s.observe(ctx, sess, operation, ids[0], amount, err)
	return err
}

// commit persists each change and appends its ledger record.
func commit(ctx context.Context, tx store.Tx, changes ...account.Change) error {
	for _, c := range changes {
		if err := tx.Accounts.SaveBalance(ctx, c.AccountID, c.Balance, c.At); err != nil {
			return err
		}
		if _, err := tx.Ledger.Append(ctx, c.Transaction()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) observe(ctx context.Context, sess access.Session, operation, accountID string, amount decimal.Decimal, err error) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("account_id", accountID),
		slog.String("user_id", sess.UserID),
		slog.String("amount", amount.StringFixed(2)),
	}
	switch {
	case err == nil:
		metrics.ObserveOperation(operation, metrics.OutcomeSuccess, amount)
		s.logger.InfoContext(ctx, "operation committed", attrs...)
	case errors.Is(err, bankerr.ErrNotAuthenticated), errors.Is(err, bankerr.ErrForbidden):
		metrics.ObserveOperation(operation, metrics.OutcomeDenied, amount)
		s.logger.WarnContext(ctx, "operation denied", append(attrs, slog.Any("error", err))...)
	case bankerr.Status(err) < 500:
		metrics.ObserveOperation(operation, metrics.OutcomeFailed, amount)
		s.logger.InfoContext(ctx, "operation rejected", append(attrs, slog.Any("error", err))...)
	default:
		metrics.ObserveOperation(operation, metrics.OutcomeFailed, amount)
		s.logger.ErrorContext(ctx, "operation failed", append(attrs, slog.Any("error", err))...)
	}
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}
