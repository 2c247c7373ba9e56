package banking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/access"
	"github.com/congo-pay/banka/internal/account"
	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/ledger"
	"github.com/congo-pay/banka/internal/store"
)

// OpenAccountInput describes a new account. Nil terms fall back to the
// configured product defaults.
type OpenAccountInput struct {
	OwnerID               string
	Kind                  account.Kind
	InitialDeposit        decimal.Decimal
	InterestRate          *decimal.Decimal
	DailyWithdrawalLimit  *decimal.Decimal
	SingleWithdrawalLimit *decimal.Decimal
	CreditLimit           *decimal.Decimal
	GracePeriodDays       *int
}

// OpenAccount creates an account for the session's user, or for another user
// when the session is staff. A positive opening balance is recorded as an
// "Initial Deposit".
func (s *Service) OpenAccount(ctx context.Context, sess access.Session, in OpenAccountInput) (*account.Account, error) {
	if in.OwnerID == "" {
		in.OwnerID = sess.UserID
	}
	a, err := s.openAccount(ctx, sess, in)
	id := ""
	if a != nil {
		id = a.ID
	}
	s.observe(ctx, sess, "open_account", id, in.InitialDeposit, err)
	return a, err
}

func (s *Service) openAccount(ctx context.Context, sess access.Session, in OpenAccountInput) (*account.Account, error) {
	if err := s.access.AuthorizeAccount(sess, in.OwnerID); err != nil {
		return nil, err
	}
	kind, err := account.ParseKind(string(in.Kind))
	if err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, in.OwnerID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	params, err := s.params(kind, in, now)
	if err != nil {
		return nil, err
	}
	a, err := account.New(uuid.NewString(), in.OwnerID, kind, in.InitialDeposit, params, now)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Accounts.Create(ctx, a); err != nil {
			return err
		}
		if !a.Balance.IsPositive() {
			return nil
		}
		_, err := tx.Ledger.Append(ctx, ledger.Transaction{
			AccountID: a.ID,
			Kind:      ledger.KindInitialDeposit,
			Amount:    a.Balance,
			Balance:   a.Balance,
			Timestamp: now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) params(kind account.Kind, in OpenAccountInput, now time.Time) (account.Params, error) {
	p := s.products
	var params account.Params
	switch kind {
	case account.KindSavings:
		params.InterestRate = pick(in.InterestRate, p.SavingsInterestRate)
		params.DailyWithdrawalLimit = pick(in.DailyWithdrawalLimit, p.SavingsDailyLimit)
	case account.KindStudentSavings:
		params.InterestRate = pick(in.InterestRate, p.StudentInterestRate)
		params.DailyWithdrawalLimit = pick(in.DailyWithdrawalLimit, p.StudentDailyLimit)
		params.SingleWithdrawalLimit = pick(in.SingleWithdrawalLimit, p.StudentSingleLimit)
	case account.KindCredit:
		params.InterestRate = pick(in.InterestRate, p.CreditInterestRate)
		params.CreditLimit = pick(in.CreditLimit, p.CreditLimit)
		days := p.CreditGraceDays
		if in.GracePeriodDays != nil {
			days = *in.GracePeriodDays
		}
		if days < 0 {
			return account.Params{}, fmt.Errorf("%w: grace period cannot be negative", bankerr.ErrInvalidOperation)
		}
		params.GracePeriodEnd = now.AddDate(0, 0, days)
	}

	if params.InterestRate.IsNegative() {
		return account.Params{}, fmt.Errorf("%w: interest rate cannot be negative", bankerr.ErrInvalidAmount)
	}
	for _, limit := range []decimal.Decimal{params.DailyWithdrawalLimit, params.SingleWithdrawalLimit, params.CreditLimit} {
		if limit.IsNegative() {
			return account.Params{}, fmt.Errorf("%w: limits cannot be negative", bankerr.ErrInvalidAmount)
		}
	}
	return params, nil
}

func pick(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v != nil {
		return *v
	}
	return fallback
}
