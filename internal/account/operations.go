package account

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/ledger"
)

// Change is a validated balance movement that has not been applied yet.
// Amount is signed; Balance is the balance after the movement.
type Change struct {
	AccountID string
	Kind      string
	Amount    decimal.Decimal
	Balance   decimal.Decimal
	At        time.Time
}

// Transaction converts the change into the ledger record describing it.
func (c Change) Transaction() ledger.Transaction {
	return ledger.Transaction{
		AccountID: c.AccountID,
		Kind:      c.Kind,
		Amount:    c.Amount,
		Balance:   c.Balance,
		Timestamp: c.At,
	}
}

func (a *Account) change(kind string, delta decimal.Decimal, at time.Time) Change {
	return Change{
		AccountID: a.ID,
		Kind:      kind,
		Amount:    delta,
		Balance:   round(a.Balance.Add(delta)),
		At:        at,
	}
}

// Apply commits a prepared change to the account and its history.
func (a *Account) Apply(c Change) error {
	if c.AccountID != a.ID {
		return fmt.Errorf("%w: change for account %s applied to %s", bankerr.ErrInvalidOperation, c.AccountID, a.ID)
	}
	a.Balance = c.Balance
	if a.History != nil {
		a.History.Record(c.At, c.Balance)
	}
	return nil
}

func normalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = round(amount)
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", bankerr.ErrInvalidAmount)
	}
	return amount, nil
}

// PrepareDeposit validates a deposit. On credit accounts a deposit is a
// repayment and may take the balance above zero.
func (a *Account) PrepareDeposit(amount decimal.Decimal, at time.Time) (Change, error) {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return Change{}, err
	}
	kind := ledger.KindDeposit
	if a.Kind == KindCredit {
		kind = ledger.KindRepay
	}
	return a.change(kind, amount, at), nil
}

// PrepareWithdraw runs the kind's withdrawal checks in order and returns the
// resulting change. On credit accounts a withdrawal is a borrow.
func (a *Account) PrepareWithdraw(amount decimal.Decimal, at time.Time) (Change, error) {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return Change{}, err
	}
	for _, c := range WithdrawalChecks(a.Kind) {
		if err := c.check(a, amount); err != nil {
			return Change{}, err
		}
	}
	kind := ledger.KindWithdraw
	if a.Kind == KindCredit {
		kind = ledger.KindBorrow
	}
	return a.change(kind, amount.Neg(), at), nil
}

// PrepareTransferToSavings validates moving amount from this checking account
// into target. Only the base funds check applies to the checking side.
func (a *Account) PrepareTransferToSavings(amount decimal.Decimal, target *Account, at time.Time) (out, in Change, err error) {
	if a.Kind != KindChecking {
		return Change{}, Change{}, fmt.Errorf("%w: transfers to savings start from a checking account", bankerr.ErrInvalidOperation)
	}
	if target == nil || !target.Kind.IsSavings() {
		return Change{}, Change{}, fmt.Errorf("%w: transfer target must be a savings account", bankerr.ErrInvalidOperation)
	}
	amount, err = normalizeAmount(amount)
	if err != nil {
		return Change{}, Change{}, err
	}
	if err := checkFunds.check(a, amount); err != nil {
		return Change{}, Change{}, err
	}
	in, err = target.PrepareDeposit(amount, at)
	if err != nil {
		return Change{}, Change{}, err
	}
	in.Kind = ledger.KindTransferIn
	out = a.change(ledger.KindTransferOut, amount.Neg(), at)
	return out, in, nil
}

// Deposit adds amount and returns the new balance.
func (a *Account) Deposit(amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	c, err := a.PrepareDeposit(amount, at)
	if err != nil {
		return a.Balance, err
	}
	return c.Balance, a.Apply(c)
}

// Withdraw removes amount and returns the new balance.
func (a *Account) Withdraw(amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	c, err := a.PrepareWithdraw(amount, at)
	if err != nil {
		return a.Balance, err
	}
	return c.Balance, a.Apply(c)
}

// Borrow draws on a credit line.
func (a *Account) Borrow(amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if a.Kind != KindCredit {
		return a.Balance, fmt.Errorf("%w: borrowing requires a credit account", bankerr.ErrInvalidOperation)
	}
	return a.Withdraw(amount, at)
}

// Repay pays back credit debt.
func (a *Account) Repay(amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if a.Kind != KindCredit {
		return a.Balance, fmt.Errorf("%w: repayment requires a credit account", bankerr.ErrInvalidOperation)
	}
	return a.Deposit(amount, at)
}

// TransferToSavings moves amount from this checking account into target and
// returns the checking balance.
func (a *Account) TransferToSavings(amount decimal.Decimal, target *Account, at time.Time) (decimal.Decimal, error) {
	out, in, err := a.PrepareTransferToSavings(amount, target, at)
	if err != nil {
		return a.Balance, err
	}
	if err := a.Apply(out); err != nil {
		return a.Balance, err
	}
	if err := target.Apply(in); err != nil {
		return a.Balance, err
	}
	return a.Balance, nil
}
