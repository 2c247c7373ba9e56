package account

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/bankerr"
)

// WithdrawalCheck is one step of the withdrawal validation pipeline.
type WithdrawalCheck struct {
	Name  string
	check func(a *Account, amount decimal.Decimal) error
}

var (
	checkSingleLimit = WithdrawalCheck{Name: "single_withdrawal_limit", check: func(a *Account, amount decimal.Decimal) error {
		if amount.GreaterThan(a.SingleWithdrawalLimit) {
			return fmt.Errorf("%w: maximum %s", bankerr.ErrSingleWithdrawalLimitExceeded, a.SingleWithdrawalLimit.StringFixed(2))
		}
		return nil
	}}

	checkDailyLimit = WithdrawalCheck{Name: "daily_withdrawal_limit", check: func(a *Account, amount decimal.Decimal) error {
		if amount.GreaterThan(a.DailyWithdrawalLimit) {
			return fmt.Errorf("%w: maximum %s", bankerr.ErrDailyWithdrawalLimitExceeded, a.DailyWithdrawalLimit.StringFixed(2))
		}
		return nil
	}}

	checkFunds = WithdrawalCheck{Name: "sufficient_funds", check: func(a *Account, amount decimal.Decimal) error {
		if amount.GreaterThan(a.Balance) {
			return fmt.Errorf("%w: current balance %s", bankerr.ErrInsufficientFunds, a.Balance.StringFixed(2))
		}
		return nil
	}}

	checkCreditLimit = WithdrawalCheck{Name: "credit_limit", check: func(a *Account, amount decimal.Decimal) error {
		if a.Balance.Abs().Add(amount).GreaterThan(a.CreditLimit) {
			return fmt.Errorf("%w: available credit %s", bankerr.ErrCreditLimitExceeded, a.AvailableCredit().StringFixed(2))
		}
		return nil
	}}
)

// WithdrawalChecks returns the ordered checks a withdrawal from kind must pass.
// Kind-specific limits come first; the funds check is always last.
func WithdrawalChecks(kind Kind) []WithdrawalCheck {
	switch kind {
	case KindStudentSavings:
		return []WithdrawalCheck{checkSingleLimit, checkDailyLimit, checkFunds}
	case KindSavings:
		return []WithdrawalCheck{checkDailyLimit, checkFunds}
	case KindCredit:
		return []WithdrawalCheck{checkCreditLimit}
	default:
		return []WithdrawalCheck{checkFunds}
	}
}
