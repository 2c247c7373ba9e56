package account

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/bankerr"
)

// Kind tags the account variant.
type Kind string

const (
	KindChecking       Kind = "Checking"
	KindSavings        Kind = "Savings"
	KindStudentSavings Kind = "StudentSavings"
	KindCredit         Kind = "Credit"
)

// ParseKind accepts the stored kind names case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "checking":
		return KindChecking, nil
	case "savings":
		return KindSavings, nil
	case "studentsavings", "student_savings", "student-savings":
		return KindStudentSavings, nil
	case "credit":
		return KindCredit, nil
	default:
		return "", fmt.Errorf("%w: unknown account kind %q", bankerr.ErrInvalidOperation, s)
	}
}

// DisplayName is the human readable account type.
func (k Kind) DisplayName() string {
	switch k {
	case KindChecking:
		return "Checking Account"
	case KindSavings:
		return "Savings Account"
	case KindStudentSavings:
		return "Student Savings Account"
	case KindCredit:
		return "Credit Account"
	default:
		return string(k)
	}
}

// IsSavings reports whether the kind behaves as a savings account.
func (k Kind) IsSavings() bool {
	return k == KindSavings || k == KindStudentSavings
}

// TracksHistory reports whether the kind keeps a balance history for interest.
func (k Kind) TracksHistory() bool {
	return k.IsSavings() || k == KindCredit
}

// Params carries the kind-specific terms of an account. Fields that do not
// apply to a kind are ignored.
type Params struct {
	InterestRate          decimal.Decimal
	DailyWithdrawalLimit  decimal.Decimal
	SingleWithdrawalLimit decimal.Decimal
	CreditLimit           decimal.Decimal
	GracePeriodEnd        time.Time
}

// Account is a bank account of any kind. Balances are kept rounded to cents.
type Account struct {
	ID        string
	OwnerID   string
	Kind      Kind
	Balance   decimal.Decimal
	CreatedAt time.Time

	InterestRate          decimal.Decimal
	DailyWithdrawalLimit  decimal.Decimal
	SingleWithdrawalLimit decimal.Decimal
	CreditLimit           decimal.Decimal
	GracePeriodEnd        time.Time
	LinkedSavingsID       string

	History *History
}

// New opens an account. Credit accounts always start at zero.
func New(id, ownerID string, kind Kind, initial decimal.Decimal, params Params, now time.Time) (*Account, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if initial.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance cannot be negative", bankerr.ErrInvalidAmount)
	}
	if kind == KindCredit && !initial.IsZero() {
		return nil, fmt.Errorf("%w: credit accounts open with a zero balance", bankerr.ErrInvalidOperation)
	}

	a := &Account{
		ID:        id,
		OwnerID:   ownerID,
		Kind:      kind,
		Balance:   round(initial),
		CreatedAt: now,
	}
	switch kind {
	case KindStudentSavings:
		a.SingleWithdrawalLimit = params.SingleWithdrawalLimit
		fallthrough
	case KindSavings:
		a.InterestRate = params.InterestRate
		a.DailyWithdrawalLimit = params.DailyWithdrawalLimit
	case KindCredit:
		a.InterestRate = params.InterestRate
		a.CreditLimit = params.CreditLimit
		a.GracePeriodEnd = params.GracePeriodEnd
	}
	if kind.TracksHistory() {
		a.History = NewHistory(Snapshot{At: now, Balance: a.Balance})
	}
	return a, nil
}

// Debt is the amount owed on a credit account, zero otherwise.
func (a *Account) Debt() decimal.Decimal {
	if a.Kind == KindCredit && a.Balance.IsNegative() {
		return a.Balance.Abs()
	}
	return decimal.Zero
}

// AvailableCredit is the remaining borrowing capacity of a credit account.
func (a *Account) AvailableCredit() decimal.Decimal {
	if a.Kind != KindCredit {
		return decimal.Zero
	}
	return a.CreditLimit.Sub(a.Balance.Abs())
}

// Clone returns a deep copy, including the balance history.
func (a *Account) Clone() *Account {
	cp := *a
	cp.History = a.History.clone()
	return &cp
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
