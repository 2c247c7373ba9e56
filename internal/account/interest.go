package account

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/ledger"
)

var monthsPerYear = decimal.NewFromInt(12)

// WeightedAverageBalance is the time-weighted balance over the periodDays
// ending at now.
func (a *Account) WeightedAverageBalance(now time.Time, periodDays int) decimal.Decimal {
	return a.History.WeightedAverage(a.Balance, now, periodDays)
}

// InGracePeriod reports whether a credit account is still interest free.
func (a *Account) InGracePeriod(now time.Time) bool {
	return a.Kind == KindCredit && !now.After(a.GracePeriodEnd)
}

// PrepareInterest computes the monthly interest at now. The returned change
// carries the computed interest in Amount; ok is false when nothing should be
// posted, in which case Balance is the unchanged balance.
//
// Savings earn round(avg*rate/12, 2). Credit debt costs the same formula on
// the absolute average, posted as a negative amount, once the grace period
// has passed. Checking accounts never accrue.
func (a *Account) PrepareInterest(now time.Time, periodDays int) (c Change, ok bool) {
	none := func(interest decimal.Decimal) (Change, bool) {
		return Change{AccountID: a.ID, Kind: ledger.KindInterest, Amount: interest, Balance: a.Balance, At: now}, false
	}

	switch {
	case a.Kind.IsSavings():
		avg := a.WeightedAverageBalance(now, periodDays)
		interest := avg.Mul(a.InterestRate).Div(monthsPerYear).RoundBank(2)
		if !interest.IsPositive() {
			return none(interest)
		}
		return a.change(ledger.KindInterest, interest, now), true

	case a.Kind == KindCredit:
		if a.InGracePeriod(now) || !a.Balance.IsNegative() {
			return none(decimal.Zero)
		}
		avg := a.WeightedAverageBalance(now, periodDays)
		interest := avg.Abs().Mul(a.InterestRate).Div(monthsPerYear).RoundBank(2).Neg()
		if interest.IsZero() {
			return none(interest)
		}
		return a.change(ledger.KindInterest, interest, now), true

	default:
		return none(decimal.Zero)
	}
}

// MonthlyInterest computes and applies the monthly interest, returning it.
func (a *Account) MonthlyInterest(now time.Time, periodDays int) (decimal.Decimal, error) {
	c, ok := a.PrepareInterest(now, periodDays)
	if !ok {
		return c.Amount, nil
	}
	return c.Amount, a.Apply(c)
}
