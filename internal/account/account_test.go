package account

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/ledger"
)

var day0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustOpen(t *testing.T, kind Kind, initial string, params Params) *Account {
	t.Helper()
	a, err := New("acc-"+string(kind), "owner-1", kind, dec(initial), params, day0)
	if err != nil {
		t.Fatalf("open %s: %v", kind, err)
	}
	return a
}

func TestSavingsMonthlyInterest(t *testing.T) {
	a := mustOpen(t, KindSavings, "1000", Params{InterestRate: dec("0.12"), DailyWithdrawalLimit: dec("1000")})

	now := day0.AddDate(0, 0, 30)
	if avg := a.WeightedAverageBalance(now, 30); !avg.Equal(dec("1000")) {
		t.Fatalf("expected average 1000, got %s", avg)
	}

	interest, err := a.MonthlyInterest(now, 30)
	if err != nil {
		t.Fatalf("interest: %v", err)
	}
	if !interest.Equal(dec("10")) {
		t.Fatalf("expected interest 10.00, got %s", interest)
	}
	if !a.Balance.Equal(dec("1010")) {
		t.Fatalf("expected balance 1010.00, got %s", a.Balance)
	}
	if a.History.Len() != 2 {
		t.Fatalf("expected interest snapshot, history has %d entries", a.History.Len())
	}
}

func TestStudentSingleLimitCheckedFirst(t *testing.T) {
	a := mustOpen(t, KindStudentSavings, "300", Params{
		InterestRate:          dec("0.05"),
		DailyWithdrawalLimit:  dec("500"),
		SingleWithdrawalLimit: dec("200"),
	})

	_, err := a.Withdraw(dec("250"), day0.Add(time.Hour))
	if !errors.Is(err, bankerr.ErrSingleWithdrawalLimitExceeded) {
		t.Fatalf("expected single withdrawal limit error, got %v", err)
	}
	if !a.Balance.Equal(dec("300")) {
		t.Fatalf("failed withdrawal changed balance to %s", a.Balance)
	}

	// Raise the single limit so the daily check is reached.
	a.SingleWithdrawalLimit = dec("1000")
	if _, err := a.Withdraw(dec("600"), day0); !errors.Is(err, bankerr.ErrDailyWithdrawalLimitExceeded) {
		t.Fatalf("expected daily limit error, got %v", err)
	}
	if _, err := a.Withdraw(dec("400"), day0); !errors.Is(err, bankerr.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestWithdrawalChecksOrder(t *testing.T) {
	cases := map[Kind][]string{
		KindChecking:       {"sufficient_funds"},
		KindSavings:        {"daily_withdrawal_limit", "sufficient_funds"},
		KindStudentSavings: {"single_withdrawal_limit", "daily_withdrawal_limit", "sufficient_funds"},
		KindCredit:         {"credit_limit"},
	}
	for kind, want := range cases {
		got := WithdrawalChecks(kind)
		if len(got) != len(want) {
			t.Fatalf("%s: expected %d checks, got %d", kind, len(want), len(got))
		}
		for i := range want {
			if got[i].Name != want[i] {
				t.Fatalf("%s: check %d is %s, want %s", kind, i, got[i].Name, want[i])
			}
		}
	}
}

func TestCreditBorrowAndRepay(t *testing.T) {
	a := mustOpen(t, KindCredit, "0", Params{
		CreditLimit:    dec("1000"),
		InterestRate:   dec("0.2"),
		GracePeriodEnd: day0.AddDate(0, 0, 30),
	})

	if _, err := a.Borrow(dec("1200"), day0); !errors.Is(err, bankerr.ErrCreditLimitExceeded) {
		t.Fatalf("expected credit limit error, got %v", err)
	}
	balance, err := a.Borrow(dec("1000"), day0)
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if !balance.Equal(dec("-1000")) {
		t.Fatalf("expected -1000, got %s", balance)
	}
	if !a.Debt().Equal(dec("1000")) || !a.AvailableCredit().IsZero() {
		t.Fatalf("unexpected debt %s / available %s", a.Debt(), a.AvailableCredit())
	}
	if _, err := a.Borrow(dec("0.01"), day0); !errors.Is(err, bankerr.ErrCreditLimitExceeded) {
		t.Fatalf("expected limit error at full utilisation, got %v", err)
	}

	balance, err = a.Repay(dec("1200"), day0)
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	if !balance.Equal(dec("200")) {
		t.Fatalf("overpayment should leave 200, got %s", balance)
	}
}

func TestCreditOpensAtZero(t *testing.T) {
	_, err := New("c", "o", KindCredit, dec("10"), Params{CreditLimit: dec("100")}, day0)
	if !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
}

func TestInvalidAmounts(t *testing.T) {
	a := mustOpen(t, KindChecking, "50", Params{})
	for _, amount := range []string{"0", "-5", "0.001"} {
		if _, err := a.Deposit(dec(amount), day0); !errors.Is(err, bankerr.ErrInvalidAmount) {
			t.Fatalf("deposit %s: expected invalid amount, got %v", amount, err)
		}
		if _, err := a.Withdraw(dec(amount), day0); !errors.Is(err, bankerr.ErrInvalidAmount) {
			t.Fatalf("withdraw %s: expected invalid amount, got %v", amount, err)
		}
	}
}

func TestBalanceIsSumOfDeltas(t *testing.T) {
	a := mustOpen(t, KindChecking, "0", Params{})
	deltas := []string{"10.10", "-3.05", "0.33", "-7.38", "100"}
	want := decimal.Zero
	for _, d := range deltas {
		amount := dec(d)
		var err error
		if amount.IsNegative() {
			_, err = a.Withdraw(amount.Neg(), day0)
		} else {
			_, err = a.Deposit(amount, day0)
		}
		if err != nil {
			t.Fatalf("apply %s: %v", d, err)
		}
		want = want.Add(amount)
	}
	if !a.Balance.Equal(want.Round(2)) {
		t.Fatalf("expected %s, got %s", want, a.Balance)
	}
	if _, err := a.Withdraw(dec("100.01"), day0); !errors.Is(err, bankerr.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestCheckingInterestIsNoop(t *testing.T) {
	a := mustOpen(t, KindChecking, "5000", Params{InterestRate: dec("0.5")})
	interest, err := a.MonthlyInterest(day0.AddDate(0, 2, 0), 30)
	if err != nil {
		t.Fatalf("interest: %v", err)
	}
	if !interest.IsZero() || !a.Balance.Equal(dec("5000")) {
		t.Fatalf("checking accrued %s, balance %s", interest, a.Balance)
	}
}

func TestCreditInterest(t *testing.T) {
	a := mustOpen(t, KindCredit, "0", Params{
		CreditLimit:    dec("1000"),
		InterestRate:   dec("0.2"),
		GracePeriodEnd: day0.AddDate(0, 0, 30),
	})
	if _, err := a.Borrow(dec("600"), day0); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	inGrace := day0.AddDate(0, 0, 30)
	interest, err := a.MonthlyInterest(inGrace, 30)
	if err != nil {
		t.Fatalf("interest: %v", err)
	}
	if !interest.IsZero() || !a.Balance.Equal(dec("-600")) {
		t.Fatalf("grace period accrued %s, balance %s", interest, a.Balance)
	}

	// Window [day1, day31]: the -600 balance held the whole time.
	after := day0.AddDate(0, 0, 31)
	interest, err = a.MonthlyInterest(after, 30)
	if err != nil {
		t.Fatalf("interest: %v", err)
	}
	if !interest.Equal(dec("-10")) {
		t.Fatalf("expected -10.00, got %s", interest)
	}
	if !a.Balance.Equal(dec("-610")) {
		t.Fatalf("expected -610.00, got %s", a.Balance)
	}
}

func TestCreditWithoutDebtAccruesNothing(t *testing.T) {
	a := mustOpen(t, KindCredit, "0", Params{CreditLimit: dec("1000"), InterestRate: dec("0.2")})
	c, ok := a.PrepareInterest(day0.AddDate(0, 2, 0), 30)
	if ok || !c.Amount.IsZero() {
		t.Fatalf("expected no interest, got %s (ok=%v)", c.Amount, ok)
	}
}

func TestTransferToSavings(t *testing.T) {
	checking := mustOpen(t, KindChecking, "100", Params{})
	savings := mustOpen(t, KindSavings, "0", Params{InterestRate: dec("0.03"), DailyWithdrawalLimit: dec("1000")})

	out, in, err := checking.PrepareTransferToSavings(dec("40"), savings, day0)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if out.Kind != ledger.KindTransferOut || in.Kind != ledger.KindTransferIn {
		t.Fatalf("unexpected labels %q / %q", out.Kind, in.Kind)
	}
	if !checking.Balance.Equal(dec("100")) {
		t.Fatalf("prepare must not mutate, balance %s", checking.Balance)
	}

	balance, err := checking.TransferToSavings(dec("40"), savings, day0)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !balance.Equal(dec("60")) || !savings.Balance.Equal(dec("40")) {
		t.Fatalf("expected 60/40, got %s/%s", balance, savings.Balance)
	}

	if _, err := checking.TransferToSavings(dec("61"), savings, day0); !errors.Is(err, bankerr.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	other := mustOpen(t, KindChecking, "0", Params{})
	if _, err := checking.TransferToSavings(dec("1"), other, day0); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("expected invalid operation for checking target, got %v", err)
	}
}

func TestApplyRejectsForeignChange(t *testing.T) {
	a := mustOpen(t, KindChecking, "0", Params{})
	if err := a.Apply(Change{AccountID: "someone-else"}); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"checking":        KindChecking,
		"Savings":         KindSavings,
		"student_savings": KindStudentSavings,
		"CREDIT":          KindCredit,
	} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("brokerage"); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
	if KindStudentSavings.DisplayName() != "Student Savings Account" {
		t.Fatalf("unexpected display name %q", KindStudentSavings.DisplayName())
	}
}
