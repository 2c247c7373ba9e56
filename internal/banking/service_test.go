package banking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/access"
	"github.com/congo-pay/banka/internal/account"
	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/clock"
	"github.com/congo-pay/banka/internal/config"
	"github.com/congo-pay/banka/internal/identity"
	"github.com/congo-pay/banka/internal/ledger"
	"github.com/congo-pay/banka/internal/logging"
	"github.com/congo-pay/banka/internal/notification"
	"github.com/congo-pay/banka/internal/store"
)

var day0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	sim      *clock.Simulator
	store    *store.Memory
	notifier *notification.Recorder

	admin  access.Session
	banker access.Session
	alice  access.Session
	bob    access.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sim := clock.NewSimulator(nil)
	sim.Enable(day0)
	ids := identity.NewService(identity.NewMemoryRepository(), sim)
	st := store.NewMemory()
	rec := &notification.Recorder{}

	f := &fixture{
		svc: NewService(Options{
			Store:    st,
			Users:    ids,
			Clock:    sim,
			Products: config.DefaultProducts(),
			Notifier: rec,
			Logger:   logging.Discard(),
		}),
		sim:      sim,
		store:    st,
		notifier: rec,
	}
	register := func(name string, role identity.Role) access.Session {
		user, err := ids.Register(context.Background(), identity.Credentials{Username: name, Password: "secret1"}, role)
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		return access.NewSession(user)
	}
	f.admin = register("root", identity.RoleAdmin)
	f.banker = register("banker", identity.RoleBanker)
	f.alice = register("alice", identity.RoleClient)
	f.bob = register("bob", identity.RoleClient)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func (f *fixture) open(t *testing.T, sess access.Session, in OpenAccountInput) *account.Account {
	t.Helper()
	a, err := f.svc.OpenAccount(context.Background(), sess, in)
	if err != nil {
		t.Fatalf("open %s: %v", in.Kind, err)
	}
	return a
}

func (f *fixture) history(t *testing.T, id string) []ledger.Transaction {
	t.Helper()
	txs, err := ledger.Collect(f.store.Ledger().History(context.Background(), id))
	if err != nil {
		t.Fatalf("history %s: %v", id, err)
	}
	return txs
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	a, err := f.store.Accounts().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return a.Balance
}

func TestOpenAccountAppliesDefaults(t *testing.T) {
	f := newFixture(t)

	a := f.open(t, f.alice, OpenAccountInput{Kind: account.KindStudentSavings, InitialDeposit: dec("300")})
	if a.OwnerID != f.alice.UserID {
		t.Fatalf("owner = %s, want session user", a.OwnerID)
	}
	p := config.DefaultProducts()
	if !a.InterestRate.Equal(p.StudentInterestRate) || !a.SingleWithdrawalLimit.Equal(p.StudentSingleLimit) {
		t.Fatalf("defaults not applied: rate=%s single=%s", a.InterestRate, a.SingleWithdrawalLimit)
	}

	txs := f.history(t, a.ID)
	if len(txs) != 1 || txs[0].Kind != ledger.KindInitialDeposit || !txs[0].Amount.Equal(dec("300")) {
		t.Fatalf("unexpected opening records %+v", txs)
	}

	empty := f.open(t, f.alice, OpenAccountInput{Kind: account.KindChecking})
	if n := len(f.history(t, empty.ID)); n != 0 {
		t.Fatalf("zero opening balance should not be recorded, got %d records", n)
	}
}

func TestOpenAccountForOtherOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.OpenAccount(ctx, f.alice, OpenAccountInput{OwnerID: f.bob.UserID, Kind: account.KindChecking}); !errors.Is(err, bankerr.ErrForbidden) {
		t.Fatalf("client opening for another owner: got %v", err)
	}
	a := f.open(t, f.banker, OpenAccountInput{OwnerID: f.bob.UserID, Kind: account.KindChecking})
	if a.OwnerID != f.bob.UserID {
		t.Fatalf("owner = %s", a.OwnerID)
	}
	if _, err := f.svc.OpenAccount(ctx, f.banker, OpenAccountInput{OwnerID: "missing", Kind: account.KindChecking}); !errors.Is(err, bankerr.ErrNotFound) {
		t.Fatalf("unknown owner: got %v", err)
	}
	if _, err := f.svc.OpenAccount(ctx, f.alice, OpenAccountInput{Kind: account.KindCredit, InitialDeposit: dec("10")}); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("credit with opening balance: got %v", err)
	}
}

func TestLoggedOutSessionIsRejected(t *testing.T) {
	f := newFixture(t)
	a := f.open(t, f.alice, OpenAccountInput{Kind: account.KindChecking, InitialDeposit: dec("50")})

	var anonymous access.Session
	if _, err := f.svc.Deposit(context.Background(), anonymous, a.ID, dec("10")); !errors.Is(err, bankerr.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	if _, err := f.svc.GetAccount(context.Background(), anonymous, a.ID); !errors.Is(err, bankerr.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}

	out, err := f.svc.Logout(context.Background(), f.alice)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if out.LoggedIn() {
		t.Fatalf("session still logged in after logout")
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.open(t, f.alice, OpenAccountInput{Kind: account.KindChecking, InitialDeposit: dec("100")})

	bal, err := f.svc.Deposit(ctx, f.alice, a.ID, dec("25.50"))
	if err != nil || !bal.Equal(dec("125.50")) {
		t.Fatalf("deposit: bal=%s err=%v", bal, err)
	}
	if _, err := f.svc.Withdraw(ctx, f.alice, a.ID, dec("200")); !errors.Is(err, bankerr.ErrInsufficientFunds) {
		t.Fatalf("overdraw: got %v", err)
	}
	if _, err := f.svc.Deposit(ctx, f.bob, a.ID, dec("1")); !errors.Is(err, bankerr.ErrForbidden) {
		t.Fatalf("foreign deposit: got %v", err)
	}
	bal, err = f.svc.Withdraw(ctx, f.alice, a.ID, dec("25.50"))
	if err != nil || !bal.Equal(dec("100")) {
		t.Fatalf("withdraw: bal=%s err=%v", bal, err)
	}
	if got := f.balance(t, a.ID); !got.Equal(dec("100")) {
		t.Fatalf("stored balance = %s", got)
	}
	if n := len(f.history(t, a.ID)); n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}
}

func TestStudentSavingsSingleLimit(t *testing.T) {
	f := newFixture(t)
	a := f.open(t, f.alice, OpenAccountInput{Kind: account.KindStudentSavings, InitialDeposit: dec("1000")})

	if _, err := f.svc.Withdraw(context.Background(), f.alice, a.ID, dec("250")); !errors.Is(err, bankerr.ErrSingleWithdrawalLimitExceeded) {
		t.Fatalf("expected single withdrawal limit, got %v", err)
	}
	if got := f.balance(t, a.ID); !got.Equal(dec("1000")) {
		t.Fatalf("balance changed on failure: %s", got)
	}
}

func TestCreditBorrowing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.open(t, f.alice, OpenAccountInput{Kind: account.KindCredit, CreditLimit: ptr(dec("1000"))})

	if _, err := f.svc.Withdraw(ctx, f.alice, a.ID, dec("1200")); !errors.Is(err, bankerr.ErrCreditLimitExceeded) {
		t.Fatalf("expected credit limit exceeded, got %v", err)
	}
	bal, err := f.svc.Withdraw(ctx, f.alice, a.ID, dec("1000"))
	if err != nil || !bal.Equal(dec("-1000")) {
		t.Fatalf("borrow: bal=%s err=%v", bal, err)
	}
	txs := f.history(t, a.ID)
	if len(txs) != 1 || txs[0].Kind != ledger.KindBorrow {
		t.Fatalf("expected one borrow record, got %+v", txs)
	}
}

func TestTransferAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.open(t, f.alice, OpenAccountInput{Kind: account.KindChecking, InitialDeposit: dec("500")})
	to := f.open(t, f.bob, OpenAccountInput{Kind: account.KindChecking})

	if _, err := f.svc.Transfer(ctx, f.alice, from.ID, to.ID, dec("100")); !errors.Is(err, bankerr.ErrForbidden) {
		t.Fatalf("client cross-owner transfer: got %v", err)
	}
	if got := f.balance(t, from.ID); !got.Equal(dec("500")) {
		t.Fatalf("balance changed after denied transfer: %s", got)
	}

	before := len(f.history(t, from.ID)) + len(f.history(t, to.ID))
	res, err := f.svc.Transfer(ctx, f.banker, from.ID, to.ID, dec("100"))
	if err != nil {
		t.Fatalf("banker transfer: %v", err)
	}
	if !res.FromBalance.Equal(dec("400")) || !res.ToBalance.Equal(dec("100")) {
		t.Fatalf("unexpected balances %+v", res)
	}
	after := len(f.history(t, from.ID)) + len(f.history(t, to.ID))
	if after-before != 2 {
		t.Fatalf("expected exactly two ledger entries, got %d", after-before)
	}
	if got := f.history(t, to.ID)[0].Kind; got != ledger.KindTransferIn {
		t.Fatalf("destination record kind = %s", got)
	}
	if got := f.history(t, from.ID)[0].Kind; got != ledger.KindTransferOut {
		t.Fatalf("source record kind = %s", got)
	}

	msgs := f.notifier.Messages()
	if len(msgs) != 1 || msgs[0].Kind != notification.KindTransferReceived || msgs[0].Destination != f.bob.UserID {
		t.Fatalf("unexpected notifications %+v", msgs)
	}
}

func TestTransferFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.open(t, f.alice, OpenAccountInput{Kind: account.KindChecking, InitialDeposit: dec("50")})
	to := f.open(t, f.alice, OpenAccountInput{Kind: account.KindSavings})

	if _, err := f.svc.Transfer(ctx, f.alice, from.ID, to.ID, dec("80")); !errors.Is(err, bankerr.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if _, err := f.svc.Transfer(ctx, f.alice, from.ID, from.ID, dec("10")); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("self transfer: got %v", err)
	}
	if _, err := f.svc.Transfer(ctx, f.alice, from.ID, "missing", dec("10")); !errors.Is(err, bankerr.ErrNotFound) {
		t.Fatalf("unknown destination: got %v", err)
	}
	if got := f.balance(t, from.ID); !got.Equal(dec("50")) {
		t.Fatalf("source balance = %s", got)
	}
	if n := len(f.history(t, to.ID)); n != 0 {
		t.Fatalf("destination has %d records", n)
	}
}

func TestConcurrentTransfersPreserveTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.open(t, f.alice, OpenAccountInput{Kind: account.KindChecking, InitialDeposit: dec("1000")})
	b := f.open(t, f.alice, OpenAccountInput{Kind: account.KindChecking, InitialDeposit: dec("1000")})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Transfer(ctx, f.alice, a.ID, b.ID, dec("7"))
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.Transfer(ctx, f.alice, b.ID, a.ID, dec("3"))
		}()
	}
	wg.Wait()

	total := f.balance(t, a.ID).Add(f.balance(t, b.ID))
	if !total.Equal(dec("2000")) {
		t.Fatalf("total = %s, want 2000", total)
	}
	if !f.balance(t, a.ID).Equal(dec("800")) {
		t.Fatalf("a = %s, want 800", f.balance(t, a.ID))
	}
	if n := f.svc.locks.len(); n != 0 {
		t.Fatalf("lock entries leaked: %d", n)
	}
}

func TestLinkAndTransferToSavings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	checking := f.open(t, f.alice, OpenAccountInput{Kind: account.KindChecking, InitialDeposit: dec("500")})
	savings := f.open(t, f.alice, OpenAccountInput{Kind: account.KindSavings})
	foreign := f.open(t, f.bob, OpenAccountInput{Kind: account.KindSavings})

	if _, err := f.svc.TransferToSavings(ctx, f.alice, checking.ID, dec("10")); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("unlinked transfer: got %v", err)
	}
	if err := f.svc.LinkSavings(ctx, f.banker, checking.ID, foreign.ID); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("cross-owner link: got %v", err)
	}
	if err := f.svc.LinkSavings(ctx, f.alice, savings.ID, checking.ID); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("reversed link: got %v", err)
	}
	if err := f.svc.LinkSavings(ctx, f.alice, checking.ID, savings.ID); err != nil {
		t.Fatalf("link: %v", err)
	}

	res, err := f.svc.TransferToSavings(ctx, f.alice, checking.ID, dec("200"))
	if err != nil {
		t.Fatalf("transfer to savings: %v", err)
	}
	if !res.FromBalance.Equal(dec("300")) || !res.ToBalance.Equal(dec("200")) {
		t.Fatalf("unexpected balances %+v", res)
	}
	if got := f.history(t, savings.ID)[0].Kind; got != ledger.KindTransferIn {
		t.Fatalf("savings record kind = %s", got)
	}
}

func TestCloseAccountRequiresZeroBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.open(t, f.alice, OpenAccountInput{Kind: account.KindChecking, InitialDeposit: dec("0.01")})

	if err := f.svc.CloseAccount(ctx, f.alice, a.ID); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("close at 0.01: got %v", err)
	}
	if _, err := f.svc.Withdraw(ctx, f.alice, a.ID, dec("0.01")); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := f.svc.CloseAccount(ctx, f.bob, a.ID); !errors.Is(err, bankerr.ErrForbidden) {
		t.Fatalf("foreign close: got %v", err)
	}
	if err := f.svc.CloseAccount(ctx, f.alice, a.ID); err != nil {
		t.Fatalf("close at 0.00: %v", err)
	}
	if _, err := f.store.Accounts().Get(ctx, a.ID); !errors.Is(err, bankerr.ErrNotFound) {
		t.Fatalf("closed account still present: %v", err)
	}
	msgs := f.notifier.Messages()
	if len(msgs) != 1 || msgs[0].Kind != notification.KindAccountClosed {
		t.Fatalf("unexpected notifications %+v", msgs)
	}
}

func TestAccrueInterestUsesSimulatedTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.open(t, f.alice, OpenAccountInput{Kind: account.KindSavings, InitialDeposit: dec("1000"), InterestRate: ptr(dec("0.12"))})

	if _, err := f.svc.AdvanceTime(f.admin, 30); err != nil {
		t.Fatalf("advance: %v", err)
	}
	res, err := f.svc.AccrueInterest(ctx, f.alice, a.ID)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if !res.Posted || !res.Interest.Equal(dec("10")) || !res.Balance.Equal(dec("1010")) {
		t.Fatalf("unexpected result %+v", res)
	}
	txs := f.history(t, a.ID)
	if txs[0].Kind != ledger.KindInterest || !txs[0].Timestamp.Equal(day0.AddDate(0, 0, 30)) {
		t.Fatalf("unexpected interest record %+v", txs[0])
	}

	checking := f.open(t, f.alice, OpenAccountInput{Kind: account.KindChecking, InitialDeposit: dec("1000")})
	res, err = f.svc.AccrueInterest(ctx, f.alice, checking.ID)
	if err != nil || res.Posted || !res.Balance.Equal(dec("1000")) {
		t.Fatalf("checking interest: res=%+v err=%v", res, err)
	}
}

func TestAccrueAllInterest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.open(t, f.alice, OpenAccountInput{Kind: account.KindSavings, InitialDeposit: dec("1000"), InterestRate: ptr(dec("0.12"))})
	f.open(t, f.bob, OpenAccountInput{Kind: account.KindSavings, InitialDeposit: dec("600"), InterestRate: ptr(dec("0.12"))})
	f.open(t, f.bob, OpenAccountInput{Kind: account.KindChecking, InitialDeposit: dec("600")})

	if _, err := f.svc.AccrueAllInterest(ctx, f.alice); !errors.Is(err, bankerr.ErrForbidden) {
		t.Fatalf("client interest run: got %v", err)
	}
	if _, err := f.svc.AdvanceTime(f.admin, 30); err != nil {
		t.Fatalf("advance: %v", err)
	}
	run, err := f.svc.AccrueAllInterest(ctx, f.banker)
	if err != nil {
		t.Fatalf("interest run: %v", err)
	}
	if len(run.Results) != 2 || run.Posted != 2 || !run.Total.Equal(dec("16")) {
		t.Fatalf("unexpected run %+v", run)
	}
	if n := len(f.notifier.Messages()); n != 2 {
		t.Fatalf("expected 2 interest notifications, got %d", n)
	}
}

func TestClockControlIsAdminOnly(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.SimulateTime(f.banker, day0); !errors.Is(err, bankerr.ErrForbidden) {
		t.Fatalf("banker simulate: got %v", err)
	}
	if _, err := f.svc.AdvanceTime(f.admin, 0); !errors.Is(err, bankerr.ErrInvalidAmount) {
		t.Fatalf("advance by zero: got %v", err)
	}
	st, err := f.svc.RealTime(f.admin)
	if err != nil || st.Simulated {
		t.Fatalf("real time: st=%+v err=%v", st, err)
	}
	if _, err := f.svc.AdvanceTime(f.admin, 1); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("advance without simulation: got %v", err)
	}
	st, err = f.svc.SimulateTime(f.admin, day0)
	if err != nil || !st.Simulated || !st.Now.Equal(day0) {
		t.Fatalf("simulate: st=%+v err=%v", st, err)
	}
}

func TestUserManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creds := func(name string) identity.Credentials {
		return identity.Credentials{Username: name, Password: "secret1"}
	}

	if _, err := f.svc.RegisterUser(ctx, f.alice, creds("carol"), identity.RoleClient); !errors.Is(err, bankerr.ErrForbidden) {
		t.Fatalf("client creating users: got %v", err)
	}
	if _, err := f.svc.RegisterUser(ctx, f.banker, creds("dave"), identity.RoleBanker); !errors.Is(err, bankerr.ErrForbidden) {
		t.Fatalf("banker creating banker: got %v", err)
	}
	carol, err := f.svc.RegisterUser(ctx, f.banker, creds("carol"), identity.RoleClient)
	if err != nil {
		t.Fatalf("banker creating client: %v", err)
	}

	users, err := f.svc.ListUsers(ctx, f.banker)
	if err != nil || len(users) != 5 {
		t.Fatalf("list users: n=%d err=%v", len(users), err)
	}

	promoted, err := f.svc.ChangeRole(ctx, f.admin, "carol", identity.RoleBanker)
	if err != nil || promoted.Role != identity.RoleBanker {
		t.Fatalf("change role: user=%+v err=%v", promoted, err)
	}

	f.open(t, f.alice, OpenAccountInput{Kind: account.KindChecking})
	if err := f.svc.DeleteUser(ctx, f.admin, "alice"); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("deleting an owner of accounts: got %v", err)
	}
	if err := f.svc.DeleteUser(ctx, f.admin, "root"); !errors.Is(err, bankerr.ErrInvalidOperation) {
		t.Fatalf("self delete: got %v", err)
	}
	if err := f.svc.DeleteUser(ctx, f.banker, "carol"); !errors.Is(err, bankerr.ErrForbidden) {
		t.Fatalf("banker delete: got %v", err)
	}
	if err := f.svc.DeleteUser(ctx, f.admin, carol.Username); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestLoginStartsSession(t *testing.T) {
	f := newFixture(t)

	sess, user, err := f.svc.Login(context.Background(), identity.Credentials{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !sess.LoggedIn() || sess.UserID != user.ID || sess.Role != identity.RoleClient {
		t.Fatalf("unexpected session %+v", sess)
	}
	if _, _, err := f.svc.Login(context.Background(), identity.Credentials{Username: "alice", Password: "wrong!!"}); !errors.Is(err, bankerr.ErrNotAuthenticated) {
		t.Fatalf("bad password: got %v", err)
	}
}
