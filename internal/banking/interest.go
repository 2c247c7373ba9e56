package banking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/banka/internal/access"
	"github.com/congo-pay/banka/internal/account"
	"github.com/congo-pay/banka/internal/notification"
	"github.com/congo-pay/banka/internal/store"
)

// InterestResult is the outcome of one account's monthly accrual.
type InterestResult struct {
	AccountID string
	Interest  decimal.Decimal
	Balance   decimal.Decimal
	Posted    bool
}

// AccrueInterest computes the monthly interest of one account at the current
// clock time. A non-zero result is persisted with its snapshot and an
// "Interest" ledger record.
func (s *Service) AccrueInterest(ctx context.Context, sess access.Session, id string) (InterestResult, error) {
	var (
		res     InterestResult
		ownerID string
	)
	err := s.mutate(ctx, sess, "accrue_interest", []string{id}, decimal.Zero, func(ctx context.Context, tx store.Tx, accts []*account.Account) error {
		a := accts[0]
		if err := s.access.AuthorizeAccount(sess, a.OwnerID); err != nil {
			return err
		}
		ownerID = a.OwnerID
		var err error
		res, err = s.accrue(ctx, tx, a)
		return err
	})
	if err != nil {
		return InterestResult{}, err
	}
	s.notifyInterest(ctx, res, ownerID)
	return res, nil
}

// InterestRun summarizes an interest run over every account.
type InterestRun struct {
	Results []InterestResult
	Posted  int
	Total   decimal.Decimal
}

// AccrueAllInterest runs the monthly accrual on every account. Staff only.
// Each account commits on its own, so a failure stops the run but keeps the
// accounts already processed.
func (s *Service) AccrueAllInterest(ctx context.Context, sess access.Session) (InterestRun, error) {
	accounts, err := s.ListAllAccounts(ctx, sess)
	if err != nil {
		s.observe(ctx, sess, "interest_run", "", decimal.Zero, err)
		return InterestRun{}, err
	}

	run := InterestRun{Total: decimal.Zero}
	for _, listed := range accounts {
		if !listed.Kind.TracksHistory() {
			continue
		}
		var res InterestResult
		err := s.mutate(ctx, sess, "accrue_interest", []string{listed.ID}, decimal.Zero, func(ctx context.Context, tx store.Tx, accts []*account.Account) error {
			var err error
			res, err = s.accrue(ctx, tx, accts[0])
			return err
		})
		if err != nil {
			return run, fmt.Errorf("accrue interest on %s: %w", listed.ID, err)
		}
		run.Results = append(run.Results, res)
		if res.Posted {
			run.Posted++
			run.Total = run.Total.Add(res.Interest)
		}
		s.notifyInterest(ctx, res, listed.OwnerID)
	}
	return run, nil
}

func (s *Service) accrue(ctx context.Context, tx store.Tx, a *account.Account) (InterestResult, error) {
	c, ok := a.PrepareInterest(s.clock.Now(), s.periodDays)
	res := InterestResult{AccountID: a.ID, Interest: c.Amount, Balance: c.Balance, Posted: ok}
	if !ok {
		return res, nil
	}
	if err := commit(ctx, tx, c); err != nil {
		return InterestResult{}, err
	}
	return res, nil
}

func (s *Service) notifyInterest(ctx context.Context, res InterestResult, ownerID string) {
	if !res.Posted {
		return
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindInterestPosted,
		Destination: ownerID,
		Body:        fmt.Sprintf("Interest of %s posted to account %s", res.Interest.StringFixed(2), res.AccountID),
	})
}
