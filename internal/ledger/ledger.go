package ledger

import (
	"context"
	"iter"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction kinds recorded by the banking service.
const (
	KindDeposit        = "Deposit"
	KindWithdraw       = "Withdraw"
	KindTransferIn     = "Transfer In"
	KindTransferOut    = "Transfer Out"
	KindInterest       = "Interest"
	KindBorrow         = "Borrow"
	KindRepay          = "Repay"
	KindInitialDeposit = "Initial Deposit"
)

// Transaction is an immutable record of one balance-changing event.
type Transaction struct {
	ID        string
	AccountID string
	Kind      string
	Amount    decimal.Decimal
	Balance   decimal.Decimal
	Timestamp time.Time
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
type Ledger interface {
	// Append stores tx, assigning an ID when it has none.
	Append(ctx context.Context, tx Transaction) (Transaction, error)
	// History yields the account's transactions newest first. Each range over
	// the sequence reads the backend again.
	History(ctx context.Context, accountID string) iter.Seq2[Transaction, error]
}

// Collect drains a history sequence into a slice.
func Collect(seq iter.Seq2[Transaction, error]) ([]Transaction, error) {
	var out []Transaction
	for tx, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
