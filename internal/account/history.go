package account

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPeriodDays is the interest window used when callers pass zero.
const DefaultPeriodDays = 30

// Snapshot is the balance an account held from At until the next snapshot.
type Snapshot struct {
	At      time.Time
	Balance decimal.Decimal
}

// History is the append-only balance time series of a single account.
type History struct {
	snapshots []Snapshot
}

// NewHistory builds a history from snapshots already in chronological order.
func NewHistory(snapshots ...Snapshot) *History {
	h := &History{snapshots: make([]Snapshot, 0, len(snapshots))}
	for _, s := range snapshots {
		h.Record(s.At, s.Balance)
	}
	return h
}

// Record appends a snapshot. Timestamps never go backwards: a snapshot older
// than the last one is stored at the last timestamp.
func (h *History) Record(at time.Time, balance decimal.Decimal) Snapshot {
	if n := len(h.snapshots); n > 0 && at.Before(h.snapshots[n-1].At) {
		at = h.snapshots[n-1].At
	}
	s := Snapshot{At: at, Balance: balance}
	h.snapshots = append(h.snapshots, s)
	return s
}

// Len returns the number of snapshots. A nil history is empty.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.snapshots)
}

// Snapshots returns a copy of the series.
func (h *History) Snapshots() []Snapshot {
	if h == nil {
		return nil
	}
	out := make([]Snapshot, len(h.snapshots))
	copy(out, h.snapshots)
	return out
}

func (h *History) clone() *History {
	if h == nil {
		return nil
	}
	return &History{snapshots: h.Snapshots()}
}

// WeightedAverage returns the time-weighted mean balance over the periodDays
// ending at now. Each snapshot counts for as long as it was the balance, the
// last one until now. With no usable history the current balance is returned.
func (h *History) WeightedAverage(current decimal.Decimal, now time.Time, periodDays int) decimal.Decimal {
	if h.Len() <= 1 {
		return current
	}
	if periodDays <= 0 {
		periodDays = DefaultPeriodDays
	}
	start := now.AddDate(0, 0, -periodDays)

	window := make([]Snapshot, 0, len(h.snapshots))
	for _, s := range h.snapshots {
		if !s.At.Before(start) && !s.At.After(now) {
			window = append(window, s)
		}
	}
	if len(window) == 0 {
		return current
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].At.Before(window[j].At) })

	// Weights are elapsed nanoseconds; the unit cancels out in sum/total.
	var sum, total decimal.Decimal
	for i := 0; i < len(window)-1; i++ {
		w := elapsed(window[i].At, window[i+1].At)
		sum = sum.Add(window[i].Balance.Mul(w))
		total = total.Add(w)
	}
	last := window[len(window)-1]
	w := elapsed(last.At, now)
	sum = sum.Add(last.Balance.Mul(w))
	total = total.Add(w)

	if !total.IsPositive() {
		return current
	}
	return sum.Div(total)
}

func elapsed(from, to time.Time) decimal.Decimal {
	return decimal.NewFromInt(int64(to.Sub(from)))
}
