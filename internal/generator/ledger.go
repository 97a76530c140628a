package generator

import (
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-datagen/internal/domain"
)

// ledger is the signed cash-flow timeline of one account, replayed the same
// way the exporter does: opening balance plus every amount in time order.
type ledger struct {
	opening decimal.Decimal
	events  []ledgerEvent
}

type ledgerEvent struct {
	ts     time.Time
	amount decimal.Decimal
}

func newLedger(opening float64) *ledger {
	return &ledger{opening: decimal.NewFromFloat(opening)}
}

// post inserts the transactions keeping the timeline ordered. Events with an
// equal timestamp keep insertion order.
func (l *ledger) post(txns ...domain.Transaction) {
	for _, tx := range txns {
		i := sort.Search(len(l.events), func(i int) bool { return l.events[i].ts.After(tx.Timestamp) })
		l.events = slices.Insert(l.events, i, ledgerEvent{ts: tx.Timestamp, amount: decimal.NewFromFloat(tx.Amount)})
	}
}

// lowFrom is the lowest balance the account holds at or after ts. Events
// sharing ts count as later, so the balance just before ts is included.
func (l *ledger) lowFrom(ts time.Time) float64 {
	return l.low(ts).InexactFloat64()
}

func (l *ledger) low(ts time.Time) decimal.Decimal {
	bal := l.opening
	var low decimal.Decimal
	seen := false
	for _, e := range l.events {
		if !seen && !e.ts.Before(ts) {
			low, seen = bal, true
		}
		bal = bal.Add(e.amount)
		if seen && bal.LessThan(low) {
			low = bal
		}
	}
	if !seen {
		return bal
	}
	return low
}

// covers reports whether a debit of amount at ts keeps the balance at or
// above zero from ts onward.
func (l *ledger) covers(ts time.Time, amount float64) bool {
	return l.low(ts).GreaterThanOrEqual(decimal.NewFromFloat(amount))
}
