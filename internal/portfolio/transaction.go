package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/folio/internal/errs"
)

// Side is the direction of a transaction.
type Side int

const (
	Buy Side = iota
	Sell
	Short
	Cover
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case Short:
		return "short"
	case Cover:
		return "cover"
	default:
		return "unknown"
	}
}

// ParseSide parses a transaction side string.
func ParseSide(s string) (Side, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	case "short":
		return Short, nil
	case "cover":
		return Cover, nil
	default:
		return 0, errs.Newf(errs.InvalidInput, "unknown transaction side %q", s)
	}
}

// Increases reports whether the side adds signed shares to a position.
func (s Side) Increases() bool { return s == Buy || s == Cover }

// Transaction is a single fill. Shares carries the sign convention: positive
// for buys/covers, negative for sells/shorts.
type Transaction struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Shares float64   `json:"shares"`
	Price  float64   `json:"price"`
	Side   Side      `json:"side"`
}

// Notional is the signed shares x price.
func (t Transaction) Notional() float64 { return t.Shares * t.Price }

// GrossNotional is |shares x price|.
func (t Transaction) GrossNotional() float64 { return math.Abs(t.Shares * t.Price) }

// TransactionSeries is an ordered sequence of transactions keyed by date.
// Multiple transactions per date (and per symbol) are permitted.
type TransactionSeries struct {
	txns []Transaction
}

// NewTransactionSeries validates non-decreasing dates and wraps the slice.
func NewTransactionSeries(txns []Transaction) (*TransactionSeries, error) {
	for i := 1; i < len(txns); i++ {
		if txns[i].Date.Before(txns[i-1].Date) {
			return nil, errs.Newf(errs.InvalidInput, "transactions out of order at index %d", i)
		}
	}
	return &TransactionSeries{txns: append([]Transaction(nil), txns...)}, nil
}

// Len returns the number of transactions.
func (ts *TransactionSeries) Len() int { return len(ts.txns) }

// Empty reports whether there are no transactions.
func (ts *TransactionSeries) Empty() bool { return len(ts.txns) == 0 }

// All returns a copy of the transactions in order.
func (ts *TransactionSeries) All() []Transaction {
	return append([]Transaction(nil), ts.txns...)
}

// ForDay returns transactions whose date falls on the same calendar day as d.
func (ts *TransactionSeries) ForDay(d time.Time) []Transaction {
	dayStart := d.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.AddDate(0, 0, 1)
	lo := sort.Search(len(ts.txns), func(i int) bool { return !ts.txns[i].Date.Before(dayStart) })
	var out []Transaction
	for i := lo; i < len(ts.txns) && ts.txns[i].Date.Before(dayEnd); i++ {
		out = append(out, ts.txns[i])
	}
	return out
}

// Days returns the distinct calendar days with at least one transaction.
func (ts *TransactionSeries) Days() []time.Time {
	var days []time.Time
	for _, t := range ts.txns {
		day := t.Date.UTC().Truncate(24 * time.Hour)
		if len(days) == 0 || !days[len(days)-1].Equal(day) {
			days = append(days, day)
		}
	}
	return days
}
