// Package portfolio defines position, holdings and transaction types shared
// by the turnover, intraday and backtesting packages.
package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/folio/internal/calendar"
	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/timeseries"
)

// Position is one holding at a point in time. Weight is the fraction of
// gross portfolio value; negative for shorts.
type Position struct {
	Symbol    string    `json:"symbol"`
	Shares    float64   `json:"shares"`
	Price     float64   `json:"price"`
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
}

// Value is the signed market value of the position.
func (p Position) Value() float64 { return p.Shares * p.Price }

// Holdings is a portfolio snapshot at one date: positions plus cash.
type Holdings struct {
	Date      time.Time           `json:"date"`
	Cash      float64             `json:"cash"`
	Positions map[string]Position `json:"positions"`
}

// NewHoldings creates an empty snapshot for the given date.
func NewHoldings(date time.Time, cash float64) Holdings {
	return Holdings{Date: date, Cash: cash, Positions: make(map[string]Position)}
}

// GrossExposure is the sum of absolute position values, excluding cash.
func (h Holdings) GrossExposure() float64 {
	gross := 0.0
	for _, p := range h.Positions {
		gross += math.Abs(p.Value())
	}
	return gross
}

// LongExposure is the sum of positive position values.
func (h Holdings) LongExposure() float64 {
	long := 0.0
	for _, p := range h.Positions {
		if v := p.Value(); v > 0 {
			long += v
		}
	}
	return long
}

// ShortExposure is the magnitude of negative position values.
func (h Holdings) ShortExposure() float64 {
	short := 0.0
	for _, p := range h.Positions {
		if v := p.Value(); v < 0 {
			short -= v
		}
	}
	return short
}

// PortfolioValue is cash + longs + |shorts|.
func (h Holdings) PortfolioValue() float64 {
	return h.Cash + h.LongExposure() + h.ShortExposure()
}

// NetLiquidation is cash + longs - |shorts|.
func (h Holdings) NetLiquidation() float64 {
	return h.Cash + h.LongExposure() - h.ShortExposure()
}

// Clone deep-copies the snapshot.
func (h Holdings) Clone() Holdings {
	out := Holdings{Date: h.Date, Cash: h.Cash, Positions: make(map[string]Position, len(h.Positions))}
	for sym, p := range h.Positions {
		out.Positions[sym] = p
	}
	return out
}

// Symbols returns the held symbols in sorted order.
func (h Holdings) Symbols() []string {
	syms := make([]string, 0, len(h.Positions))
	for sym := range h.Positions {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// PositionSeries is an ordered sequence of holdings snapshots with strictly
// increasing dates.
type PositionSeries struct {
	snapshots []Holdings
}

// NewPositionSeries validates ordering and wraps the snapshots.
func NewPositionSeries(snapshots []Holdings) (*PositionSeries, error) {
	for i := 1; i < len(snapshots); i++ {
		if !snapshots[i].Date.After(snapshots[i-1].Date) {
			return nil, errs.Newf(errs.InvalidInput, "snapshots not strictly increasing at index %d (%s)", i, calendar.FormatDate(snapshots[i].Date))
		}
	}
	return &PositionSeries{snapshots: append([]Holdings(nil), snapshots...)}, nil
}

// Len returns the number of snapshots.
func (ps *PositionSeries) Len() int { return len(ps.snapshots) }

// Empty reports whether there are no snapshots.
func (ps *PositionSeries) Empty() bool { return len(ps.snapshots) == 0 }

// At returns the i-th snapshot.
func (ps *PositionSeries) At(i int) (Holdings, error) {
	if i < 0 || i >= len(ps.snapshots) {
		return Holdings{}, errs.Newf(errs.InvalidInput, "index %d out of range [0,%d)", i, len(ps.snapshots))
	}
	return ps.snapshots[i], nil
}

// ByDate looks up the snapshot at an exact date.
func (ps *PositionSeries) ByDate(date time.Time) (Holdings, error) {
	i := sort.Search(len(ps.snapshots), func(i int) bool { return !ps.snapshots[i].Date.Before(date) })
	if i < len(ps.snapshots) && ps.snapshots[i].Date.Equal(date) {
		return ps.snapshots[i], nil
	}
	return Holdings{}, errs.Newf(errs.NotFound, "no snapshot at %s", calendar.FormatDate(date))
}

// Dates returns the snapshot dates in order.
func (ps *PositionSeries) Dates() []time.Time {
	dates := make([]time.Time, len(ps.snapshots))
	for i, h := range ps.snapshots {
		dates[i] = h.Date
	}
	return dates
}

// Snapshots returns a shallow copy of the underlying snapshots.
func (ps *PositionSeries) Snapshots() []Holdings {
	return append([]Holdings(nil), ps.snapshots...)
}

// GrossSeries returns gross exposure per snapshot as a time series.
func (ps *PositionSeries) GrossSeries() (*timeseries.Series, error) {
	if ps.Empty() {
		return nil, errs.New(errs.InsufficientData, "position series is empty")
	}
	values := make([]float64, len(ps.snapshots))
	for i, h := range ps.snapshots {
		values[i] = h.GrossExposure()
	}
	return timeseries.New(ps.Dates(), values)
}
