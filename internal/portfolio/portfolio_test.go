package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestHoldingsExposures(t *testing.T) {
	h := NewHoldings(day(0), 1000)
	h.Positions["AAPL"] = Position{Symbol: "AAPL", Shares: 10, Price: 150}
	h.Positions["TSLA"] = Position{Symbol: "TSLA", Shares: -5, Price: 200}

	assert.InDelta(t, 2500, h.GrossExposure(), 1e-9)
	assert.InDelta(t, 1500, h.LongExposure(), 1e-9)
	assert.InDelta(t, 1000, h.ShortExposure(), 1e-9)
	assert.InDelta(t, 1000+1500+1000, h.PortfolioValue(), 1e-9)
	assert.InDelta(t, 1000+1500-1000, h.NetLiquidation(), 1e-9)
}

func TestHoldingsClone(t *testing.T) {
	h := NewHoldings(day(0), 100)
	h.Positions["AAPL"] = Position{Symbol: "AAPL", Shares: 1, Price: 10}

	clone := h.Clone()
	clone.Positions["AAPL"] = Position{Symbol: "AAPL", Shares: 2, Price: 10}

	assert.Equal(t, 1.0, h.Positions["AAPL"].Shares, "clone must not alias the original")
}

func TestPositionSeriesOrdering(t *testing.T) {
	snaps := []Holdings{NewHoldings(day(1), 0), NewHoldings(day(0), 0)}
	_, err := NewPositionSeries(snaps)
	assert.Error(t, err, "dates must be strictly increasing")

	ordered := []Holdings{NewHoldings(day(0), 0), NewHoldings(day(1), 0)}
	ps, err := NewPositionSeries(ordered)
	require.NoError(t, err)
	assert.Equal(t, 2, ps.Len())

	got, err := ps.ByDate(day(1))
	require.NoError(t, err)
	assert.True(t, got.Date.Equal(day(1)))

	_, err = ps.ByDate(day(5))
	assert.Error(t, err)
}

func TestParseSide(t *testing.T) {
	for name, want := range map[string]Side{"buy": Buy, "sell": Sell, "short": Short, "cover": Cover} {
		got, err := ParseSide(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSide("hold")
	assert.Error(t, err)
}

func TestTransactionNotional(t *testing.T) {
	buy := Transaction{Date: day(0), Symbol: "AAPL", Shares: 100, Price: 150, Side: Buy}
	sell := Transaction{Date: day(1), Symbol: "AAPL", Shares: -100, Price: 150, Side: Sell}

	assert.InDelta(t, 15000, buy.Notional(), 1e-9)
	assert.InDelta(t, -15000, sell.Notional(), 1e-9)
	assert.InDelta(t, 15000, sell.GrossNotional(), 1e-9)
}

func TestTransactionRoundTrip(t *testing.T) {
	// Buy N at p then sell N at p: positions flat, cash back to initial
	// (zero modeled costs in the raw ledger).
	const initial = 100000.0
	h := NewHoldings(day(0), initial)

	buy := Transaction{Date: day(0), Symbol: "AAPL", Shares: 100, Price: 150, Side: Buy}
	h.Cash -= buy.Notional()
	h.Positions["AAPL"] = Position{Symbol: "AAPL", Shares: buy.Shares, Price: buy.Price}

	sell := Transaction{Date: day(1), Symbol: "AAPL", Shares: -100, Price: 150, Side: Sell}
	h.Cash -= sell.Notional()
	pos := h.Positions["AAPL"]
	pos.Shares += sell.Shares
	if pos.Shares == 0 {
		delete(h.Positions, "AAPL")
	} else {
		h.Positions["AAPL"] = pos
	}

	assert.InDelta(t, initial, h.Cash, 1e-9)
	assert.Empty(t, h.Positions)
}

func TestTransactionSeriesForDay(t *testing.T) {
	txns := []Transaction{
		{Date: day(0), Symbol: "AAPL", Shares: 10, Price: 100, Side: Buy},
		{Date: day(0).Add(4 * time.Hour), Symbol: "AAPL", Shares: -10, Price: 101, Side: Sell},
		{Date: day(1), Symbol: "TSLA", Shares: 5, Price: 200, Side: Buy},
	}
	ts, err := NewTransactionSeries(txns)
	require.NoError(t, err)

	assert.Len(t, ts.ForDay(day(0)), 2)
	assert.Len(t, ts.ForDay(day(1)), 1)
	assert.Empty(t, ts.ForDay(day(2)))
	assert.Len(t, ts.Days(), 2)
}

func TestTransactionSeriesOrdering(t *testing.T) {
	txns := []Transaction{
		{Date: day(1), Symbol: "AAPL", Shares: 1, Price: 1, Side: Buy},
		{Date: day(0), Symbol: "AAPL", Shares: 1, Price: 1, Side: Buy},
	}
	_, err := NewTransactionSeries(txns)
	assert.Error(t, err, "dates must be non-decreasing")
}
