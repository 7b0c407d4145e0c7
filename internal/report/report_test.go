package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/folio/internal/portfolio"
	"github.com/sawpanic/folio/internal/timeseries"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func returnSeries(t *testing.T, n int) *timeseries.Series {
	t.Helper()
	dates := make([]time.Time, n)
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		dates[i] = day(i)
		// Deterministic oscillation with positive drift.
		values[i] = 0.0005 + 0.01*float64(i%5-2)
	}
	s, err := timeseries.New(dates, values)
	require.NoError(t, err)
	return s
}

func positionHistory(t *testing.T, n int) *portfolio.PositionSeries {
	t.Helper()
	snaps := make([]portfolio.Holdings, n)
	for i := range snaps {
		h := portfolio.NewHoldings(day(i), 1000)
		h.Positions["SPY"] = portfolio.Position{Symbol: "SPY", Shares: 10, Price: 100 + float64(i)}
		snaps[i] = h
	}
	ps, err := portfolio.NewPositionSeries(snaps)
	require.NoError(t, err)
	return ps
}

func TestBuildReturnsOnly(t *testing.T) {
	returns := returnSeries(t, 252)

	sheet, err := Build(returns, nil, nil, nil, DefaultConfig())
	require.NoError(t, err)

	assert.NotZero(t, sheet.Performance.AnnualVolatility)
	assert.LessOrEqual(t, sheet.Drawdown.MaxDrawdown, 0.0)
	assert.Nil(t, sheet.Turnover, "no positions supplied")
	assert.Nil(t, sheet.Intraday, "no transactions supplied")
	assert.NotNil(t, sheet.Regimes, "default config enables regime detection")
}

func TestBuildFullInputs(t *testing.T) {
	returns := returnSeries(t, 252)
	positions := positionHistory(t, 10)
	transactions, err := portfolio.NewTransactionSeries([]portfolio.Transaction{
		{Date: day(1).Add(10 * time.Hour), Symbol: "SPY", Shares: 2, Price: 101, Side: portfolio.Buy},
		{Date: day(3).Add(10 * time.Hour), Symbol: "SPY", Shares: -1, Price: 103, Side: portfolio.Sell},
	})
	require.NoError(t, err)

	sheet, err := Build(returns, returns, positions, transactions, DefaultConfig())
	require.NoError(t, err)

	require.NotNil(t, sheet.Turnover)
	assert.Greater(t, sheet.Turnover.AverageTurnover, 0.0)
	assert.NotNil(t, sheet.Intraday)
	assert.NotNil(t, sheet.Regimes)
}

func TestBuildRegimesDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RegimeStates = 0

	sheet, err := Build(returnSeries(t, 60), nil, nil, nil, cfg)
	require.NoError(t, err)
	assert.Nil(t, sheet.Regimes)
}

func TestBuildRequiresReturns(t *testing.T) {
	single, err := timeseries.New([]time.Time{day(0)}, []float64{0.01})
	require.NoError(t, err)

	_, err = Build(single, nil, nil, nil, DefaultConfig())
	assert.Error(t, err)
}

func liquidStock() Microstructure {
	return Microstructure{
		Symbol:            "AAPL",
		AverageDailyVolume: 50_000_000,
		MarketCap:         3e12,
		SpreadBps:         2,
		ImpactCoefficient: 0.1,
		Volatility:        0.015,
	}
}

func illiquidStock() Microstructure {
	return Microstructure{
		Symbol:            "MICRO",
		AverageDailyVolume: 100_000,
		MarketCap:         5e8,
		SpreadBps:         80,
		ImpactCoefficient: 1.0,
		Volatility:        0.04,
	}
}

func TestSecurityCapacityADVBound(t *testing.T) {
	a := NewCapacityAnalyzer(DefaultConstraints())
	a.SetMarketData([]Microstructure{liquidStock()})

	sec, err := a.SecurityCapacity("AAPL", 10_000_000, 200)
	require.NoError(t, err)

	// 10% of 50M shares is the ADV bound; the 1% market cap bound is far
	// larger at this price.
	assert.InDelta(t, 5_000_000, sec.MaxPositionShares, 1e-6)
	assert.Equal(t, ConstraintADV, sec.Binding)
	assert.InDelta(t, 5_000_000*200, sec.MaxPositionDollars, 1e-3)
	assert.InDelta(t, 2_500_000, sec.MaxDailyTradeShares, 1e-6)
	assert.Equal(t, 1, sec.TradingDays, "50k shares within one day's trade limit")
	assert.Greater(t, sec.TotalCost, 0.0)
}

func TestSecurityCapacityMarketCapBound(t *testing.T) {
	m := liquidStock()
	m.MarketCap = 1e9 // 1% cap = $10M, under the ADV bound at $200.
	a := NewCapacityAnalyzer(DefaultConstraints())
	a.SetMarketData([]Microstructure{m})

	sec, err := a.SecurityCapacity("AAPL", 1_000_000, 200)
	require.NoError(t, err)
	assert.Equal(t, ConstraintMarketCap, sec.Binding)
	assert.InDelta(t, 1e9*0.01/200, sec.MaxPositionShares, 1e-6)
}

func TestSecurityCapacityShrinksOnCost(t *testing.T) {
	a := NewCapacityAnalyzer(DefaultConstraints())
	a.SetMarketData([]Microstructure{illiquidStock()})

	// At the full ADV-bound position the square-root impact exceeds the
	// 100bps limit, forcing a shrink until it fits.
	sec, err := a.SecurityCapacity("MICRO", 10_000_000, 20)
	require.NoError(t, err)
	assert.Equal(t, ConstraintCost, sec.Binding)
	assert.InDelta(t, 5000, sec.MaxPositionShares, 1e-9, "one halving brings impact under the cap")
}

func TestSecurityCapacityErrors(t *testing.T) {
	a := NewCapacityAnalyzer(DefaultConstraints())
	_, err := a.SecurityCapacity("GHOST", 1e6, 100)
	assert.Error(t, err, "unknown symbol")

	a.SetMarketData([]Microstructure{liquidStock()})
	_, err = a.SecurityCapacity("AAPL", 1e6, 0)
	assert.Error(t, err, "non-positive price")
}

func TestPortfolioCapacity(t *testing.T) {
	a := NewCapacityAnalyzer(DefaultConstraints())
	a.SetMarketData([]Microstructure{liquidStock(), illiquidStock()})

	weights := map[string]float64{"AAPL": 0.7, "MICRO": 0.2, "GHOST": 0.1}
	prices := map[string]float64{"AAPL": 200, "MICRO": 20}

	pc, err := a.PortfolioCapacity(weights, 50_000_000, prices)
	require.NoError(t, err)

	assert.Len(t, pc.Securities, 2, "unpriced symbol skipped")
	assert.Greater(t, pc.TotalCapacity, 0.0)
	assert.InDelta(t, 50_000_000/pc.TotalCapacity, pc.Utilization, 1e-12)
	assert.InDelta(t, 1-pc.Utilization, pc.Headroom(), 1e-12)
	assert.Equal(t, pc.Utilization > 0.8, pc.NearLimit(0.8))
	assert.Contains(t, pc.Constrained, "AAPL")
}

func TestPortfolioCapacityValidation(t *testing.T) {
	a := NewCapacityAnalyzer(DefaultConstraints())

	_, err := a.PortfolioCapacity(nil, 1e6, nil)
	assert.Error(t, err, "empty weights")

	_, err = a.PortfolioCapacity(map[string]float64{"GHOST": 1}, 1e6, map[string]float64{"GHOST": 10})
	assert.Error(t, err, "no analyzable securities")
}
