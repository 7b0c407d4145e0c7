package perf

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/folio/internal/stats"
	"github.com/sawpanic/folio/internal/timeseries"
)

func makeSeries(t *testing.T, values []float64) *timeseries.Series {
	t.Helper()
	dates := make([]time.Time, len(values))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	s, err := timeseries.New(dates, values)
	require.NoError(t, err)
	return s
}

var sampleReturns = []float64{0.01, -0.02, 0.015, -0.01, 0.025, -0.005, 0.02, -0.015}

func TestSharpeRatio(t *testing.T) {
	returns := makeSeries(t, sampleReturns)
	cfg := DefaultConfig()
	cfg.RiskFreeRate = 0.02

	sharpe, err := SharpeRatio(returns, cfg)
	require.NoError(t, err)
	assert.Greater(t, math.Abs(sharpe), 0.0)

	// Manual verification against the definition.
	mean, err := stats.Mean(sampleReturns)
	require.NoError(t, err)
	sd, err := stats.StdDev(sampleReturns)
	require.NoError(t, err)
	annualReturn := mean * 252
	annualVol := sd * math.Sqrt(252)
	expected := (annualReturn - 0.02) / annualVol
	assert.InDelta(t, expected, sharpe, 1e-10)
}

func TestSharpeRatioDeterministic(t *testing.T) {
	returns := makeSeries(t, sampleReturns)
	cfg := DefaultConfig()
	cfg.RiskFreeRate = 0.02

	s1, err := SharpeRatio(returns, cfg)
	require.NoError(t, err)
	s2, err := SharpeRatio(returns, cfg)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}

func TestSharpeRatioZeroVolatility(t *testing.T) {
	flat := makeSeries(t, []float64{0.01, 0.01, 0.01})
	_, err := SharpeRatio(flat, DefaultConfig())
	assert.Error(t, err)
}

func TestMaxDrawdownReference(t *testing.T) {
	returns := makeSeries(t, []float64{0.10, -0.20, 0.05, -0.10, 0.15})

	info, err := MaxDrawdown(returns)
	require.NoError(t, err)

	// Equity curve [1.10, 0.88, 0.924, 0.8316, 0.9563]: peak 1.10,
	// valley 0.8316, no recovery by end.
	assert.InDelta(t, -0.2440, info.MaxDrawdown, 1e-4)
	assert.Equal(t, returns.Dates()[0], info.PeakDate)
	assert.Equal(t, returns.Dates()[3], info.ValleyDate)
	assert.Nil(t, info.RecoveryDate)
	assert.Equal(t, 3, info.DurationDays)
}

func TestMaxDrawdownNonNegativeReturns(t *testing.T) {
	returns := makeSeries(t, []float64{0.01, 0.0, 0.02})
	info, err := MaxDrawdown(returns)
	require.NoError(t, err)
	assert.Equal(t, 0.0, info.MaxDrawdown)
}

func TestDrawdownSeriesNonPositive(t *testing.T) {
	returns := makeSeries(t, sampleReturns)
	dd, err := DrawdownSeries(returns)
	require.NoError(t, err)
	for _, v := range dd.Values() {
		assert.LessOrEqual(t, v, 0.0)
	}
}

func TestSortinoRatio(t *testing.T) {
	returns := makeSeries(t, sampleReturns)
	sortino, err := SortinoRatio(returns, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, !math.IsNaN(sortino) && !math.IsInf(sortino, 0))

	// All-positive returns have zero downside deviation.
	up := makeSeries(t, []float64{0.01, 0.02, 0.015})
	_, err = SortinoRatio(up, DefaultConfig())
	assert.Error(t, err)
}

func TestAlphaBetaVsBenchmark(t *testing.T) {
	returns := makeSeries(t, sampleReturns)
	benchmark := makeSeries(t, []float64{0.008, -0.015, 0.012, -0.008, 0.02, -0.003, 0.015, -0.012})

	ab, err := AlphaBetaVsBenchmark(returns, benchmark, DefaultConfig())
	require.NoError(t, err)
	assert.Greater(t, ab.Beta, 0.0, "correlated series must have positive beta")
	assert.GreaterOrEqual(t, ab.RSquared, 0.0)
	assert.LessOrEqual(t, ab.RSquared, 1.0)
}

func TestVaRAndCVaR(t *testing.T) {
	returns := makeSeries(t, sampleReturns)

	valueAtRisk, err := HistoricalVaR(returns, 0.05)
	require.NoError(t, err)
	assert.Less(t, valueAtRisk, 0.0)

	cvar, err := CVaR(returns, 0.05)
	require.NoError(t, err)
	assert.LessOrEqual(t, cvar, valueAtRisk, "CVaR is at least as severe as VaR")
}

func TestUpDownCapture(t *testing.T) {
	returns := makeSeries(t, sampleReturns)
	benchmark := makeSeries(t, []float64{0.008, -0.015, 0.012, -0.008, 0.02, -0.003, 0.015, -0.012})

	capture, err := UpDownCapture(returns, benchmark)
	require.NoError(t, err)
	assert.Greater(t, capture.UpCapture, 0.0)
	assert.Greater(t, capture.DownCapture, 0.0)
}

func TestSummarize(t *testing.T) {
	returns := makeSeries(t, sampleReturns)
	benchmark := makeSeries(t, []float64{0.008, -0.015, 0.012, -0.008, 0.02, -0.003, 0.015, -0.012})

	summary, err := Summarize(returns, benchmark, DefaultConfig())
	require.NoError(t, err)
	assert.NotZero(t, summary.AnnualReturn)
	assert.Greater(t, summary.AnnualVolatility, 0.0)
	assert.Less(t, summary.MaxDrawdown, 0.0)
	assert.NotZero(t, summary.Beta)
}

func TestSummarizeInsufficientData(t *testing.T) {
	_, err := Summarize(makeSeries(t, []float64{0.01}), nil, DefaultConfig())
	assert.Error(t, err)
}

func TestRollingSharpe(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 0.001 * float64(i%5-2)
	}
	returns := makeSeries(t, values)

	rolled, err := RollingSharpe(returns, 10, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, returns.Len(), rolled.Len())
	for i := 0; i < 9; i++ {
		assert.True(t, math.IsNaN(rolled.Values()[i]))
	}
}
