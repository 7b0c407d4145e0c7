// Package perf computes risk-adjusted performance metrics over daily return
// series. Returns are decimal fractions (0.01 = 1%); ratios annualize with
// the configured trading-day count.
package perf

import (
	"math"

	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/stats"
	"github.com/sawpanic/folio/internal/timeseries"
)

// Config carries the conventions shared by all metric calculations.
type Config struct {
	RiskFreeRate   float64 `yaml:"risk_free_rate" json:"risk_free_rate"`     // Annualized decimal, default 0
	MAR            float64 `yaml:"mar" json:"mar"`                           // Sortino minimum acceptable return (annual), default 0
	PeriodsPerYear int     `yaml:"periods_per_year" json:"periods_per_year"` // Default 252
	VaRConfidence  float64 `yaml:"var_confidence" json:"var_confidence"`     // Default 0.05
}

// DefaultConfig returns the library-wide metric conventions.
func DefaultConfig() Config {
	return Config{
		RiskFreeRate:   0.0,
		MAR:            0.0,
		PeriodsPerYear: timeseries.TradingDays,
		VaRConfidence:  0.05,
	}
}

func (c Config) periods() float64 {
	if c.PeriodsPerYear <= 0 {
		return timeseries.TradingDays
	}
	return float64(c.PeriodsPerYear)
}

// AnnualReturn annualizes the mean daily return.
func AnnualReturn(returns *timeseries.Series, cfg Config) (float64, error) {
	mean, err := stats.Mean(returns.Values())
	if err != nil {
		return 0, err
	}
	return mean * cfg.periods(), nil
}

// AnnualVolatility annualizes the sample standard deviation of daily returns.
func AnnualVolatility(returns *timeseries.Series, cfg Config) (float64, error) {
	sd, err := stats.StdDev(returns.Values())
	if err != nil {
		return 0, err
	}
	return sd * math.Sqrt(cfg.periods()), nil
}

// SharpeRatio is (annual return - risk free) / annual volatility.
func SharpeRatio(returns *timeseries.Series, cfg Config) (float64, error) {
	annRet, err := AnnualReturn(returns, cfg)
	if err != nil {
		return 0, err
	}
	annVol, err := AnnualVolatility(returns, cfg)
	if err != nil {
		return 0, err
	}
	if annVol == 0 {
		return 0, errs.New(errs.NumericError, "sharpe undefined for zero volatility")
	}
	return (annRet - cfg.RiskFreeRate) / annVol, nil
}

// SortinoRatio uses downside deviation below the MAR as the risk term. The
// downside deviation averages min(r - MAR, 0)^2 over all observations, not
// only the negative ones.
func SortinoRatio(returns *timeseries.Series, cfg Config) (float64, error) {
	values := returns.Values()
	if len(values) == 0 {
		return 0, errs.New(errs.InsufficientData, "sortino of empty return series")
	}
	marDaily := cfg.MAR / cfg.periods()
	sumSq := 0.0
	for _, r := range values {
		if d := r - marDaily; d < 0 {
			sumSq += d * d
		}
	}
	downside := math.Sqrt(sumSq / float64(len(values)))
	if downside == 0 {
		return 0, errs.New(errs.NumericError, "sortino undefined for zero downside deviation")
	}
	annRet, err := AnnualReturn(returns, cfg)
	if err != nil {
		return 0, err
	}
	return (annRet - cfg.MAR) / (downside * math.Sqrt(cfg.periods())), nil
}

// CalmarRatio is annual return over the magnitude of the max drawdown.
func CalmarRatio(returns *timeseries.Series, cfg Config) (float64, error) {
	annRet, err := AnnualReturn(returns, cfg)
	if err != nil {
		return 0, err
	}
	dd, err := MaxDrawdown(returns)
	if err != nil {
		return 0, err
	}
	if dd.MaxDrawdown == 0 {
		return 0, errs.New(errs.NumericError, "calmar undefined with zero drawdown")
	}
	return annRet / math.Abs(dd.MaxDrawdown), nil
}

// AlphaBeta holds a single-benchmark regression of excess returns.
type AlphaBeta struct {
	Alpha    float64 `json:"alpha"` // Annualized
	Beta     float64 `json:"beta"`
	RSquared float64 `json:"r_squared"`
}

// AlphaBetaVsBenchmark regresses excess strategy returns on excess benchmark
// returns after aligning the two series by date.
func AlphaBetaVsBenchmark(returns, benchmark *timeseries.Series, cfg Config) (AlphaBeta, error) {
	r, b := returns.Align(benchmark)
	if r.Len() < 2 {
		return AlphaBeta{}, errs.New(errs.InsufficientData, "need at least 2 aligned observations for alpha/beta")
	}
	rfDaily := cfg.RiskFreeRate / cfg.periods()
	rv := r.Values()
	bv := b.Values()
	exR := make([]float64, len(rv))
	exB := make([]float64, len(bv))
	for i := range rv {
		exR[i] = rv[i] - rfDaily
		exB[i] = bv[i] - rfDaily
	}
	fit, err := stats.LinearRegression(exB, exR)
	if err != nil {
		return AlphaBeta{}, err
	}
	meanR, _ := stats.Mean(rv)
	meanB, _ := stats.Mean(bv)
	return AlphaBeta{
		Alpha:    (meanR - fit.Slope*meanB) * cfg.periods(),
		Beta:     fit.Slope,
		RSquared: fit.RSquared,
	}, nil
}

// TrackingError is the annualized standard deviation of active returns.
func TrackingError(returns, benchmark *timeseries.Series, cfg Config) (float64, error) {
	r, b := returns.Align(benchmark)
	if r.Len() < 2 {
		return 0, errs.New(errs.InsufficientData, "need at least 2 aligned observations for tracking error")
	}
	rv, bv := r.Values(), b.Values()
	active := make([]float64, len(rv))
	for i := range rv {
		active[i] = rv[i] - bv[i]
	}
	sd, err := stats.StdDev(active)
	if err != nil {
		return 0, err
	}
	return sd * math.Sqrt(cfg.periods()), nil
}

// InformationRatio is annualized active return over tracking error.
func InformationRatio(returns, benchmark *timeseries.Series, cfg Config) (float64, error) {
	te, err := TrackingError(returns, benchmark, cfg)
	if err != nil {
		return 0, err
	}
	if te == 0 {
		return 0, errs.New(errs.NumericError, "information ratio undefined with zero tracking error")
	}
	r, b := returns.Align(benchmark)
	rv, bv := r.Values(), b.Values()
	active := make([]float64, len(rv))
	for i := range rv {
		active[i] = rv[i] - bv[i]
	}
	mean, _ := stats.Mean(active)
	return mean * cfg.periods() / te, nil
}

// CaptureRatios reports how much of the benchmark's up and down moves the
// strategy participates in.
type CaptureRatios struct {
	UpCapture   float64 `json:"up_capture"`
	DownCapture float64 `json:"down_capture"`
}

// UpDownCapture computes mean strategy return over mean benchmark return,
// conditioned on benchmark sign.
func UpDownCapture(returns, benchmark *timeseries.Series) (CaptureRatios, error) {
	r, b := returns.Align(benchmark)
	if r.Empty() {
		return CaptureRatios{}, errs.New(errs.InsufficientData, "no aligned observations for capture ratios")
	}
	rv, bv := r.Values(), b.Values()
	var upR, upB, downR, downB []float64
	for i := range bv {
		switch {
		case bv[i] > 0:
			upR = append(upR, rv[i])
			upB = append(upB, bv[i])
		case bv[i] < 0:
			downR = append(downR, rv[i])
			downB = append(downB, bv[i])
		}
	}
	var out CaptureRatios
	if len(upB) > 0 {
		mr, _ := stats.Mean(upR)
		mb, _ := stats.Mean(upB)
		out.UpCapture = mr / mb
	}
	if len(downB) > 0 {
		mr, _ := stats.Mean(downR)
		mb, _ := stats.Mean(downB)
		out.DownCapture = mr / mb
	}
	return out, nil
}

// HistoricalVaR is the alpha-quantile of the return distribution, expressed
// as a signed return (negative in losses).
func HistoricalVaR(returns *timeseries.Series, alpha float64) (float64, error) {
	return stats.Quantile(returns.Values(), alpha)
}

// CVaR is the mean of returns at or below the VaR threshold (signed-return
// convention).
func CVaR(returns *timeseries.Series, alpha float64) (float64, error) {
	threshold, err := HistoricalVaR(returns, alpha)
	if err != nil {
		return 0, err
	}
	var tail []float64
	for _, r := range returns.Values() {
		if r <= threshold {
			tail = append(tail, r)
		}
	}
	return stats.Mean(tail)
}

// TailRatio is |q95| / |q05| of the return distribution.
func TailRatio(returns *timeseries.Series) (float64, error) {
	hi, err := stats.Quantile(returns.Values(), 0.95)
	if err != nil {
		return 0, err
	}
	lo, err := stats.Quantile(returns.Values(), 0.05)
	if err != nil {
		return 0, err
	}
	if lo == 0 {
		return 0, errs.New(errs.NumericError, "tail ratio undefined with zero lower quantile")
	}
	return math.Abs(hi) / math.Abs(lo), nil
}

// Stability is the R-squared of a linear fit of log cumulative equity
// against the time index.
func Stability(returns *timeseries.Series) (float64, error) {
	values := returns.Values()
	if len(values) < 2 {
		return 0, errs.New(errs.InsufficientData, "stability needs at least 2 observations")
	}
	logEquity := make([]float64, len(values))
	idx := make([]float64, len(values))
	equity := 1.0
	for i, r := range values {
		equity *= 1 + r
		if equity <= 0 {
			return 0, errs.New(errs.NumericError, "equity curve non-positive, log undefined")
		}
		logEquity[i] = math.Log(equity)
		idx[i] = float64(i)
	}
	fit, err := stats.LinearRegression(idx, logEquity)
	if err != nil {
		return 0, err
	}
	return fit.RSquared, nil
}

// OmegaRatio is the probability-weighted ratio of gains to losses around a
// zero threshold.
func OmegaRatio(returns *timeseries.Series) (float64, error) {
	values := returns.Values()
	if len(values) == 0 {
		return 0, errs.New(errs.InsufficientData, "omega of empty return series")
	}
	gains, losses := 0.0, 0.0
	for _, r := range values {
		if r > 0 {
			gains += r
		} else {
			losses -= r
		}
	}
	if losses == 0 {
		return 0, errs.New(errs.NumericError, "omega undefined with no losses")
	}
	return gains / losses, nil
}

// CommonSenseRatio is the tail ratio scaled by the profit factor.
func CommonSenseRatio(returns *timeseries.Series) (float64, error) {
	tail, err := TailRatio(returns)
	if err != nil {
		return 0, err
	}
	omega, err := OmegaRatio(returns)
	if err != nil {
		return 0, err
	}
	return tail * omega, nil
}
