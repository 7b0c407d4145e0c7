package perf

import (
	"math"

	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/stats"
	"github.com/sawpanic/folio/internal/timeseries"
)

// RollingSharpe computes the Sharpe ratio over trailing windows. Entries
// before the first full window are NaN, matching the rolling-mean shape
// convention; windows with zero volatility are NaN as well.
func RollingSharpe(returns *timeseries.Series, window int, cfg Config) (*timeseries.Series, error) {
	if window < 2 {
		return nil, errs.Newf(errs.InvalidInput, "rolling sharpe window must be >= 2, got %d", window)
	}
	periods := cfg.periods()
	return returns.Rolling(window, func(w []float64) float64 {
		mean, err := stats.Mean(w)
		if err != nil {
			return math.NaN()
		}
		sd, err := stats.StdDev(w)
		if err != nil || sd == 0 {
			return math.NaN()
		}
		return (mean*periods - cfg.RiskFreeRate) / (sd * math.Sqrt(periods))
	})
}

// RollingVolatility computes the annualized sample volatility over trailing
// windows.
func RollingVolatility(returns *timeseries.Series, window int, cfg Config) (*timeseries.Series, error) {
	if window < 2 {
		return nil, errs.Newf(errs.InvalidInput, "rolling volatility window must be >= 2, got %d", window)
	}
	periods := cfg.periods()
	return returns.Rolling(window, func(w []float64) float64 {
		sd, err := stats.StdDev(w)
		if err != nil {
			return math.NaN()
		}
		return sd * math.Sqrt(periods)
	})
}

// RollingBeta computes the benchmark beta over trailing windows of the
// aligned series.
func RollingBeta(returns, benchmark *timeseries.Series, window int) (*timeseries.Series, error) {
	if window < 2 {
		return nil, errs.Newf(errs.InvalidInput, "rolling beta window must be >= 2, got %d", window)
	}
	r, b := returns.Align(benchmark)
	if r.Len() < window {
		return nil, errs.Newf(errs.InsufficientData, "aligned length %d shorter than window %d", r.Len(), window)
	}
	rv, bv := r.Values(), b.Values()
	out := make([]float64, len(rv))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		rw := rv[i-window+1 : i+1]
		bw := bv[i-window+1 : i+1]
		varB, err := stats.Variance(bw)
		if err != nil || varB == 0 {
			out[i] = math.NaN()
			continue
		}
		cov, _ := stats.Covariance(bw, rw)
		out[i] = cov / varB
	}
	return timeseries.New(r.Dates(), out)
}
