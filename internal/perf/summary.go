package perf

import (
	"github.com/sawpanic/folio/internal/stats"
	"github.com/sawpanic/folio/internal/timeseries"
)

// Summary is the comprehensive metric set for one return series. Benchmark-
// relative fields are zero when no benchmark was supplied.
type Summary struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualReturn     float64 `json:"annual_return"`
	AnnualVolatility float64 `json:"annual_volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	Skewness         float64 `json:"skewness"`
	Kurtosis         float64 `json:"kurtosis"`
	VaR95            float64 `json:"var_95"`
	CVaR95           float64 `json:"cvar_95"`
	TailRatio        float64 `json:"tail_ratio"`
	OmegaRatio       float64 `json:"omega_ratio"`
	CommonSenseRatio float64 `json:"common_sense_ratio"`
	Stability        float64 `json:"stability"`

	HasBenchmark     bool    `json:"has_benchmark"`
	Alpha            float64 `json:"alpha,omitempty"`
	Beta             float64 `json:"beta,omitempty"`
	RSquared         float64 `json:"r_squared,omitempty"`
	TrackingError    float64 `json:"tracking_error,omitempty"`
	InformationRatio float64 `json:"information_ratio,omitempty"`
	UpCapture        float64 `json:"up_capture,omitempty"`
	DownCapture      float64 `json:"down_capture,omitempty"`
}

// Summarize computes the full metric set, short-circuiting on the first
// underlying failure; it never returns a partial summary. benchmark may be
// nil.
func Summarize(returns, benchmark *timeseries.Series, cfg Config) (Summary, error) {
	var s Summary
	var err error

	cum, err := returns.CumulativeReturns()
	if err != nil {
		return Summary{}, err
	}
	_, s.TotalReturn, err = cum.Last()
	if err != nil {
		return Summary{}, err
	}
	if s.AnnualReturn, err = AnnualReturn(returns, cfg); err != nil {
		return Summary{}, err
	}
	if s.AnnualVolatility, err = AnnualVolatility(returns, cfg); err != nil {
		return Summary{}, err
	}
	if s.SharpeRatio, err = SharpeRatio(returns, cfg); err != nil {
		return Summary{}, err
	}
	if s.SortinoRatio, err = SortinoRatio(returns, cfg); err != nil {
		return Summary{}, err
	}
	dd, err := MaxDrawdown(returns)
	if err != nil {
		return Summary{}, err
	}
	s.MaxDrawdown = dd.MaxDrawdown
	if dd.MaxDrawdown != 0 {
		if s.CalmarRatio, err = CalmarRatio(returns, cfg); err != nil {
			return Summary{}, err
		}
	}
	if s.Skewness, err = stats.Skewness(returns.Values()); err != nil {
		return Summary{}, err
	}
	if s.Kurtosis, err = stats.Kurtosis(returns.Values()); err != nil {
		return Summary{}, err
	}
	if s.VaR95, err = HistoricalVaR(returns, cfg.VaRConfidence); err != nil {
		return Summary{}, err
	}
	if s.CVaR95, err = CVaR(returns, cfg.VaRConfidence); err != nil {
		return Summary{}, err
	}
	if s.TailRatio, err = TailRatio(returns); err != nil {
		return Summary{}, err
	}
	if s.OmegaRatio, err = OmegaRatio(returns); err != nil {
		return Summary{}, err
	}
	s.CommonSenseRatio = s.TailRatio * s.OmegaRatio
	if s.Stability, err = Stability(returns); err != nil {
		return Summary{}, err
	}

	if benchmark != nil {
		s.HasBenchmark = true
		ab, err := AlphaBetaVsBenchmark(returns, benchmark, cfg)
		if err != nil {
			return Summary{}, err
		}
		s.Alpha, s.Beta, s.RSquared = ab.Alpha, ab.Beta, ab.RSquared
		if s.TrackingError, err = TrackingError(returns, benchmark, cfg); err != nil {
			return Summary{}, err
		}
		if s.InformationRatio, err = InformationRatio(returns, benchmark, cfg); err != nil {
			return Summary{}, err
		}
		capture, err := UpDownCapture(returns, benchmark)
		if err != nil {
			return Summary{}, err
		}
		s.UpCapture, s.DownCapture = capture.UpCapture, capture.DownCapture
	}
	return s, nil
}
