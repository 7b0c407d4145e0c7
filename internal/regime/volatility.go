package regime

import (
	"math"

	"github.com/sawpanic/folio/internal/stats"
	"github.com/sawpanic/folio/internal/timeseries"
)

// VolatilityRegimes buckets each observation by trailing-window volatility
// quantiles into LowVol, Sideways (normal) and HighVol; extreme spikes above
// twice the high cutoff are Crisis.
func (d *Detector) VolatilityRegimes(returns *timeseries.Series) (*Result, error) {
	if err := validateReturns(returns); err != nil {
		return nil, err
	}
	values := returns.Values()
	n := len(values)

	rollingVol := make([]float64, n)
	for i := range values {
		start := 0
		if i >= d.cfg.LookbackWindow {
			start = i - d.cfg.LookbackWindow + 1
		}
		window := values[start : i+1]
		if len(window) < 2 {
			rollingVol[i] = math.Abs(values[i])
			continue
		}
		sd, err := stats.StdDev(window)
		if err != nil {
			sd = 0.01
		}
		rollingVol[i] = sd
	}

	low, err := stats.Quantile(rollingVol, 1.0/3.0)
	if err != nil {
		return nil, err
	}
	high, err := stats.Quantile(rollingVol, 2.0/3.0)
	if err != nil {
		return nil, err
	}

	sequence := make([]Label, n)
	probabilities := make([]float64, n)
	for i, vol := range rollingVol {
		switch {
		case vol > high*2:
			sequence[i] = Crisis
			probabilities[i] = 0.9
		case vol > high:
			sequence[i] = HighVol
			probabilities[i] = 0.8
		case vol < low:
			sequence[i] = LowVol
			probabilities[i] = 0.8
		default:
			sequence[i] = Sideways
			probabilities[i] = 0.6
		}
	}
	return finalize(returns, sequence, probabilities), nil
}
