package regime

import (
	"math"

	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/stats"
	"github.com/sawpanic/folio/internal/timeseries"
)

// minSegment is the minimum observations between detected breaks.
const minSegment = 20

// cusumCritical approximates the CUSUM test critical value for common
// significance levels.
func cusumCritical(alpha float64) float64 {
	switch {
	case alpha <= 0.01:
		return 1.628
	case alpha <= 0.05:
		return 1.358
	default:
		return 1.224
	}
}

// StructuralBreaks locates mean shifts with a CUSUM statistic and labels
// each inter-break segment from its (mean return, volatility) centroid.
func (d *Detector) StructuralBreaks(returns *timeseries.Series, alpha float64) (*Result, error) {
	if err := validateReturns(returns); err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, errs.Newf(errs.InvalidInput, "significance level %v outside (0,1)", alpha)
	}
	values := returns.Values()
	n := len(values)
	if n < 2*minSegment {
		return nil, errs.Newf(errs.InsufficientData, "need at least %d observations for structural break detection", 2*minSegment)
	}

	mean, _ := stats.Mean(values)
	variance := 0.01
	if v, err := stats.Variance(values); err == nil && v > 0 {
		variance = v
	}

	cusum := make([]float64, n)
	cusum[0] = values[0] - mean
	for i := 1; i < n; i++ {
		cusum[i] = cusum[i-1] + (values[i] - mean)
	}
	threshold := cusumCritical(alpha) * math.Sqrt(float64(n)) * math.Sqrt(variance)

	var breaks []int
	for i := minSegment / 2; i < n-minSegment/2; i++ {
		if math.Abs(cusum[i]) <= threshold {
			continue
		}
		if len(breaks) == 0 || i-breaks[len(breaks)-1] > minSegment {
			breaks = append(breaks, i)
		}
	}

	sequence := make([]Label, n)
	probabilities := make([]float64, n)
	start := 0
	for _, b := range append(breaks, n) {
		label := d.segmentLabel(values[start:b])
		for i := start; i < b; i++ {
			sequence[i] = label
			probabilities[i] = 0.8
		}
		start = b
	}
	return finalize(returns, sequence, probabilities), nil
}

// segmentLabel classifies a segment from its mean return and volatility.
func (d *Detector) segmentLabel(segment []float64) Label {
	mean, err := stats.Mean(segment)
	if err != nil {
		return Sideways
	}
	vol := 0.0
	if len(segment) >= 2 {
		vol, _ = stats.StdDev(segment)
	}
	switch {
	case vol > d.cfg.VolThreshold*3:
		return Crisis
	case vol > d.cfg.VolThreshold*1.5:
		return HighVol
	case mean > d.cfg.ReturnThreshold:
		return Bull
	case mean < -d.cfg.ReturnThreshold:
		return Bear
	default:
		return Sideways
	}
}
