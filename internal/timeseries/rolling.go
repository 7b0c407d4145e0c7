package timeseries

import (
	"math"
	"time"

	"github.com/sawpanic/folio/internal/errs"
)

// Reduction reduces a window of values to a scalar.
type Reduction func(window []float64) float64

// Standard reductions for Rolling and Resample.
var (
	ReduceMean Reduction = func(w []float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		return sum / float64(len(w))
	}
	ReduceSum Reduction = func(w []float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		return sum
	}
	ReduceLast Reduction = func(w []float64) float64 {
		return w[len(w)-1]
	}
	ReduceMin Reduction = func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			if v < m {
				m = v
			}
		}
		return m
	}
	ReduceMax Reduction = func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			if v > m {
				m = v
			}
		}
		return m
	}
	// ReduceStd is the sample standard deviation; NaN for windows of one.
	ReduceStd Reduction = func(w []float64) float64 {
		if len(w) < 2 {
			return math.NaN()
		}
		mean := ReduceMean(w)
		ss := 0.0
		for _, v := range w {
			d := v - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(len(w)-1))
	}
)

// Rolling applies reduce over trailing windows of size window. The output has
// the input's length; the first window-1 entries are NaN.
func (s *Series) Rolling(window int, reduce Reduction) (*Series, error) {
	if window < 1 {
		return nil, errs.Newf(errs.InvalidInput, "window must be >= 1, got %d", window)
	}
	if s.Empty() {
		return nil, errs.New(errs.InsufficientData, "series is empty")
	}
	if window > s.Len() {
		return nil, errs.Newf(errs.InsufficientData, "window %d exceeds %d observations", window, s.Len())
	}
	values := make([]float64, s.Len())
	for i := range values {
		if i < window-1 {
			values[i] = math.NaN()
			continue
		}
		values[i] = reduce(s.values[i-window+1 : i+1])
	}
	return &Series{dates: append([]time.Time(nil), s.dates...), values: values}, nil
}

// RollingMean is Rolling with the arithmetic mean.
func (s *Series) RollingMean(window int) (*Series, error) {
	return s.Rolling(window, ReduceMean)
}

// RollingStd is Rolling with the sample standard deviation.
func (s *Series) RollingStd(window int) (*Series, error) {
	return s.Rolling(window, ReduceStd)
}

// RollingMin is Rolling with the minimum.
func (s *Series) RollingMin(window int) (*Series, error) {
	return s.Rolling(window, ReduceMin)
}

// RollingMax is Rolling with the maximum.
func (s *Series) RollingMax(window int) (*Series, error) {
	return s.Rolling(window, ReduceMax)
}

// RollingSum is Rolling with the sum.
func (s *Series) RollingSum(window int) (*Series, error) {
	return s.Rolling(window, ReduceSum)
}
