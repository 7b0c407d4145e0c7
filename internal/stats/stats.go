// Package stats provides the scalar statistical primitives the performance
// and regime packages are composed from. All estimators are the sample
// (n-1 denominator) variants. NaN inputs are never filtered; callers opt in
// to fills at the series level first.
package stats

import (
	"math"
	"sort"

	"github.com/sawpanic/folio/internal/errs"
)

// Mean returns the arithmetic mean.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errs.New(errs.InsufficientData, "mean of empty sample")
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// Variance returns the sample variance (n-1 denominator).
func Variance(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, errs.New(errs.InsufficientData, "variance needs at least 2 observations")
	}
	mean, _ := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return ss / float64(len(values)-1), nil
}

// StdDev returns the sample standard deviation.
func StdDev(values []float64) (float64, error) {
	v, err := Variance(values)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// Skewness returns the Fisher-Pearson coefficient of skewness.
func Skewness(values []float64) (float64, error) {
	if len(values) < 3 {
		return 0, errs.New(errs.InsufficientData, "skewness needs at least 3 observations")
	}
	mean, _ := Mean(values)
	n := float64(len(values))
	m2, m3 := 0.0, 0.0
	for _, v := range values {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0, errs.New(errs.NumericError, "skewness undefined for zero-variance sample")
	}
	return m3 / math.Pow(m2, 1.5), nil
}

// Kurtosis returns the excess kurtosis (normal distribution = 0).
func Kurtosis(values []float64) (float64, error) {
	if len(values) < 4 {
		return 0, errs.New(errs.InsufficientData, "kurtosis needs at least 4 observations")
	}
	mean, _ := Mean(values)
	n := float64(len(values))
	m2, m4 := 0.0, 0.0
	for _, v := range values {
		d := v - mean
		m2 += d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m4 /= n
	if m2 == 0 {
		return 0, errs.New(errs.NumericError, "kurtosis undefined for zero-variance sample")
	}
	return m4/(m2*m2) - 3.0, nil
}

// Quantile returns the q-quantile (q in [0,1]) using linear interpolation
// between order statistics.
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, errs.New(errs.InsufficientData, "quantile of empty sample")
	}
	if q < 0 || q > 1 {
		return 0, errs.Newf(errs.InvalidInput, "quantile %v outside [0,1]", q)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac, nil
}

// Median is the 0.5-quantile.
func Median(values []float64) (float64, error) {
	return Quantile(values, 0.5)
}

// Covariance returns the sample covariance of two equal-length samples.
func Covariance(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errs.Newf(errs.InvalidInput, "sample length mismatch: %d vs %d", len(x), len(y))
	}
	if len(x) < 2 {
		return 0, errs.New(errs.InsufficientData, "covariance needs at least 2 observations")
	}
	mx, _ := Mean(x)
	my, _ := Mean(y)
	sum := 0.0
	for i := range x {
		sum += (x[i] - mx) * (y[i] - my)
	}
	return sum / float64(len(x)-1), nil
}

// Correlation returns the Pearson correlation coefficient.
func Correlation(x, y []float64) (float64, error) {
	cov, err := Covariance(x, y)
	if err != nil {
		return 0, err
	}
	sx, err := StdDev(x)
	if err != nil {
		return 0, err
	}
	sy, err := StdDev(y)
	if err != nil {
		return 0, err
	}
	if sx == 0 || sy == 0 {
		return 0, errs.New(errs.NumericError, "correlation undefined for zero-variance sample")
	}
	return cov / (sx * sy), nil
}

// Regression holds an ordinary least squares fit of y on x.
type Regression struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// LinearRegression fits y = intercept + slope*x by least squares.
func LinearRegression(x, y []float64) (Regression, error) {
	if len(x) != len(y) {
		return Regression{}, errs.Newf(errs.InvalidInput, "sample length mismatch: %d vs %d", len(x), len(y))
	}
	if len(x) < 2 {
		return Regression{}, errs.New(errs.InsufficientData, "regression needs at least 2 observations")
	}
	varX, err := Variance(x)
	if err != nil {
		return Regression{}, err
	}
	if varX == 0 {
		return Regression{}, errs.New(errs.NumericError, "regression on zero-variance regressor")
	}
	cov, _ := Covariance(x, y)
	mx, _ := Mean(x)
	my, _ := Mean(y)
	slope := cov / varX
	intercept := my - slope*mx

	// R² = 1 - SSE/SST; degenerate (constant y) fits report 1.
	sse, sst := 0.0, 0.0
	for i := range x {
		pred := intercept + slope*x[i]
		sse += (y[i] - pred) * (y[i] - pred)
		sst += (y[i] - my) * (y[i] - my)
	}
	r2 := 1.0
	if sst > 0 {
		r2 = 1 - sse/sst
	}
	if r2 < 0 {
		r2 = 0
	}
	return Regression{Slope: slope, Intercept: intercept, RSquared: r2}, nil
}
