package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{0.01, -0.02, 0.015, -0.01, 0.025, -0.005, 0.02, -0.015}

	mean, err := Mean(values)
	require.NoError(t, err)
	assert.InDelta(t, 0.0025, mean, 1e-10)

	sd, err := StdDev(values)
	require.NoError(t, err)
	assert.InDelta(t, 0.017113, sd, 1e-5)
}

func TestMeanEmpty(t *testing.T) {
	_, err := Mean(nil)
	assert.Error(t, err)

	_, err = Variance([]float64{1})
	assert.Error(t, err, "variance needs at least 2 observations")
}

func TestQuantileInterpolation(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	q, err := Quantile(values, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, q, 1e-12)

	q, err = Quantile(values, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1, q, 1e-12)

	q, err = Quantile(values, 1)
	require.NoError(t, err)
	assert.InDelta(t, 4, q, 1e-12)

	q, err = Quantile(values, 0.25)
	require.NoError(t, err)
	assert.InDelta(t, 1.75, q, 1e-12)

	_, err = Quantile(values, 1.5)
	assert.Error(t, err)
}

func TestMedian(t *testing.T) {
	m, err := Median([]float64{5, 1, 3})
	require.NoError(t, err)
	assert.InDelta(t, 3, m, 1e-12)
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}

	c, err := Correlation(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 1, c, 1e-12)

	inv := []float64{8, 6, 4, 2}
	c, err = Correlation(x, inv)
	require.NoError(t, err)
	assert.InDelta(t, -1, c, 1e-12)

	flat := []float64{3, 3, 3, 3}
	_, err = Correlation(x, flat)
	assert.Error(t, err, "zero variance must fail")
}

func TestLinearRegression(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 3, 5, 7} // y = 2x + 1

	reg, err := LinearRegression(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 2, reg.Slope, 1e-12)
	assert.InDelta(t, 1, reg.Intercept, 1e-12)
	assert.InDelta(t, 1, reg.RSquared, 1e-12)
}

func TestLinearRegressionRSquaredBounds(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{2.1, 3.9, 6.2, 7.8, 10.1, 11.9}

	reg, err := LinearRegression(x, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, reg.RSquared, 0.0)
	assert.LessOrEqual(t, reg.RSquared, 1.0)

	_, err = LinearRegression([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.Error(t, err, "zero-variance regressor must fail")
}

func TestSkewnessKurtosis(t *testing.T) {
	symmetric := []float64{-2, -1, 0, 1, 2}

	skew, err := Skewness(symmetric)
	require.NoError(t, err)
	assert.InDelta(t, 0, skew, 1e-12)

	_, err = Skewness([]float64{1, 2})
	assert.Error(t, err)
	_, err = Kurtosis([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestCovariance(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{4, 6, 8}

	cov, err := Covariance(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 2, cov, 1e-12)

	_, err = Covariance(x, []float64{1, 2})
	assert.Error(t, err, "length mismatch must fail")
}
