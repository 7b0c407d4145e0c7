package regime

import (
	"math"
	"math/rand"
	"sort"

	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/stats"
	"github.com/sawpanic/folio/internal/timeseries"
)

// markovModel holds the fitted HMM parameters.
type markovModel struct {
	means      []float64
	variances  []float64
	transition [][]float64
	initial    []float64
}

// MarkovSwitching fits a K-state hidden Markov model on returns with EM
// (Baum-Welch) over Gaussian emissions and labels each observation with its
// maximum-posterior state. Identical seeds produce identical output.
func (d *Detector) MarkovSwitching(returns *timeseries.Series, numStates int, seed int64) (*Result, error) {
	if err := validateReturns(returns); err != nil {
		return nil, err
	}
	if numStates < 2 || numStates > 5 {
		return nil, errs.Newf(errs.InvalidInput, "number of regimes must be in [2,5], got %d", numStates)
	}
	values := returns.Values()

	model := d.initModel(values, numStates, seed)
	posteriors := make([][]float64, len(values))
	for i := range posteriors {
		posteriors[i] = make([]float64, numStates)
	}

	prevLL := math.Inf(-1)
	for iter := 0; iter < d.cfg.MaxIterations; iter++ {
		forwardBackward(values, model, posteriors)
		updateParameters(values, posteriors, model)
		ll := logLikelihood(values, model)
		if math.Abs(ll-prevLL) < d.cfg.Tolerance {
			break
		}
		prevLL = ll
	}

	labels := labelsByMean(model.means)
	sequence := make([]Label, len(values))
	probabilities := make([]float64, len(values))
	for t := range values {
		best := 0
		for k := 1; k < numStates; k++ {
			if posteriors[t][k] > posteriors[t][best] {
				best = k
			}
		}
		sequence[t] = labels[best]
		probabilities[t] = posteriors[t][best]
	}
	return finalize(returns, sequence, probabilities), nil
}

// HMM is MarkovSwitching with a caller-chosen state count; kept as a
// separate entry point to match the analytical API surface.
func (d *Detector) HMM(returns *timeseries.Series, numStates int, seed int64) (*Result, error) {
	return d.MarkovSwitching(returns, numStates, seed)
}

// initModel seeds state parameters around the sample moments.
func (d *Detector) initModel(values []float64, numStates int, seed int64) *markovModel {
	rng := rand.New(rand.NewSource(seed))
	mean, _ := stats.Mean(values)
	variance := 0.01
	if v, err := stats.Variance(values); err == nil && v > 0 {
		variance = v
	}

	m := &markovModel{
		means:      make([]float64, numStates),
		variances:  make([]float64, numStates),
		transition: make([][]float64, numStates),
		initial:    make([]float64, numStates),
	}
	for k := 0; k < numStates; k++ {
		m.means[k] = mean + rng.NormFloat64()*math.Sqrt(variance)*0.5
		m.variances[k] = variance * (0.5 + rng.Float64())
		m.initial[k] = 1 / float64(numStates)
		m.transition[k] = make([]float64, numStates)
		sum := 0.0
		for j := 0; j < numStates; j++ {
			m.transition[k][j] = rng.Float64()
			sum += m.transition[k][j]
		}
		for j := 0; j < numStates; j++ {
			m.transition[k][j] /= sum
		}
	}
	return m
}

func gaussianPDF(x, mean, variance float64) float64 {
	if variance <= 0 {
		variance = 1e-10
	}
	d := x - mean
	return math.Exp(-d*d/(2*variance)) / math.Sqrt(2*math.Pi*variance)
}

// forwardBackward fills posteriors with normalized state probabilities.
func forwardBackward(values []float64, m *markovModel, posteriors [][]float64) {
	n := len(values)
	k := len(m.means)

	forward := make([][]float64, n)
	for t := range forward {
		forward[t] = make([]float64, k)
	}
	for s := 0; s < k; s++ {
		forward[0][s] = m.initial[s] * gaussianPDF(values[0], m.means[s], m.variances[s])
	}
	normalize(forward[0])
	for t := 1; t < n; t++ {
		for s := 0; s < k; s++ {
			acc := 0.0
			for j := 0; j < k; j++ {
				acc += forward[t-1][j] * m.transition[j][s]
			}
			forward[t][s] = acc * gaussianPDF(values[t], m.means[s], m.variances[s])
		}
		normalize(forward[t])
	}

	backward := make([][]float64, n)
	for t := range backward {
		backward[t] = make([]float64, k)
		for s := 0; s < k; s++ {
			backward[t][s] = 1
		}
	}
	for t := n - 2; t >= 0; t-- {
		for s := 0; s < k; s++ {
			acc := 0.0
			for j := 0; j < k; j++ {
				acc += m.transition[s][j] * gaussianPDF(values[t+1], m.means[j], m.variances[j]) * backward[t+1][j]
			}
			backward[t][s] = acc
		}
		normalize(backward[t])
	}

	for t := 0; t < n; t++ {
		for s := 0; s < k; s++ {
			posteriors[t][s] = forward[t][s] * backward[t][s]
		}
		normalize(posteriors[t])
	}
}

// updateParameters is the M-step: re-estimate means, variances and the
// transition matrix from the posteriors.
func updateParameters(values []float64, posteriors [][]float64, m *markovModel) {
	n := len(values)
	k := len(m.means)

	for s := 0; s < k; s++ {
		sumProb, sumObs := 0.0, 0.0
		for t := 0; t < n; t++ {
			sumProb += posteriors[t][s]
			sumObs += posteriors[t][s] * values[t]
		}
		if sumProb <= 1e-6 {
			continue
		}
		m.means[s] = sumObs / sumProb
		sumVar := 0.0
		for t := 0; t < n; t++ {
			d := values[t] - m.means[s]
			sumVar += posteriors[t][s] * d * d
		}
		m.variances[s] = math.Max(1e-6, sumVar/sumProb)
	}

	for i := 0; i < k; i++ {
		rowSum := 0.0
		for j := 0; j < k; j++ {
			acc := 0.0
			for t := 0; t < n-1; t++ {
				acc += posteriors[t][i] * posteriors[t+1][j]
			}
			m.transition[i][j] = acc
			rowSum += acc
		}
		if rowSum > 1e-6 {
			for j := 0; j < k; j++ {
				m.transition[i][j] /= rowSum
			}
		}
	}
	for s := 0; s < k; s++ {
		m.initial[s] = posteriors[0][s]
	}
}

// logLikelihood scores the observations under the current model with a
// normalized forward filter.
func logLikelihood(values []float64, m *markovModel) float64 {
	k := len(m.means)
	current := make([]float64, k)
	copy(current, m.initial)

	ll := 0.0
	for _, v := range values {
		obsProb := 0.0
		next := make([]float64, k)
		for s := 0; s < k; s++ {
			emission := gaussianPDF(v, m.means[s], m.variances[s])
			obsProb += current[s] * emission
			for j := 0; j < k; j++ {
				next[j] += current[s] * m.transition[s][j] * emission
			}
		}
		ll += math.Log(math.Max(1e-10, obsProb))
		normalize(next)
		current = next
	}
	return ll
}

func normalize(v []float64) {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		for i := range v {
			v[i] = 1 / float64(len(v))
		}
		return
	}
	for i := range v {
		v[i] /= sum
	}
}

// labelsByMean maps state indices to labels ordered by fitted mean return:
// the lowest-mean state gets the most bearish label.
func labelsByMean(means []float64) []Label {
	order := make([]int, len(means))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return means[order[a]] < means[order[b]] })

	var ladder []Label
	switch len(means) {
	case 2:
		ladder = []Label{Bear, Bull}
	case 3:
		ladder = []Label{Bear, Sideways, Bull}
	case 4:
		ladder = []Label{Crisis, Bear, Sideways, Bull}
	default:
		ladder = []Label{Crisis, Bear, Sideways, Bull, Recovery}
	}
	labels := make([]Label, len(means))
	for rank, stateIdx := range order {
		labels[stateIdx] = ladder[rank]
	}
	return labels
}
