// Package regime classifies market state over a return series using four
// selectable methods: Markov-switching, HMM, structural breaks and
// volatility bucketing. Every method that draws random numbers takes an
// explicit seed; identical seeds produce identical output.
package regime

import (
	"encoding/json"
	"time"

	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/stats"
	"github.com/sawpanic/folio/internal/timeseries"
)

// Label is a market regime classification.
type Label int

const (
	Bull Label = iota
	Bear
	Sideways
	HighVol
	LowVol
	Crisis
	Recovery
)

func (l Label) String() string {
	switch l {
	case Bull:
		return "bull"
	case Bear:
		return "bear"
	case Sideways:
		return "sideways"
	case HighVol:
		return "high_vol"
	case LowVol:
		return "low_vol"
	case Crisis:
		return "crisis"
	case Recovery:
		return "recovery"
	default:
		return "unknown"
	}
}

// ParseLabel parses a regime name.
func ParseLabel(s string) (Label, error) {
	switch s {
	case "bull":
		return Bull, nil
	case "bear":
		return Bear, nil
	case "sideways":
		return Sideways, nil
	case "high_vol":
		return HighVol, nil
	case "low_vol":
		return LowVol, nil
	case "crisis":
		return Crisis, nil
	case "recovery":
		return Recovery, nil
	default:
		return 0, errs.Newf(errs.InvalidInput, "unknown regime label %q", s)
	}
}

// MarshalJSON writes the regime name.
func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON reads a regime name.
func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLabel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Characteristics describes one regime observed in a sequence.
type Characteristics struct {
	Label       Label   `json:"label"`
	MeanReturn  float64 `json:"mean_return"`
	Volatility  float64 `json:"volatility"`
	Persistence float64 `json:"persistence"` // Average run length in days
	Probability float64 `json:"probability"` // Fraction of observations
}

// Transition is an observed regime change with its empirical probability.
type Transition struct {
	From             Label   `json:"from"`
	To               Label   `json:"to"`
	Probability      float64 `json:"probability"`
	ExpectedDuration float64 `json:"expected_duration"`
}

// Result is the output shape shared by all detection methods.
type Result struct {
	Sequence          []Label           `json:"sequence"`
	Probabilities     []float64         `json:"probabilities"`
	Dates             []time.Time       `json:"dates"`
	Characteristics   []Characteristics `json:"characteristics"`
	Transitions       []Transition      `json:"transitions"`
	CurrentRegime     Label             `json:"current_regime"`
	CurrentConfidence float64           `json:"current_confidence"`
	CurrentDuration   int               `json:"current_duration"`
}

// Config holds detection parameters shared across methods.
type Config struct {
	LookbackWindow  int     `yaml:"lookback_window" json:"lookback_window"`   // Rolling window, default 21
	MaxIterations   int     `yaml:"max_iterations" json:"max_iterations"`     // EM cap, default 1000
	Tolerance       float64 `yaml:"tolerance" json:"tolerance"`               // EM log-likelihood tolerance, default 1e-6
	VolThreshold    float64 `yaml:"vol_threshold" json:"vol_threshold"`       // Daily vol cutoff, default 0.02
	ReturnThreshold float64 `yaml:"return_threshold" json:"return_threshold"` // Daily trend cutoff, default 0.001
}

// DefaultConfig returns the reference detection parameters.
func DefaultConfig() Config {
	return Config{
		LookbackWindow:  21,
		MaxIterations:   1000,
		Tolerance:       1e-6,
		VolThreshold:    0.02,
		ReturnThreshold: 0.001,
	}
}

// Detector runs the regime detection methods with shared configuration.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given configuration; zero fields
// fall back to defaults.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.LookbackWindow <= 0 {
		cfg.LookbackWindow = def.LookbackWindow
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.VolThreshold <= 0 {
		cfg.VolThreshold = def.VolThreshold
	}
	if cfg.ReturnThreshold <= 0 {
		cfg.ReturnThreshold = def.ReturnThreshold
	}
	return &Detector{cfg: cfg}
}

func validateReturns(returns *timeseries.Series) error {
	if returns == nil || returns.Len() < 2 {
		return errs.New(errs.InsufficientData, "regime detection needs at least 2 observations")
	}
	return nil
}

// finalize fills the shared result fields from a labeled sequence.
func finalize(returns *timeseries.Series, sequence []Label, probabilities []float64) *Result {
	res := &Result{
		Sequence:      sequence,
		Probabilities: probabilities,
		Dates:         returns.Dates(),
	}
	if len(sequence) > 0 {
		res.CurrentRegime = sequence[len(sequence)-1]
		res.CurrentConfidence = probabilities[len(probabilities)-1]
		res.CurrentDuration = currentRunLength(sequence)
	}
	res.Characteristics = characterize(returns.Values(), sequence)
	res.Transitions = countTransitions(sequence)
	return res
}

func currentRunLength(sequence []Label) int {
	if len(sequence) == 0 {
		return 0
	}
	current := sequence[len(sequence)-1]
	run := 1
	for i := len(sequence) - 2; i >= 0 && sequence[i] == current; i-- {
		run++
	}
	return run
}

// characterize groups returns by regime and reports per-regime statistics.
// Only labels present in the sequence appear.
func characterize(values []float64, sequence []Label) []Characteristics {
	grouped := make(map[Label][]float64)
	runs := make(map[Label][]int)
	for i, label := range sequence {
		grouped[label] = append(grouped[label], values[i])
	}
	if len(sequence) > 0 {
		current := sequence[0]
		run := 1
		for i := 1; i < len(sequence); i++ {
			if sequence[i] == current {
				run++
				continue
			}
			runs[current] = append(runs[current], run)
			current = sequence[i]
			run = 1
		}
		runs[current] = append(runs[current], run)
	}

	out := make([]Characteristics, 0, len(grouped))
	for label := Bull; label <= Recovery; label++ {
		rets, ok := grouped[label]
		if !ok {
			continue
		}
		c := Characteristics{
			Label:       label,
			Probability: float64(len(rets)) / float64(len(sequence)),
		}
		c.MeanReturn, _ = stats.Mean(rets)
		if len(rets) >= 2 {
			c.Volatility, _ = stats.StdDev(rets)
		}
		if rr := runs[label]; len(rr) > 0 {
			total := 0
			for _, r := range rr {
				total += r
			}
			c.Persistence = float64(total) / float64(len(rr))
		}
		out = append(out, c)
	}
	return out
}

// countTransitions builds the empirical transition table from a sequence.
func countTransitions(sequence []Label) []Transition {
	counts := make(map[[2]Label]int)
	fromCounts := make(map[Label]int)
	for i := 1; i < len(sequence); i++ {
		counts[[2]Label{sequence[i-1], sequence[i]}]++
		fromCounts[sequence[i-1]]++
	}
	out := make([]Transition, 0, len(counts))
	for from := Bull; from <= Recovery; from++ {
		for to := Bull; to <= Recovery; to++ {
			n, ok := counts[[2]Label{from, to}]
			if !ok {
				continue
			}
			t := Transition{From: from, To: to}
			t.Probability = float64(n) / float64(fromCounts[from])
			if t.Probability > 0 {
				t.ExpectedDuration = 1 / t.Probability
			}
			out = append(out, t)
		}
	}
	return out
}
