// Package intraday decides whether a strategy's end-of-day positions reflect
// its true exposure, and re-estimates positions from transaction flow when
// they do not. An intraday strategy closes most of its book before the
// snapshot time, so position values are small relative to traded notional.
package intraday

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/folio/internal/calendar"
	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/portfolio"
	"github.com/sawpanic/folio/internal/stats"
)

// DefaultThreshold is the position/transaction ratio below which a strategy
// is classified intraday (reference value).
const DefaultThreshold = 0.25

// DetectionResult reports the intraday classification.
type DetectionResult struct {
	IsIntraday   bool               `json:"is_intraday"`
	Ratio        float64            `json:"ratio"`      // Median position/transaction ratio
	Threshold    float64            `json:"threshold"`  // Classification cutoff
	Confidence   float64            `json:"confidence"` // Fraction of symbol-days agreeing
	SymbolRatios map[string]float64 `json:"symbol_ratios"`
}

// Detect computes the per-symbol-day ratio of |position value| to traded
// notional and classifies the strategy from the median. Symbol-days need
// both a position snapshot and at least one transaction to participate.
func Detect(positions *portfolio.PositionSeries, transactions *portfolio.TransactionSeries, threshold float64) (DetectionResult, error) {
	if positions.Empty() || transactions.Empty() {
		return DetectionResult{}, errs.New(errs.InsufficientData, "need both positions and transactions for intraday detection")
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	ratios := make(map[string]float64)
	var all []float64
	for _, h := range positions.Snapshots() {
		dayTxns := transactions.ForDay(h.Date)
		if len(dayTxns) == 0 {
			continue
		}
		notional := make(map[string]float64)
		for _, t := range dayTxns {
			notional[t.Symbol] += t.GrossNotional()
		}
		for sym, gross := range notional {
			if gross == 0 {
				continue
			}
			p, ok := h.Positions[sym]
			if !ok {
				continue
			}
			ratio := math.Abs(p.Value()) / gross
			ratios[fmt.Sprintf("%s@%s", sym, calendar.FormatDate(h.Date))] = ratio
			all = append(all, ratio)
		}
	}
	if len(all) == 0 {
		return DetectionResult{}, errs.New(errs.InsufficientData, "no overlapping symbol-days between positions and transactions")
	}

	median, err := stats.Median(all)
	if err != nil {
		return DetectionResult{}, err
	}
	isIntraday := median < threshold
	agree := 0
	for _, r := range all {
		if (r < threshold) == isIntraday {
			agree++
		}
	}
	return DetectionResult{
		IsIntraday:   isIntraday,
		Ratio:        median,
		Threshold:    threshold,
		Confidence:   float64(agree) / float64(len(all)),
		SymbolRatios: ratios,
	}, nil
}

// EstimateConfig controls position re-estimation for intraday strategies.
type EstimateConfig struct {
	Threshold     float64 `yaml:"threshold"`       // Detection cutoff, default 0.25
	UseRollingMax bool    `yaml:"use_rolling_max"` // Smooth peak exposure across days
	RollingWindow int     `yaml:"rolling_window"`  // Smoothing window, default 5
}

// DefaultEstimateConfig mirrors the reference defaults.
func DefaultEstimateConfig() EstimateConfig {
	return EstimateConfig{Threshold: DefaultThreshold, UseRollingMax: true, RollingWindow: 5}
}

// EstimatePositions reconstructs end-of-day snapshots by walking each day's
// transactions from the prior close. The reported snapshot is the book at
// the hour of peak cumulative gross exposure, not the terminal book.
func EstimatePositions(positions *portfolio.PositionSeries, transactions *portfolio.TransactionSeries, cfg EstimateConfig) (*portfolio.PositionSeries, error) {
	if positions.Empty() {
		return nil, errs.New(errs.InsufficientData, "position series is empty")
	}
	if cfg.RollingWindow < 1 {
		cfg.RollingWindow = 1
	}

	snaps := positions.Snapshots()
	out := make([]portfolio.Holdings, 0, len(snaps))
	book := make(map[string]portfolio.Position)
	for _, snap := range snaps {
		dayTxns := transactions.ForDay(snap.Date)
		if len(dayTxns) == 0 {
			out = append(out, rebuild(snap.Date, snap.Cash, book))
			continue
		}
		sort.SliceStable(dayTxns, func(i, j int) bool { return dayTxns[i].Date.Before(dayTxns[j].Date) })

		peak := cloneBook(book)
		peakGross := grossOf(book)
		for _, t := range dayTxns {
			p := book[t.Symbol]
			p.Symbol = t.Symbol
			p.Shares += t.Shares
			p.Price = t.Price
			p.Timestamp = t.Date
			if p.Shares == 0 {
				delete(book, t.Symbol)
			} else {
				book[t.Symbol] = p
			}
			if g := grossOf(book); g > peakGross {
				peakGross = g
				peak = cloneBook(book)
			}
		}
		out = append(out, rebuild(snap.Date, snap.Cash, peak))
	}

	if cfg.UseRollingMax && cfg.RollingWindow > 1 {
		smoothPeaks(out, cfg.RollingWindow)
	}
	log.Debug().Int("snapshots", len(out)).Msg("re-estimated intraday positions")
	return portfolio.NewPositionSeries(out)
}

// smoothPeaks scales each day's book so its gross exposure matches the
// rolling max of peak gross over the window.
func smoothPeaks(snaps []portfolio.Holdings, window int) {
	gross := make([]float64, len(snaps))
	for i, h := range snaps {
		gross[i] = h.GrossExposure()
	}
	for i := range snaps {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		target := gross[i]
		for j := lo; j <= i; j++ {
			if gross[j] > target {
				target = gross[j]
			}
		}
		if gross[i] == 0 || target == gross[i] {
			continue
		}
		scale := target / gross[i]
		for sym, p := range snaps[i].Positions {
			p.Shares *= scale
			snaps[i].Positions[sym] = p
		}
	}
}

// CheckAndProcess runs detection and returns re-estimated positions for
// intraday strategies, or the originals otherwise.
func CheckAndProcess(positions *portfolio.PositionSeries, transactions *portfolio.TransactionSeries, cfg EstimateConfig) (*portfolio.PositionSeries, DetectionResult, error) {
	detection, err := Detect(positions, transactions, cfg.Threshold)
	if err != nil {
		return nil, DetectionResult{}, err
	}
	if !detection.IsIntraday {
		return positions, detection, nil
	}
	log.Info().Float64("ratio", detection.Ratio).Float64("confidence", detection.Confidence).
		Msg("intraday strategy detected, re-estimating positions from transaction flow")
	estimated, err := EstimatePositions(positions, transactions, cfg)
	if err != nil {
		return nil, detection, err
	}
	return estimated, detection, nil
}

func grossOf(book map[string]portfolio.Position) float64 {
	g := 0.0
	for _, p := range book {
		g += math.Abs(p.Value())
	}
	return g
}

func cloneBook(book map[string]portfolio.Position) map[string]portfolio.Position {
	out := make(map[string]portfolio.Position, len(book))
	for k, v := range book {
		out[k] = v
	}
	return out
}

func rebuild(date time.Time, cash float64, book map[string]portfolio.Position) portfolio.Holdings {
	h := portfolio.NewHoldings(date, cash)
	gross := grossOf(book)
	for sym, p := range book {
		if gross > 0 {
			p.Weight = p.Value() / gross
		}
		h.Positions[sym] = p
	}
	return h
}
