package backtest

import (
	"sort"
	"time"

	"github.com/sawpanic/folio/internal/portfolio"
)

// MarketView is the price information a strategy sees on one bar.
type MarketView struct {
	Date   time.Time
	Prices map[string]float64 // Latest close per symbol

	history map[string][]float64 // Closes up to and including Date
}

// Window returns the trailing n closes for symbol up to the current bar,
// or nil when fewer than n are available.
func (v *MarketView) Window(symbol string, n int) []float64 {
	h := v.history[symbol]
	if len(h) < n {
		return nil
	}
	return h[len(h)-n:]
}

// Symbols lists the symbols priced on this bar in sorted order.
func (v *MarketView) Symbols() []string {
	syms := make([]string, 0, len(v.Prices))
	for s := range v.Prices {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// Strategy produces target portfolio weights bar by bar. Implementations
// must be deterministic: same inputs, same targets.
type Strategy interface {
	// Name identifies the strategy in logs and reports.
	Name() string
	// OnBar returns target weights per symbol (fractions of equity; may be
	// negative for shorts). A nil map means no rebalance this bar.
	OnBar(view *MarketView, holdings portfolio.Holdings, equity float64) map[string]float64
	// Reset clears internal state before a run.
	Reset()
}

// BuyAndHold invests equal weights across its universe on the first bar and
// never trades again.
type BuyAndHold struct {
	Universe []string

	invested bool
}

// NewBuyAndHold creates the strategy for a fixed universe.
func NewBuyAndHold(universe []string) *BuyAndHold {
	return &BuyAndHold{Universe: append([]string(nil), universe...)}
}

func (s *BuyAndHold) Name() string { return "buy_and_hold" }

func (s *BuyAndHold) Reset() { s.invested = false }

func (s *BuyAndHold) OnBar(view *MarketView, _ portfolio.Holdings, _ float64) map[string]float64 {
	if s.invested {
		return nil
	}
	targets := make(map[string]float64)
	priced := 0
	for _, sym := range s.Universe {
		if _, ok := view.Prices[sym]; ok {
			priced++
		}
	}
	if priced == 0 {
		return nil
	}
	w := 1.0 / float64(priced)
	for _, sym := range s.Universe {
		if _, ok := view.Prices[sym]; ok {
			targets[sym] = w
		}
	}
	s.invested = true
	return targets
}

// EqualWeight rebalances to equal weights across its universe every
// RebalanceDays bars.
type EqualWeight struct {
	Universe      []string
	RebalanceDays int

	sinceRebalance int
	started        bool
}

// NewEqualWeight creates the strategy; rebalanceDays < 1 defaults to 21.
func NewEqualWeight(universe []string, rebalanceDays int) *EqualWeight {
	if rebalanceDays < 1 {
		rebalanceDays = 21
	}
	return &EqualWeight{Universe: append([]string(nil), universe...), RebalanceDays: rebalanceDays}
}

func (s *EqualWeight) Name() string { return "equal_weight" }

func (s *EqualWeight) Reset() {
	s.sinceRebalance = 0
	s.started = false
}

func (s *EqualWeight) OnBar(view *MarketView, _ portfolio.Holdings, _ float64) map[string]float64 {
	if s.started {
		s.sinceRebalance++
		if s.sinceRebalance < s.RebalanceDays {
			return nil
		}
	}
	s.started = true
	s.sinceRebalance = 0

	targets := make(map[string]float64)
	var priced []string
	for _, sym := range s.Universe {
		if _, ok := view.Prices[sym]; ok {
			priced = append(priced, sym)
		}
	}
	if len(priced) == 0 {
		return nil
	}
	w := 1.0 / float64(len(priced))
	for _, sym := range priced {
		targets[sym] = w
	}
	return targets
}

// Momentum ranks the universe by trailing Lookback-bar return, goes long
// the top TopN equal-weighted, and rebalances every RebalanceDays bars.
type Momentum struct {
	Universe      []string
	Lookback      int
	TopN          int
	RebalanceDays int

	sinceRebalance int
	started        bool
}

// NewMomentum creates the strategy with sane fallbacks for zero parameters.
func NewMomentum(universe []string, lookback, topN, rebalanceDays int) *Momentum {
	if lookback < 1 {
		lookback = 20
	}
	if topN < 1 {
		topN = 1
	}
	if rebalanceDays < 1 {
		rebalanceDays = 5
	}
	return &Momentum{
		Universe:      append([]string(nil), universe...),
		Lookback:      lookback,
		TopN:          topN,
		RebalanceDays: rebalanceDays,
	}
}

func (s *Momentum) Name() string { return "momentum" }

func (s *Momentum) Reset() {
	s.sinceRebalance = 0
	s.started = false
}

func (s *Momentum) OnBar(view *MarketView, _ portfolio.Holdings, _ float64) map[string]float64 {
	if s.started {
		s.sinceRebalance++
		if s.sinceRebalance < s.RebalanceDays {
			return nil
		}
	}

	type ranked struct {
		symbol string
		ret    float64
	}
	var candidates []ranked
	for _, sym := range s.Universe {
		w := view.Window(sym, s.Lookback+1)
		if w == nil || w[0] == 0 {
			continue
		}
		candidates = append(candidates, ranked{symbol: sym, ret: w[len(w)-1]/w[0] - 1})
	}
	if len(candidates) == 0 {
		return nil
	}
	s.started = true
	s.sinceRebalance = 0

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ret != candidates[j].ret {
			return candidates[i].ret > candidates[j].ret
		}
		return candidates[i].symbol < candidates[j].symbol
	})
	n := s.TopN
	if n > len(candidates) {
		n = len(candidates)
	}
	targets := make(map[string]float64, len(s.Universe))
	for _, sym := range s.Universe {
		targets[sym] = 0
	}
	w := 1.0 / float64(n)
	for _, c := range candidates[:n] {
		targets[c.symbol] = w
	}
	return targets
}
