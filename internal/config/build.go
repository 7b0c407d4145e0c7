package config

import (
	"time"

	"github.com/sawpanic/folio/internal/backtest"
	"github.com/sawpanic/folio/internal/calendar"
	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/perf"
)

// Engine builds a backtest engine from the config. The strategy is installed
// separately so callers can supply their own implementations.
func (b BacktestConfig) Engine(metrics perf.Config) (*backtest.Engine, error) {
	cfg := backtest.Config{
		InitialCapital: b.InitialCapital,
		Costs:          b.Costs,
		Metrics:        metrics,
		Seed:           b.Seed,
	}
	var err error
	if cfg.StartDate, err = parseOptionalDate(b.StartDate); err != nil {
		return nil, err
	}
	if cfg.EndDate, err = parseOptionalDate(b.EndDate); err != nil {
		return nil, err
	}
	if !cfg.StartDate.IsZero() && !cfg.EndDate.IsZero() && cfg.EndDate.Before(cfg.StartDate) {
		return nil, errs.Newf(errs.InvalidInput, "end_date %s before start_date %s", b.EndDate, b.StartDate)
	}
	return backtest.NewEngine(cfg), nil
}

// Build instantiates the configured strategy.
func (s Strategy) Build() (backtest.Strategy, error) {
	switch s.Name {
	case "", "buy_and_hold":
		return backtest.NewBuyAndHold(s.Universe), nil
	case "equal_weight":
		return backtest.NewEqualWeight(s.Universe, s.RebalanceDays), nil
	case "momentum":
		return backtest.NewMomentum(s.Universe, s.Lookback, s.TopN, s.RebalanceDays), nil
	default:
		return nil, errs.Newf(errs.InvalidInput, "unknown strategy %q", s.Name)
	}
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return calendar.ParseDate(s)
}
