// Package report composes the lower-level analytics into aggregate outputs:
// the full tear sheet and portfolio capacity analysis.
package report

import (
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/folio/internal/intraday"
	"github.com/sawpanic/folio/internal/perf"
	"github.com/sawpanic/folio/internal/portfolio"
	"github.com/sawpanic/folio/internal/regime"
	"github.com/sawpanic/folio/internal/timeseries"
	"github.com/sawpanic/folio/internal/turnover"
)

// TearSheet aggregates the analyses for one strategy history. Optional
// sections are nil when their inputs were not supplied.
type TearSheet struct {
	Performance perf.Summary              `json:"performance"`
	Drawdown    perf.DrawdownInfo         `json:"drawdown"`
	Turnover    *turnover.Result          `json:"turnover,omitempty"`
	Decomposed  *turnover.Decomposition   `json:"turnover_decomposition,omitempty"`
	Intraday    *intraday.DetectionResult `json:"intraday,omitempty"`
	Regimes     *regime.Result            `json:"regimes,omitempty"`
}

// Config selects tear sheet inputs and conventions.
type Config struct {
	Metrics        perf.Config     `yaml:"metrics"`
	Turnover       turnover.Config `yaml:"turnover"`
	RegimeDetector regime.Config   `yaml:"regime"`
	RegimeStates   int             `yaml:"regime_states"` // Markov states; 0 disables
	RegimeSeed     int64           `yaml:"regime_seed"`
}

// DefaultConfig wires the reference defaults for every section.
func DefaultConfig() Config {
	return Config{
		Metrics:        perf.DefaultConfig(),
		Turnover:       turnover.DefaultConfig(),
		RegimeDetector: regime.DefaultConfig(),
		RegimeStates:   3,
		RegimeSeed:     42,
	}
}

// Build assembles the tear sheet. returns is required; benchmark, positions
// and transactions are optional and enable their sections when present. A
// failed optional section is logged and omitted rather than failing the
// whole sheet; the performance core short-circuits as usual.
func Build(returns, benchmark *timeseries.Series, positions *portfolio.PositionSeries, transactions *portfolio.TransactionSeries, cfg Config) (*TearSheet, error) {
	summary, err := perf.Summarize(returns, benchmark, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	dd, err := perf.MaxDrawdown(returns)
	if err != nil {
		return nil, err
	}
	sheet := &TearSheet{Performance: summary, Drawdown: dd}

	if positions != nil && positions.Len() >= 2 {
		if to, err := turnover.Calculate(positions, cfg.Turnover); err == nil {
			sheet.Turnover = to
		} else {
			log.Warn().Err(err).Msg("turnover section skipped")
		}
		if transactions != nil {
			if dec, err := turnover.Decompose(positions, transactions); err == nil {
				sheet.Decomposed = &dec
			} else {
				log.Warn().Err(err).Msg("turnover decomposition skipped")
			}
		}
	}
	if positions != nil && transactions != nil {
		if det, err := intraday.Detect(positions, transactions, intraday.DefaultThreshold); err == nil {
			sheet.Intraday = &det
		} else {
			log.Warn().Err(err).Msg("intraday section skipped")
		}
	}
	if cfg.RegimeStates >= 2 {
		detector := regime.NewDetector(cfg.RegimeDetector)
		if reg, err := detector.MarkovSwitching(returns, cfg.RegimeStates, cfg.RegimeSeed); err == nil {
			sheet.Regimes = reg
		} else {
			log.Warn().Err(err).Msg("regime section skipped")
		}
	}
	return sheet, nil
}
