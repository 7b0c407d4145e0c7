// Package config loads and validates the YAML configuration for the CLI
// and the HTTP server.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/folio/internal/costs"
	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/perf"
	"github.com/sawpanic/folio/internal/report"
	"github.com/sawpanic/folio/internal/turnover"
)

// BacktestConfig is the YAML shape of one backtest run.
type BacktestConfig struct {
	StartDate      string      `yaml:"start_date" json:"start_date"`
	EndDate        string      `yaml:"end_date" json:"end_date"`
	InitialCapital float64     `yaml:"initial_capital" json:"initial_capital"`
	Seed           int64       `yaml:"seed" json:"seed"`
	Benchmark      string      `yaml:"benchmark" json:"benchmark,omitempty"`
	Costs          costs.Model `yaml:"costs" json:"costs"`
	Strategy       Strategy    `yaml:"strategy" json:"strategy"`
}

// Strategy selects and parameterizes the strategy a backtest runs.
type Strategy struct {
	Name          string   `yaml:"name" json:"name"` // buy_and_hold, equal_weight, momentum
	Universe      []string `yaml:"universe" json:"universe"`
	Lookback      int      `yaml:"lookback" json:"lookback"`
	TopN          int      `yaml:"top_n" json:"top_n"`
	RebalanceDays int      `yaml:"rebalance_days" json:"rebalance_days"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// AppConfig is the root configuration document.
type AppConfig struct {
	Backtest BacktestConfig  `yaml:"backtest"`
	Metrics  perf.Config     `yaml:"metrics"`
	Turnover turnover.Config `yaml:"turnover"`
	Report   report.Config   `yaml:"report"`
	Server   ServerConfig    `yaml:"server"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// Default returns the configuration used when no file is supplied.
func Default() *AppConfig {
	return &AppConfig{
		Backtest: BacktestConfig{
			InitialCapital: 1_000_000,
			Seed:           42,
			Costs: costs.Model{
				Commission: costs.CommissionSchedule{Type: costs.Percentage, Rate: 0.0005},
				Slippage:   costs.SlippageConfig{HalfSpread: 0.0001},
				Liquidity:  costs.DefaultLiquidity(),
			},
			Strategy: Strategy{Name: "buy_and_hold"},
		},
		Metrics:  perf.DefaultConfig(),
		Turnover: turnover.DefaultConfig(),
		Report:   report.DefaultConfig(),
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Pretty: true},
	}
}

// Load reads a YAML configuration file layered over Default.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Newf(errs.IO, "failed to read config %s: %v", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Newf(errs.InvalidInput, "failed to parse config %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration back to a YAML file.
func Save(cfg *AppConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errs.Newf(errs.IO, "failed to marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Newf(errs.IO, "failed to write config %s: %v", path, err)
	}
	return nil
}

// Validate checks cross-field consistency.
func (c *AppConfig) Validate() error {
	if c.Backtest.InitialCapital <= 0 {
		return errs.Newf(errs.InvalidInput, "initial_capital must be positive, got %v", c.Backtest.InitialCapital)
	}
	switch c.Backtest.Strategy.Name {
	case "", "buy_and_hold", "equal_weight", "momentum":
	default:
		return errs.Newf(errs.InvalidInput, "unknown strategy %q", c.Backtest.Strategy.Name)
	}
	if c.Metrics.VaRConfidence <= 0 || c.Metrics.VaRConfidence >= 1 {
		return errs.Newf(errs.InvalidInput, "var_confidence must be in (0,1), got %v", c.Metrics.VaRConfidence)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errs.Newf(errs.InvalidInput, "invalid server port %d", c.Server.Port)
	}
	return nil
}
