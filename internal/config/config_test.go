package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/folio/internal/costs"
	"github.com/sawpanic/folio/internal/errs"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1_000_000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, "buy_and_hold", cfg.Backtest.Strategy.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.yaml")
	doc := `
backtest:
  initial_capital: 250000
  start_date: "2024-01-02"
  costs:
    commission:
      type: per_share
      rate: 0.005
  strategy:
    name: momentum
    universe: [AAPL, TSLA]
    lookback: 20
    top_n: 1
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 250_000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, costs.PerShare, cfg.Backtest.Costs.Commission.Type)
	assert.Equal(t, "momentum", cfg.Backtest.Strategy.Name)
	assert.Equal(t, []string{"AAPL", "TSLA"}, cfg.Backtest.Strategy.Universe)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Untouched sections keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, int64(42), cfg.Backtest.Seed)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, errs.IO, errs.KindOf(err))
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backtest: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errs.InvalidInput, errs.KindOf(err))
}

func TestValidateRejections(t *testing.T) {
	cfg := Default()
	cfg.Backtest.InitialCapital = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Backtest.Strategy.Name = "arbitrage"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Metrics.VaRConfidence = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.yaml")
	cfg := Default()
	cfg.Backtest.Strategy.Name = "equal_weight"
	cfg.Backtest.Strategy.RebalanceDays = 21
	cfg.Backtest.Costs.Impact = costs.ImpactConfig{Model: costs.SquareRoot, Coefficient: 0.05}

	require.NoError(t, Save(cfg, path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "equal_weight", loaded.Backtest.Strategy.Name)
	assert.Equal(t, 21, loaded.Backtest.Strategy.RebalanceDays)
	assert.Equal(t, costs.SquareRoot, loaded.Backtest.Costs.Impact.Model, "enum names survive the YAML round trip")
}

func TestEngineFromConfig(t *testing.T) {
	cfg := Default()
	cfg.Backtest.StartDate = "2024-01-02"
	cfg.Backtest.EndDate = "2024-06-28"

	engine, err := cfg.Backtest.Engine(cfg.Metrics)
	require.NoError(t, err)
	assert.NotNil(t, engine)

	cfg.Backtest.EndDate = "2023-12-29"
	_, err = cfg.Backtest.Engine(cfg.Metrics)
	assert.Error(t, err, "end before start")

	cfg.Backtest.EndDate = "not-a-date"
	_, err = cfg.Backtest.Engine(cfg.Metrics)
	assert.Error(t, err)
}

func TestStrategyBuild(t *testing.T) {
	s := Strategy{Name: "", Universe: []string{"SPY"}}
	built, err := s.Build()
	require.NoError(t, err)
	assert.Equal(t, "buy_and_hold", built.Name(), "empty name defaults to buy and hold")

	s = Strategy{Name: "momentum", Universe: []string{"SPY"}, Lookback: 20, TopN: 1, RebalanceDays: 5}
	built, err = s.Build()
	require.NoError(t, err)
	assert.Equal(t, "momentum", built.Name())

	_, err = Strategy{Name: "arbitrage"}.Build()
	assert.Error(t, err)
}
