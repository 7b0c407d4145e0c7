package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/folio/internal/errs"
)

func newBacktestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a backtest over CSV price histories",
		Long:  "Simulates the configured strategy day by day over a wide CSV of closes, pricing fills through the cost models, and prints the run result as JSON.",
		RunE:  runBacktest,
	}
	cmd.Flags().String("prices", "", "Wide CSV of closes (date,SYM1,SYM2,...)")
	cmd.Flags().String("volumes", "", "Optional wide CSV of daily volumes")
	cmd.Flags().String("volatility", "", "Optional wide CSV of daily volatilities")
	cmd.Flags().String("benchmark", "", "Optional CSV of benchmark returns")
	cmd.Flags().String("output", "", "Write JSON output to file instead of stdout")
	_ = cmd.MarkFlagRequired("prices")
	return cmd
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pricesPath, _ := cmd.Flags().GetString("prices")
	prices, err := loadPricesCSV(pricesPath)
	if err != nil {
		return err
	}
	if len(prices) == 0 {
		return errs.Newf(errs.InsufficientData, "%s contains no price columns", pricesPath)
	}

	engine, err := cfg.Backtest.Engine(cfg.Metrics)
	if err != nil {
		return err
	}
	universe := make([]string, 0, len(prices))
	for symbol, series := range prices {
		if err := engine.LoadPrices(symbol, series); err != nil {
			return err
		}
		universe = append(universe, symbol)
	}

	if volumesPath, _ := cmd.Flags().GetString("volumes"); volumesPath != "" {
		volumes, err := loadPricesCSV(volumesPath)
		if err != nil {
			return err
		}
		for symbol, series := range volumes {
			if err := engine.LoadVolumes(symbol, series); err != nil {
				return err
			}
		}
	}
	if volatilityPath, _ := cmd.Flags().GetString("volatility"); volatilityPath != "" {
		volatility, err := loadPricesCSV(volatilityPath)
		if err != nil {
			return err
		}
		for symbol, series := range volatility {
			if err := engine.LoadVolatility(symbol, series); err != nil {
				return err
			}
		}
	}
	if benchmarkPath, _ := cmd.Flags().GetString("benchmark"); benchmarkPath != "" {
		benchmark, err := loadSeriesCSV(benchmarkPath)
		if err != nil {
			return err
		}
		if err := engine.LoadBenchmark(benchmark); err != nil {
			return err
		}
	}

	strategyCfg := cfg.Backtest.Strategy
	if len(strategyCfg.Universe) == 0 {
		strategyCfg.Universe = universe
	}
	strategy, err := strategyCfg.Build()
	if err != nil {
		return err
	}
	engine.SetStrategy(strategy)

	log.Info().
		Str("strategy", strategy.Name()).
		Int("symbols", len(prices)).
		Float64("initial_capital", cfg.Backtest.InitialCapital).
		Msg("starting backtest")

	result, err := engine.Run(cmd.Context())
	if err != nil {
		return err
	}
	return writeJSON(cmd, result)
}
