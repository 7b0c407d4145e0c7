package main

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/folio/internal/config"
	"github.com/sawpanic/folio/internal/report"
	"github.com/sawpanic/folio/internal/timeseries"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Build a tear sheet from a return series",
		Long:  "Computes performance, drawdown and regime analytics from a CSV return series and prints the tear sheet as JSON.",
		RunE:  runAnalyze,
	}
	cmd.Flags().String("returns", "", "CSV file of daily returns (date,value)")
	cmd.Flags().String("benchmark", "", "Optional CSV file of benchmark returns")
	cmd.Flags().String("output", "", "Write JSON output to file instead of stdout")
	_ = cmd.MarkFlagRequired("returns")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	returnsPath, _ := cmd.Flags().GetString("returns")
	returns, err := loadSeriesCSV(returnsPath)
	if err != nil {
		return err
	}
	log.Info().Str("file", returnsPath).Int("observations", returns.Len()).Msg("loaded returns")

	var benchmark *timeseries.Series
	if benchmarkPath, _ := cmd.Flags().GetString("benchmark"); benchmarkPath != "" {
		if benchmark, err = loadSeriesCSV(benchmarkPath); err != nil {
			return err
		}
	}

	sheet, err := report.Build(returns, benchmark, nil, nil, cfg.Report)
	if err != nil {
		return err
	}
	return writeJSON(cmd, sheet)
}

func loadConfig() (*config.AppConfig, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return err
		}
		log.Info().Str("file", output).Msg("wrote report")
		return nil
	}
	_, err = os.Stdout.Write(data)
	return err
}
