// Package turnover implements Average Gross Book and turnover analytics with
// selectable denominators (AGB, portfolio value, net liquidation).
package turnover

import (
	"encoding/json"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/portfolio"
	"github.com/sawpanic/folio/internal/stats"
	"github.com/sawpanic/folio/internal/timeseries"
)

// Denominator selects what daily position changes are divided by.
type Denominator int

const (
	// AGB divides by the rolling Average Gross Book (reference default).
	AGB Denominator = iota
	// PortfolioValue divides by cash + longs + |shorts|.
	PortfolioValue
	// NetLiquidation divides by cash + longs - |shorts|.
	NetLiquidation
	// TotalAssets divides by cash + longs + |shorts|.
	TotalAssets
)

func (d Denominator) String() string {
	switch d {
	case AGB:
		return "agb"
	case PortfolioValue:
		return "portfolio_value"
	case NetLiquidation:
		return "net_liquidation"
	case TotalAssets:
		return "total_assets"
	default:
		return "unknown"
	}
}

// ParseDenominator parses a denominator name from config.
func ParseDenominator(s string) (Denominator, error) {
	switch s {
	case "agb", "":
		return AGB, nil
	case "portfolio_value":
		return PortfolioValue, nil
	case "net_liquidation":
		return NetLiquidation, nil
	case "total_assets":
		return TotalAssets, nil
	default:
		return 0, errs.Newf(errs.InvalidInput, "unknown turnover denominator %q", s)
	}
}

// MarshalYAML writes the denominator name.
func (d Denominator) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// MarshalJSON writes the denominator name.
func (d Denominator) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads a denominator name.
func (d *Denominator) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDenominator(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalYAML reads a denominator name.
func (d *Denominator) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDenominator(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Config holds turnover calculation settings.
type Config struct {
	Window         int         `yaml:"window" json:"window"`                     // AGB rolling window, default 2
	Denominator    Denominator `yaml:"denominator" json:"denominator"`          // Default AGB
	PeriodsPerYear int         `yaml:"periods_per_year" json:"periods_per_year"` // Default 252
}

// DefaultConfig returns the AGB denominator with a two-day window.
func DefaultConfig() Config {
	return Config{Window: 2, Denominator: AGB, PeriodsPerYear: timeseries.TradingDays}
}

// Result is the full turnover analysis for a position series.
type Result struct {
	DailyTurnover      *timeseries.Series `json:"-"`
	RollingAGB         *timeseries.Series `json:"-"`
	PositionChanges    *timeseries.Series `json:"-"`
	AverageTurnover    float64            `json:"average_turnover"`
	MedianTurnover     float64            `json:"median_turnover"`
	AnnualizedTurnover float64            `json:"annualized_turnover"`
	TurnoverVolatility float64            `json:"turnover_volatility"`
	MaxDailyTurnover   float64            `json:"max_daily_turnover"`
	MinDailyTurnover   float64            `json:"min_daily_turnover"`
	MonthlyTurnover    *timeseries.Series `json:"-"`
	DenominatorUsed    Denominator        `json:"denominator_used"`
}

// RollingAGB computes the trailing mean of gross exposure over the config
// window. Entries before the first full window are NaN.
func RollingAGB(positions *portfolio.PositionSeries, window int) (*timeseries.Series, error) {
	if window < 1 {
		return nil, errs.Newf(errs.InvalidInput, "agb window must be >= 1, got %d", window)
	}
	gross, err := positions.GrossSeries()
	if err != nil {
		return nil, err
	}
	return gross.RollingMean(window)
}

// PositionChanges sums |delta position value| per symbol across consecutive
// snapshots. The first entry is NaN: there is no prior snapshot to diff.
func PositionChanges(positions *portfolio.PositionSeries) (*timeseries.Series, error) {
	if positions.Len() < 1 {
		return nil, errs.New(errs.InsufficientData, "position series is empty")
	}
	snaps := positions.Snapshots()
	values := make([]float64, len(snaps))
	values[0] = math.NaN()
	for i := 1; i < len(snaps); i++ {
		values[i] = grossChange(snaps[i-1], snaps[i])
	}
	return timeseries.New(positions.Dates(), values)
}

// grossChange is the sum over symbols of |value now - value before|.
func grossChange(prev, cur portfolio.Holdings) float64 {
	total := 0.0
	seen := make(map[string]bool, len(cur.Positions))
	for sym, p := range cur.Positions {
		seen[sym] = true
		total += math.Abs(p.Value() - prev.Positions[sym].Value())
	}
	for sym, p := range prev.Positions {
		if !seen[sym] {
			total += math.Abs(p.Value())
		}
	}
	return total
}

// Calculate produces the daily turnover series and its summary statistics.
func Calculate(positions *portfolio.PositionSeries, cfg Config) (*Result, error) {
	if positions.Len() < 2 {
		return nil, errs.New(errs.InsufficientData, "need at least 2 snapshots for turnover")
	}
	if cfg.Window < 1 {
		return nil, errs.Newf(errs.InvalidInput, "agb window must be >= 1, got %d", cfg.Window)
	}
	changes, err := PositionChanges(positions)
	if err != nil {
		return nil, err
	}
	denom, err := denominatorSeries(positions, cfg)
	if err != nil {
		return nil, err
	}

	dates := positions.Dates()
	chv := changes.Values()
	dnv := denom.Values()
	daily := make([]float64, len(dates))
	for i := range daily {
		if math.IsNaN(chv[i]) || math.IsNaN(dnv[i]) || dnv[i] == 0 {
			daily[i] = math.NaN()
			continue
		}
		daily[i] = chv[i] / dnv[i]
	}
	dailySeries, err := timeseries.New(dates, daily)
	if err != nil {
		return nil, err
	}

	defined := make([]float64, 0, len(daily))
	for _, v := range daily {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return nil, errs.New(errs.InsufficientData, "no defined turnover observations")
	}
	mean, _ := stats.Mean(defined)
	median, _ := stats.Median(defined)
	res := &Result{
		DailyTurnover:      dailySeries,
		PositionChanges:    changes,
		AverageTurnover:    mean,
		MedianTurnover:     median,
		AnnualizedTurnover: Annualize(mean, cfg.PeriodsPerYear),
		MaxDailyTurnover:   maxOf(defined),
		MinDailyTurnover:   minOf(defined),
		DenominatorUsed:    cfg.Denominator,
	}
	if cfg.Denominator == AGB {
		res.RollingAGB = denom
	}
	if len(defined) >= 2 {
		res.TurnoverVolatility, _ = stats.StdDev(defined)
	}
	if monthly, err := dailySeries.Resample(timeseries.Monthly, timeseries.ReduceMean); err == nil {
		res.MonthlyTurnover = monthly
	}
	return res, nil
}

// Annualize scales a mean daily turnover to yearly.
func Annualize(dailyMean float64, periodsPerYear int) float64 {
	if periodsPerYear <= 0 {
		periodsPerYear = timeseries.TradingDays
	}
	return dailyMean * float64(periodsPerYear)
}

func denominatorSeries(positions *portfolio.PositionSeries, cfg Config) (*timeseries.Series, error) {
	if cfg.Denominator == AGB {
		return RollingAGB(positions, cfg.Window)
	}
	snaps := positions.Snapshots()
	values := make([]float64, len(snaps))
	for i, h := range snaps {
		switch cfg.Denominator {
		case PortfolioValue, TotalAssets:
			values[i] = h.PortfolioValue()
		case NetLiquidation:
			values[i] = h.NetLiquidation()
		default:
			return nil, errs.Newf(errs.InvalidInput, "unknown denominator %d", cfg.Denominator)
		}
	}
	return timeseries.New(positions.Dates(), values)
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
