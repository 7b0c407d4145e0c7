package report

import (
	"math"
	"sort"

	"github.com/sawpanic/folio/internal/errs"
)

// Microstructure is the per-symbol liquidity data capacity analysis runs on.
type Microstructure struct {
	Symbol             string  `yaml:"symbol" json:"symbol"`
	AverageDailyVolume float64 `yaml:"average_daily_volume" json:"average_daily_volume"` // Shares
	MarketCap          float64 `yaml:"market_cap" json:"market_cap"`
	SpreadBps          float64 `yaml:"spread_bps" json:"spread_bps"`
	ImpactCoefficient  float64 `yaml:"impact_coefficient" json:"impact_coefficient"`
	Volatility         float64 `yaml:"volatility" json:"volatility"` // Daily, fraction
}

// SpreadCost returns the half-spread dollar cost of trading shares at price.
func (m Microstructure) SpreadCost(shares, price float64) float64 {
	return math.Abs(shares) * price * (m.SpreadBps / 10000.0) / 2
}

// ImpactCost returns the square-root-model impact in dollars for trading
// shares at price.
func (m Microstructure) ImpactCost(shares, price float64) float64 {
	if m.AverageDailyVolume <= 0 {
		return 0
	}
	participation := math.Abs(shares) / m.AverageDailyVolume
	perShare := m.ImpactCoefficient * m.Volatility * price * math.Sqrt(participation)
	return perShare * math.Abs(shares)
}

// Constraint names the limit that binds a security's capacity.
type Constraint string

const (
	ConstraintNone      Constraint = "none"
	ConstraintADV       Constraint = "adv_participation"
	ConstraintMarketCap Constraint = "market_cap"
	ConstraintCost      Constraint = "trading_cost"
)

// CapacityConstraints bound position size and execution cost.
type CapacityConstraints struct {
	MaxADVParticipation float64 `yaml:"max_adv_participation" json:"max_adv_participation"` // Of average daily volume
	MaxDailyVolume      float64 `yaml:"max_daily_volume" json:"max_daily_volume"`           // Of one day's volume
	MaxMarketCapPct     float64 `yaml:"max_market_cap_pct" json:"max_market_cap_pct"`
	MaxSpreadCostBps    float64 `yaml:"max_spread_cost_bps" json:"max_spread_cost_bps"`
	MaxImpactBps        float64 `yaml:"max_impact_bps" json:"max_impact_bps"`
	MaxTradingDays      int     `yaml:"max_trading_days" json:"max_trading_days"`
}

// DefaultConstraints returns the conventional institutional limits.
func DefaultConstraints() CapacityConstraints {
	return CapacityConstraints{
		MaxADVParticipation: 0.10,
		MaxDailyVolume:      0.05,
		MaxMarketCapPct:     0.01,
		MaxSpreadCostBps:    50,
		MaxImpactBps:        100,
		MaxTradingDays:      10,
	}
}

// SecurityCapacity is the capacity analysis of a single symbol.
type SecurityCapacity struct {
	Symbol               string     `json:"symbol"`
	MaxPositionShares    float64    `json:"max_position_shares"`
	MaxPositionDollars   float64    `json:"max_position_dollars"`
	MaxDailyTradeShares  float64    `json:"max_daily_trade_shares"`
	MaxDailyTradeDollars float64    `json:"max_daily_trade_dollars"`
	SpreadCost           float64    `json:"spread_cost"`
	ImpactCost           float64    `json:"impact_cost"`
	TotalCost            float64    `json:"total_cost"`
	TradingDays          int        `json:"trading_days"`
	Binding              Constraint `json:"binding_constraint"`
}

// CostBps returns total trading cost in basis points of the position.
func (s SecurityCapacity) CostBps() float64 {
	if s.MaxPositionDollars <= 0 {
		return 0
	}
	return s.TotalCost / s.MaxPositionDollars * 10000
}

// PortfolioCapacity aggregates security capacities at target weights.
type PortfolioCapacity struct {
	Securities          map[string]SecurityCapacity `json:"securities"`
	TotalCapacity       float64                     `json:"total_capacity"`
	CurrentSize         float64                     `json:"current_size"`
	Utilization         float64                     `json:"utilization"`
	TotalEstimatedCosts float64                     `json:"total_estimated_costs"`
	AverageTradingDays  float64                     `json:"average_trading_days"`
	Constrained         []string                    `json:"constrained_symbols"`
}

// Headroom returns the fraction of total capacity still unused.
func (p PortfolioCapacity) Headroom() float64 {
	if p.TotalCapacity <= 0 {
		return 0
	}
	return (p.TotalCapacity - p.CurrentSize) / p.TotalCapacity
}

// NearLimit reports whether utilization exceeds the threshold.
func (p PortfolioCapacity) NearLimit(threshold float64) bool {
	return p.Utilization > threshold
}

// CapacityAnalyzer sizes positions against liquidity constraints.
type CapacityAnalyzer struct {
	constraints CapacityConstraints
	market      map[string]Microstructure
}

// NewCapacityAnalyzer creates an analyzer with the given constraints.
func NewCapacityAnalyzer(constraints CapacityConstraints) *CapacityAnalyzer {
	return &CapacityAnalyzer{
		constraints: constraints,
		market:      make(map[string]Microstructure),
	}
}

// SetMarketData registers microstructure data, replacing prior entries for
// the same symbols.
func (a *CapacityAnalyzer) SetMarketData(data []Microstructure) {
	for _, m := range data {
		a.market[m.Symbol] = m
	}
}

// SecurityCapacity computes capacity for one symbol targeting the given
// dollar position at the current price.
func (a *CapacityAnalyzer) SecurityCapacity(symbol string, targetDollars, price float64) (SecurityCapacity, error) {
	m, ok := a.market[symbol]
	if !ok {
		return SecurityCapacity{}, errs.Newf(errs.NotFound, "no market data for symbol %s", symbol)
	}
	if price <= 0 {
		return SecurityCapacity{}, errs.Newf(errs.InvalidInput, "price must be positive, got %v", price)
	}

	maxSharesADV := m.AverageDailyVolume * a.constraints.MaxADVParticipation
	maxSharesCap := math.Inf(1)
	if m.MarketCap > 0 {
		maxSharesCap = m.MarketCap * a.constraints.MaxMarketCapPct / price
	}

	res := SecurityCapacity{Symbol: symbol, Binding: ConstraintADV}
	res.MaxPositionShares = maxSharesADV
	if maxSharesCap < maxSharesADV {
		res.MaxPositionShares = maxSharesCap
		res.Binding = ConstraintMarketCap
	}
	res.MaxPositionDollars = res.MaxPositionShares * price

	res.MaxDailyTradeShares = m.AverageDailyVolume * a.constraints.MaxDailyVolume
	res.MaxDailyTradeDollars = res.MaxDailyTradeShares * price

	targetShares := math.Min(targetDollars/price, res.MaxPositionShares)
	if res.MaxDailyTradeShares > 0 {
		res.TradingDays = int(math.Ceil(targetShares / res.MaxDailyTradeShares))
	}

	res.SpreadCost = m.SpreadCost(targetShares, price)
	res.ImpactCost = m.ImpactCost(targetShares, price)
	res.TotalCost = res.SpreadCost + res.ImpactCost

	if targetShares > 0 {
		notional := targetShares * price
		spreadBps := res.SpreadCost / notional * 10000
		impactBps := res.ImpactCost / notional * 10000
		overCost := spreadBps > a.constraints.MaxSpreadCostBps || impactBps > a.constraints.MaxImpactBps
		overDays := a.constraints.MaxTradingDays > 0 && res.TradingDays > a.constraints.MaxTradingDays
		if overCost || overDays {
			a.shrinkToConstraints(&res, m, price)
		}
	}
	return res, nil
}

// shrinkToConstraints halves the position until cost and timeline limits
// hold. Impact grows with size so the loop terminates quickly.
func (a *CapacityAnalyzer) shrinkToConstraints(res *SecurityCapacity, m Microstructure, price float64) {
	shares := res.MaxPositionShares
	for i := 0; i < 40 && shares > 0; i++ {
		notional := shares * price
		spread := m.SpreadCost(shares, price)
		impact := m.ImpactCost(shares, price)
		days := 0
		if res.MaxDailyTradeShares > 0 {
			days = int(math.Ceil(shares / res.MaxDailyTradeShares))
		}
		costOK := spread/notional*10000 <= a.constraints.MaxSpreadCostBps &&
			impact/notional*10000 <= a.constraints.MaxImpactBps
		daysOK := a.constraints.MaxTradingDays <= 0 || days <= a.constraints.MaxTradingDays
		if costOK && daysOK {
			res.MaxPositionShares = shares
			res.MaxPositionDollars = notional
			res.SpreadCost = spread
			res.ImpactCost = impact
			res.TotalCost = spread + impact
			res.TradingDays = days
			res.Binding = ConstraintCost
			return
		}
		shares /= 2
	}
	res.MaxPositionShares = 0
	res.MaxPositionDollars = 0
	res.Binding = ConstraintCost
}

// PortfolioCapacity computes capacity at the given target weights, current
// portfolio value and prices. Symbols without price or market data are
// skipped.
func (a *CapacityAnalyzer) PortfolioCapacity(weights map[string]float64, portfolioValue float64, prices map[string]float64) (PortfolioCapacity, error) {
	if len(weights) == 0 {
		return PortfolioCapacity{}, errs.New(errs.InvalidInput, "target weights cannot be empty")
	}
	out := PortfolioCapacity{
		Securities:  make(map[string]SecurityCapacity),
		CurrentSize: portfolioValue,
	}

	symbols := make([]string, 0, len(weights))
	for s := range weights {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var totalDays, daysCount float64
	for _, sym := range symbols {
		price, ok := prices[sym]
		if !ok {
			continue
		}
		sec, err := a.SecurityCapacity(sym, portfolioValue*math.Abs(weights[sym]), price)
		if err != nil {
			continue
		}
		out.Securities[sym] = sec
		out.TotalCapacity += sec.MaxPositionDollars
		out.TotalEstimatedCosts += sec.TotalCost
		if sec.TradingDays > 0 {
			totalDays += float64(sec.TradingDays)
			daysCount++
		}
		if sec.Binding != ConstraintNone && sec.Binding != ConstraintMarketCap {
			out.Constrained = append(out.Constrained, sym)
		}
	}
	if len(out.Securities) == 0 {
		return PortfolioCapacity{}, errs.New(errs.InsufficientData, "no analyzable securities in target weights")
	}
	if out.TotalCapacity > 0 {
		out.Utilization = out.CurrentSize / out.TotalCapacity
	}
	if daysCount > 0 {
		out.AverageTradingDays = totalDays / daysCount
	}
	return out, nil
}
