// Package backtest runs event-driven daily simulations of a strategy
// against loaded price histories, pricing every fill through the cost
// models and emitting an equity curve for the performance analytics.
package backtest

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/folio/internal/calendar"
	"github.com/sawpanic/folio/internal/costs"
	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/perf"
	"github.com/sawpanic/folio/internal/portfolio"
	"github.com/sawpanic/folio/internal/timeseries"
)

// Config holds a backtest run's settings.
type Config struct {
	StartDate      time.Time   `yaml:"start_date"`
	EndDate        time.Time   `yaml:"end_date"`
	InitialCapital float64     `yaml:"initial_capital"`
	Costs          costs.Model `yaml:"costs"`
	Metrics        perf.Config `yaml:"metrics"`
	Seed           int64       `yaml:"seed"`
}

// DefaultConfig returns a million-dollar run with percentage commission and
// square-root impact.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 1_000_000,
		Costs: costs.Model{
			Commission: costs.CommissionSchedule{Type: costs.Percentage, Rate: 0.001},
			Slippage:   costs.SlippageConfig{HalfSpread: 0.0005, KVol: 0.1},
			Impact:     costs.ImpactConfig{Model: costs.SquareRoot, Coefficient: 0.1},
			Liquidity:  costs.DefaultLiquidity(),
		},
		Metrics: perf.DefaultConfig(),
		Seed:    42,
	}
}

// ExecutedTrade records one fill with its cost breakdown.
type ExecutedTrade struct {
	Date         time.Time `json:"date"`
	Symbol       string    `json:"symbol"`
	Shares       float64   `json:"shares"` // Signed
	MarketPrice  float64   `json:"market_price"`
	FillPrice    float64   `json:"fill_price"`
	Commission   float64   `json:"commission"`
	Slippage     float64   `json:"slippage"`
	MarketImpact float64   `json:"market_impact"`
	TotalCost    float64   `json:"total_cost"`
}

// Result is the complete output of one backtest run.
type Result struct {
	RunID                 string             `json:"run_id"`
	Strategy              string             `json:"strategy"`
	StartDate             time.Time          `json:"start_date"`
	EndDate               time.Time          `json:"end_date"`
	InitialCapital        float64            `json:"initial_capital"`
	FinalValue            float64            `json:"final_value"`
	TotalTrades           int                `json:"total_trades"`
	TotalCommission       float64            `json:"total_commission"`
	TotalMarketImpact     float64            `json:"total_market_impact"`
	TotalSlippage         float64            `json:"total_slippage"`
	TotalTransactionCosts float64            `json:"total_transaction_costs"`
	MaxDrawdown           float64            `json:"max_drawdown"`
	DailyEquity           *timeseries.Series `json:"-"`
	Returns               *timeseries.Series `json:"-"`
	Drawdowns             *timeseries.Series `json:"-"`
	Performance           perf.Summary       `json:"performance"`
	Trades                []ExecutedTrade    `json:"-"`
}

// Engine owns the in-flight portfolio state during Run; callers must not
// observe intermediate state.
type Engine struct {
	cfg      Config
	strategy Strategy

	prices     map[string]*timeseries.Series
	volumes    map[string]*timeseries.Series
	volatility map[string]*timeseries.Series
	benchmark  *timeseries.Series
}

// NewEngine creates an engine for the given config.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:        cfg,
		prices:     make(map[string]*timeseries.Series),
		volumes:    make(map[string]*timeseries.Series),
		volatility: make(map[string]*timeseries.Series),
	}
}

// SetStrategy installs the strategy to simulate.
func (e *Engine) SetStrategy(s Strategy) { e.strategy = s }

// LoadPrices registers a symbol's close series.
func (e *Engine) LoadPrices(symbol string, s *timeseries.Series) error {
	if s == nil || s.Empty() {
		return errs.Newf(errs.InsufficientData, "price series for %s is empty", symbol)
	}
	e.prices[symbol] = s
	return nil
}

// LoadVolumes registers a symbol's daily volume series used for
// participation caps and impact.
func (e *Engine) LoadVolumes(symbol string, s *timeseries.Series) error {
	if s == nil || s.Empty() {
		return errs.Newf(errs.InsufficientData, "volume series for %s is empty", symbol)
	}
	e.volumes[symbol] = s
	return nil
}

// LoadVolatility registers a symbol's daily volatility series for the cost
// models.
func (e *Engine) LoadVolatility(symbol string, s *timeseries.Series) error {
	if s == nil || s.Empty() {
		return errs.Newf(errs.InsufficientData, "volatility series for %s is empty", symbol)
	}
	e.volatility[symbol] = s
	return nil
}

// LoadBenchmark registers benchmark prices for relative performance
// metrics.
func (e *Engine) LoadBenchmark(s *timeseries.Series) error {
	if s == nil || s.Len() < 2 {
		return errs.New(errs.InsufficientData, "benchmark series needs at least 2 observations")
	}
	e.benchmark = s
	return nil
}

// Run executes the daily event loop over the union of loaded price dates
// within [StartDate, EndDate]. Fills within a day occur in submission
// order; holdings and cash update atomically per order.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.strategy == nil {
		return nil, errs.New(errs.InvalidInput, "no strategy set")
	}
	if len(e.prices) == 0 {
		return nil, errs.New(errs.InsufficientData, "no price data loaded")
	}
	if e.cfg.InitialCapital <= 0 {
		return nil, errs.Newf(errs.InvalidInput, "initial capital must be positive, got %v", e.cfg.InitialCapital)
	}

	dates := e.tradingDates()
	if len(dates) == 0 {
		return nil, errs.New(errs.InsufficientData, "no trading dates in configured range")
	}

	e.strategy.Reset()
	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Str("strategy", e.strategy.Name()).
		Str("start", calendar.FormatDate(dates[0])).Str("end", calendar.FormatDate(dates[len(dates)-1])).
		Int("bars", len(dates)).Msg("starting backtest")

	res := &Result{
		RunID:          runID,
		Strategy:       e.strategy.Name(),
		StartDate:      dates[0],
		EndDate:        dates[len(dates)-1],
		InitialCapital: e.cfg.InitialCapital,
	}

	holdings := portfolio.NewHoldings(dates[0], e.cfg.InitialCapital)
	lastPrice := make(map[string]float64)
	history := make(map[string][]float64)
	equityDates := make([]time.Time, 0, len(dates))
	equityValues := make([]float64, 0, len(dates))

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Forward-fill the latest close per symbol.
		barPrices := make(map[string]float64)
		for sym, series := range e.prices {
			if v, err := series.ValueAt(date); err == nil {
				lastPrice[sym] = v
			}
			if v, ok := lastPrice[sym]; ok {
				barPrices[sym] = v
				history[sym] = append(history[sym], v)
			}
		}
		if len(barPrices) == 0 {
			continue
		}

		equity := markToMarket(holdings, barPrices)
		view := &MarketView{Date: date, Prices: barPrices, history: history}

		// Signal phase.
		targets := e.strategy.OnBar(view, holdings.Clone(), equity)
		if targets != nil {
			orders := e.sizeOrders(targets, holdings, barPrices, equity)
			for _, order := range orders {
				e.fill(res, &holdings, date, order, barPrices)
			}
		}

		// Mark-to-market after fills.
		equity = markToMarket(holdings, barPrices)
		holdings.Date = date
		equityDates = append(equityDates, date)
		equityValues = append(equityValues, equity)
	}

	return e.summarize(res, equityDates, equityValues)
}

// Fallbacks for symbols with no loaded volume or volatility history, so the
// cost models stay live instead of silently pricing at zero.
const (
	defaultADV        = 1_000_000
	defaultVolatility = 0.02
)

type order struct {
	symbol string
	shares float64 // Signed delta
}

// sizeOrders translates target weights into signed share deltas using the
// most recent price. Sells come first so rebalances free cash before buys.
func (e *Engine) sizeOrders(targets map[string]float64, holdings portfolio.Holdings, prices map[string]float64, equity float64) []order {
	if equity <= 0 {
		log.Warn().Float64("equity", equity).Msg("zero equity, rejecting all orders")
		return nil
	}
	symbols := make([]string, 0, len(targets))
	for sym := range targets {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var orders []order
	for _, sym := range symbols {
		price, ok := prices[sym]
		if !ok || price <= 0 {
			log.Warn().Str("symbol", sym).Msg("no price for targeted symbol, skipping order")
			continue
		}
		targetShares := targets[sym] * equity / price
		delta := targetShares - holdings.Positions[sym].Shares
		if math.Abs(delta*price) < 1e-9 {
			continue
		}
		orders = append(orders, order{symbol: sym, shares: delta})
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if (orders[i].shares < 0) != (orders[j].shares < 0) {
			return orders[i].shares < 0
		}
		return orders[i].symbol < orders[j].symbol
	})
	return orders
}

// fill prices an order through the cost models, splitting it when it would
// exceed the participation cap, and applies each child atomically.
func (e *Engine) fill(res *Result, holdings *portfolio.Holdings, date time.Time, o order, prices map[string]float64) {
	price := prices[o.symbol]
	adv := e.lookup(e.volumes, o.symbol, date, defaultADV)
	vol := e.lookup(e.volatility, o.symbol, date, defaultVolatility)

	children := e.cfg.Costs.Liquidity.Split(o.shares, adv)
	if len(children) == 0 {
		log.Warn().Str("symbol", o.symbol).Float64("shares", o.shares).Msg("order fully rejected by liquidity guard")
		return
	}
	for _, shares := range children {
		quote, err := e.cfg.Costs.QuoteCost(shares, price, adv, vol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", o.symbol).Msg("order rejected")
			continue
		}
		pos := holdings.Positions[o.symbol]
		pos.Symbol = o.symbol
		pos.Shares += shares
		pos.Price = price
		pos.Timestamp = date
		if pos.Shares == 0 {
			delete(holdings.Positions, o.symbol)
		} else {
			holdings.Positions[o.symbol] = pos
		}
		holdings.Cash -= shares*quote.FillPrice + quote.Commission

		res.TotalTrades++
		res.TotalCommission += quote.Commission
		res.TotalSlippage += quote.Slippage
		res.TotalMarketImpact += quote.MarketImpact
		res.Trades = append(res.Trades, ExecutedTrade{
			Date:         date,
			Symbol:       o.symbol,
			Shares:       shares,
			MarketPrice:  price,
			FillPrice:    quote.FillPrice,
			Commission:   quote.Commission,
			Slippage:     quote.Slippage,
			MarketImpact: quote.MarketImpact,
			TotalCost:    quote.TotalCost,
		})
	}
}

// summarize computes the post-run analytics from the equity curve.
func (e *Engine) summarize(res *Result, dates []time.Time, values []float64) (*Result, error) {
	equity, err := timeseries.New(dates, values)
	if err != nil {
		return nil, err
	}
	res.DailyEquity = equity
	res.FinalValue = values[len(values)-1]
	res.TotalTransactionCosts = res.TotalCommission + res.TotalSlippage + res.TotalMarketImpact

	returns, err := equity.Returns()
	if err != nil {
		return nil, err
	}
	res.Returns = returns

	dd, err := perf.MaxDrawdown(returns)
	if err != nil {
		return nil, err
	}
	res.MaxDrawdown = dd.MaxDrawdown
	if res.Drawdowns, err = perf.DrawdownSeries(returns); err != nil {
		return nil, err
	}

	var benchReturns *timeseries.Series
	if e.benchmark != nil {
		if benchReturns, err = e.benchmark.Returns(); err != nil {
			return nil, err
		}
	}
	if res.Performance, err = perf.Summarize(returns, benchReturns, e.cfg.Metrics); err != nil {
		return nil, err
	}

	log.Info().Str("run_id", res.RunID).Float64("final_value", res.FinalValue).
		Int("trades", res.TotalTrades).Float64("max_drawdown", res.MaxDrawdown).
		Msg("backtest complete")
	return res, nil
}

// tradingDates is the sorted union of loaded price dates clipped to the
// configured range.
func (e *Engine) tradingDates() []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, series := range e.prices {
		for _, d := range series.Dates() {
			if !e.cfg.StartDate.IsZero() && d.Before(e.cfg.StartDate) {
				continue
			}
			if !e.cfg.EndDate.IsZero() && d.After(e.cfg.EndDate) {
				continue
			}
			if !seen[d] {
				seen[d] = true
				dates = append(dates, d)
			}
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func (e *Engine) lookup(data map[string]*timeseries.Series, symbol string, date time.Time, fallback float64) float64 {
	series, ok := data[symbol]
	if !ok {
		return fallback
	}
	if v, err := series.ValueAt(date); err == nil {
		return v
	}
	return fallback
}

func markToMarket(h portfolio.Holdings, prices map[string]float64) float64 {
	equity := h.Cash
	for sym, p := range h.Positions {
		if price, ok := prices[sym]; ok {
			equity += p.Shares * price
		} else {
			equity += p.Value()
		}
	}
	return equity
}
