package http

import (
	"net/http"
	"time"

	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/perf"
	"github.com/sawpanic/folio/internal/portfolio"
	"github.com/sawpanic/folio/internal/regime"
	"github.com/sawpanic/folio/internal/report"
	"github.com/sawpanic/folio/internal/timeseries"
	"github.com/sawpanic/folio/internal/turnover"
)

// Handlers serves the analysis endpoints. Every request carries its own
// immutable input snapshot, so handlers run concurrently without locking.
type Handlers struct {
	metrics   *MetricsRegistry
	reportCfg report.Config
	startedAt time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(metrics *MetricsRegistry, reportCfg report.Config) *Handlers {
	return &Handlers{metrics: metrics, reportCfg: reportCfg, startedAt: time.Now().UTC()}
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC(),
	})
}

// NotFound serves the uniform envelope for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeError(w, errs.Newf(errs.NotFound, "no such endpoint: %s", r.URL.Path))
}

// summaryRequest is the body of POST /v1/performance/summary.
type summaryRequest struct {
	Returns   SeriesPayload  `json:"returns"`
	Benchmark *SeriesPayload `json:"benchmark,omitempty"`
	Config    *perf.Config   `json:"config,omitempty"`
}

// PerformanceSummary computes the full metric summary for a return series.
func (h *Handlers) PerformanceSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, "summary", err)
		return
	}
	returns, err := req.Returns.Series()
	if err != nil {
		h.fail(w, "summary", err)
		return
	}
	cfg := perf.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}
	var summary perf.Summary
	if req.Benchmark != nil {
		benchmark, err := req.Benchmark.Series()
		if err != nil {
			h.fail(w, "summary", err)
			return
		}
		summary, err = perf.Summarize(returns, benchmark, cfg)
		if err != nil {
			h.fail(w, "summary", err)
			return
		}
	} else {
		summary, err = perf.Summarize(returns, nil, cfg)
		if err != nil {
			h.fail(w, "summary", err)
			return
		}
	}
	h.metrics.AnalysisTotal.WithLabelValues("summary").Inc()
	writeData(w, http.StatusOK, summary)
}

// drawdownRequest is the body of POST /v1/drawdown.
type drawdownRequest struct {
	Returns       SeriesPayload `json:"returns"`
	IncludeSeries bool          `json:"include_series"`
}

type drawdownResponse struct {
	Drawdown perf.DrawdownInfo `json:"drawdown"`
	Series   *SeriesPayload    `json:"series,omitempty"`
}

// Drawdown computes max drawdown and optionally the full drawdown series.
func (h *Handlers) Drawdown(w http.ResponseWriter, r *http.Request) {
	var req drawdownRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, "drawdown", err)
		return
	}
	returns, err := req.Returns.Series()
	if err != nil {
		h.fail(w, "drawdown", err)
		return
	}
	info, err := perf.MaxDrawdown(returns)
	if err != nil {
		h.fail(w, "drawdown", err)
		return
	}
	resp := drawdownResponse{Drawdown: info}
	if req.IncludeSeries {
		series, err := perf.DrawdownSeries(returns)
		if err != nil {
			h.fail(w, "drawdown", err)
			return
		}
		payload := NewSeriesPayload(series)
		resp.Series = &payload
	}
	h.metrics.AnalysisTotal.WithLabelValues("drawdown").Inc()
	writeData(w, http.StatusOK, resp)
}

// regimeRequest is the body of POST /v1/regimes.
type regimeRequest struct {
	Returns SeriesPayload  `json:"returns"`
	Method  string         `json:"method"` // markov, hmm, structural_breaks, volatility
	States  int            `json:"states"`
	Seed    int64          `json:"seed"`
	Alpha   float64        `json:"alpha"`
	Config  *regime.Config `json:"config,omitempty"`
}

// Regimes runs the requested regime detection method.
func (h *Handlers) Regimes(w http.ResponseWriter, r *http.Request) {
	var req regimeRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, "regimes", err)
		return
	}
	returns, err := req.Returns.Series()
	if err != nil {
		h.fail(w, "regimes", err)
		return
	}
	cfg := regime.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}
	detector := regime.NewDetector(cfg)
	states := req.States
	if states == 0 {
		states = 3
	}
	alpha := req.Alpha
	if alpha == 0 {
		alpha = 0.05
	}

	var result *regime.Result
	switch req.Method {
	case "markov", "":
		result, err = detector.MarkovSwitching(returns, states, req.Seed)
	case "hmm":
		result, err = detector.HMM(returns, states, req.Seed)
	case "structural_breaks":
		result, err = detector.StructuralBreaks(returns, alpha)
	case "volatility":
		result, err = detector.VolatilityRegimes(returns)
	default:
		err = errs.Newf(errs.InvalidInput, "unknown regime method %q", req.Method)
	}
	if err != nil {
		h.fail(w, "regimes", err)
		return
	}
	h.metrics.AnalysisTotal.WithLabelValues("regimes").Inc()
	writeData(w, http.StatusOK, result)
}

// turnoverRequest is the body of POST /v1/turnover.
type turnoverRequest struct {
	Snapshots []SnapshotPayload `json:"snapshots"`
	Config    *turnover.Config  `json:"config,omitempty"`
}

// Turnover computes the turnover analysis over portfolio snapshots.
func (h *Handlers) Turnover(w http.ResponseWriter, r *http.Request) {
	var req turnoverRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, "turnover", err)
		return
	}
	positions, err := snapshotsToSeries(req.Snapshots)
	if err != nil {
		h.fail(w, "turnover", err)
		return
	}
	cfg := turnover.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}
	result, err := turnover.Calculate(positions, cfg)
	if err != nil {
		h.fail(w, "turnover", err)
		return
	}
	h.metrics.AnalysisTotal.WithLabelValues("turnover").Inc()
	writeData(w, http.StatusOK, result)
}

// tearsheetRequest is the body of POST /v1/tearsheet.
type tearsheetRequest struct {
	Returns      SeriesPayload        `json:"returns"`
	Benchmark    *SeriesPayload       `json:"benchmark,omitempty"`
	Snapshots    []SnapshotPayload    `json:"snapshots,omitempty"`
	Transactions []TransactionPayload `json:"transactions,omitempty"`
}

// TransactionPayload is one trade on the wire.
type TransactionPayload struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Shares    float64   `json:"shares"`
	Price     float64   `json:"price"`
	Side      string    `json:"side"`
}

// TearSheet builds the aggregate tear sheet.
func (h *Handlers) TearSheet(w http.ResponseWriter, r *http.Request) {
	var req tearsheetRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, "tearsheet", err)
		return
	}
	returns, err := req.Returns.Series()
	if err != nil {
		h.fail(w, "tearsheet", err)
		return
	}
	var positions *portfolio.PositionSeries
	if len(req.Snapshots) > 0 {
		positions, err = snapshotsToSeries(req.Snapshots)
		if err != nil {
			h.fail(w, "tearsheet", err)
			return
		}
	}
	var transactions *portfolio.TransactionSeries
	if len(req.Transactions) > 0 {
		transactions, err = transactionsToSeries(req.Transactions)
		if err != nil {
			h.fail(w, "tearsheet", err)
			return
		}
	}

	var benchmark *timeseries.Series
	if req.Benchmark != nil {
		benchmark, err = req.Benchmark.Series()
		if err != nil {
			h.fail(w, "tearsheet", err)
			return
		}
	}
	sheet, err := report.Build(returns, benchmark, positions, transactions, h.reportCfg)
	if err != nil {
		h.fail(w, "tearsheet", err)
		return
	}
	h.metrics.AnalysisTotal.WithLabelValues("tearsheet").Inc()
	writeData(w, http.StatusOK, sheet)
}

// capacityRequest is the body of POST /v1/capacity.
type capacityRequest struct {
	Weights        map[string]float64          `json:"weights"`
	PortfolioValue float64                     `json:"portfolio_value"`
	Prices         map[string]float64          `json:"prices"`
	MarketData     []report.Microstructure     `json:"market_data"`
	Constraints    *report.CapacityConstraints `json:"constraints,omitempty"`
}

// Capacity runs portfolio capacity analysis.
func (h *Handlers) Capacity(w http.ResponseWriter, r *http.Request) {
	var req capacityRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, "capacity", err)
		return
	}
	constraints := report.DefaultConstraints()
	if req.Constraints != nil {
		constraints = *req.Constraints
	}
	analyzer := report.NewCapacityAnalyzer(constraints)
	analyzer.SetMarketData(req.MarketData)
	result, err := analyzer.PortfolioCapacity(req.Weights, req.PortfolioValue, req.Prices)
	if err != nil {
		h.fail(w, "capacity", err)
		return
	}
	h.metrics.AnalysisTotal.WithLabelValues("capacity").Inc()
	writeData(w, http.StatusOK, result)
}

// fail records the error metric and writes the failure envelope.
func (h *Handlers) fail(w http.ResponseWriter, analysis string, err error) {
	h.metrics.AnalysisErrors.WithLabelValues(analysis, errs.KindOf(err).String()).Inc()
	writeError(w, err)
}

func snapshotsToSeries(payloads []SnapshotPayload) (*portfolio.PositionSeries, error) {
	snaps := make([]portfolio.Holdings, len(payloads))
	for i, p := range payloads {
		snaps[i] = p.ToHoldings()
	}
	return portfolio.NewPositionSeries(snaps)
}

func transactionsToSeries(payloads []TransactionPayload) (*portfolio.TransactionSeries, error) {
	txns := make([]portfolio.Transaction, len(payloads))
	for i, p := range payloads {
		side, err := portfolio.ParseSide(p.Side)
		if err != nil {
			return nil, err
		}
		txns[i] = portfolio.Transaction{
			Date:   p.Timestamp.UTC(),
			Symbol: p.Symbol,
			Shares: p.Shares,
			Price:  p.Price,
			Side:   side,
		}
	}
	return portfolio.NewTransactionSeries(txns)
}
