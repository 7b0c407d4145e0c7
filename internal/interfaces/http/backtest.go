package http

import (
	"net/http"

	"github.com/sawpanic/folio/internal/config"
	"github.com/sawpanic/folio/internal/perf"
)

// backtestRequest is the body of POST /v1/backtest.
type backtestRequest struct {
	Prices       map[string]SeriesPayload `json:"prices"`
	Volumes      map[string]SeriesPayload `json:"volumes,omitempty"`
	Volatilities map[string]SeriesPayload `json:"volatilities,omitempty"`
	Benchmark    *SeriesPayload           `json:"benchmark,omitempty"`
	Config       config.BacktestConfig    `json:"config"`
	Metrics      *perf.Config             `json:"metrics,omitempty"`
}

type backtestResponse struct {
	Result   interface{}   `json:"result"`
	Equity   SeriesPayload `json:"equity"`
	Returns  SeriesPayload `json:"returns"`
	Drawdown SeriesPayload `json:"drawdown"`
}

// Backtest runs a full simulation from request-supplied price histories.
func (h *Handlers) Backtest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, "backtest", err)
		return
	}
	metrics := perf.DefaultConfig()
	if req.Metrics != nil {
		metrics = *req.Metrics
	}
	engine, err := req.Config.Engine(metrics)
	if err != nil {
		h.fail(w, "backtest", err)
		return
	}
	for symbol, payload := range req.Prices {
		series, err := payload.Series()
		if err != nil {
			h.fail(w, "backtest", err)
			return
		}
		if err := engine.LoadPrices(symbol, series); err != nil {
			h.fail(w, "backtest", err)
			return
		}
	}
	for symbol, payload := range req.Volumes {
		series, err := payload.Series()
		if err != nil {
			h.fail(w, "backtest", err)
			return
		}
		if err := engine.LoadVolumes(symbol, series); err != nil {
			h.fail(w, "backtest", err)
			return
		}
	}
	for symbol, payload := range req.Volatilities {
		series, err := payload.Series()
		if err != nil {
			h.fail(w, "backtest", err)
			return
		}
		if err := engine.LoadVolatility(symbol, series); err != nil {
			h.fail(w, "backtest", err)
			return
		}
	}
	if req.Benchmark != nil {
		series, err := req.Benchmark.Series()
		if err != nil {
			h.fail(w, "backtest", err)
			return
		}
		if err := engine.LoadBenchmark(series); err != nil {
			h.fail(w, "backtest", err)
			return
		}
	}
	strategy, err := req.Config.Strategy.Build()
	if err != nil {
		h.fail(w, "backtest", err)
		return
	}
	engine.SetStrategy(strategy)

	h.metrics.BacktestsTotal.Inc()
	h.metrics.ActiveBacktests.Inc()
	result, err := engine.Run(r.Context())
	h.metrics.ActiveBacktests.Dec()
	if err != nil {
		h.fail(w, "backtest", err)
		return
	}
	h.metrics.AnalysisTotal.WithLabelValues("backtest").Inc()
	writeData(w, http.StatusOK, backtestResponse{
		Result:   result,
		Equity:   NewSeriesPayload(result.DailyEquity),
		Returns:  NewSeriesPayload(result.Returns),
		Drawdown: NewSeriesPayload(result.Drawdowns),
	})
}
