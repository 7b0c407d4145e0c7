package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/folio/internal/errs"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultServerConfig()
	cfg.Port = 0 // Probe an ephemeral port.
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

func serveJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type wireEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) wireEnvelope {
	t.Helper()
	var env wireEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func returnPoints(n int) []map[string]interface{} {
	points := make([]map[string]interface{}, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		points[i] = map[string]interface{}{
			"timestamp": base.AddDate(0, 0, i).Format(time.RFC3339),
			"value":     0.001 + 0.01*float64(i%5-2),
		}
	}
	return points
}

func pricePoints(start, step float64, n int) []map[string]interface{} {
	points := make([]map[string]interface{}, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		points[i] = map[string]interface{}{
			"timestamp": base.AddDate(0, 0, i).Format(time.RFC3339),
			"value":     start + step*float64(i),
		}
	}
	return points
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)
	rec := serveJSON(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), "healthy")
}

func TestUnknownRouteEnvelope(t *testing.T) {
	s := testServer(t)
	rec := serveJSON(t, s, http.MethodGet, "/v1/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "/v1/nope")
}

func TestPerformanceSummaryEndpoint(t *testing.T) {
	s := testServer(t)
	body := map[string]interface{}{
		"returns": map[string]interface{}{"data": returnPoints(60)},
	}
	rec := serveJSON(t, s, http.MethodPost, "/v1/performance/summary", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Contains(t, summary, "sharpe_ratio")
	assert.Contains(t, summary, "annual_volatility")
}

func TestSummaryRejectsUnknownFields(t *testing.T) {
	s := testServer(t)
	body := map[string]interface{}{
		"returns": map[string]interface{}{"data": returnPoints(10)},
		"bogus":   true,
	}
	rec := serveJSON(t, s, http.MethodPost, "/v1/performance/summary", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "invalid request body")
}

func TestSummaryInsufficientData(t *testing.T) {
	s := testServer(t)
	body := map[string]interface{}{
		"returns": map[string]interface{}{"data": returnPoints(1)},
	}
	rec := serveJSON(t, s, http.MethodPost, "/v1/performance/summary", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDrawdownEndpointWithSeries(t *testing.T) {
	s := testServer(t)
	body := map[string]interface{}{
		"returns":        map[string]interface{}{"data": returnPoints(30)},
		"include_series": true,
	}
	rec := serveJSON(t, s, http.MethodPost, "/v1/drawdown", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Drawdown struct {
			MaxDrawdown float64 `json:"max_drawdown"`
		} `json:"drawdown"`
		Series *SeriesPayload `json:"series"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.LessOrEqual(t, resp.Drawdown.MaxDrawdown, 0.0)
	require.NotNil(t, resp.Series)
	assert.Len(t, resp.Series.Data, 30)
}

func TestRegimesEndpointRejectsUnknownMethod(t *testing.T) {
	s := testServer(t)
	body := map[string]interface{}{
		"returns": map[string]interface{}{"data": returnPoints(120)},
		"method":  "astrology",
	}
	rec := serveJSON(t, s, http.MethodPost, "/v1/regimes", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegimesEndpointMarkov(t *testing.T) {
	s := testServer(t)
	body := map[string]interface{}{
		"returns": map[string]interface{}{"data": returnPoints(252)},
		"states":  3,
		"seed":    42,
	}
	rec := serveJSON(t, s, http.MethodPost, "/v1/regimes", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Sequence []string `json:"sequence"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Len(t, resp.Sequence, 252)
}

func TestTurnoverEndpoint(t *testing.T) {
	s := testServer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snapshots := make([]map[string]interface{}, 4)
	for i, gross := range []float64{100, 120, 80, 100} {
		snapshots[i] = map[string]interface{}{
			"timestamp": base.AddDate(0, 0, i).Format(time.RFC3339),
			"cash":      0,
			"holdings": []map[string]interface{}{
				{"symbol": "SPY", "shares": 1, "price": gross},
			},
		}
	}
	rec := serveJSON(t, s, http.MethodPost, "/v1/turnover", map[string]interface{}{"snapshots": snapshots})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		AverageTurnover float64 `json:"average_turnover"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Greater(t, resp.AverageTurnover, 0.0)
}

func TestCapacityEndpoint(t *testing.T) {
	s := testServer(t)
	body := map[string]interface{}{
		"weights":         map[string]float64{"AAPL": 1.0},
		"portfolio_value": 10_000_000,
		"prices":          map[string]float64{"AAPL": 200},
		"market_data": []map[string]interface{}{
			{
				"symbol":               "AAPL",
				"average_daily_volume": 50_000_000,
				"market_cap":           3e12,
				"spread_bps":           2,
				"impact_coefficient":   0.1,
				"volatility":           0.015,
			},
		},
	}
	rec := serveJSON(t, s, http.MethodPost, "/v1/capacity", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		TotalCapacity float64 `json:"total_capacity"`
		Utilization   float64 `json:"utilization"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Greater(t, resp.TotalCapacity, 0.0)
	assert.Greater(t, resp.Utilization, 0.0)
}

func TestBacktestEndpoint(t *testing.T) {
	s := testServer(t)
	body := map[string]interface{}{
		"prices": map[string]interface{}{
			"AAA": map[string]interface{}{"data": pricePoints(100, 0.1, 30)},
		},
		"config": map[string]interface{}{
			"initial_capital": 1_000_000,
			"seed":            42,
			"costs": map[string]interface{}{
				"commission": map[string]interface{}{"type": "percentage", "rate": 0.001},
			},
			"strategy": map[string]interface{}{
				"name":     "buy_and_hold",
				"universe": []string{"AAA"},
			},
		},
	}
	rec := serveJSON(t, s, http.MethodPost, "/v1/backtest", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Result struct {
			TotalTrades int     `json:"total_trades"`
			FinalValue  float64 `json:"final_value"`
		} `json:"result"`
		Equity SeriesPayload `json:"equity"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 1, resp.Result.TotalTrades)
	assert.Greater(t, resp.Result.FinalValue, 0.0)
	assert.Len(t, resp.Equity.Data, 30)
}

func TestBacktestEndpointPricesImpactFromVolatility(t *testing.T) {
	s := testServer(t)
	body := map[string]interface{}{
		"prices": map[string]interface{}{
			"AAA": map[string]interface{}{"data": pricePoints(100, 0.1, 30)},
		},
		"volumes": map[string]interface{}{
			"AAA": map[string]interface{}{"data": pricePoints(1_000_000, 0, 30)},
		},
		"volatilities": map[string]interface{}{
			"AAA": map[string]interface{}{"data": pricePoints(0.03, 0, 30)},
		},
		"config": map[string]interface{}{
			"initial_capital": 1_000_000,
			"seed":            42,
			"costs": map[string]interface{}{
				"commission":    map[string]interface{}{"type": "percentage", "rate": 0.001},
				"market_impact": map[string]interface{}{"model": "square_root", "impact_coefficient": 0.05},
			},
			"strategy": map[string]interface{}{
				"name":     "buy_and_hold",
				"universe": []string{"AAA"},
			},
		},
	}
	rec := serveJSON(t, s, http.MethodPost, "/v1/backtest", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Result struct {
			TotalMarketImpact float64 `json:"total_market_impact"`
		} `json:"result"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Greater(t, resp.Result.TotalMarketImpact, 0.0)
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := map[errs.Kind]int{
		errs.InvalidInput:     http.StatusBadRequest,
		errs.InsufficientData: http.StatusBadRequest,
		errs.NotFound:         http.StatusNotFound,
		errs.NumericError:     http.StatusInternalServerError,
		errs.IO:               http.StatusInternalServerError,
		errs.Unimplemented:    http.StatusInternalServerError,
	}
	for kind, want := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, errs.New(kind, "boom"))
		assert.Equal(t, want, rec.Code, kind.String())
	}
}

func TestSeriesPayloadRoundTrip(t *testing.T) {
	payload := SeriesPayload{Data: []Point{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 1.5},
		{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Value: 2.5},
	}}
	series, err := payload.Series()
	require.NoError(t, err)
	back := NewSeriesPayload(series)
	assert.Equal(t, payload, back)

	_, err = SeriesPayload{}.Series()
	assert.Error(t, err, "empty payload")
}

func TestSnapshotPayloadLastPriceWins(t *testing.T) {
	p := SnapshotPayload{
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Cash:      100,
		Holdings: []HoldingPayload{
			{Symbol: "AAPL", Shares: 10, Price: 150, LastPrice: 155},
			{Symbol: "TSLA", Shares: 5, Price: 200},
		},
	}
	h := p.ToHoldings()
	assert.Equal(t, 155.0, h.Positions["AAPL"].Price)
	assert.Equal(t, 200.0, h.Positions["TSLA"].Price, "zero last price falls back")
}
