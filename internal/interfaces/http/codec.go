package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/portfolio"
	"github.com/sawpanic/folio/internal/timeseries"
)

// Point is one timestamped observation on the wire.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// SeriesPayload is the wire form of a time series.
type SeriesPayload struct {
	Data []Point `json:"data"`
}

// Series converts the payload into a validated time series.
func (p SeriesPayload) Series() (*timeseries.Series, error) {
	if len(p.Data) == 0 {
		return nil, errs.New(errs.InvalidInput, "series payload has no data points")
	}
	dates := make([]time.Time, len(p.Data))
	values := make([]float64, len(p.Data))
	for i, pt := range p.Data {
		dates[i] = pt.Timestamp.UTC()
		values[i] = pt.Value
	}
	return timeseries.New(dates, values)
}

// NewSeriesPayload converts a time series into its wire form.
func NewSeriesPayload(s *timeseries.Series) SeriesPayload {
	points := make([]Point, s.Len())
	dates := s.Dates()
	values := s.Values()
	for i := range points {
		points[i] = Point{Timestamp: dates[i].UTC(), Value: values[i]}
	}
	return SeriesPayload{Data: points}
}

// HoldingPayload is one position in a snapshot.
type HoldingPayload struct {
	Symbol    string  `json:"symbol"`
	Shares    float64 `json:"shares"`
	Price     float64 `json:"price"`
	LastPrice float64 `json:"last_price"`
}

// SnapshotPayload is the wire form of one portfolio snapshot.
type SnapshotPayload struct {
	Timestamp time.Time        `json:"timestamp"`
	Cash      float64          `json:"cash"`
	Holdings  []HoldingPayload `json:"holdings"`
}

// Holdings converts the payload into a portfolio snapshot. LastPrice wins
// over Price when both are set.
func (p SnapshotPayload) ToHoldings() portfolio.Holdings {
	h := portfolio.Holdings{
		Date:      p.Timestamp.UTC(),
		Cash:      p.Cash,
		Positions: make(map[string]portfolio.Position, len(p.Holdings)),
	}
	for _, hp := range p.Holdings {
		price := hp.Price
		if hp.LastPrice != 0 {
			price = hp.LastPrice
		}
		h.Positions[hp.Symbol] = portfolio.Position{
			Symbol:    hp.Symbol,
			Shares:    hp.Shares,
			Price:     price,
			Timestamp: p.Timestamp.UTC(),
		}
	}
	return h
}

// envelope is the uniform response wrapper.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// writeError maps the error kind onto an HTTP status and writes a failure
// envelope.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.InvalidInput, errs.InsufficientData:
		status = http.StatusBadRequest
	case errs.NotFound:
		status = http.StatusNotFound
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: err.Error()})
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.Newf(errs.InvalidInput, "invalid request body: %v", err)
	}
	return nil
}
