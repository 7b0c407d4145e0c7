// Package timeseries implements the date-indexed numeric series every
// analytical package consumes. A Series is immutable after construction;
// operations return new Series values, so read-only sharing across
// goroutines needs no synchronization.
package timeseries

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/folio/internal/calendar"
	"github.com/sawpanic/folio/internal/errs"
)

// TradingDays is the default annualization constant. Call sites that
// annualize take it as a parameter; this is only the documented default.
const TradingDays = 252

// Series is an ordered sequence of (date, value) pairs with strictly
// increasing dates.
type Series struct {
	dates  []time.Time
	values []float64
}

// New constructs a Series from parallel slices. Fails with InvalidInput when
// lengths differ or dates are not strictly increasing. The inputs are copied.
func New(dates []time.Time, values []float64) (*Series, error) {
	if len(dates) != len(values) {
		return nil, errs.Newf(errs.InvalidInput, "dates/values length mismatch: %d vs %d", len(dates), len(values))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, errs.Newf(errs.InvalidInput, "dates not strictly increasing at index %d (%s)", i, calendar.FormatDate(dates[i]))
		}
	}
	s := &Series{
		dates:  append([]time.Time(nil), dates...),
		values: append([]float64(nil), values...),
	}
	return s, nil
}

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.values) }

// Empty reports whether the series has no observations.
func (s *Series) Empty() bool { return len(s.values) == 0 }

// Dates returns a copy of the date index.
func (s *Series) Dates() []time.Time {
	return append([]time.Time(nil), s.dates...)
}

// Values returns a copy of the values.
func (s *Series) Values() []float64 {
	return append([]float64(nil), s.values...)
}

// At returns the i-th (date, value) pair.
func (s *Series) At(i int) (time.Time, float64, error) {
	if i < 0 || i >= len(s.values) {
		return time.Time{}, 0, errs.Newf(errs.InvalidInput, "index %d out of range [0,%d)", i, len(s.values))
	}
	return s.dates[i], s.values[i], nil
}

// ValueAt looks up the value at an exact date.
func (s *Series) ValueAt(date time.Time) (float64, error) {
	i := s.indexOf(date)
	if i < 0 {
		return 0, errs.Newf(errs.NotFound, "date %s not in series", calendar.FormatDate(date))
	}
	return s.values[i], nil
}

// First returns the earliest (date, value) pair.
func (s *Series) First() (time.Time, float64, error) {
	if s.Empty() {
		return time.Time{}, 0, errs.New(errs.InsufficientData, "series is empty")
	}
	return s.dates[0], s.values[0], nil
}

// Last returns the latest (date, value) pair.
func (s *Series) Last() (time.Time, float64, error) {
	if s.Empty() {
		return time.Time{}, 0, errs.New(errs.InsufficientData, "series is empty")
	}
	n := len(s.values) - 1
	return s.dates[n], s.values[n], nil
}

// indexOf binary-searches for an exact date match, returning -1 on miss.
func (s *Series) indexOf(date time.Time) int {
	i := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(date) })
	if i < len(s.dates) && s.dates[i].Equal(date) {
		return i
	}
	return -1
}

// Slice returns the contiguous sub-series with start <= date <= end. The
// result may be empty.
func (s *Series) Slice(start, end time.Time) *Series {
	lo := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(start) })
	hi := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(end) })
	if lo > hi {
		lo = hi
	}
	return &Series{
		dates:  append([]time.Time(nil), s.dates[lo:hi]...),
		values: append([]float64(nil), s.values[lo:hi]...),
	}
}

// Align restricts both series to the intersection of their date sets,
// preserving order. Align(s, s) returns s twice.
func (s *Series) Align(other *Series) (*Series, *Series) {
	dates := make([]time.Time, 0, min(len(s.dates), len(other.dates)))
	av := make([]float64, 0, cap(dates))
	bv := make([]float64, 0, cap(dates))
	i, j := 0, 0
	for i < len(s.dates) && j < len(other.dates) {
		switch {
		case s.dates[i].Before(other.dates[j]):
			i++
		case other.dates[j].Before(s.dates[i]):
			j++
		default:
			dates = append(dates, s.dates[i])
			av = append(av, s.values[i])
			bv = append(bv, other.values[j])
			i++
			j++
		}
	}
	left := &Series{dates: dates, values: av}
	right := &Series{dates: append([]time.Time(nil), dates...), values: bv}
	return left, right
}

// Returns computes simple returns (v[i]-v[i-1])/v[i-1], one observation
// shorter than the input, dated from the second input date onward.
func (s *Series) Returns() (*Series, error) {
	if s.Len() < 2 {
		return nil, errs.New(errs.InsufficientData, "need at least 2 observations to compute returns")
	}
	dates := make([]time.Time, s.Len()-1)
	values := make([]float64, s.Len()-1)
	for i := 1; i < s.Len(); i++ {
		prev := s.values[i-1]
		if prev == 0 {
			return nil, errs.Newf(errs.NumericError, "zero value at %s, cannot compute return", calendar.FormatDate(s.dates[i-1]))
		}
		dates[i-1] = s.dates[i]
		values[i-1] = (s.values[i] - prev) / prev
	}
	return &Series{dates: dates, values: values}, nil
}

// CumulativeReturns compounds a return series: c[0] = r[0],
// c[i] = (1+c[i-1])*(1+r[i]) - 1.
func (s *Series) CumulativeReturns() (*Series, error) {
	if s.Empty() {
		return nil, errs.New(errs.InsufficientData, "series is empty")
	}
	values := make([]float64, s.Len())
	values[0] = s.values[0]
	for i := 1; i < s.Len(); i++ {
		values[i] = (1+values[i-1])*(1+s.values[i]) - 1
	}
	return &Series{dates: append([]time.Time(nil), s.dates...), values: values}, nil
}

// IsNaN reports whether v is the sentinel for a missing observation.
func IsNaN(v float64) bool { return math.IsNaN(v) }

// NaN is the sentinel for missing observations.
func NaN() float64 { return math.NaN() }
