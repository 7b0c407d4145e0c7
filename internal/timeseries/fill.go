package timeseries

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/folio/internal/errs"
)

// FillMethod selects how FillMissing resolves target dates absent from the
// source series.
type FillMethod int

const (
	// FillForward carries the most recent prior observation forward.
	// Targets before the first observation are NaN.
	FillForward FillMethod = iota
	// FillBackward takes the next later observation. Targets after the
	// last observation are NaN.
	FillBackward
	// FillNearest takes whichever observation is closest in calendar
	// time, preferring the earlier one on ties.
	FillNearest
)

// FillMissing produces a series over exactly targetDates, resolving each
// target from the source by the given method. Exact date matches are always
// used as-is. targetDates must be strictly increasing.
func (s *Series) FillMissing(targetDates []time.Time, method FillMethod) (*Series, error) {
	for i := 1; i < len(targetDates); i++ {
		if !targetDates[i].After(targetDates[i-1]) {
			return nil, errs.Newf(errs.InvalidInput, "target dates not strictly increasing at index %d", i)
		}
	}
	values := make([]float64, len(targetDates))
	for i, target := range targetDates {
		values[i] = s.fillValue(target, method)
	}
	return New(append([]time.Time(nil), targetDates...), values)
}

func (s *Series) fillValue(target time.Time, method FillMethod) float64 {
	// First index with date >= target.
	at := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(target) })
	if at < len(s.dates) && s.dates[at].Equal(target) {
		return s.values[at]
	}
	prev := at - 1 // last index with date < target, -1 if none
	switch method {
	case FillForward:
		if prev < 0 {
			return math.NaN()
		}
		return s.values[prev]
	case FillBackward:
		if at >= len(s.dates) {
			return math.NaN()
		}
		return s.values[at]
	case FillNearest:
		switch {
		case prev < 0 && at >= len(s.dates):
			return math.NaN()
		case prev < 0:
			return s.values[at]
		case at >= len(s.dates):
			return s.values[prev]
		}
		before := target.Sub(s.dates[prev])
		after := s.dates[at].Sub(target)
		if before <= after {
			return s.values[prev]
		}
		return s.values[at]
	default:
		return math.NaN()
	}
}
