package timeseries

import (
	"time"

	"github.com/sawpanic/folio/internal/errs"
)

// Frequency is a resampling bucket size.
type Frequency int

const (
	Daily Frequency = iota
	Weekly
	Monthly
	Yearly
)

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return "unknown"
	}
}

// bucketEnd maps a date to its bucket's last calendar date. Weeks end on
// Sunday; months and years end on their last calendar day.
func bucketEnd(d time.Time, freq Frequency) time.Time {
	y, m, day := d.UTC().Date()
	switch freq {
	case Daily:
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	case Weekly:
		midnight := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		offset := (7 - int(midnight.Weekday())) % 7 // days until Sunday
		return midnight.AddDate(0, 0, offset)
	case Monthly:
		return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(y, 12, 31, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

// Resample groups observations into freq buckets and reduces each bucket to
// one value dated at the bucket's last calendar date. Buckets with no
// observations are dropped.
func (s *Series) Resample(freq Frequency, reduce Reduction) (*Series, error) {
	if s.Empty() {
		return nil, errs.New(errs.InsufficientData, "series is empty")
	}
	var (
		dates  []time.Time
		values []float64
	)
	start := 0
	currentEnd := bucketEnd(s.dates[0], freq)
	flush := func(end int) {
		dates = append(dates, currentEnd)
		values = append(values, reduce(s.values[start:end]))
	}
	for i := 1; i < s.Len(); i++ {
		end := bucketEnd(s.dates[i], freq)
		if !end.Equal(currentEnd) {
			flush(i)
			start = i
			currentEnd = end
		}
	}
	flush(s.Len())
	return &Series{dates: dates, values: values}, nil
}
