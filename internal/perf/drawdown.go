package perf

import (
	"time"

	"github.com/sawpanic/folio/internal/calendar"
	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/timeseries"
)

// DrawdownInfo summarizes the deepest peak-to-trough decline of an equity
// curve. MaxDrawdown is <= 0; RecoveryDate is nil when the curve never
// regains the peak.
type DrawdownInfo struct {
	MaxDrawdown  float64    `json:"max_drawdown"`
	PeakDate     time.Time  `json:"peak_date"`
	ValleyDate   time.Time  `json:"valley_date"`
	RecoveryDate *time.Time `json:"recovery_date,omitempty"`
	DurationDays int        `json:"duration_days"`
}

// DrawdownSeries computes the drawdown series D[i] = E[i]/P[i] - 1 from a
// return series, where E is the compounded equity curve and P its running
// peak.
func DrawdownSeries(returns *timeseries.Series) (*timeseries.Series, error) {
	if returns.Empty() {
		return nil, errs.New(errs.InsufficientData, "cannot compute drawdowns for empty return series")
	}
	values := returns.Values()
	drawdowns := make([]float64, len(values))
	equity := 1.0
	peak := 1.0
	for i, r := range values {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		drawdowns[i] = equity/peak - 1
	}
	return timeseries.New(returns.Dates(), drawdowns)
}

// MaxDrawdown analyzes the return series and reports the deepest drawdown
// with its peak, valley and recovery dates.
func MaxDrawdown(returns *timeseries.Series) (DrawdownInfo, error) {
	if returns.Empty() {
		return DrawdownInfo{}, errs.New(errs.InsufficientData, "cannot compute drawdown for empty return series")
	}
	values := returns.Values()
	dates := returns.Dates()

	equity := make([]float64, len(values))
	e := 1.0
	for i, r := range values {
		e *= 1 + r
		equity[i] = e
	}

	peak := equity[0]
	peakIdx := 0
	maxDD := 0.0
	ddPeakIdx, valleyIdx := 0, 0
	for i, v := range equity {
		if v > peak {
			peak = v
			peakIdx = i
		}
		dd := v/peak - 1
		if dd < maxDD {
			maxDD = dd
			ddPeakIdx = peakIdx
			valleyIdx = i
		}
	}

	info := DrawdownInfo{
		MaxDrawdown:  maxDD,
		PeakDate:     dates[ddPeakIdx],
		ValleyDate:   dates[valleyIdx],
		DurationDays: calendar.DaysBetween(dates[ddPeakIdx], dates[valleyIdx]),
	}
	for i := valleyIdx + 1; i < len(equity); i++ {
		if equity[i] >= equity[ddPeakIdx] {
			d := dates[i]
			info.RecoveryDate = &d
			break
		}
	}
	return info, nil
}
