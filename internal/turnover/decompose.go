package turnover

import (
	"math"

	"github.com/sawpanic/folio/internal/errs"
	"github.com/sawpanic/folio/internal/portfolio"
)

// Decomposition splits total position-value changes into trading and flow
// components. Values are gross notionals summed over the analysis period.
type Decomposition struct {
	BuyTurnover         float64 `json:"buy_turnover"`
	SellTurnover        float64 `json:"sell_turnover"`
	RebalancingTurnover float64 `json:"rebalancing_turnover"`
	CashFlowTurnover    float64 `json:"cash_flow_turnover"`
	TotalChanges        float64 `json:"total_changes"`
}

// Decompose classifies each day's position changes using the day's
// transactions and the aggregate cash delta. Changes explained by external
// deposits or withdrawals count as cash flow; offsetting buy/sell pairs with
// unchanged cash count as rebalancing; the remainder splits into buy and
// sell turnover by direction.
func Decompose(positions *portfolio.PositionSeries, transactions *portfolio.TransactionSeries) (Decomposition, error) {
	if positions.Len() < 2 {
		return Decomposition{}, errs.New(errs.InsufficientData, "need at least 2 snapshots to decompose turnover")
	}
	var out Decomposition
	snaps := positions.Snapshots()
	for i := 1; i < len(snaps); i++ {
		prev, cur := snaps[i-1], snaps[i]

		buySum, sellSum := 0.0, 0.0
		seen := make(map[string]bool, len(cur.Positions))
		for sym, p := range cur.Positions {
			seen[sym] = true
			delta := p.Value() - prev.Positions[sym].Value()
			if delta > 0 {
				buySum += delta
			} else {
				sellSum -= delta
			}
		}
		for sym, p := range prev.Positions {
			if !seen[sym] {
				sellSum += math.Abs(p.Value())
			}
		}
		total := buySum + sellSum
		if total == 0 {
			continue
		}
		out.TotalChanges += total

		// External flow: the cash move not explained by trade notional.
		// Buying consumes cash, so cash[t] = cash[t-1] - net bought + flow.
		netBought := 0.0
		for _, t := range transactionsFor(transactions, cur) {
			netBought += t.Notional()
		}
		cashDelta := cur.Cash - prev.Cash
		external := math.Abs(cashDelta + netBought)

		cashFlow := math.Min(total, external)
		remaining := total - cashFlow

		matched := 2 * math.Min(buySum, sellSum)
		if matched > remaining {
			matched = remaining
		}
		out.CashFlowTurnover += cashFlow
		out.RebalancingTurnover += matched

		directional := remaining - matched
		if buySum >= sellSum {
			out.BuyTurnover += directional
		} else {
			out.SellTurnover += directional
		}
	}
	return out, nil
}

func transactionsFor(transactions *portfolio.TransactionSeries, h portfolio.Holdings) []portfolio.Transaction {
	if transactions == nil {
		return nil
	}
	return transactions.ForDay(h.Date)
}
