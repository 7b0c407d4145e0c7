package costs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommissionFixed(t *testing.T) {
	c := CommissionSchedule{Type: Fixed, Rate: 9.99}
	assert.InDelta(t, 9.99, c.Calculate(100000, 500), 1e-12)
}

func TestCommissionPercentageClamped(t *testing.T) {
	c := CommissionSchedule{Type: Percentage, Rate: 0.001, Minimum: 1, Maximum: 50}

	assert.InDelta(t, 10, c.Calculate(10000, 100), 1e-12)
	assert.InDelta(t, 1, c.Calculate(100, 1), 1e-12, "floor applies")
	assert.InDelta(t, 50, c.Calculate(1e6, 1000), 1e-12, "cap applies")
}

func TestCommissionPerShare(t *testing.T) {
	c := CommissionSchedule{Type: PerShare, Rate: 0.005}
	assert.InDelta(t, 2.5, c.Calculate(75000, 500), 1e-12)
	assert.InDelta(t, 2.5, c.Calculate(-75000, -500), 1e-12, "sign-independent")
}

func TestCommissionTiered(t *testing.T) {
	c := CommissionSchedule{
		Type: Tiered,
		Tiers: []Tier{
			{Threshold: 10000, Rate: 0.002},
			{Threshold: 100000, Rate: 0.001},
		},
	}
	assert.InDelta(t, 5000*0.002, c.Calculate(5000, 50), 1e-12)
	assert.InDelta(t, 50000*0.001, c.Calculate(50000, 500), 1e-12)
	assert.InDelta(t, 200000*0.001, c.Calculate(200000, 2000), 1e-12, "above all tiers uses last rate")
}

func TestParseCommissionType(t *testing.T) {
	for name, want := range map[string]CommissionType{
		"fixed": Fixed, "percentage": Percentage, "per_share": PerShare, "tiered": Tiered,
	} {
		got, err := ParseCommissionType(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCommissionType("flat")
	assert.Error(t, err)
}

func TestSlippageFraction(t *testing.T) {
	s := SlippageConfig{HalfSpread: 0.0005, KVol: 0.1}

	base := s.Fraction(0, 1e6, 0.02)
	assert.InDelta(t, 0.0005, base, 1e-12)

	withVol := s.Fraction(1e5, 1e6, 0.02)
	assert.Greater(t, withVol, base, "participation adds volatility slippage")

	noADV := s.Fraction(1e5, 0, 0.02)
	assert.InDelta(t, 0.0005, noADV, 1e-12, "zero ADV skips the volatility term")
}

func TestImpactModels(t *testing.T) {
	const adv, vol = 1e6, 0.02

	none := ImpactConfig{Model: NoImpact}
	assert.Equal(t, 0.0, none.Fraction(1e5, adv, vol))

	linear := ImpactConfig{Model: Linear, Coefficient: 0.1}
	assert.InDelta(t, 0.1*0.1*vol, linear.Fraction(1e5, adv, vol), 1e-12)

	sqrt := ImpactConfig{Model: SquareRoot, Coefficient: 0.1}
	assert.InDelta(t, 0.1*math.Sqrt(0.1)*vol, sqrt.Fraction(1e5, adv, vol), 1e-12)

	almgren := ImpactConfig{Model: AlmgrenChriss, Coefficient: 0.1, PermanentRatio: 0.5}
	expected := 0.1 * math.Pow(0.1, 0.6) * vol * 1.5
	assert.InDelta(t, expected, almgren.Fraction(1e5, adv, vol), 1e-12)
}

func TestImpactGrowsWithParticipation(t *testing.T) {
	impact := ImpactConfig{Model: SquareRoot, Coefficient: 0.1}
	small := impact.Fraction(1e4, 1e6, 0.02)
	large := impact.Fraction(1e5, 1e6, 0.02)
	assert.Greater(t, large, small)
}

func TestLiquiditySplit(t *testing.T) {
	l := LiquidityConfig{MaxParticipation: 0.10, MinShares: 1}

	within := l.Split(50000, 1e6)
	assert.Equal(t, []float64{50000}, within)

	children := l.Split(250000, 1e6)
	require.Len(t, children, 3)
	assert.Equal(t, []float64{100000, 100000, 50000}, children)

	total := 0.0
	for _, c := range children {
		total += c
	}
	assert.InDelta(t, 250000, total, 1e-9)

	short := l.Split(-250000, 1e6)
	require.Len(t, short, 3)
	assert.Equal(t, -100000.0, short[0])

	assert.Nil(t, l.Split(0, 1e6))
	assert.Equal(t, []float64{500}, l.Split(500, 0), "no ADV data passes through")
}

func TestQuoteCostBuy(t *testing.T) {
	m := Model{
		Commission: CommissionSchedule{Type: Percentage, Rate: 0.001},
		Slippage:   SlippageConfig{HalfSpread: 0.0005},
		Impact:     ImpactConfig{Model: SquareRoot, Coefficient: 0.1},
	}

	q, err := m.QuoteCost(1000, 100, 1e6, 0.02)
	require.NoError(t, err)
	assert.Greater(t, q.FillPrice, 100.0, "buys fill above market")
	assert.InDelta(t, 100000*0.001, q.Commission, 1e-9)
	assert.InDelta(t, q.Commission+q.Slippage+q.MarketImpact, q.TotalCost, 1e-9)
}

func TestQuoteCostSell(t *testing.T) {
	m := Model{
		Commission: CommissionSchedule{Type: Percentage, Rate: 0.001},
		Slippage:   SlippageConfig{HalfSpread: 0.0005},
	}

	q, err := m.QuoteCost(-1000, 100, 1e6, 0.02)
	require.NoError(t, err)
	assert.Less(t, q.FillPrice, 100.0, "sells fill below market")
	assert.GreaterOrEqual(t, q.TotalCost, 0.0)
}

func TestQuoteCostValidation(t *testing.T) {
	var m Model
	_, err := m.QuoteCost(100, 0, 1e6, 0.02)
	assert.Error(t, err, "non-positive price")
	_, err = m.QuoteCost(0, 100, 1e6, 0.02)
	assert.Error(t, err, "zero shares")
}
