// Package costs models the three additive components of transaction cost:
// commission, slippage and market impact, plus the liquidity guard that
// splits oversized orders. Signed share conventions are preserved end to
// end; every cost is >= 0.
package costs

import (
	"encoding/json"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/folio/internal/errs"
)

// CommissionType selects the commission schedule shape.
type CommissionType int

const (
	Fixed CommissionType = iota
	Percentage
	PerShare
	Tiered
)

func (t CommissionType) String() string {
	switch t {
	case Fixed:
		return "fixed"
	case Percentage:
		return "percentage"
	case PerShare:
		return "per_share"
	case Tiered:
		return "tiered"
	default:
		return "unknown"
	}
}

// ParseCommissionType parses a schedule name from config.
func ParseCommissionType(s string) (CommissionType, error) {
	switch s {
	case "fixed":
		return Fixed, nil
	case "percentage":
		return Percentage, nil
	case "per_share":
		return PerShare, nil
	case "tiered":
		return Tiered, nil
	default:
		return 0, errs.Newf(errs.InvalidInput, "unknown commission type %q", s)
	}
}

// MarshalYAML writes the schedule name.
func (t CommissionType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML reads a schedule name.
func (t *CommissionType) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseCommissionType(value.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON writes the schedule name.
func (t CommissionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON reads a schedule name.
func (t *CommissionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCommissionType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Tier is one rung of a tiered commission schedule.
type Tier struct {
	Threshold float64 `yaml:"threshold" json:"threshold"` // Notional up to which Rate applies
	Rate      float64 `yaml:"rate" json:"rate"`
}

// CommissionSchedule prices the commission of one trade.
type CommissionSchedule struct {
	Type    CommissionType `yaml:"type" json:"type"`
	Rate    float64        `yaml:"rate" json:"rate"`       // Fixed amount, percentage or per-share amount
	Minimum float64        `yaml:"minimum" json:"minimum"` // Per-trade floor
	Maximum float64        `yaml:"maximum" json:"maximum"` // Per-trade cap; 0 = uncapped
	Tiers   []Tier         `yaml:"tiers" json:"tiers,omitempty"`
}

// Calculate returns the commission for a trade of |shares| at the given
// gross notional, clamped to [Minimum, Maximum].
func (c CommissionSchedule) Calculate(notional, shares float64) float64 {
	notional = math.Abs(notional)
	var commission float64
	switch c.Type {
	case Fixed:
		commission = c.Rate
	case Percentage:
		commission = notional * c.Rate
	case PerShare:
		commission = math.Abs(shares) * c.Rate
	case Tiered:
		commission = c.tiered(notional)
	}
	if commission < c.Minimum {
		commission = c.Minimum
	}
	if c.Maximum > 0 && commission > c.Maximum {
		commission = c.Maximum
	}
	return commission
}

func (c CommissionSchedule) tiered(notional float64) float64 {
	if len(c.Tiers) == 0 {
		return notional * c.Rate
	}
	for _, tier := range c.Tiers {
		if notional <= tier.Threshold {
			return notional * tier.Rate
		}
	}
	return notional * c.Tiers[len(c.Tiers)-1].Rate
}

// SlippageConfig prices slippage as half the quoted spread plus a
// volatility term scaled by the square root of participation.
type SlippageConfig struct {
	HalfSpread float64 `yaml:"half_spread" json:"half_spread"` // Fraction of price
	KVol       float64 `yaml:"k_vol" json:"k_vol"`             // Volatility coefficient
}

// Fraction returns slippage as a fraction of price, >= 0.
func (c SlippageConfig) Fraction(shares, adv, volatility float64) float64 {
	slip := c.HalfSpread
	if adv > 0 {
		slip += c.KVol * volatility * math.Sqrt(math.Abs(shares)/adv)
	}
	if slip < 0 {
		return 0
	}
	return slip
}

// ImpactModel selects the market impact functional form.
type ImpactModel int

const (
	NoImpact ImpactModel = iota
	Linear
	SquareRoot
	AlmgrenChriss
)

func (m ImpactModel) String() string {
	switch m {
	case NoImpact:
		return "none"
	case Linear:
		return "linear"
	case SquareRoot:
		return "square_root"
	case AlmgrenChriss:
		return "almgren_chriss"
	default:
		return "unknown"
	}
}

// ParseImpactModel parses an impact model name from config.
func ParseImpactModel(s string) (ImpactModel, error) {
	switch s {
	case "none", "":
		return NoImpact, nil
	case "linear":
		return Linear, nil
	case "square_root":
		return SquareRoot, nil
	case "almgren_chriss":
		return AlmgrenChriss, nil
	default:
		return 0, errs.Newf(errs.InvalidInput, "unknown impact model %q", s)
	}
}

// MarshalYAML writes the model name.
func (m ImpactModel) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// UnmarshalYAML reads a model name.
func (m *ImpactModel) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseImpactModel(value.Value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalJSON writes the model name.
func (m ImpactModel) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON reads a model name.
func (m *ImpactModel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseImpactModel(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ImpactConfig prices market impact from participation.
type ImpactConfig struct {
	Model          ImpactModel `yaml:"model" json:"model"`
	Coefficient    float64     `yaml:"impact_coefficient" json:"impact_coefficient"`
	PermanentRatio float64     `yaml:"permanent_ratio" json:"permanent_ratio"` // Almgren-Chriss permanent share
}

// Fraction returns impact as a fraction of price, >= 0. Participation is
// |shares| / ADV.
func (c ImpactConfig) Fraction(shares, adv, volatility float64) float64 {
	if c.Model == NoImpact || adv <= 0 {
		return 0
	}
	participation := math.Abs(shares) / adv
	var impact float64
	switch c.Model {
	case Linear:
		impact = c.Coefficient * participation * volatility
	case SquareRoot:
		impact = c.Coefficient * math.Sqrt(participation) * volatility
	case AlmgrenChriss:
		// Temporary component plus a permanent share that does not decay.
		temporary := c.Coefficient * math.Pow(participation, 0.6) * volatility
		impact = temporary * (1 + c.PermanentRatio)
	}
	if impact < 0 {
		return 0
	}
	return impact
}

// LiquidityConfig caps an order's participation in daily volume.
type LiquidityConfig struct {
	MaxParticipation float64 `yaml:"max_participation" json:"max_participation"` // Default 0.10
	MinShares        float64 `yaml:"min_shares" json:"min_shares"`               // Child orders below this are dropped
}

// DefaultLiquidity returns the default 10% participation cap.
func DefaultLiquidity() LiquidityConfig {
	return LiquidityConfig{MaxParticipation: 0.10, MinShares: 1}
}

// Split breaks a signed order into child orders each within the
// participation cap. Orders already inside the cap come back unchanged.
func (c LiquidityConfig) Split(shares, adv float64) []float64 {
	if shares == 0 {
		return nil
	}
	if adv <= 0 || c.MaxParticipation <= 0 {
		return []float64{shares}
	}
	maxChild := adv * c.MaxParticipation
	if math.Abs(shares) <= maxChild {
		return []float64{shares}
	}
	sign := 1.0
	if shares < 0 {
		sign = -1
	}
	var children []float64
	remaining := math.Abs(shares)
	for remaining >= c.MinShares && remaining > 0 {
		child := math.Min(remaining, maxChild)
		children = append(children, sign*child)
		remaining -= child
	}
	return children
}

// Quote is the priced execution of one (possibly child) order.
type Quote struct {
	Shares       float64 `json:"shares"` // Signed
	FillPrice    float64 `json:"fill_price"`
	Commission   float64 `json:"commission"`
	Slippage     float64 `json:"slippage"`      // Dollars
	MarketImpact float64 `json:"market_impact"` // Dollars
	TotalCost    float64 `json:"total_cost"`
}

// Model bundles the three cost components with the liquidity guard.
type Model struct {
	Commission CommissionSchedule `yaml:"commission" json:"commission"`
	Slippage   SlippageConfig     `yaml:"slippage" json:"slippage"`
	Impact     ImpactConfig       `yaml:"market_impact" json:"market_impact"`
	Liquidity  LiquidityConfig    `yaml:"liquidity" json:"liquidity"`
}

// QuoteCost prices a signed order at the given market price. The fill price
// moves against the trade: buys pay above market, sells receive below.
func (m Model) QuoteCost(shares, price, adv, volatility float64) (Quote, error) {
	if price <= 0 {
		return Quote{}, errs.Newf(errs.InvalidInput, "price must be positive, got %v", price)
	}
	if shares == 0 {
		return Quote{}, errs.New(errs.InvalidInput, "cannot quote a zero-share order")
	}
	slipFrac := m.Slippage.Fraction(shares, adv, volatility)
	impactFrac := m.Impact.Fraction(shares, adv, volatility)

	adverse := slipFrac + impactFrac
	fill := price * (1 + adverse)
	if shares < 0 {
		fill = price * (1 - adverse)
	}
	grossNotional := math.Abs(shares) * price
	q := Quote{
		Shares:       shares,
		FillPrice:    fill,
		Commission:   m.Commission.Calculate(grossNotional, shares),
		Slippage:     slipFrac * grossNotional,
		MarketImpact: impactFrac * grossNotional,
	}
	q.TotalCost = q.Commission + q.Slippage + q.MarketImpact
	return q, nil
}
