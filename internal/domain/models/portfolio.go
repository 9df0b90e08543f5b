package models

// Position is the holding for one ticker.
type Position struct {
	Long          int     `json:"long" yaml:"long"`
	LongCostBasis float64 `json:"long_cost_basis" yaml:"long_cost_basis"`
	Short         int     `json:"short" yaml:"short"`
	ShortCost     float64 `json:"short_cost_basis" yaml:"short_cost_basis"`
}

// DefaultMarginRequirement applies when a snapshot leaves the margin requirement unset.
const DefaultMarginRequirement = 0.5

// PortfolioSnapshot is a read-only view of the portfolio for one decision cycle.
// Nil MarginRequirement means unset (0.5); nil Equity means "same as cash".
type PortfolioSnapshot struct {
	Cash              float64             `json:"cash"`
	Positions         map[string]Position `json:"positions"`
	MarginRequirement *float64            `json:"margin_requirement,omitempty"`
	MarginUsed        float64             `json:"margin_used"`
	Equity            *float64            `json:"equity,omitempty"`
}

// Margin returns the effective margin requirement.
func (p PortfolioSnapshot) Margin() float64 {
	if p.MarginRequirement == nil {
		return DefaultMarginRequirement
	}
	return *p.MarginRequirement
}

// EffectiveEquity returns equity, defaulting to cash.
func (p PortfolioSnapshot) EffectiveEquity() float64 {
	if p.Equity == nil {
		return p.Cash
	}
	return *p.Equity
}

// Position returns the position for ticker, zero when absent.
func (p PortfolioSnapshot) Position(ticker string) Position {
	if p.Positions == nil {
		return Position{}
	}
	return p.Positions[ticker]
}

// Action is a trading action.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionShort Action = "short"
	ActionCover Action = "cover"
	ActionHold  Action = "hold"
)

// Valid reports whether a is one of the five known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionShort, ActionCover, ActionHold:
		return true
	}
	return false
}

// AllowedActionSet maps each feasible action to its maximum quantity.
// Hold is always present with 0.
type AllowedActionSet map[Action]int

// Allows reports whether action is feasible and returns its cap.
func (s AllowedActionSet) Allows(a Action) (int, bool) {
	q, ok := s[a]
	return q, ok
}

// HoldOnly reports whether no trade is possible.
func (s AllowedActionSet) HoldOnly() bool {
	for a := range s {
		if a != ActionHold {
			return false
		}
	}
	return true
}

// TradingDecision is the final decision for one ticker. Confidence is 0..100.
type TradingDecision struct {
	Action     Action  `json:"action"`
	Quantity   int     `json:"quantity"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

const (
	ReasonNoValidTrade = "No valid trade available"
	ReasonDefaultHold  = "Default decision: hold"
)

// NoTradeDecision is used for tickers whose allowed set only contains hold.
func NoTradeDecision() TradingDecision {
	return TradingDecision{Action: ActionHold, Quantity: 0, Confidence: 100, Reasoning: ReasonNoValidTrade}
}

// DefaultHoldDecision replaces missing or invalid proposals.
func DefaultHoldDecision() TradingDecision {
	return TradingDecision{Action: ActionHold, Quantity: 0, Confidence: 0, Reasoning: ReasonDefaultHold}
}
