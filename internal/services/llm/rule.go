package llm

import (
	"context"
	"fmt"

	"SignalDesk/internal/domain/models"
	domsvc "SignalDesk/internal/domain/service"
)

// RuleProposer follows the analyst majority without a model. It sizes every
// trade at the maximum allowed quantity.
type RuleProposer struct{}

func NewRuleProposer() *RuleProposer { return &RuleProposer{} }

func (RuleProposer) Propose(ctx context.Context, in domsvc.PromptInput) (map[string]models.TradingDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]models.TradingDecision, len(in.Tickers))
	for _, t := range in.Tickers {
		out[t] = ruleDecision(in.Signals[t], in.Allowed[t], in.Portfolio.Position(t))
	}
	return out, nil
}

func ruleDecision(signals []models.AnalystSignal, allowed models.AllowedActionSet, pos models.Position) models.TradingDecision {
	var bull, bear, neutral int
	var bullConf, bearConf float64
	for _, s := range signals {
		switch s.Direction {
		case models.Bullish:
			bull++
			bullConf += s.Confidence
		case models.Bearish:
			bear++
			bearConf += s.Confidence
		case models.Neutral:
			neutral++
		}
	}
	counts := fmt.Sprintf("%d bullish, %d bearish, %d neutral", bull, bear, neutral)

	var candidates []models.Action
	var conf float64
	switch {
	case bull > bear && bull > neutral:
		candidates = []models.Action{models.ActionBuy}
		conf = bullConf / float64(bull)
	case bear > bull && bear > neutral:
		if pos.Long > 0 {
			candidates = []models.Action{models.ActionSell}
		} else {
			candidates = []models.Action{models.ActionShort}
		}
		conf = bearConf / float64(bear)
	default:
		return models.TradingDecision{
			Action:    models.ActionHold,
			Reasoning: "No majority direction (" + counts + "), holding",
		}
	}

	for _, a := range candidates {
		if q, ok := allowed.Allows(a); ok && q > 0 {
			return models.TradingDecision{
				Action:     a,
				Quantity:   q,
				Confidence: conf,
				Reasoning:  fmt.Sprintf("Majority signal (%s), %s %d shares", counts, a, q),
			}
		}
	}
	return models.TradingDecision{
		Action:     models.ActionHold,
		Confidence: conf,
		Reasoning:  fmt.Sprintf("Majority signal (%s) but no matching action is allowed", counts),
	}
}

var _ domsvc.DecisionProposer = RuleProposer{}
