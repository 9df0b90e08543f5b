package models

import "strings"

// Direction is the directional view of a signal.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// ParseDirection maps free-form text to a Direction. Unknown values return false.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Bullish:
		return Bullish, true
	case Bearish:
		return Bearish, true
	case Neutral:
		return Neutral, true
	}
	return "", false
}

// Value maps bullish to +1, bearish to -1 and neutral to 0.
func (d Direction) Value() float64 {
	switch d {
	case Bullish:
		return 1
	case Bearish:
		return -1
	default:
		return 0
	}
}

// Strategy names the five technical strategies.
type Strategy string

const (
	StrategyTrend         Strategy = "trend"
	StrategyMeanReversion Strategy = "mean_reversion"
	StrategyMomentum      Strategy = "momentum"
	StrategyVolatility    Strategy = "volatility"
	StrategyStatArb       Strategy = "stat_arb"
)

// Strategies lists every strategy in reporting order.
var Strategies = []Strategy{
	StrategyTrend,
	StrategyMeanReversion,
	StrategyMomentum,
	StrategyVolatility,
	StrategyStatArb,
}

// StrategySignal is the serialized output of one strategy for one ticker.
type StrategySignal struct {
	Direction  Direction          `json:"signal"`
	Confidence float64            `json:"confidence"`
	Metrics    map[string]float64 `json:"metrics"`
	Note       string             `json:"note,omitempty"`
}

// CombinedSignal is the weighted ensemble of strategy signals.
// Confidence is |Score| which is not on the same scale as the strategy confidences.
type CombinedSignal struct {
	Direction  Direction `json:"signal"`
	Confidence float64   `json:"confidence"`
	Score      float64   `json:"score"`
}

// TechnicalReport groups the combined signal and the per-strategy details for a ticker.
type TechnicalReport struct {
	Ticker     string                      `json:"ticker"`
	Bars       int                         `json:"bars"`
	Combined   CombinedSignal              `json:"combined"`
	Strategies map[Strategy]StrategySignal `json:"strategies"`
	Reasoning  string                      `json:"reasoning"`
}

// AnalystSignal is the signal an analyst agent emits for one ticker.
// Confidence is on a 0..100 scale.
type AnalystSignal struct {
	Agent      string    `json:"agent"`
	Ticker     string    `json:"ticker"`
	Direction  Direction `json:"signal"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning,omitempty"`
}

// SignalSummary counts the directions of all signals contributing to a ticker.
type SignalSummary struct {
	Bullish int `json:"bullish"`
	Bearish int `json:"bearish"`
	Neutral int `json:"neutral"`
}

// Total returns the number of counted signals.
func (s SignalSummary) Total() int { return s.Bullish + s.Bearish + s.Neutral }

// AllNeutral reports whether every contributing signal is neutral.
func (s SignalSummary) AllNeutral() bool {
	return s.Bullish == 0 && s.Bearish == 0 && s.Neutral > 0
}
