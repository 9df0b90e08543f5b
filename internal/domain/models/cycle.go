package models

import "time"

// CycleRequest asks for one decision cycle.
// ExtraSignals are signals from analysts that run outside this service, keyed agent -> ticker.
type CycleRequest struct {
	Tickers      []string                            `json:"tickers"`
	StartDate    string                              `json:"start_date"`
	EndDate      string                              `json:"end_date"`
	Language     string                              `json:"language,omitempty"`
	Portfolio    *PortfolioSnapshot                  `json:"portfolio,omitempty"`
	ExtraSignals map[string]map[string]AnalystSignal `json:"extra_signals,omitempty"`
}

// DecisionMismatch records a proposal that was rejected by the reconciler.
type DecisionMismatch struct {
	Ticker   string `json:"ticker"`
	Action   Action `json:"action"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// CycleResult is the outcome of one decision cycle.
type CycleResult struct {
	ID         string                      `json:"id"`
	Tickers    []string                    `json:"tickers"`
	StartDate  string                      `json:"start_date"`
	EndDate    string                      `json:"end_date"`
	Signals    map[string][]AnalystSignal  `json:"signals"`
	Reports    map[string]TechnicalReport  `json:"reports,omitempty"`
	Prices     map[string]float64          `json:"prices"`
	Allowed    map[string]AllowedActionSet `json:"allowed_actions"`
	Decisions  map[string]TradingDecision  `json:"decisions"`
	Mismatches []DecisionMismatch          `json:"mismatches,omitempty"`
	Overrides  []string                    `json:"overrides,omitempty"`
	Dropped    []string                    `json:"dropped,omitempty"`
	Errors     map[string]string           `json:"errors,omitempty"`
	StartedAt  time.Time                   `json:"started_at"`
	Duration   time.Duration               `json:"duration_ns"`
}

// ProgressEvent reports a status change of an agent, optionally scoped to a ticker.
type ProgressEvent struct {
	Agent     string    `json:"agent"`
	Ticker    string    `json:"ticker,omitempty"`
	Status    string    `json:"status"`
	Analysis  string    `json:"analysis,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
