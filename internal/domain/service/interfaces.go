package service

import (
	"context"

	"SignalDesk/internal/domain/models"
)

// TechnicalAnalyzer turns a normalized bar series into a technical report.
type TechnicalAnalyzer interface {
	Analyze(ctx context.Context, ticker string, bars []models.PriceBar, language string) (models.TechnicalReport, error)
}

// PromptInput is everything a proposer needs to suggest decisions.
// Tickers only contains tickers that have at least one trade besides hold.
type PromptInput struct {
	Tickers   []string
	Signals   map[string][]models.AnalystSignal
	Prices    map[string]float64
	Allowed   map[string]models.AllowedActionSet
	Portfolio models.PortfolioSnapshot
	Language  string
}

// DecisionProposer proposes a decision per ticker. Proposals are untrusted and
// are validated by the reconciler before use.
type DecisionProposer interface {
	Propose(ctx context.Context, in PromptInput) (map[string]models.TradingDecision, error)
}

// ProgressObserver receives agent status updates. Implementations must not block.
type ProgressObserver interface {
	Update(ev models.ProgressEvent)
}
