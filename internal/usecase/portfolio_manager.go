package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/service/progress"
	"SignalDesk/internal/services/portfolio"
	"SignalDesk/internal/services/risk"
	applogger "SignalDesk/pkg/logger"
)

// PortfolioAgent is the agent name the portfolio manager reports under.
const PortfolioAgent = "portfolio_manager"

// PortfolioDecision is the reconciled outcome plus the constraints it was checked against.
type PortfolioDecision struct {
	*portfolio.Reconciliation
	Limits    map[string]float64
	MaxShares map[string]int
	Allowed   map[string]models.AllowedActionSet
}

// PortfolioManager turns analyst signals into one validated decision per ticker.
type PortfolioManager struct {
	proposer       domsvc.DecisionProposer
	reconciler     *portfolio.Reconciler
	metrics        domrepo.Metrics
	observer       domsvc.ProgressObserver
	maxPositionPct float64
	log            *applogger.Logger
}

type ManagerOption func(*PortfolioManager)

func WithMaxPositionPct(pct float64) ManagerOption {
	return func(m *PortfolioManager) {
		if pct > 0 {
			m.maxPositionPct = pct
		}
	}
}

func WithManagerObserver(o domsvc.ProgressObserver) ManagerOption {
	return func(m *PortfolioManager) {
		if o != nil {
			m.observer = o
		}
	}
}

func WithManagerLogger(l *applogger.Logger) ManagerOption {
	return func(m *PortfolioManager) {
		if l != nil {
			m.log = l
		}
	}
}

func NewPortfolioManager(proposer domsvc.DecisionProposer, metrics domrepo.Metrics, opts ...ManagerOption) *PortfolioManager {
	m := &PortfolioManager{
		proposer:       proposer,
		metrics:        metrics,
		observer:       progress.Nop{},
		maxPositionPct: risk.DefaultMaxPositionPct,
		log:            applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.reconciler = portfolio.NewReconciler(m.log)
	return m
}

func (m *PortfolioManager) update(ticker, status string) {
	m.observer.Update(models.ProgressEvent{Agent: PortfolioAgent, Ticker: ticker, Status: status})
}

// Decide sizes limits, derives the allowed actions, asks the proposer about
// tickers that can trade, and reconciles the answer. A proposer failure is not
// fatal: the affected tickers fall back to the default hold.
func (m *PortfolioManager) Decide(
	ctx context.Context,
	tickers []string,
	signals map[string][]models.AnalystSignal,
	prices map[string]float64,
	snap models.PortfolioSnapshot,
	language string,
) (*PortfolioDecision, error) {
	m.update("", "Processing analyst signals")

	limits := risk.PositionLimits(tickers, prices, snap, m.maxPositionPct)
	maxShares := make(map[string]int, len(tickers))
	for _, t := range tickers {
		maxShares[t] = portfolio.MaxSharesFromLimit(limits[t], prices[t])
	}
	allowed := portfolio.ComputeAllowedActions(tickers, prices, maxShares, snap)

	_, pending := m.reconciler.Prefill(tickers, allowed)
	var proposed map[string]models.TradingDecision
	if len(pending) > 0 {
		m.update("", "Generating trading decisions")
		start := time.Now()
		out, err := m.proposer.Propose(ctx, domsvc.PromptInput{
			Tickers:   pending,
			Signals:   signals,
			Prices:    prices,
			Allowed:   allowed,
			Portfolio: snap,
			Language:  language,
		})
		m.metrics.RecordLatency("propose", time.Since(start).Seconds())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("propose decisions: %w", ctxErr)
			}
			m.metrics.RecordError("propose")
			m.log.Error("proposer failed, holding pending tickers", applogger.Error(err), applogger.Strings("tickers", pending))
		}
		proposed = out
	}

	rec := m.reconciler.Reconcile(tickers, allowed, proposed, portfolio.SummarizeSignals(signals))
	for range rec.Overrides {
		m.metrics.RecordOverride()
	}
	for range rec.Mismatches {
		m.metrics.RecordMismatch()
	}
	for _, t := range tickers {
		m.metrics.RecordDecision(rec.Decisions[t].Action)
	}
	m.update("", statusDone)

	return &PortfolioDecision{
		Reconciliation: rec,
		Limits:         limits,
		MaxShares:      maxShares,
		Allowed:        allowed,
	}, nil
}
