package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/util"
)

// ErrInvalidRequest marks cycle requests that can never succeed as sent.
var ErrInvalidRequest = errors.New("invalid cycle request")

const (
	defaultLookbackDays = 365
	defaultCycleTimeout = 2 * time.Minute
)

// CycleSettings are the config driven defaults of a cycle.
type CycleSettings struct {
	Tickers      []string
	LookbackDays int
	Language     string
	Timeout      time.Duration
}

// TradingCycle runs analysis, decision and delivery for a set of tickers.
type TradingCycle struct {
	analyst   *TechnicalAnalyst
	manager   *PortfolioManager
	portfolio domrepo.PortfolioSource
	publisher domrepo.DecisionPublisher
	archive   domrepo.DecisionArchive
	metrics   domrepo.Metrics
	settings  CycleSettings
	now       func() time.Time
	newID     func() string
	log       *applogger.Logger
}

// NewTradingCycle wires a cycle. Publisher and archive may be nil when the
// corresponding backend is disabled.
func NewTradingCycle(
	analyst *TechnicalAnalyst,
	manager *PortfolioManager,
	source domrepo.PortfolioSource,
	publisher domrepo.DecisionPublisher,
	archive domrepo.DecisionArchive,
	metrics domrepo.Metrics,
	settings CycleSettings,
	log *applogger.Logger,
) *TradingCycle {
	if settings.LookbackDays <= 0 {
		settings.LookbackDays = defaultLookbackDays
	}
	if settings.Timeout <= 0 {
		settings.Timeout = defaultCycleTimeout
	}
	if settings.Language == "" {
		settings.Language = "en"
	}
	if log == nil {
		log = applogger.NewNop()
	}
	return &TradingCycle{
		analyst:   analyst,
		manager:   manager,
		portfolio: source,
		publisher: publisher,
		archive:   archive,
		metrics:   metrics,
		settings:  settings,
		now:       time.Now,
		newID:     uuid.NewString,
		log:       log,
	}
}

// Run executes one cycle bounded by the configured timeout.
func (c *TradingCycle) Run(ctx context.Context, req models.CycleRequest) (*models.CycleResult, error) {
	started := c.now()
	res, err := c.run(ctx, req, started)
	seconds := c.now().Sub(started).Seconds()
	if err != nil {
		c.metrics.RecordCycle("error", seconds)
		return nil, err
	}
	c.metrics.RecordCycle("success", seconds)
	return res, nil
}

func (c *TradingCycle) run(ctx context.Context, req models.CycleRequest, started time.Time) (*models.CycleResult, error) {
	tickers := normalizeTickers(req.Tickers)
	if len(tickers) == 0 {
		tickers = normalizeTickers(c.settings.Tickers)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: no tickers", ErrInvalidRequest)
	}
	start, end, err := util.ResolveWindow(req.StartDate, req.EndDate, c.settings.LookbackDays, started)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	language := req.Language
	if language == "" {
		language = c.settings.Language
	}

	id := c.newID()
	log := c.log.With(applogger.String("cycle_id", id))
	log.Info("cycle started",
		applogger.Strings("tickers", tickers),
		applogger.String("start_date", start),
		applogger.String("end_date", end),
	)

	ctx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	analysis, err := c.analyst.Analyze(ctx, tickers, start, end, language)
	if err != nil {
		return nil, fmt.Errorf("cycle %s: %w", id, err)
	}

	snap, err := c.snapshot(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("cycle %s: portfolio snapshot: %w", id, err)
	}

	signals := mergeSignals(tickers, analysis.Signals, req.ExtraSignals)
	for _, list := range signals {
		for _, s := range list {
			c.metrics.RecordSignal(s.Agent, s.Direction)
		}
	}

	decision, err := c.manager.Decide(ctx, tickers, signals, analysis.Prices, snap, language)
	if err != nil {
		return nil, fmt.Errorf("cycle %s: %w", id, err)
	}

	res := &models.CycleResult{
		ID:         id,
		Tickers:    tickers,
		StartDate:  start,
		EndDate:    end,
		Signals:    signals,
		Reports:    analysis.Reports,
		Prices:     analysis.Prices,
		Allowed:    decision.Allowed,
		Decisions:  decision.Decisions,
		Mismatches: decision.MismatchRecords(),
		Overrides:  decision.Overrides,
		Dropped:    decision.Dropped,
		StartedAt:  started.UTC(),
	}
	if len(analysis.Errors) > 0 {
		res.Errors = analysis.Errors
	}
	res.Duration = c.now().Sub(started)

	c.deliver(ctx, res, log)
	log.Info("cycle finished",
		applogger.Duration("duration", res.Duration),
		applogger.Int("overrides", len(res.Overrides)),
		applogger.Int("mismatches", len(res.Mismatches)),
		applogger.Int("errors", len(res.Errors)),
	)
	return res, nil
}

func (c *TradingCycle) snapshot(ctx context.Context, req models.CycleRequest) (models.PortfolioSnapshot, error) {
	if req.Portfolio != nil {
		return *req.Portfolio, nil
	}
	if c.portfolio == nil {
		return models.PortfolioSnapshot{}, nil
	}
	return c.portfolio.Snapshot(ctx)
}

// deliver publishes and archives the result. Delivery failures are logged and
// counted but do not fail the cycle.
func (c *TradingCycle) deliver(ctx context.Context, res *models.CycleResult, log *applogger.Logger) {
	if c.publisher != nil {
		start := time.Now()
		if err := c.publisher.PublishDecisions(ctx, res); err != nil {
			c.metrics.RecordError("publish")
			log.Error("publish decisions failed", applogger.Error(err))
		}
		c.metrics.RecordLatency("publish", time.Since(start).Seconds())
	}
	if c.archive != nil {
		start := time.Now()
		if err := c.archive.SaveDecisions(ctx, res); err != nil {
			c.metrics.RecordError("archive")
			log.Error("archive decisions failed", applogger.Error(err))
		}
		c.metrics.RecordLatency("archive", time.Since(start).Seconds())
	}
}

// normalizeTickers upper-cases, trims and de-duplicates while keeping order.
func normalizeTickers(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// mergeSignals collects the technical signal and any external analyst signals
// per ticker. External agents are appended in name order; signals for tickers
// outside the cycle are ignored.
func mergeSignals(tickers []string, technical map[string]models.AnalystSignal, extra map[string]map[string]models.AnalystSignal) map[string][]models.AnalystSignal {
	agents := make([]string, 0, len(extra))
	for agent := range extra {
		if agent != TechnicalAgent {
			agents = append(agents, agent)
		}
	}
	sort.Strings(agents)

	out := make(map[string][]models.AnalystSignal, len(tickers))
	for _, t := range tickers {
		var list []models.AnalystSignal
		if s, ok := technical[t]; ok {
			list = append(list, s)
		}
		for _, agent := range agents {
			s, ok := extra[agent][t]
			if !ok {
				continue
			}
			if d, ok := models.ParseDirection(string(s.Direction)); ok {
				s.Direction = d
			}
			s.Agent, s.Ticker = agent, t
			list = append(list, s)
		}
		out[t] = list
	}
	return out
}
