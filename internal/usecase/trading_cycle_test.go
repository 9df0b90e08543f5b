package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/repository"
	"SignalDesk/internal/services/marketdata"
	pkgkafka "SignalDesk/pkg/kafka"
)

type cycleFixture struct {
	cycle     *TradingCycle
	proposer  *recordingProposer
	publisher *recordingPublisher
	archive   *recordingArchive
	metrics   *countingMetrics
}

func newCycleFixture(t *testing.T) *cycleFixture {
	t.Helper()
	prices := &fakePrices{
		bars: map[string][]models.PriceBar{"AAPL": risingBars(260)},
		errs: map[string]error{"BAD": &marketdata.APIError{Status: 402, Ticker: "BAD", Message: "insufficient API credits"}},
	}
	f := &cycleFixture{
		proposer:  &recordingProposer{},
		publisher: &recordingPublisher{},
		archive:   &recordingArchive{},
		metrics:   newCountingMetrics(),
	}
	analyst := NewTechnicalAnalyst(prices, f.metrics)
	manager := NewPortfolioManager(f.proposer, f.metrics)
	source := repository.NewStaticPortfolio(models.PortfolioSnapshot{Cash: 100000})
	f.cycle = NewTradingCycle(analyst, manager, source, f.publisher, f.archive, f.metrics,
		CycleSettings{Tickers: []string{"AAPL"}, LookbackDays: 30}, nil)

	now := time.Date(2024, 9, 17, 15, 0, 0, 0, time.UTC)
	f.cycle.now = func() time.Time { return now }
	f.cycle.newID = func() string { return "cycle-1" }
	return f
}

func TestTradingCycleRun(t *testing.T) {
	f := newCycleFixture(t)
	req := models.CycleRequest{
		Tickers:   []string{"aapl", " BAD ", "AAPL"},
		StartDate: "2024-01-02",
		EndDate:   "2024-09-16",
		ExtraSignals: map[string]map[string]models.AnalystSignal{
			"sentiment_analyst": {"AAPL": {Direction: "Bullish", Confidence: 60}, "TSLA": {Direction: models.Bearish}},
		},
	}

	res, err := f.cycle.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "cycle-1", res.ID)
	assert.Equal(t, []string{"AAPL", "BAD"}, res.Tickers)
	assert.Equal(t, "2024-01-02", res.StartDate)
	assert.Equal(t, "2024-09-16", res.EndDate)

	require.Len(t, res.Signals["AAPL"], 2)
	assert.Equal(t, TechnicalAgent, res.Signals["AAPL"][0].Agent)
	extra := res.Signals["AAPL"][1]
	assert.Equal(t, "sentiment_analyst", extra.Agent)
	assert.Equal(t, "AAPL", extra.Ticker)
	assert.Equal(t, models.Bullish, extra.Direction)
	assert.NotContains(t, res.Signals, "TSLA")

	// BAD has no price so only hold is feasible and it never reaches the proposer.
	assert.Equal(t, models.NoTradeDecision(), res.Decisions["BAD"])
	assert.Contains(t, res.Errors, "BAD")
	require.Len(t, f.proposer.calls, 1)
	assert.Equal(t, []string{"AAPL"}, f.proposer.calls[0])
	assert.Equal(t, models.DefaultHoldDecision(), res.Decisions["AAPL"])
	assert.Len(t, res.Decisions, 2)

	require.Len(t, f.publisher.results, 1)
	require.Len(t, f.archive.results, 1)
	assert.Same(t, res, f.publisher.results[0])
	assert.Equal(t, 1, f.metrics.cycles["success"])
	assert.Equal(t, 3, f.metrics.signals)
}

func TestTradingCycleDefaultsAndWindow(t *testing.T) {
	f := newCycleFixture(t)

	res, err := f.cycle.Run(context.Background(), models.CycleRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, res.Tickers)
	assert.Equal(t, "2024-09-17", res.EndDate)
	assert.Equal(t, "2024-08-18", res.StartDate)
}

func TestTradingCycleRequestPortfolioWins(t *testing.T) {
	f := newCycleFixture(t)

	res, err := f.cycle.Run(context.Background(), models.CycleRequest{
		Tickers:   []string{"AAPL"},
		Portfolio: &models.PortfolioSnapshot{},
	})
	require.NoError(t, err)
	assert.Equal(t, models.NoTradeDecision(), res.Decisions["AAPL"])
	assert.Empty(t, f.proposer.calls)
}

func TestTradingCycleInvalidWindow(t *testing.T) {
	f := newCycleFixture(t)

	_, err := f.cycle.Run(context.Background(), models.CycleRequest{StartDate: "2024-05-01", EndDate: "2024-04-01"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Equal(t, 1, f.metrics.cycles["error"])
	assert.Empty(t, f.publisher.results)
}

func TestTradingCyclePublishFailureIsNotFatal(t *testing.T) {
	f := newCycleFixture(t)
	f.publisher.err = errors.New("broker down")

	_, err := f.cycle.Run(context.Background(), models.CycleRequest{Tickers: []string{"AAPL"}})
	require.NoError(t, err)
	assert.Equal(t, 1, f.metrics.errors["publish"])
	assert.Len(t, f.archive.results, 1)
}

func TestCycleRequestHandler(t *testing.T) {
	f := newCycleFixture(t)
	h := NewCycleRequestHandler("cycle-requests", f.cycle, f.metrics)
	assert.Equal(t, "cycle-requests", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"tickers":["AAPL"],"end_date":"2024-09-16"}`)))
	require.Len(t, f.publisher.results, 1)

	var perm *pkgkafka.PermanentError
	err := h.Handle(context.Background(), []byte(`{not json`))
	require.Error(t, err)
	assert.True(t, errors.As(err, &perm))

	err = h.Handle(context.Background(), []byte(`{"start_date":"2024-05-01","end_date":"2024-04-01"}`))
	require.Error(t, err)
	assert.True(t, errors.As(err, &perm))
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

type failingRunner struct{ err error }

func (r failingRunner) Run(context.Context, models.CycleRequest) (*models.CycleResult, error) {
	return nil, r.err
}

func TestCycleRequestHandlerTransientError(t *testing.T) {
	h := NewCycleRequestHandler("t", failingRunner{err: errors.New("clickhouse timeout")}, newCountingMetrics())

	err := h.Handle(context.Background(), []byte(`{}`))
	require.Error(t, err)
	var perm *pkgkafka.PermanentError
	assert.False(t, errors.As(err, &perm))
}
