package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	domsvc "SignalDesk/internal/domain/service"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func risingBars(n int) []models.PriceBar {
	out := make([]models.PriceBar, n)
	for i := range out {
		c := barClose(i)
		out[i] = models.PriceBar{
			Open:   models.Num(c),
			High:   models.Num(c + 1),
			Low:    models.Num(c - 1),
			Close:  models.Num(c),
			Volume: models.Num(1000 + float64(i)),
			Time:   day0.AddDate(0, 0, i),
		}
	}
	return out
}

func barClose(i int) float64 { return 100 + float64(i)*0.5 + 3*math.Sin(float64(i)/3) }

type fakePrices struct {
	bars map[string][]models.PriceBar
	errs map[string]error
}

func (f *fakePrices) GetPrices(ctx context.Context, ticker, _, _ string) ([]models.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.errs[ticker]; err != nil {
		return nil, err
	}
	return f.bars[ticker], nil
}

type recordingProposer struct {
	mu    sync.Mutex
	calls [][]string
	out   map[string]models.TradingDecision
	err   error
}

func (p *recordingProposer) Propose(_ context.Context, in domsvc.PromptInput) (map[string]models.TradingDecision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, append([]string(nil), in.Tickers...))
	return p.out, p.err
}

type recordingObserver struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (o *recordingObserver) Update(ev models.ProgressEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *recordingObserver) has(agent, ticker, status string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ev := range o.events {
		if ev.Agent == agent && ev.Ticker == ticker && ev.Status == status {
			return true
		}
	}
	return false
}

type countingMetrics struct {
	mu         sync.Mutex
	cycles     map[string]int
	signals    int
	decisions  map[models.Action]int
	overrides  int
	mismatches int
	errors     map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{cycles: map[string]int{}, decisions: map[models.Action]int{}, errors: map[string]int{}}
}

func (m *countingMetrics) RecordCycle(status string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[status]++
}

func (m *countingMetrics) RecordSignal(string, models.Direction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals++
}

func (m *countingMetrics) RecordDecision(a models.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[a]++
}

func (m *countingMetrics) RecordOverride() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides++
}

func (m *countingMetrics) RecordMismatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mismatches++
}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *countingMetrics) RecordLatency(string, float64) {}

type recordingPublisher struct {
	results []*models.CycleResult
	err     error
}

func (p *recordingPublisher) PublishDecisions(_ context.Context, r *models.CycleResult) error {
	p.results = append(p.results, r)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingArchive struct {
	results []*models.CycleResult
}

func (a *recordingArchive) Init(context.Context) error { return nil }

func (a *recordingArchive) SaveDecisions(_ context.Context, r *models.CycleResult) error {
	a.results = append(a.results, r)
	return nil
}

func (a *recordingArchive) Close() error { return nil }
