package technical

import (
	"context"
	"fmt"
	"sync"

	"SignalDesk/internal/domain/models"
	domsvc "SignalDesk/internal/domain/service"
)

// StepHook observes strategy progress for a ticker. It must not block.
type StepHook func(ticker, status string)

type strategyStep struct {
	name   models.Strategy
	status string
	run    func(*Series) models.StrategySignal
}

var steps = []strategyStep{
	{models.StrategyTrend, "Calculating trend signals", Trend},
	{models.StrategyMeanReversion, "Calculating mean reversion", MeanReversion},
	{models.StrategyMomentum, "Calculating momentum", Momentum},
	{models.StrategyVolatility, "Analyzing volatility", Volatility},
	{models.StrategyStatArb, "Statistical analysis", StatArb},
}

// Analyzer runs the five strategies over a price series and combines them.
type Analyzer struct {
	weights Weights
	hook    StepHook
}

type AnalyzerOption func(*Analyzer)

func WithWeights(w Weights) AnalyzerOption {
	return func(a *Analyzer) {
		if len(w) > 0 {
			a.weights = w
		}
	}
}

func WithStepHook(h StepHook) AnalyzerOption {
	return func(a *Analyzer) { a.hook = h }
}

func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) step(ticker, status string) {
	if a.hook != nil {
		a.hook(ticker, status)
	}
}

// Analyze normalizes bars, evaluates the strategies concurrently and combines them.
func (a *Analyzer) Analyze(ctx context.Context, ticker string, bars []models.PriceBar, language string) (models.TechnicalReport, error) {
	var report models.TechnicalReport
	series, err := Normalize(bars)
	if err != nil {
		return report, fmt.Errorf("normalize %s: %w", ticker, err)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	results := make([]models.StrategySignal, len(steps))
	var wg sync.WaitGroup
	for i, st := range steps {
		a.step(ticker, st.status)
		wg.Add(1)
		go func(i int, st strategyStep) {
			defer wg.Done()
			results[i] = st.run(series)
		}(i, st)
	}
	wg.Wait()

	a.step(ticker, "Combining signals")
	signals := make(map[models.Strategy]models.StrategySignal, len(steps))
	for i, st := range steps {
		signals[st.name] = results[i]
	}
	combined := Combine(signals, a.weights)

	report = models.TechnicalReport{
		Ticker:     ticker,
		Bars:       series.Len(),
		Combined:   combined,
		Strategies: signals,
	}
	report.Reasoning = Reasoning(report, language)
	return report, nil
}

var _ domsvc.TechnicalAnalyzer = (*Analyzer)(nil)
