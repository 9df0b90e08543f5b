package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/service/progress"
	"SignalDesk/internal/services/marketdata"
	"SignalDesk/internal/services/technical"
	applogger "SignalDesk/pkg/logger"
)

// TechnicalAgent is the agent name the technical analyst reports under.
const TechnicalAgent = "technical_analyst"

const (
	statusAnalyzing = "Analyzing price data"
	statusNoData    = "Failed: No price data found"
	statusDone      = "Done"

	defaultConcurrency = 4
)

// AnalysisResult is the technical analyst output for one cycle.
// Errors only has entries for tickers that fell back to a neutral signal.
type AnalysisResult struct {
	Signals map[string]models.AnalystSignal   `json:"signals"`
	Reports map[string]models.TechnicalReport `json:"reports"`
	Prices  map[string]float64                `json:"prices"`
	Errors  map[string]string                 `json:"errors,omitempty"`
}

// TechnicalAnalyst fetches prices and runs the technical engine for each ticker.
type TechnicalAnalyst struct {
	prices      domrepo.PriceProvider
	analyzer    domsvc.TechnicalAnalyzer
	observer    domsvc.ProgressObserver
	metrics     domrepo.Metrics
	weights     technical.Weights
	concurrency int
	log         *applogger.Logger
}

type AnalystOption func(*TechnicalAnalyst)

func WithAnalystWeights(w technical.Weights) AnalystOption {
	return func(a *TechnicalAnalyst) { a.weights = w }
}

func WithAnalystObserver(o domsvc.ProgressObserver) AnalystOption {
	return func(a *TechnicalAnalyst) {
		if o != nil {
			a.observer = o
		}
	}
}

func WithAnalystConcurrency(n int) AnalystOption {
	return func(a *TechnicalAnalyst) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithAnalystLogger(l *applogger.Logger) AnalystOption {
	return func(a *TechnicalAnalyst) {
		if l != nil {
			a.log = l
		}
	}
}

// NewTechnicalAnalyst builds an analyst whose strategy steps are reported to the observer.
func NewTechnicalAnalyst(prices domrepo.PriceProvider, metrics domrepo.Metrics, opts ...AnalystOption) *TechnicalAnalyst {
	a := &TechnicalAnalyst{
		prices:      prices,
		observer:    progress.Nop{},
		metrics:     metrics,
		concurrency: defaultConcurrency,
		log:         applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.analyzer = technical.NewAnalyzer(
		technical.WithWeights(a.weights),
		technical.WithStepHook(func(ticker, status string) { a.update(ticker, status, "") }),
	)
	return a
}

func (a *TechnicalAnalyst) update(ticker, status, analysis string) {
	a.observer.Update(models.ProgressEvent{Agent: TechnicalAgent, Ticker: ticker, Status: status, Analysis: analysis})
}

// Analyze runs every ticker in parallel. A ticker without usable data gets a
// neutral signal with confidence 0 and an entry in Errors. Only a cancelled
// context fails the whole call.
func (a *TechnicalAnalyst) Analyze(ctx context.Context, tickers []string, start, end, language string) (*AnalysisResult, error) {
	res := &AnalysisResult{
		Signals: make(map[string]models.AnalystSignal, len(tickers)),
		Reports: make(map[string]models.TechnicalReport, len(tickers)),
		Prices:  make(map[string]float64, len(tickers)),
		Errors:  make(map[string]string),
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, a.concurrency)
	)
	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			sig, report, price, err := a.analyzeTicker(ctx, ticker, start, end, language)

			mu.Lock()
			defer mu.Unlock()
			res.Signals[ticker] = sig
			if price > 0 {
				res.Prices[ticker] = price
			}
			if err != nil {
				res.Errors[ticker] = err.Error()
				return
			}
			res.Reports[ticker] = report
		}(ticker)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("technical analysis: %w", err)
	}
	a.update("", statusDone, "")
	return res, nil
}

func (a *TechnicalAnalyst) analyzeTicker(ctx context.Context, ticker, start, end, language string) (models.AnalystSignal, models.TechnicalReport, float64, error) {
	a.update(ticker, statusAnalyzing, "")
	log := a.log.With(applogger.String("ticker", ticker))

	fetchStart := time.Now()
	bars, err := a.prices.GetPrices(ctx, ticker, start, end)
	a.metrics.RecordLatency("fetch_prices", time.Since(fetchStart).Seconds())
	if err != nil {
		kind := "fetch"
		if errors.Is(err, marketdata.ErrDataUnavailable) || !marketdata.IsRecoverable(err) {
			kind = "fetch_unavailable"
		}
		a.metrics.RecordError(kind)
		log.Warn("price fetch failed", applogger.Error(err))
		a.update(ticker, statusNoData, "")
		return neutralSignal(ticker, "Price data unavailable"), models.TechnicalReport{}, 0, fmt.Errorf("fetch prices: %w", err)
	}
	if len(bars) == 0 {
		a.update(ticker, statusNoData, "")
		return neutralSignal(ticker, "No price data found"), models.TechnicalReport{}, 0, errors.New("no price data found")
	}

	price := lastClose(bars)
	report, err := a.analyzer.Analyze(ctx, ticker, bars, language)
	if err != nil {
		a.metrics.RecordError("analyze")
		log.Warn("technical analysis failed", applogger.Error(err))
		a.update(ticker, statusNoData, "")
		return neutralSignal(ticker, "Price data unusable"), models.TechnicalReport{}, price, err
	}

	sig := models.AnalystSignal{
		Agent:      TechnicalAgent,
		Ticker:     ticker,
		Direction:  report.Combined.Direction,
		Confidence: float64(technical.Percent(report.Combined.Confidence)),
		Reasoning:  report.Reasoning,
	}
	a.update(ticker, statusDone, report.Reasoning)
	log.Debug("technical signal",
		applogger.String("signal", string(sig.Direction)),
		applogger.Float64("confidence", sig.Confidence),
		applogger.Int("bars", report.Bars),
	)
	return sig, report, price, nil
}

func neutralSignal(ticker, reason string) models.AnalystSignal {
	return models.AnalystSignal{Agent: TechnicalAgent, Ticker: ticker, Direction: models.Neutral, Confidence: 0, Reasoning: reason}
}

// lastClose returns the close of the most recent bar with a known positive close.
func lastClose(bars []models.PriceBar) float64 {
	var (
		latest time.Time
		price  float64
	)
	for _, b := range bars {
		if !b.Close.Valid || b.Close.V <= 0 {
			continue
		}
		if price == 0 || !b.Time.Before(latest) {
			latest, price = b.Time, b.Close.V
		}
	}
	return price
}
