package repository

import (
	"context"
	"time"

	"SignalDesk/internal/domain/models"
)

// PriceProvider fetches daily bars for a ticker over an inclusive date range (YYYY-MM-DD).
type PriceProvider interface {
	GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.PriceBar, error)
}

// BarStore persists fetched bars so later cycles can read them without hitting the upstream API.
type BarStore interface {
	Init(ctx context.Context) error
	StoreBars(ctx context.Context, ticker string, bars []models.PriceBar) error
	QueryBars(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error)
	Health(ctx context.Context) error
	Close() error
}

// PortfolioSource supplies the portfolio snapshot used when a cycle request carries none.
type PortfolioSource interface {
	Snapshot(ctx context.Context) (models.PortfolioSnapshot, error)
}

// DecisionPublisher emits cycle results to downstream consumers.
type DecisionPublisher interface {
	PublishDecisions(ctx context.Context, result *models.CycleResult) error
	Close() error
}

// DecisionArchive stores cycle decisions for later audit.
type DecisionArchive interface {
	Init(ctx context.Context) error
	SaveDecisions(ctx context.Context, result *models.CycleResult) error
	Close() error
}

// Metrics records cycle level metrics.
type Metrics interface {
	RecordCycle(status string, seconds float64)
	RecordSignal(agent string, direction models.Direction)
	RecordDecision(action models.Action)
	RecordOverride()
	RecordMismatch()
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
