package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkgch "SignalDesk/pkg/clickhouse"
	applogger "SignalDesk/pkg/logger"
)

// DecisionSchema creates the per-ticker decision audit table.
var DecisionSchema = []string{
	`CREATE TABLE IF NOT EXISTS cycle_decisions (
		cycle_id    String,
		started_at  DateTime64(3, 'UTC'),
		ticker      LowCardinality(String),
		action      LowCardinality(String),
		quantity    Int64,
		confidence  Float64,
		price       Float64,
		overridden  UInt8,
		mismatch    String,
		reasoning   String
	) ENGINE = MergeTree
	ORDER BY (ticker, started_at, cycle_id)`,
}

// CHDecisionArchive writes one row per ticker and cycle.
type CHDecisionArchive struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHDecisionArchive(db *sql.DB, l *applogger.Logger) *CHDecisionArchive {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHDecisionArchive{db: db, l: l}
}

func (a *CHDecisionArchive) Init(ctx context.Context) error {
	if err := pkgch.InitSchema(ctx, a.db, DecisionSchema); err != nil {
		return fmt.Errorf("init decision schema: %w", err)
	}
	return nil
}

func (a *CHDecisionArchive) SaveDecisions(ctx context.Context, r *models.CycleResult) error {
	if r == nil || len(r.Decisions) == 0 {
		return nil
	}
	mismatch := make(map[string]string, len(r.Mismatches))
	for _, m := range r.Mismatches {
		mismatch[m.Ticker] = m.Reason
	}

	tickers := make([]string, 0, len(r.Decisions))
	for t := range r.Decisions {
		tickers = append(tickers, t)
	}
	slices.Sort(tickers)

	values := make([]string, 0, len(tickers))
	args := make([]interface{}, 0, len(tickers)*10)
	for _, t := range tickers {
		d := r.Decisions[t]
		var overridden uint8
		if slices.Contains(r.Overrides, t) {
			overridden = 1
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, r.ID, r.StartedAt.UTC(), t, string(d.Action), int64(d.Quantity), d.Confidence, r.Prices[t], overridden, mismatch[t], d.Reasoning)
	}
	q := "INSERT INTO cycle_decisions (cycle_id, started_at, ticker, action, quantity, confidence, price, overridden, mismatch, reasoning) VALUES " + strings.Join(values, ",")
	if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
		a.l.Error("clickhouse save_decisions error", applogger.String("cycle_id", r.ID), applogger.Error(err))
		return fmt.Errorf("save decisions: %w", err)
	}
	return nil
}

func (a *CHDecisionArchive) Close() error { return nil }

var _ domrepo.DecisionArchive = (*CHDecisionArchive)(nil)
