package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkgch "SignalDesk/pkg/clickhouse"
	applogger "SignalDesk/pkg/logger"
)

const barsTable = "price_bars"

// BarSchema creates the daily bar table. ReplacingMergeTree keeps the latest
// fetch of a (ticker, ts) pair. Missing values are stored as NULL.
var BarSchema = []string{
	`CREATE TABLE IF NOT EXISTS price_bars (
		ticker     LowCardinality(String),
		ts         DateTime64(3, 'UTC'),
		open       Nullable(Float64),
		high       Nullable(Float64),
		low        Nullable(Float64),
		close      Nullable(Float64),
		volume     Nullable(Float64),
		fetched_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(fetched_at)
	ORDER BY (ticker, ts)`,
}

// CHBarStore persists price bars in ClickHouse.
type CHBarStore struct {
	db  *sql.DB
	l   *applogger.Logger
	now func() time.Time
}

func NewCHBarStore(db *sql.DB, l *applogger.Logger) *CHBarStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHBarStore{db: db, l: l, now: time.Now}
}

func (s *CHBarStore) Init(ctx context.Context) error {
	if err := pkgch.InitSchema(ctx, s.db, BarSchema); err != nil {
		return fmt.Errorf("init bar schema: %w", err)
	}
	return nil
}

// StoreBars inserts bars in chunks of multi-row VALUES.
func (s *CHBarStore) StoreBars(ctx context.Context, ticker string, bars []models.PriceBar) error {
	const chunkSize = 1000
	fetched := s.now().UTC()
	for start := 0; start < len(bars); start += chunkSize {
		end := min(start+chunkSize, len(bars))
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, b := range bars[start:end] {
			if b.Time.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, ticker, b.Time.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume, fetched)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ticker, ts, open, high, low, close, volume, fetched_at) VALUES %s", barsTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store_bars error",
				applogger.String("ticker", ticker),
				applogger.Int("rows", len(values)),
				applogger.Error(err),
			)
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}

// QueryBars returns bars in [from, to] ordered by time.
func (s *CHBarStore) QueryBars(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	start := time.Now()
	q := fmt.Sprintf(`SELECT ts, open, high, low, close, volume FROM %s FINAL
		WHERE ticker = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC`, barsTable)
	rows, err := s.db.QueryContext(ctx, q, ticker, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceBar, 0, 256)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse query_bars ok",
		applogger.String("ticker", ticker),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (s *CHBarStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *CHBarStore) Close() error { return nil }

var _ domrepo.BarStore = (*CHBarStore)(nil)
