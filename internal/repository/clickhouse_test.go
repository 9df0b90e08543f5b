package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/models"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestCHBarStoreStoreBars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fetched := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	s := NewCHBarStore(db, nil)
	s.now = func() time.Time { return fetched }

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO price_bars (ticker, ts, open, high, low, close, volume, fetched_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?),(?, ?, ?, ?, ?, ?, ?, ?)")).
		WithArgs(
			"AAPL", day(2), 1.0, 2.0, 0.5, 1.5, 100.0, fetched,
			"AAPL", day(3), 1.5, 2.5, 1.0, nil, 200.0, fetched,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = s.StoreBars(context.Background(), "AAPL", []models.PriceBar{
		{Open: models.Num(1), High: models.Num(2), Low: models.Num(0.5), Close: models.Num(1.5), Volume: models.Num(100), Time: day(2)},
		{Open: models.Num(1.5), High: models.Num(2.5), Low: models.Num(1), Volume: models.Num(200), Time: day(3)},
		{Close: models.Num(9)},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHBarStoreStoreBarsEmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewCHBarStore(db, nil).StoreBars(context.Background(), "AAPL", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHBarStoreQueryBars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"ts", "open", "high", "low", "close", "volume"}).
		AddRow(day(2), 1.0, 2.0, 0.5, nil, int64(100)).
		AddRow(day(3), 1.5, 2.5, 1.0, 2.0, 200.0)
	mock.ExpectQuery("SELECT ts, open, high, low, close, volume FROM price_bars FINAL").
		WithArgs("AAPL", day(1), day(31)).
		WillReturnRows(rows)

	bars, err := NewCHBarStore(db, nil).QueryBars(context.Background(), "AAPL", day(1), day(31))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, models.Num(2), bars[1].Close)
	assert.Equal(t, models.Num(200), bars[1].Volume)
	assert.False(t, bars[0].Close.Valid, "NULL close stays missing")
	assert.Equal(t, models.Num(100), bars[0].Volume)
	assert.True(t, bars[0].Time.Equal(day(2)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHDecisionArchiveSaveDecisions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	started := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	res := &models.CycleResult{
		ID:        "cycle-1",
		StartedAt: started,
		Prices:    map[string]float64{"AAPL": 100, "MSFT": 300},
		Decisions: map[string]models.TradingDecision{
			"MSFT": {Action: models.ActionHold, Confidence: 50, Reasoning: "forced"},
			"AAPL": {Action: models.ActionBuy, Quantity: 5, Confidence: 80, Reasoning: "bullish"},
		},
		Overrides:  []string{"MSFT"},
		Mismatches: []models.DecisionMismatch{{Ticker: "AAPL", Reason: "quantity exceeds max 5"}},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cycle_decisions")).
		WithArgs(
			"cycle-1", started, "AAPL", "buy", int64(5), 80.0, 100.0, uint8(0), "quantity exceeds max 5", "bullish",
			"cycle-1", started, "MSFT", "hold", int64(0), 50.0, 300.0, uint8(1), "", "forced",
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewCHDecisionArchive(db, nil).SaveDecisions(context.Background(), res))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitRunsSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS price_bars").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS cycle_decisions").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewCHBarStore(db, nil).Init(context.Background()))
	require.NoError(t, NewCHDecisionArchive(db, nil).Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
