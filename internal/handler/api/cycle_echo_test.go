package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/usecase"
)

type fakeAnalyst struct {
	tickers    []string
	start, end string
}

func (f *fakeAnalyst) Analyze(_ context.Context, tickers []string, start, end, _ string) (*usecase.AnalysisResult, error) {
	f.tickers, f.start, f.end = tickers, start, end
	t := tickers[0]
	return &usecase.AnalysisResult{
		Signals: map[string]models.AnalystSignal{t: {Agent: usecase.TechnicalAgent, Ticker: t, Direction: models.Bullish, Confidence: 64}},
		Reports: map[string]models.TechnicalReport{t: {Ticker: t, Bars: 250}},
		Prices:  map[string]float64{t: 187.5},
		Errors:  map[string]string{},
	}, nil
}

type fakeRunner struct {
	req models.CycleRequest
	err error
}

func (f *fakeRunner) Run(_ context.Context, req models.CycleRequest) (*models.CycleResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.CycleResult{ID: "cycle-1", Tickers: req.Tickers}, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestEcho(h *CycleEchoHandler) *echo.Echo {
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestTechnicalEndpoint(t *testing.T) {
	analyst := &fakeAnalyst{}
	h := NewCycleEchoHandler(nil, analyst, &fakeRunner{}, WithLookbackDays(30))
	h.now = func() time.Time { return time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC) }
	e := newTestEcho(h)

	rec, env := do(t, e, http.MethodGet, "/api/technical?ticker=aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL"}, analyst.tickers)
	assert.Equal(t, "2024-05-31", analyst.start)
	assert.Equal(t, "2024-06-30", analyst.end)

	var out TechnicalResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, models.Bullish, out.Signal.Direction)
	assert.Equal(t, 64.0, out.Signal.Confidence)
	require.NotNil(t, out.Report)
	assert.Equal(t, 250, out.Report.Bars)
	assert.Equal(t, 187.5, out.Price)
}

func TestTechnicalEndpointValidation(t *testing.T) {
	e := newTestEcho(NewCycleEchoHandler(nil, &fakeAnalyst{}, &fakeRunner{}))

	rec, _ := do(t, e, http.MethodGet, "/api/technical", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_REQUIRED")

	rec, _ = do(t, e, http.MethodGet, "/api/technical?ticker=AAPL&start_date=2024-13-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_DATETIME")

	rec, _ = do(t, e, http.MethodGet, "/api/technical?ticker=AAPL&start_date=2024-05-01&end_date=2024-04-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAllowedActionsEndpoint(t *testing.T) {
	e := newTestEcho(NewCycleEchoHandler(nil, &fakeAnalyst{}, &fakeRunner{}))

	body := `{
		"tickers": ["AAPL", "MSFT"],
		"prices": {"AAPL": 100, "MSFT": 50},
		"max_shares": {"MSFT": 3},
		"portfolio": {"cash": 10000, "positions": {"AAPL": {"long": 5}}}
	}`
	rec, env := do(t, e, http.MethodPost, "/api/allowed-actions", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out AllowedActionsResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	// Portfolio value 10500, 20% limit 2100, minus the 500 already held.
	assert.InDelta(t, 1600, out.PositionLimits["AAPL"], 1e-9)
	assert.Equal(t, 16, out.MaxShares["AAPL"])
	assert.Equal(t, 16, out.Allowed["AAPL"][models.ActionBuy])
	assert.Equal(t, 5, out.Allowed["AAPL"][models.ActionSell])
	assert.Equal(t, 3, out.MaxShares["MSFT"])
	assert.Equal(t, 3, out.Allowed["MSFT"][models.ActionBuy])
	assert.Contains(t, out.Allowed["MSFT"], models.ActionHold)
}

func TestAllowedActionsRejectsBadMargin(t *testing.T) {
	e := newTestEcho(NewCycleEchoHandler(nil, &fakeAnalyst{}, &fakeRunner{}))

	rec, _ := do(t, e, http.MethodPost, "/api/allowed-actions",
		`{"tickers":["AAPL"],"prices":{"AAPL":1},"portfolio":{"cash":1,"margin_requirement":1.5}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCycleEndpoint(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestEcho(NewCycleEchoHandler(nil, &fakeAnalyst{}, runner))

	rec, env := do(t, e, http.MethodPost, "/api/cycle", `{"tickers":["AAPL"],"end_date":"2024-06-28"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "en", runner.req.Language)
	assert.Equal(t, "2024-06-28", runner.req.EndDate)
	assert.Contains(t, string(env.Data), `"cycle-1"`)

	rec, _ = do(t, e, http.MethodPost, "/api/cycle", `{"tickers":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCycleEndpointErrorMapping(t *testing.T) {
	cases := map[error]int{
		usecase.ErrInvalidRequest:     http.StatusBadRequest,
		context.DeadlineExceeded:      http.StatusGatewayTimeout,
		errors.New("clickhouse down"): http.StatusInternalServerError,
	}
	for cause, want := range cases {
		e := newTestEcho(NewCycleEchoHandler(nil, &fakeAnalyst{}, &fakeRunner{err: cause}))
		rec, _ := do(t, e, http.MethodPost, "/api/cycle", `{"tickers":["AAPL"]}`)
		assert.Equal(t, want, rec.Code, cause.Error())
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := NewCycleEchoHandler(nil, &fakeAnalyst{}, &fakeRunner{},
		WithHealthCheck("clickhouse", func(context.Context) error { return nil }),
	)
	rec, env := do(t, newTestEcho(h), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"backends":{"clickhouse":"ok"}}`, string(env.Data))

	h = NewCycleEchoHandler(nil, &fakeAnalyst{}, &fakeRunner{},
		WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }),
	)
	rec, _ = do(t, newTestEcho(h), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
