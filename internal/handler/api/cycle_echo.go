package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/service/metrics"
	"SignalDesk/internal/services/portfolio"
	"SignalDesk/internal/services/risk"
	"SignalDesk/internal/usecase"
	xhttp "SignalDesk/pkg/http"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/util"
)

// HealthCheck probes one backend.
type HealthCheck func(ctx context.Context) error

// Analyst is the technical analysis use case.
type Analyst interface {
	Analyze(ctx context.Context, tickers []string, start, end, language string) (*usecase.AnalysisResult, error)
}

// TechnicalResponse is the technical analyst view of one ticker.
type TechnicalResponse struct {
	Ticker    string                  `json:"ticker"`
	StartDate string                  `json:"start_date"`
	EndDate   string                  `json:"end_date"`
	Signal    models.AnalystSignal    `json:"signal"`
	Report    *models.TechnicalReport `json:"report,omitempty"`
	Price     float64                 `json:"price,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// AllowedActionsResponse carries the feasible actions and the limits behind them.
type AllowedActionsResponse struct {
	Allowed        map[string]models.AllowedActionSet `json:"allowed_actions"`
	PositionLimits map[string]float64                 `json:"position_limits"`
	MaxShares      map[string]int                     `json:"max_shares"`
}

// CycleEchoHandler serves the analysis and decision endpoints.
type CycleEchoHandler struct {
	logger         *applogger.Logger
	analyst        Analyst
	cycle          usecase.CycleRunner
	checks         map[string]HealthCheck
	lookbackDays   int
	maxPositionPct float64
	now            func() time.Time
}

type HandlerOption func(*CycleEchoHandler)

func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *CycleEchoHandler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

func WithLookbackDays(days int) HandlerOption {
	return func(h *CycleEchoHandler) {
		if days > 0 {
			h.lookbackDays = days
		}
	}
}

func WithPositionPct(pct float64) HandlerOption {
	return func(h *CycleEchoHandler) {
		if pct > 0 {
			h.maxPositionPct = pct
		}
	}
}

func NewCycleEchoHandler(logger *applogger.Logger, analyst Analyst, cycle usecase.CycleRunner, opts ...HandlerOption) *CycleEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = applogger.NewNop()
	}
	h := &CycleEchoHandler{
		logger:         logger,
		analyst:        analyst,
		cycle:          cycle,
		checks:         make(map[string]HealthCheck),
		lookbackDays:   365,
		maxPositionPct: risk.DefaultMaxPositionPct,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *CycleEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api")
	g.GET("/technical", observed("technical", h.Technical))
	g.POST("/allowed-actions", observed("allowed_actions", h.AllowedActions))
	g.POST("/cycle", observed("cycle", h.Cycle))
}

func observed(endpoint string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		metrics.Observe(endpoint, start, c.Response().Status)
		return err
	}
}

func (h *CycleEchoHandler) Technical(c echo.Context) error {
	req := &models.TechnicalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	start, end, werr := util.ResolveWindow(req.StartDate, req.EndDate, h.lookbackDays, h.now())
	if werr != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(werr.Error()))
	}

	res, err := h.analyst.Analyze(c.Request().Context(), []string{ticker}, start, end, req.Language)
	if err != nil {
		h.logger.Error("technical analysis failed", applogger.String("ticker", ticker), applogger.Error(err))
		return xhttp.AppErrorResponse(c, cycleError(err))
	}

	out := TechnicalResponse{
		Ticker:    ticker,
		StartDate: start,
		EndDate:   end,
		Signal:    res.Signals[ticker],
		Price:     res.Prices[ticker],
		Error:     res.Errors[ticker],
	}
	if r, ok := res.Reports[ticker]; ok {
		out.Report = &r
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, out)
}

// AllowedActions computes the feasible actions for a caller supplied portfolio.
// Missing max shares are derived from position limits, missing limits from the
// portfolio value.
func (h *CycleEchoHandler) AllowedActions(c echo.Context) error {
	req := &models.AllowedActionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if m := req.Portfolio.MarginRequirement; m != nil && (*m < 0 || *m > 1) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("portfolio.margin_requirement must be within [0,1]").WithParam("value", *m))
	}

	limits := risk.PositionLimits(req.Tickers, req.Prices, req.Portfolio, h.maxPositionPct)
	for t, l := range req.PositionLimits {
		limits[t] = l
	}
	maxShares := make(map[string]int, len(req.Tickers))
	for _, t := range req.Tickers {
		if n, ok := req.MaxShares[t]; ok {
			maxShares[t] = n
			continue
		}
		maxShares[t] = portfolio.MaxSharesFromLimit(limits[t], req.Prices[t])
	}

	return xhttp.SuccessResponse(c, AllowedActionsResponse{
		Allowed:        portfolio.ComputeAllowedActions(req.Tickers, req.Prices, maxShares, req.Portfolio),
		PositionLimits: limits,
		MaxShares:      maxShares,
	})
}

func (h *CycleEchoHandler) Cycle(c echo.Context) error {
	req := &models.CycleHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.cycle.Run(c.Request().Context(), req.ToCycleRequest())
	if err != nil {
		h.logger.Error("cycle failed", applogger.Strings("tickers", req.Tickers), applogger.Error(err))
		return xhttp.AppErrorResponse(c, cycleError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// Health reports every configured backend. Any failure turns the response into 503.
func (h *CycleEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	backends := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			backends[name] = err.Error()
			h.logger.Warn("health check failed", applogger.String("backend", name), applogger.Error(err))
			continue
		}
		backends[name] = "ok"
	}
	return xhttp.DataResponse(c, status, map[string]interface{}{"backends": backends})
}

func cycleError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.GatewayTimeoutError("cycle timed out").WithError(err)
	default:
		return xhttp.InternalError("cycle failed").WithError(err)
	}
}
