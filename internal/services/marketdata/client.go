package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	xhttp "SignalDesk/pkg/http"
	applogger "SignalDesk/pkg/logger"
)

const DefaultBaseURL = "https://api.financialdatasets.ai"

// Client fetches daily bars from the financial datasets prices endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	timeout     time.Duration
	http        *xhttp.Client
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	maxRetries  int
	backoffUnit time.Duration
	maxBackoff  time.Duration
	log         *applogger.Logger
}

type Option func(*Client)

func WithAPIKey(key string) Option { return func(c *Client) { c.apiKey = key } }

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit limits outbound requests. rps <= 0 disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetries sets how many times a recoverable failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the base unit and the cap of the exponential backoff.
func WithBackoff(unit, max time.Duration) Option {
	return func(c *Client) {
		if unit > 0 {
			c.backoffUnit = unit
		}
		if max > 0 {
			c.maxBackoff = max
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		timeout:     30 * time.Second,
		maxRetries:  3,
		backoffUnit: time.Second,
		maxBackoff:  30 * time.Second,
		log:         applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = xhttp.NewClient(xhttp.WithTimeout(c.timeout))

	st := gobreaker.Settings{Name: "market-data", Timeout: 30 * time.Second}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 5 }
	// client side errors say nothing about upstream health
	st.IsSuccessful = func(err error) bool { return err == nil || !IsRecoverable(err) }
	c.breaker = gobreaker.NewCircuitBreaker(st)
	return c
}

type pricesResponse struct {
	Ticker string          `json:"ticker"`
	Prices []models.RawBar `json:"prices"`
}

// GetPrices returns the daily bars for ticker in [startDate, endDate].
// An empty slice with a nil error means the upstream has no data.
func (c *Client) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.PriceBar, error) {
	for attempt := 0; ; attempt++ {
		bars, err := c.fetch(ctx, ticker, startDate, endDate)
		if err == nil {
			return bars, nil
		}
		if !IsRecoverable(err) || attempt >= c.maxRetries || ctx.Err() != nil {
			return nil, err
		}
		delay := c.backoff(attempt)
		c.log.Warn("market data retry",
			applogger.String("ticker", ticker),
			applogger.Int("attempt", attempt+1),
			applogger.Duration("delay", delay),
			applogger.Error(err),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// backoff is unit * 2^attempt, capped at maxBackoff.
func (c *Client) backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.backoffUnit) * math.Pow(2, float64(attempt)))
	if d > c.maxBackoff || d <= 0 {
		return c.maxBackoff
	}
	return d
}

func (c *Client) fetch(ctx context.Context, ticker, startDate, endDate string) ([]models.PriceBar, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.request(ctx, ticker, startDate, endDate)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, transportError(ticker, err)
		}
		return nil, err
	}
	return out.([]models.PriceBar), nil
}

func (c *Client) request(ctx context.Context, ticker, startDate, endDate string) ([]models.PriceBar, error) {
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["X-API-KEY"] = c.apiKey
	}
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/prices/",
		Headers: headers,
		QueryParams: map[string][]string{
			"ticker":              {ticker},
			"interval":            {"day"},
			"interval_multiplier": {"1"},
			"start_date":          {startDate},
			"end_date":            {endDate},
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transportError(ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError(ticker, resp.StatusCode, errorMessage(body))
	}

	var payload pricesResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, &APIError{Ticker: ticker, Status: resp.StatusCode, Message: fmt.Sprintf("fetch prices %s: decode response", ticker), Err: err}
	}

	bars := make([]models.PriceBar, 0, len(payload.Prices))
	for _, raw := range payload.Prices {
		// bars without a usable time cannot be placed in the series
		if b, ok := raw.Bar(); ok {
			bars = append(bars, b)
		}
	}
	return bars, nil
}

// errorMessage prefers the "error" or "message" field of a JSON error body.
func errorMessage(body []byte) string {
	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		for _, k := range []string{"error", "message"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return string(body)
}

var _ repository.PriceProvider = (*Client)(nil)
