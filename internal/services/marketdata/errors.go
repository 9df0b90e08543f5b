package marketdata

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDataUnavailable is returned when neither the upstream API nor the bar
// store could supply prices.
var ErrDataUnavailable = errors.New("market data unavailable")

// APIError describes a failed upstream call. Recoverable errors may succeed
// when retried later (rate limits, server errors, transport failures).
type APIError struct {
	Status      int
	Ticker      string
	Recoverable bool
	Message     string
	Err         error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// statusError classifies a non-200 response.
func statusError(ticker string, status int, body string) *APIError {
	e := &APIError{Status: status, Ticker: ticker}
	switch {
	case status == http.StatusTooManyRequests:
		e.Recoverable = true
		e.Message = fmt.Sprintf("fetch prices %s: rate limited, retry later", ticker)
	case status >= 500:
		e.Recoverable = true
		e.Message = fmt.Sprintf("fetch prices %s: server error (%d)", ticker, status)
	case status == http.StatusPaymentRequired:
		e.Message = fmt.Sprintf("fetch prices %s: insufficient API credits", ticker)
	case status == http.StatusUnauthorized:
		e.Message = fmt.Sprintf("fetch prices %s: invalid API key", ticker)
	default:
		e.Message = fmt.Sprintf("fetch prices %s: API error (%d): %s", ticker, status, truncate(body, 200))
	}
	return e
}

func transportError(ticker string, err error) *APIError {
	return &APIError{
		Ticker:      ticker,
		Recoverable: true,
		Message:     fmt.Sprintf("fetch prices %s: request failed", ticker),
		Err:         err,
	}
}

// IsRecoverable reports whether err carries a recoverable APIError.
func IsRecoverable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Recoverable
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
