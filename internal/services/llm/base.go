package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	xhttp "SignalDesk/pkg/http"
)

// HTTPServiceBase centralizes client construction and JSON POSTs against one
// upstream, guarded by a circuit breaker.
type HTTPServiceBase struct {
	baseURL string
	headers map[string]string
	client  *xhttp.Client
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPServiceBase builds a client for baseURL. The breaker opens after five
// consecutive failures and probes again after 30s.
func NewHTTPServiceBase(name, baseURL string, timeout time.Duration, headers map[string]string) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	st := gobreaker.Settings{Name: name, Timeout: 30 * time.Second}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 5 }
	return &HTTPServiceBase{
		baseURL: baseURL,
		headers: headers,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("llm http client not initialized")
	}
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range b.headers {
		headers[k] = v
	}
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodPost,
			URL:     b.baseURL + path,
			Headers: headers,
			Body:    payload,
		}, dest)
	})
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry posts JSON with up to `attempts` tries and a linear backoff.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return b.PostJSON(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
