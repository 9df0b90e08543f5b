package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/models"
	"SignalDesk/pkg/cache"
)

type fakeUpstream struct {
	bars  []models.PriceBar
	err   error
	calls int
}

func (f *fakeUpstream) GetPrices(context.Context, string, string, string) ([]models.PriceBar, error) {
	f.calls++
	return f.bars, f.err
}

type fakeStore struct {
	mu     sync.Mutex
	stored map[string][]models.PriceBar
	from   time.Time
	to     time.Time
}

func newFakeStore() *fakeStore { return &fakeStore{stored: map[string][]models.PriceBar{}} }

func (s *fakeStore) Init(context.Context) error { return nil }
func (s *fakeStore) StoreBars(_ context.Context, ticker string, bars []models.PriceBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[ticker] = append(s.stored[ticker], bars...)
	return nil
}
func (s *fakeStore) QueryBars(_ context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.from, s.to = from, to
	return s.stored[ticker], nil
}
func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestCachedProviderCachesNonEmptyResults(t *testing.T) {
	ctx := context.Background()
	up := &fakeUpstream{bars: []models.PriceBar{{Close: models.Num(1), Time: day(2)}}}
	mem := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mem.Close()
	store := newFakeStore()
	p := NewCachedProvider(up, WithCache(mem, time.Minute), WithBarStore(store))

	for i := 0; i < 3; i++ {
		bars, err := p.GetPrices(ctx, "AAPL", "2024-01-01", "2024-01-31")
		require.NoError(t, err)
		require.Len(t, bars, 1)
		assert.True(t, bars[0].Time.Equal(day(2)))
	}
	assert.Equal(t, 1, up.calls)
	assert.Len(t, store.stored["AAPL"], 1)

	ok, err := mem.Exists(ctx, PriceKey("AAPL", "2024-01-01", "2024-01-31"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCachedProviderDoesNotCacheEmpty(t *testing.T) {
	up := &fakeUpstream{}
	mem := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mem.Close()
	p := NewCachedProvider(up, WithCache(mem, time.Minute))

	for i := 0; i < 2; i++ {
		bars, err := p.GetPrices(context.Background(), "AAPL", "2024-01-01", "2024-01-31")
		require.NoError(t, err)
		assert.Empty(t, bars)
	}
	assert.Equal(t, 2, up.calls)
}

func TestCachedProviderFallsBackToStore(t *testing.T) {
	upErr := &APIError{Status: 503, Recoverable: true, Message: "down"}
	up := &fakeUpstream{err: upErr}
	store := newFakeStore()
	store.stored["AAPL"] = []models.PriceBar{{Close: models.Num(5), Time: day(3)}}
	p := NewCachedProvider(up, WithBarStore(store))

	bars, err := p.GetPrices(context.Background(), "AAPL", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, models.Num(5), bars[0].Close)
	assert.True(t, store.from.Equal(day(1)))
	assert.Equal(t, "2024-01-31", store.to.Format("2006-01-02"))
}

func TestCachedProviderReportsUnavailable(t *testing.T) {
	upErr := &APIError{Status: 401, Message: "bad key"}
	p := NewCachedProvider(&fakeUpstream{err: upErr}, WithBarStore(newFakeStore()))

	_, err := p.GetPrices(context.Background(), "AAPL", "2024-01-01", "2024-01-31")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.Status)
}

func TestCachedProviderWithoutStorePassesErrorThrough(t *testing.T) {
	upErr := &APIError{Status: 429, Recoverable: true, Message: "slow down"}
	_, err := NewCachedProvider(&fakeUpstream{err: upErr}).GetPrices(context.Background(), "AAPL", "2024-01-01", "2024-01-31")
	assert.Same(t, upErr, err)
}
