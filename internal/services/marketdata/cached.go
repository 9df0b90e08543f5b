package marketdata

import (
	"context"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/cache"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/util"
)

// PriceKey is the cache key for one exact request window.
func PriceKey(ticker, startDate, endDate string) string {
	return "prices:" + ticker + "_" + startDate + "_" + endDate
}

// CachedProvider reads through a cache to the upstream provider, writes
// fetched bars to a BarStore and falls back to that store when the upstream fails.
type CachedProvider struct {
	upstream repository.PriceProvider
	cache    cache.Service
	ttl      time.Duration
	store    repository.BarStore
	log      *applogger.Logger
}

type CachedOption func(*CachedProvider)

func WithCache(c cache.Service, ttl time.Duration) CachedOption {
	return func(p *CachedProvider) {
		p.cache = c
		p.ttl = ttl
	}
}

func WithBarStore(s repository.BarStore) CachedOption {
	return func(p *CachedProvider) { p.store = s }
}

func WithProviderLogger(l *applogger.Logger) CachedOption {
	return func(p *CachedProvider) {
		if l != nil {
			p.log = l
		}
	}
}

func NewCachedProvider(upstream repository.PriceProvider, opts ...CachedOption) *CachedProvider {
	p := &CachedProvider{upstream: upstream, ttl: time.Hour, log: applogger.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *CachedProvider) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.PriceBar, error) {
	key := PriceKey(ticker, startDate, endDate)
	return cache.GetOrLoad(ctx, p.cache, key, p.ttl, func(ctx context.Context) ([]models.PriceBar, bool, error) {
		bars, err := p.upstream.GetPrices(ctx, ticker, startDate, endDate)
		if err != nil {
			return p.fallback(ctx, ticker, startDate, endDate, err)
		}
		if len(bars) > 0 && p.store != nil {
			if serr := p.store.StoreBars(ctx, ticker, bars); serr != nil {
				p.log.Warn("bar store write failed", applogger.String("ticker", ticker), applogger.Error(serr))
			}
		}
		return bars, len(bars) > 0, nil
	})
}

// fallback serves stored bars after an upstream failure. Stored bars are not cached.
func (p *CachedProvider) fallback(ctx context.Context, ticker, startDate, endDate string, cause error) ([]models.PriceBar, bool, error) {
	if p.store == nil || ctx.Err() != nil {
		return nil, false, cause
	}
	from, ferr := util.ParseDate(startDate)
	to, terr := util.ParseDate(endDate)
	if ferr != nil || terr != nil {
		return nil, false, cause
	}
	bars, err := p.store.QueryBars(ctx, ticker, from, to.Add(24*time.Hour-time.Nanosecond))
	if err != nil || len(bars) == 0 {
		if err != nil {
			p.log.Warn("bar store read failed", applogger.String("ticker", ticker), applogger.Error(err))
		}
		return nil, false, fmt.Errorf("%w: %w", ErrDataUnavailable, cause)
	}
	p.log.Warn("serving stored bars after upstream failure",
		applogger.String("ticker", ticker),
		applogger.Int("bars", len(bars)),
		applogger.Error(cause),
	)
	return bars, false, nil
}

var _ repository.PriceProvider = (*CachedProvider)(nil)
