package pricing

import (
	"context"
	"sync"
	"time"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/logger"
)

// SnapshotStore persists the latest quote per asset so the cache can
// warm-start after a restart.
type SnapshotStore interface {
	SaveQuotes(quotes []Quote) error
	LoadQuotes() ([]Quote, error)
}

// Cache owns the dashboard's price state: quotes are fetched through the
// configured providers by Refresh and served by Get until they age past the
// TTL. The clock is injected so TTL behavior is testable.
type Cache struct {
	mu        sync.RWMutex
	providers []Provider
	assets    []string
	ttl       time.Duration
	now       func() time.Time
	store     SnapshotStore
	quotes    map[string]Quote
}

// NewCache creates a price cache over the given providers. Providers are
// consulted in order; the first one that returns a price for an asset wins.
// A nil store disables snapshot persistence.
func NewCache(providers []Provider, assets []string, ttl time.Duration, now func() time.Time, store SnapshotStore) *Cache {
	if now == nil {
		now = time.Now
	}
	c := &Cache{
		providers: providers,
		assets:    assets,
		ttl:       ttl,
		now:       now,
		store:     store,
		quotes:    make(map[string]Quote),
	}
	if store != nil {
		quotes, err := store.LoadQuotes()
		if err != nil {
			logger.Get().Warnw("price snapshot load failed", "error", err.Error())
		}
		for _, quote := range quotes {
			c.quotes[quote.Asset] = quote
		}
	}
	return c
}

// Get returns the cached quote for an asset. Quotes older than the TTL are
// treated as missing.
func (c *Cache) Get(asset string) (Quote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	quote, ok := c.quotes[asset]
	if !ok {
		return Quote{}, apperrors.ErrPriceUnavailable
	}
	if c.now().Sub(quote.FetchedAt) > c.ttl {
		return Quote{}, apperrors.WithMessage(apperrors.ErrPriceUnavailable, "Cached price for "+asset+" has expired")
	}
	return quote, nil
}

// All returns every currently fresh quote.
func (c *Cache) All() []Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	quotes := make([]Quote, 0, len(c.quotes))
	for _, quote := range c.quotes {
		if now.Sub(quote.FetchedAt) <= c.ttl {
			quotes = append(quotes, quote)
		}
	}
	return quotes
}

// Refresh fetches fresh quotes for all configured assets. Assets a provider
// cannot price fall through to the next provider; fetch failures leave the
// previous quote in place until it expires.
func (c *Cache) Refresh(ctx context.Context) {
	remaining := make(map[string]bool, len(c.assets))
	for _, asset := range c.assets {
		remaining[asset] = true
	}

	fetchedAt := c.now()
	for _, provider := range c.providers {
		if len(remaining) == 0 {
			break
		}
		pending := make([]string, 0, len(remaining))
		for asset := range remaining {
			pending = append(pending, asset)
		}

		prices, err := provider.FetchPrices(ctx, pending)
		if err != nil {
			logger.Get().Warnw("price fetch failed",
				"provider", provider.Name(),
				"error", err.Error(),
			)
		}
		for asset, price := range prices {
			c.mu.Lock()
			c.quotes[asset] = Quote{
				Asset:     asset,
				PriceUSD:  price,
				Source:    provider.Name(),
				FetchedAt: fetchedAt,
			}
			c.mu.Unlock()
			delete(remaining, asset)
		}
	}

	if c.store != nil {
		if err := c.store.SaveQuotes(c.All()); err != nil {
			logger.Get().Warnw("price snapshot save failed", "error", err.Error())
		}
	}
}

// RunRefreshLoop refreshes the cache at the given interval until the
// context is cancelled. Intended to be run as the single background task
// owned by main.
func (c *Cache) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	c.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}
