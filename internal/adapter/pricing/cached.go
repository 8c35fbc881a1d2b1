package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

const (
	// DefaultCacheTTL is how long a served quote stays fresh
	DefaultCacheTTL = 60 * time.Second
	// DefaultCacheCapacity is the number of identifiers kept
	DefaultCacheCapacity = 10_000
)

// Cached decorates a PriceLookup with a TTL cache keyed by identifier.
// Only successful lookups are cached, so an unavailable price is retried on the next call.
type Cached struct {
	next  domain.PriceLookup
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCached wraps next with a cache holding up to capacity identifiers for ttl
func NewCached(next domain.PriceLookup, capacity int64, ttl time.Duration) (*Cached, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: capacity * 10,
		MaxCost:     capacity,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create price cache: %w", err)
	}
	return &Cached{next: next, cache: c, ttl: ttl}, nil
}

// Lookup serves a cached price when present, otherwise asks the wrapped lookup
func (c *Cached) Lookup(ctx context.Context, identifier string) (decimal.Decimal, error) {
	if v, ok := c.cache.Get(identifier); ok {
		if price, ok := v.(decimal.Decimal); ok {
			return price, nil
		}
	}

	price, err := c.next.Lookup(ctx, identifier)
	if err != nil {
		return decimal.Zero, err
	}
	c.cache.SetWithTTL(identifier, price, 1, c.ttl)
	return price, nil
}

// Invalidate drops the cached price of identifier, e.g. after a new quote was recorded
func (c *Cached) Invalidate(identifier string) {
	c.cache.Del(identifier)
}

// Wait blocks until buffered writes are visible to Lookup
func (c *Cached) Wait() {
	c.cache.Wait()
}

// Close stops the cache's background goroutines
func (c *Cached) Close() {
	c.cache.Close()
}

var _ domain.PriceLookup = (*Cached)(nil)
