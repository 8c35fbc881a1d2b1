package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// DefaultRateLimit is the number of lookups per second passed to the wrapped source
const DefaultRateLimit = 10

// RateLimited throttles lookups against a quote source with a token bucket
type RateLimited struct {
	next    domain.PriceLookup
	limiter *rate.Limiter
}

// RateLimitOption configures a RateLimited lookup
type RateLimitOption func(*RateLimited)

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) RateLimitOption {
	return func(r *RateLimited) {
		if requestsPerSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithLimiter uses an existing limiter, shared with other clients of the same source
func WithLimiter(l *rate.Limiter) RateLimitOption {
	return func(r *RateLimited) {
		r.limiter = l
	}
}

// NewRateLimited wraps next with a limiter
func NewRateLimited(next domain.PriceLookup, opts ...RateLimitOption) *RateLimited {
	r := &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup waits for a token, then delegates.
// A wait cut short by the context is reported as an unavailable price.
func (r *RateLimited) Lookup(ctx context.Context, identifier string) (decimal.Decimal, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("%w: rate limit wait: %v", domain.ErrPriceUnavailable, err)
	}
	return r.next.Lookup(ctx, identifier)
}

var _ domain.PriceLookup = (*RateLimited)(nil)
