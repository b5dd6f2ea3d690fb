package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Provider with a token bucket. Bulk operations
// (re-indexing, memo splitting) would otherwise burst hundreds of chunk
// embeddings at the upstream model.
type RateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimited creates a rate-limited Provider.
// perSecond is the sustained request rate; burst is the initial allowance.
func NewRateLimited(inner Provider, perSecond float64, burst int) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// EmbedText blocks until a token is available or ctx is done, then
// delegates to the wrapped provider.
func (r *RateLimited) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.inner.EmbedText(ctx, text)
}
