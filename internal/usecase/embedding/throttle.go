package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/thepool/internal/domain"
	"github.com/kailas-cloud/thepool/internal/metrics"
)

// Throttled spaces provider calls with a token bucket. One call costs one token,
// batch or not. Callers block until a token frees up or ctx ends.
type Throttled struct {
	inner    domain.Embedder
	limiter  *rate.Limiter
	provider string
}

// NewThrottled allows rps calls per second with the given burst.
// A non-positive rps disables throttling.
func NewThrottled(inner domain.Embedder, rps float64, burst int, provider string) *Throttled {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{inner: inner, limiter: rate.NewLimiter(limit, burst), provider: provider}
}

// Embed waits for a token, then delegates.
func (t *Throttled) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := t.wait(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}
	return t.inner.Embed(ctx, text)
}

// BatchEmbed waits for a single token for the whole batch.
func (t *Throttled) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	be, ok := t.inner.(domain.BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, t, texts)
	}
	if err := t.wait(ctx); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	return be.BatchEmbed(ctx, texts)
}

// HealthCheck bypasses the limiter.
func (t *Throttled) HealthCheck(ctx context.Context) error {
	if hc, ok := t.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (t *Throttled) wait(ctx context.Context) error {
	if t.limiter.Allow() {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		metrics.EmbeddingThrottledTotal.WithLabelValues(t.provider, "rejected").Inc()
		return fmt.Errorf("embedding rate limiter: %w: %w", domain.ErrRateLimited, err)
	}
	metrics.EmbeddingThrottledTotal.WithLabelValues(t.provider, "waited").Inc()
	return nil
}
