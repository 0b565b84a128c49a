// Package embedding holds the embedding decorators that sit between the provider and the services.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/thepool/internal/domain"
	"github.com/kailas-cloud/thepool/internal/logger"
	"github.com/kailas-cloud/thepool/internal/metrics"
)

// MaxBatchSize caps the number of inputs in one provider request.
const MaxBatchSize = 256

// Limiter is the budget contract the metered embedder needs.
type Limiter interface {
	Allow(ctx context.Context) error
	Spend(tokens int64)
	Remaining(period string) int64
}

// Metered enforces the token budget, records usage on the request context and logs each call.
type Metered struct {
	inner    domain.Embedder
	budget   Limiter
	provider string
	model    string
	logger   *zap.Logger
}

// NewMetered wraps inner. budget may be nil.
func NewMetered(inner domain.Embedder, budget Limiter, provider, model string, l *zap.Logger) *Metered {
	return &Metered{inner: inner, budget: budget, provider: provider, model: model, logger: l}
}

// Embed vectorizes one text.
func (m *Metered) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := m.allow(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}

	start := time.Now()
	res, err := m.inner.Embed(ctx, text)
	if err != nil {
		m.log(ctx).Warn("Embedding failed",
			zap.String("provider", m.provider),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	m.record(ctx, res.TotalTokens)
	m.log(ctx).Debug("Embedding done",
		zap.String("provider", m.provider),
		zap.String("model", m.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// BatchEmbed vectorizes texts in chunks of MaxBatchSize, re-checking the budget between chunks.
func (m *Metered) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for lo := 0; lo < len(texts); lo += MaxBatchSize {
		if err := m.allow(ctx); err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		hi := min(lo+MaxBatchSize, len(texts))

		res, err := m.batch(ctx, texts[lo:hi])
		if err != nil {
			m.log(ctx).Warn("Batch embedding failed",
				zap.String("provider", m.provider),
				zap.Int("offset", lo),
				zap.Int("size", hi-lo),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed [%d:%d]: %w", lo, hi, err)
		}
		m.record(ctx, res.TotalTokens)

		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	m.log(ctx).Debug("Batch embedding done",
		zap.String("provider", m.provider),
		zap.Int("size", len(texts)),
		zap.Duration("duration", time.Since(start)),
		zap.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}

// HealthCheck forwards to the innermost provider when it supports one.
func (m *Metered) HealthCheck(ctx context.Context) error {
	if hc, ok := m.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (m *Metered) batch(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := m.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, m.inner, texts)
}

func (m *Metered) allow(ctx context.Context) error {
	if m.budget == nil {
		return nil
	}
	if err := m.budget.Allow(ctx); err != nil {
		m.log(ctx).Error("Embedding budget exhausted", zap.String("provider", m.provider), zap.Error(err))
		return fmt.Errorf("budget: %w", err)
	}
	return nil
}

func (m *Metered) record(ctx context.Context, tokens int) {
	domain.UsageFromContext(ctx).AddTokens(tokens)
	if m.budget == nil || tokens <= 0 {
		return
	}
	m.budget.Spend(int64(tokens))
	for _, p := range []string{PeriodDaily, PeriodMonthly} {
		metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(m.provider, p).Set(float64(m.budget.Remaining(p)))
	}
}

func (m *Metered) log(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, m.logger)
}
