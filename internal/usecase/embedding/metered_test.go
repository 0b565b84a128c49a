package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/thepool/internal/domain"
)

func TestMetered_EmbedRecordsUsage(t *testing.T) {
	clock := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	b := newTestBudget(&clock, 1000, 0, ActionReject)
	inner := &mockEmbedder{vec: []float32{0.1, 0.2}, tokens: 12}
	m := NewMetered(inner, b, "openai", "text-embedding-3-small", zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	res, err := m.Embed(ctx, "react developer")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != 2 {
		t.Errorf("unexpected vector %v", res.Embedding)
	}
	if usage.TotalTokens != 12 || usage.Calls != 1 || !usage.Used {
		t.Errorf("usage = %+v", usage)
	}
	if got := b.Remaining(PeriodDaily); got != 988 {
		t.Errorf("remaining = %d, want 988", got)
	}
}

func TestMetered_CacheHitStillMarksUsage(t *testing.T) {
	m := NewMetered(&mockEmbedder{vec: []float32{1}}, nil, "openai", "m", zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	if _, err := m.Embed(ctx, "q"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if !usage.Used || usage.TotalTokens != 0 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestMetered_RejectsWhenBudgetSpent(t *testing.T) {
	clock := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	b := newTestBudget(&clock, 10, 0, ActionReject)
	b.Spend(10)
	inner := &mockEmbedder{vec: []float32{1}}
	m := NewMetered(inner, b, "openai", "m", zap.NewNop())

	_, err := m.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if inner.calls != 0 {
		t.Error("provider must not be called once the budget is spent")
	}
}

func TestMetered_InnerErrorIsWrapped(t *testing.T) {
	m := NewMetered(&mockEmbedder{err: domain.ErrEmbeddingProviderError}, nil, "openai", "m", zap.NewNop())

	if _, err := m.Embed(context.Background(), "q"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestMetered_BatchChunks(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.5}, tokens: 1}
	m := NewMetered(inner, nil, "openai", "m", zap.NewNop())

	texts := make([]string, MaxBatchSize+10)
	for i := range texts {
		texts[i] = "profile"
	}
	res, err := m.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != len(texts) {
		t.Fatalf("got %d embeddings, want %d", len(res.Embeddings), len(texts))
	}
	if len(inner.batchSizes) != 2 || inner.batchSizes[0] != MaxBatchSize || inner.batchSizes[1] != 10 {
		t.Errorf("chunk sizes = %v", inner.batchSizes)
	}
	if res.TotalTokens != len(texts) {
		t.Errorf("TotalTokens = %d", res.TotalTokens)
	}
}

func TestMetered_BatchStopsWhenBudgetRunsOutMidway(t *testing.T) {
	clock := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	b := newTestBudget(&clock, MaxBatchSize, 0, ActionReject)
	inner := &mockEmbedder{vec: []float32{0.5}, tokens: 1}
	m := NewMetered(inner, b, "openai", "m", zap.NewNop())

	texts := make([]string, MaxBatchSize+1)
	_, err := m.BatchEmbed(context.Background(), texts)
	if !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected quota error on second chunk, got %v", err)
	}
	if len(inner.batchSizes) != 1 {
		t.Errorf("expected one provider call, got %v", inner.batchSizes)
	}
}

func TestMetered_BatchFallback(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.3}, tokens: 2}
	m := NewMetered(singleEmbedder{inner}, nil, "openai", "m", zap.NewNop())

	res, err := m.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if inner.calls != 3 || res.TotalTokens != 6 {
		t.Errorf("calls=%d tokens=%d", inner.calls, res.TotalTokens)
	}
}

func TestMetered_BatchEmpty(t *testing.T) {
	m := NewMetered(&mockEmbedder{}, nil, "openai", "m", zap.NewNop())
	res, err := m.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil {
		t.Fatalf("expected empty result, got %+v %v", res, err)
	}
}
