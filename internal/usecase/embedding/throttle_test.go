package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/thepool/internal/domain"
)

func TestThrottled_BurstPassesImmediately(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	th := NewThrottled(inner, 1, 3, "openai")

	for i := 0; i < 3; i++ {
		if _, err := th.Embed(context.Background(), "q"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d", inner.calls)
	}
}

func TestThrottled_DeadlineBecomesRateLimited(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	th := NewThrottled(inner, 0.01, 1, "openai")

	if _, err := th.Embed(context.Background(), "first"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := th.Embed(ctx, "second")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("throttled call must not reach provider, calls = %d", inner.calls)
	}
}

func TestThrottled_Disabled(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	th := NewThrottled(inner, 0, 0, "openai")

	for i := 0; i < 100; i++ {
		if _, err := th.Embed(context.Background(), "q"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestThrottled_BatchCostsOneToken(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	th := NewThrottled(inner, 0.01, 1, "openai")

	res, err := th.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 3 || len(inner.batchSizes) != 1 {
		t.Errorf("unexpected batch result %+v sizes=%v", res, inner.batchSizes)
	}
}
