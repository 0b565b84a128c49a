package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects token usage for a single search or reindex request.
// The handler puts a mutable pointer into the context, the service records after
// embedding, and the handler reads it back for response headers.
type EmbeddingUsage struct {
	TotalTokens int
	Calls       int
	Used        bool // set even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records one embedding call and the tokens it consumed. Safe on a nil receiver.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u != nil {
		u.TotalTokens += n
		u.Calls++
		u.Used = true
	}
}
