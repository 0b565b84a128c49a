package health

import "context"

// DBPinger checks profile storage availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// BudgetReader reports tokens left per budget period (-1 when unlimited).
type BudgetReader interface {
	Remaining(period string) int64
}
