package search

import (
	"context"

	"github.com/kailas-cloud/thepool/internal/domain/pool"
	"github.com/kailas-cloud/thepool/internal/domain/profile"
)

// ProfileReader lists search candidates.
type ProfileReader interface {
	ListProfiles(ctx context.Context, excludeID string) ([]profile.Profile, error)
}

// VectorSearcher finds profiles nearest to a query vector.
type VectorSearcher interface {
	VectorSearch(ctx context.Context, vector []float32, excludeID string, limit int) ([]pool.Match, error)
}
