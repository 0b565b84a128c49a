package indexing

import (
	"context"

	"github.com/kailas-cloud/thepool/internal/domain/profile"
)

// ProfileStore reads profiles and writes their embeddings.
type ProfileStore interface {
	ListProfiles(ctx context.Context, excludeID string) ([]profile.Profile, error)
	Get(ctx context.Context, id string) (profile.Profile, error)
	SetEmbedding(ctx context.Context, id string, vector []float32) error
}
