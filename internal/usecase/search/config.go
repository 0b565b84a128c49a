package search

import (
	"time"

	"github.com/kailas-cloud/thepool/internal/ranking/fusion"
	"github.com/kailas-cloud/thepool/internal/ranking/layout"
)

// Layout positions the result canvas.
type Layout struct {
	CenterX float64
	CenterY float64
	Radius  float64
	Groups  int // 0 disables grouping
}

// DefaultLayout is a single 280px canvas split into four groups.
func DefaultLayout() Layout {
	return Layout{
		CenterX: layout.DefaultCenterX,
		CenterY: layout.DefaultCenterY,
		Radius:  layout.DefaultRadius,
		Groups:  layout.DefaultGroupCount,
	}
}

// Config tunes the search pipeline.
type Config struct {
	Weights           fusion.Weights
	SemanticTopK      int
	EmbeddingTimeout  time.Duration
	DiscoveryFallback bool
	DiscoverySample   int
	Layout            Layout
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Weights:           fusion.DefaultWeights(),
		SemanticTopK:      100,
		EmbeddingTimeout:  3 * time.Second,
		DiscoveryFallback: true,
		DiscoverySample:   20,
		Layout:            DefaultLayout(),
	}
}
