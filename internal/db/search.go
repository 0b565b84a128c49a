package db

import "github.com/kailas-cloud/thepool/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // index attribute holding the vector; "embedding" when empty
	Vector       []float32
	K            int
	Filters      filter.Expression
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// For KNN hits Score is the cosine similarity 1-distance, clamped to [0,1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
