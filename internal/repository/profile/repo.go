// Package profile stores pool profiles as JSON documents in Valkey/Redis and serves
// KNN lookups over their embeddings through an FT vector index.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/thepool/internal/db"
	"github.com/kailas-cloud/thepool/internal/domain"
	"github.com/kailas-cloud/thepool/internal/domain/pool"
	domprofile "github.com/kailas-cloud/thepool/internal/domain/profile"
	"github.com/kailas-cloud/thepool/internal/domain/search/filter"
)

// store is the consumer interface for profiles (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Options configures the vector index.
type Options struct {
	Dimensions     int
	Algorithm      db.VectorAlgorithm
	M              int
	EFConstruction int
}

// Repo implements the profile reader, vector searcher and writer used by the usecases.
type Repo struct {
	store  store
	opts   Options
	logger *zap.Logger
}

// New creates a profile repository.
func New(s store, opts Options) *Repo {
	return &Repo{store: s, opts: opts, logger: zap.NewNop()}
}

// WithLogger sets the logger used to report undecodable documents.
func (r *Repo) WithLogger(l *zap.Logger) *Repo {
	if l != nil {
		r.logger = l
	}
	return r
}

// EnsureIndex creates the profile vector index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := r.indexDefinition()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// RecreateIndex drops the vector index and builds it again from the current options.
// Stored documents are kept and re-indexed by the server.
func (r *Repo) RecreateIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index: %w", err)
	}
	return r.EnsureIndex(ctx)
}

func (r *Repo) indexDefinition() (*db.IndexDefinition, error) {
	return db.NewIndex(indexName()).
		OnJSON().
		Prefix(keyPrefix()).
		Tag("$.id").As("id").
		Vector("$.embedding", r.opts.Dimensions, r.opts.Algorithm, db.DistanceCosine,
			r.opts.M, r.opts.EFConstruction).As("embedding").
		Build()
}

// ListProfiles returns every stored profile except excludeID, ordered by key.
func (r *Repo) ListProfiles(ctx context.Context, excludeID string) ([]domprofile.Profile, error) {
	keys, err := r.store.Scan(ctx, keyPrefix()+"*")
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}
	sort.Strings(keys)

	if excludeID != "" {
		skip := profileKey(excludeID)
		filtered := keys[:0]
		for _, k := range keys {
			if k != skip {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}

	docs, err := r.store.JSONGetMulti(ctx, keys, "$")
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}

	out := make([]domprofile.Profile, 0, len(docs))
	for i, raw := range docs {
		if raw == nil {
			continue // deleted between SCAN and JSON.GET
		}
		p, err := decode(raw)
		if err != nil {
			r.logger.Warn("Skipping undecodable profile", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// VectorSearch returns up to limit nearest profiles to vector, excluding excludeID,
// ordered by similarity descending.
func (r *Repo) VectorSearch(ctx context.Context, vector []float32, excludeID string, limit int) ([]pool.Match, error) {
	if limit <= 0 {
		return nil, nil
	}
	if r.opts.Dimensions > 0 && len(vector) != r.opts.Dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(vector), r.opts.Dimensions)
	}

	q := &db.KNNQuery{
		IndexName:    indexName(),
		VectorField:  "embedding",
		Vector:       vector,
		K:            limit,
		Filters:      filter.ExcludeID(excludeID),
		ReturnFields: []string{"id"},
	}

	res, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	matches := make([]pool.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := e.Fields["id"]
		if id == "" {
			id = extractID(e.Key)
		}
		if id == excludeID {
			continue
		}
		matches = append(matches, pool.Match{ProfileID: id, Similarity: e.Score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches, nil
}

// Get returns a profile by ID.
func (r *Repo) Get(ctx context.Context, id string) (domprofile.Profile, error) {
	raw, err := r.store.JSONGet(ctx, profileKey(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domprofile.Profile{}, domain.ErrProfileNotFound
		}
		return domprofile.Profile{}, fmt.Errorf("json.get %s: %w", id, err)
	}
	return decode(raw)
}

// Upsert writes the whole profile document. Returns true if it was created.
func (r *Repo) Upsert(ctx context.Context, p *domprofile.Profile) (bool, error) {
	key := profileKey(p.ID)
	data, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("marshal profile: %w", err)
	}

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return false, fmt.Errorf("json.set %s: %w", key, err)
	}
	return !exists, nil
}

// SetEmbedding replaces the stored embedding of an existing profile.
func (r *Repo) SetEmbedding(ctx context.Context, id string, vector []float32) error {
	if r.opts.Dimensions > 0 && len(vector) != r.opts.Dimensions {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(vector), r.opts.Dimensions)
	}

	key := profileKey(id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrProfileNotFound
	}

	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	if err := r.store.JSONSet(ctx, key, "$.embedding", data); err != nil {
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// Delete removes a profile.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := profileKey(id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrProfileNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// decode parses a JSON.GET "$" reply, which wraps the document in an array.
func decode(raw []byte) (domprofile.Profile, error) {
	var docs []domprofile.Profile
	if err := json.Unmarshal(raw, &docs); err != nil {
		return domprofile.Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	if len(docs) == 0 {
		return domprofile.Profile{}, domain.ErrProfileNotFound
	}
	return docs[0], nil
}

func keyPrefix() string {
	return domain.KeyPrefix + "profile:"
}

func profileKey(id string) string {
	return keyPrefix() + id
}

func indexName() string {
	return domain.KeyPrefix + "profile:idx"
}

func extractID(key string) string {
	return strings.TrimPrefix(key, keyPrefix())
}
