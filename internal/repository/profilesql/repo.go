// Package profilesql is a single-file profile store on SQLite (modernc.org/sqlite, no CGo).
// Vector search is brute-force cosine over every stored embedding, which is adequate for
// local development and small pools.
package profilesql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/thepool/internal/domain"
	"github.com/kailas-cloud/thepool/internal/domain/pool"
	domprofile "github.com/kailas-cloud/thepool/internal/domain/profile"
	"github.com/kailas-cloud/thepool/internal/domain/search/filter"
)

// Repo implements the same profile contracts as the Valkey repository.
type Repo struct {
	db         *sql.DB
	dimensions int
	logger     *zap.Logger
}

// Open opens (creating if needed) the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, dimensions int) (*Repo, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &Repo{db: db, dimensions: dimensions, logger: zap.NewNop()}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return r, nil
}

// WithLogger sets the logger used to report undecodable rows.
func (r *Repo) WithLogger(l *zap.Logger) *Repo {
	if l != nil {
		r.logger = l
	}
	return r
}

// Ping checks the database handle.
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the database.
func (r *Repo) Close() error {
	return r.db.Close()
}

// EnsureIndex is a no-op: search scans the table.
func (r *Repo) EnsureIndex(context.Context) error { return nil }

// RecreateIndex is a no-op for the same reason.
func (r *Repo) RecreateIndex(context.Context) error { return nil }

// ListProfiles returns every profile except excludeID, ordered by id.
// Rows that fail to decode are logged and skipped.
func (r *Repo) ListProfiles(ctx context.Context, excludeID string) ([]domprofile.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, doc, embedding FROM profiles WHERE id != ? ORDER BY id`, excludeID)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []domprofile.Profile
	for rows.Next() {
		var (
			id, doc string
			emb     sql.NullString
		)
		if err := rows.Scan(&id, &doc, &emb); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p, err := decodeRow(doc, emb)
		if err != nil {
			r.logger.Warn("Skipping undecodable profile", zap.String("id", id), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

// VectorSearch ranks every embedded profile by cosine similarity to vector and returns
// the best limit, excluding excludeID. Similarity is clamped to [0,1].
func (r *Repo) VectorSearch(ctx context.Context, vector []float32, excludeID string, limit int) ([]pool.Match, error) {
	if limit <= 0 {
		return nil, nil
	}
	if r.dimensions > 0 && len(vector) != r.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(vector), r.dimensions)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, embedding FROM profiles WHERE embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	exclude := filter.ExcludeID(excludeID)
	var matches []pool.Match
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		if !exclude.Matches(map[string]string{"id": id}) {
			continue
		}
		var emb []float32
		if err := json.Unmarshal([]byte(raw), &emb); err != nil || len(emb) != len(vector) {
			continue
		}
		matches = append(matches, pool.Match{ProfileID: id, Similarity: cosineSimilarity(vector, emb)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Get returns a profile by ID.
func (r *Repo) Get(ctx context.Context, id string) (domprofile.Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT doc, embedding FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domprofile.Profile{}, domain.ErrProfileNotFound
	}
	return p, err
}

// Upsert writes the whole profile. Returns true if it was created.
func (r *Repo) Upsert(ctx context.Context, p *domprofile.Profile) (bool, error) {
	doc, emb, err := encode(p)
	if err != nil {
		return false, err
	}

	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE id = ?`, p.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check exists %s: %w", p.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, doc, embedding, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			doc = excluded.doc,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`, p.ID, doc, emb)
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", p.ID, err)
	}
	return exists == 0, nil
}

// SetEmbedding replaces the stored embedding of an existing profile.
func (r *Repo) SetEmbedding(ctx context.Context, id string, vector []float32) error {
	if r.dimensions > 0 && len(vector) != r.dimensions {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(vector), r.dimensions)
	}
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET embedding = ?, updated_at = datetime('now') WHERE id = ?`, string(data), id)
	if err != nil {
		return fmt.Errorf("update embedding %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// Delete removes a profile.
func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (domprofile.Profile, error) {
	var doc string
	var emb sql.NullString
	if err := s.Scan(&doc, &emb); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domprofile.Profile{}, err
		}
		return domprofile.Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	return decodeRow(doc, emb)
}

func decodeRow(doc string, emb sql.NullString) (domprofile.Profile, error) {
	var p domprofile.Profile
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return domprofile.Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	if emb.Valid {
		if err := json.Unmarshal([]byte(emb.String), &p.Embedding); err != nil {
			return domprofile.Profile{}, fmt.Errorf("unmarshal embedding: %w", err)
		}
	}
	return p, nil
}

// encode splits a profile into its document and its nullable embedding column.
func encode(p *domprofile.Profile) (string, sql.NullString, error) {
	bare := *p
	bare.Embedding = nil
	doc, err := json.Marshal(&bare)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("marshal profile: %w", err)
	}
	if !p.HasEmbedding() {
		return string(doc), sql.NullString{}, nil
	}
	emb, err := json.Marshal(p.Embedding)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("marshal embedding: %w", err)
	}
	return string(doc), sql.NullString{String: string(emb), Valid: true}, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	switch {
	case math.IsNaN(sim), sim < 0:
		return 0
	case sim > 1:
		return 1
	default:
		return sim
	}
}
