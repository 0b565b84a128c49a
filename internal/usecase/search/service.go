// Package search runs the pool search: semantic and lexical retrieval in parallel,
// fusion into one ranking, then layout for the bubble view.
package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/thepool/internal/domain"
	"github.com/kailas-cloud/thepool/internal/domain/pool"
	"github.com/kailas-cloud/thepool/internal/domain/search/request"
	"github.com/kailas-cloud/thepool/internal/logger"
	"github.com/kailas-cloud/thepool/internal/metrics"
	"github.com/kailas-cloud/thepool/internal/ranking/fusion"
	"github.com/kailas-cloud/thepool/internal/ranking/layout"
	"github.com/kailas-cloud/thepool/internal/ranking/lexical"
)

// Result is one search response.
type Result struct {
	Users    []pool.User
	Groups   [][]pool.User
	Mode     pool.Mode
	Semantic bool // the semantic signal took part in ranking
}

// Service is the search use case.
type Service struct {
	profiles ProfileReader
	vectors  VectorSearcher
	embed    domain.Embedder
	scorer   *lexical.Scorer
	cfg      Config
	shuffle  func(n int, swap func(i, j int))
	logger   *zap.Logger
}

// New creates a search service. vectors and embed may be nil; search then runs lexical-only.
func New(profiles ProfileReader, vectors VectorSearcher, embed domain.Embedder, cfg Config, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{
		profiles: profiles,
		vectors:  vectors,
		embed:    embed,
		scorer:   lexical.New(lexical.DefaultFields...),
		cfg:      cfg,
		shuffle:  rand.Shuffle,
		logger:   l,
	}
}

// Search ranks and lays out profiles with the configured canvas.
func (s *Service) Search(ctx context.Context, req request.Request) (Result, error) {
	return s.SearchIn(ctx, req, s.cfg.Layout)
}

// SearchIn is Search with a caller-supplied canvas.
func (s *Service) SearchIn(ctx context.Context, req request.Request, canvas Layout) (Result, error) {
	start := time.Now()

	cands, semantic, err := s.collect(ctx, req)
	if err != nil {
		return Result{}, err
	}

	fusion.Rank(cands, s.cfg.Weights)

	res := Result{Mode: pool.ModeRanked, Semantic: semantic}
	switch {
	case len(cands) == 0:
		res.Mode = pool.ModeEmpty
	case !fusion.HasSignal(cands):
		if s.cfg.DiscoveryFallback {
			res.Mode = pool.ModeDiscovery
			cands = s.sample(cands)
		} else {
			res.Mode = pool.ModeEmpty
			cands = nil
		}
	}

	if n := req.Limit(); n > 0 && len(cands) > n {
		cands = cands[:n]
	}

	users := make([]pool.User, len(cands))
	for i := range cands {
		users[i] = pool.UserFromCandidate(&cands[i])
	}
	layout.Decorate(users)
	res.Users = layout.Layout(users, canvas.CenterX, canvas.CenterY, canvas.Radius)
	if canvas.Groups > 0 {
		for _, g := range layout.DistributeInGroups(users, canvas.Groups) {
			res.Groups = append(res.Groups, layout.Layout(g, canvas.CenterX, canvas.CenterY, canvas.Radius))
		}
	}

	metrics.SearchDuration.WithLabelValues(string(res.Mode)).Observe(time.Since(start).Seconds())
	metrics.SearchResultsTotal.WithLabelValues(string(res.Mode)).Inc()
	logger.FromContextOr(ctx, s.logger).Debug("Search done",
		zap.String("mode", string(res.Mode)),
		zap.Bool("semantic", semantic),
		zap.Int("candidates", len(cands)),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// collect runs both retrieval paths and joins them into scored candidates in scan order.
func (s *Service) collect(ctx context.Context, req request.Request) ([]pool.ScoredCandidate, bool, error) {
	g, gctx := errgroup.WithContext(ctx)

	var similarity map[string]float64
	g.Go(func() error {
		similarity = s.semantic(gctx, req)
		return nil
	})

	var cands []pool.ScoredCandidate
	g.Go(func() error {
		profiles, err := s.profiles.ListProfiles(gctx, req.ExcludeID())
		if err != nil {
			return fmt.Errorf("list profiles: %w", err)
		}
		q := lexical.NewQuery(req.Query())
		cands = make([]pool.ScoredCandidate, 0, len(profiles))
		for i := range profiles {
			if profiles[i].ID == req.ExcludeID() {
				continue
			}
			cands = append(cands, pool.ScoredCandidate{
				Profile:      profiles[i],
				LexicalScore: s.scorer.Score(&profiles[i], q),
			})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	for i := range cands {
		if sim, ok := similarity[cands[i].ID()]; ok {
			cands[i].SemanticScore = sim
			cands[i].HasSemantic = true
		}
	}
	return cands, similarity != nil, nil
}

// semantic returns id -> similarity, or nil when the signal is unavailable. It never fails the search.
func (s *Service) semantic(ctx context.Context, req request.Request) map[string]float64 {
	if s.embed == nil || s.vectors == nil {
		return nil
	}
	log := logger.FromContextOr(ctx, s.logger)

	embedCtx, cancel := context.WithTimeout(ctx, s.cfg.EmbeddingTimeout)
	emb, err := s.embed.Embed(embedCtx, req.Query())
	cancel()
	if err != nil {
		reason := degradeReason(err)
		metrics.SearchDegradedTotal.WithLabelValues(reason).Inc()
		log.Warn("Semantic search unavailable, ranking lexically",
			zap.String("reason", reason),
			zap.Error(err),
		)
		return nil
	}

	matches, err := s.vectors.VectorSearch(ctx, emb.Embedding, req.ExcludeID(), s.cfg.SemanticTopK)
	if err != nil {
		metrics.SearchDegradedTotal.WithLabelValues("vector_search_error").Inc()
		log.Warn("Vector search failed, ranking lexically", zap.Error(err))
		return nil
	}

	out := make(map[string]float64, len(matches))
	for _, m := range matches {
		if m.ProfileID == req.ExcludeID() {
			continue
		}
		out[m.ProfileID] = fusion.Clamp(m.Similarity)
	}
	return out
}

// sample picks a random subset for discovery mode.
func (s *Service) sample(cands []pool.ScoredCandidate) []pool.ScoredCandidate {
	out := make([]pool.ScoredCandidate, len(cands))
	copy(out, cands)
	s.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n := s.cfg.DiscoverySample; n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func degradeReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "embed_timeout"
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return "embed_quota"
	case errors.Is(err, domain.ErrRateLimited):
		return "embed_rate_limited"
	default:
		return "embed_error"
	}
}
