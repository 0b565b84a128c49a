// Package indexing generates and stores profile embeddings.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/thepool/internal/domain"
	"github.com/kailas-cloud/thepool/internal/domain/batch"
	"github.com/kailas-cloud/thepool/internal/domain/profile"
	"github.com/kailas-cloud/thepool/internal/logger"
)

// Defaults.
const (
	DefaultMinTextLength = 10
	DefaultWorkers       = 4
)

// Service embeds profiles.
type Service struct {
	store   ProfileStore
	embed   domain.Embedder
	minText int
	workers int
	logger  *zap.Logger
}

// New creates an indexing service.
func New(store ProfileStore, embed domain.Embedder, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{
		store:   store,
		embed:   embed,
		minText: DefaultMinTextLength,
		workers: DefaultWorkers,
		logger:  l,
	}
}

// WithMinTextLength sets the shortest embeddable text, in runes.
func (s *Service) WithMinTextLength(n int) *Service {
	if n > 0 {
		s.minText = n
	}
	return s
}

// WithWorkers bounds reindex concurrency.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// EmbedProfile (re)generates one profile's embedding.
// Returns domain.ErrProfileNotFound or domain.ErrNotEnoughText when there is nothing to do.
func (s *Service) EmbedProfile(ctx context.Context, id string) error {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	return s.embedOne(ctx, &p)
}

// Reindex embeds every profile without an embedding, or every profile when all is set.
// Individual failures are reported per item. Quota and rate-limit errors stop the run;
// profiles not yet started are reported with that error.
func (s *Service) Reindex(ctx context.Context, all bool) ([]batch.Result, error) {
	profiles, err := s.store.ListProfiles(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	todo := make([]profile.Profile, 0, len(profiles))
	for i := range profiles {
		if all || !profiles[i].HasEmbedding() {
			todo = append(todo, profiles[i])
		}
	}

	log := logger.FromContextOr(ctx, s.logger)
	log.Info("Reindex started",
		zap.Int("profiles", len(profiles)),
		zap.Int("pending", len(todo)),
		zap.Bool("all", all),
	)

	results := make([]batch.Result, len(todo))
	var (
		mu   sync.Mutex
		stop error
	)
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i := range todo {
		p := &todo[i]
		g.Go(func() error {
			mu.Lock()
			halted := stop
			mu.Unlock()
			if halted != nil {
				results[i] = batch.NewError(p.ID, halted)
				return nil
			}
			if err := ctx.Err(); err != nil {
				results[i] = batch.NewError(p.ID, err)
				return nil
			}

			err := s.embedOne(ctx, p)
			switch {
			case err == nil:
				results[i] = batch.NewOK(p.ID)
			case errors.Is(err, domain.ErrNotEnoughText):
				results[i] = batch.NewSkipped(p.ID, err)
			default:
				results[i] = batch.NewError(p.ID, err)
				log.Warn("Profile embedding failed", zap.String("profile_id", p.ID), zap.Error(err))
				if errors.Is(err, domain.ErrEmbeddingQuotaExceeded) || errors.Is(err, domain.ErrRateLimited) {
					mu.Lock()
					if stop == nil {
						stop = err
					}
					mu.Unlock()
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := batch.Summarize(results)
	log.Info("Reindex finished",
		zap.Int("success", sum.OK),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)
	if stop != nil {
		return results, fmt.Errorf("reindex halted: %w", stop)
	}
	return results, ctx.Err()
}

func (s *Service) embedOne(ctx context.Context, p *profile.Profile) error {
	text := p.EmbeddingText()
	if utf8.RuneCountInString(strings.TrimSpace(text)) < s.minText {
		return fmt.Errorf("profile %s: %w", p.ID, domain.ErrNotEnoughText)
	}

	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed profile %s: %w", p.ID, err)
	}

	if err := s.store.SetEmbedding(ctx, p.ID, res.Embedding); err != nil {
		return fmt.Errorf("store embedding %s: %w", p.ID, err)
	}
	return nil
}
