// Package app is the composition root shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/thepool/internal/config"
	"github.com/kailas-cloud/thepool/internal/db"
	dbValkey "github.com/kailas-cloud/thepool/internal/db/valkey"
	"github.com/kailas-cloud/thepool/internal/domain"
	domprofile "github.com/kailas-cloud/thepool/internal/domain/profile"
	"github.com/kailas-cloud/thepool/internal/metrics"
	budgetrepo "github.com/kailas-cloud/thepool/internal/repository/budget"
	"github.com/kailas-cloud/thepool/internal/repository/embcache"
	profilerepo "github.com/kailas-cloud/thepool/internal/repository/profile"
	"github.com/kailas-cloud/thepool/internal/repository/profilesql"
	chiTransport "github.com/kailas-cloud/thepool/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/thepool/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/thepool/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/thepool/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/thepool/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/thepool/internal/usecase/search"
)

// Profiles is everything the use cases need from profile storage.
type Profiles interface {
	searchuc.ProfileReader
	searchuc.VectorSearcher
	indexinguc.ProfileStore
	Upsert(ctx context.Context, p *domprofile.Profile) (bool, error)
	EnsureIndex(ctx context.Context) error
	RecreateIndex(ctx context.Context) error
}

// App holds wired services. Close releases storage.
type App struct {
	Config   config.Config
	Profiles Profiles
	Search   *searchuc.Service
	Indexer  *indexinguc.Service
	Health   *healthuc.Service
	Budget   *embeddinguc.Budget // nil when no limit is configured
	Embedder domain.Embedder

	logger *zap.Logger
	close  func()
}

// New connects storage and builds the embedder chain and services.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if cfg.Embedding.APIKey == "" {
		return nil, errors.New("embedding.api_key is required")
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	a := &App{Config: cfg, logger: logger}

	var (
		kv     embcache.Store
		pinger healthuc.DBPinger
		counts embeddinguc.CounterStore
	)
	switch cfg.Database.Driver {
	case config.DriverValkey, config.DriverRedis:
		store, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		algo, err := db.ParseVectorAlgorithm(cfg.Index.Algorithm)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.Profiles = profilerepo.New(store, profilerepo.Options{
			Dimensions:     cfg.Embedding.Dimensions,
			Algorithm:      algo,
			M:              cfg.Index.HNSWM,
			EFConstruction: cfg.Index.HNSWEFConstruct,
		}).WithLogger(logger)
		kv, pinger, counts = store, store, budgetrepo.New(store)
		a.close = store.Close
	case config.DriverSQLite:
		repo, err := profilesql.Open(ctx, cfg.Database.SQLitePath, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		repo.WithLogger(logger)
		a.Profiles, pinger = repo, repo
		a.close = func() { _ = repo.Close() }
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if err := a.Profiles.EnsureIndex(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure profile index: %w", err)
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	ec := cfg.Embedding
	if ec.Budget.Enabled() {
		a.Budget = embeddinguc.NewBudget(ec.Provider, ec.Budget.DailyTokenLimit, ec.Budget.MonthlyTokenLimit,
			embeddinguc.ParseAction(ec.Budget.Action), logger)
		if counts != nil {
			a.Budget.Persist(ctx, counts)
		}
	}
	metered := buildEmbedder(ec, kv, a.Budget, logger)
	a.Embedder = metered
	logger.Info("Embedder created",
		zap.String("provider", ec.Provider),
		zap.String("model", ec.Model),
		zap.Int("dimensions", ec.Dimensions),
		zap.Bool("budget", a.Budget != nil),
		zap.Bool("cache", kv != nil),
	)

	a.Search = searchuc.New(a.Profiles, a.Profiles, a.Embedder, searchConfig(cfg), logger)
	a.Indexer = indexinguc.New(a.Profiles, a.Embedder, logger).
		WithMinTextLength(cfg.Index.MinTextLength).
		WithWorkers(cfg.Index.ReindexWorkers)

	a.Health = healthuc.New(pinger, metered)
	if a.Budget != nil {
		a.Health.WithBudget(a.Budget, embeddinguc.PeriodDaily, embeddinguc.PeriodMonthly)
	}
	return a, nil
}

// Server builds the HTTP API over the wired services.
func (a *App) Server() *chiTransport.Server {
	s := chiTransport.NewServer(a.Search, a.Indexer, a.Health, a.logger).
		WithCanvas(searchConfig(a.Config).Layout).
		WithAPIKeys(a.Config.Auth.APIKeys)
	if a.Budget != nil {
		s.WithUsage(a.Budget)
	}
	return s
}

// Close releases storage connections.
func (a *App) Close() {
	if a.close != nil {
		a.close()
	}
}

func searchConfig(cfg config.Config) searchuc.Config {
	sc := searchuc.DefaultConfig()
	sc.SemanticTopK = cfg.Search.SemanticTopK
	sc.EmbeddingTimeout = cfg.Search.EmbeddingTimeout()
	sc.DiscoveryFallback = cfg.Search.Fallback()
	sc.DiscoverySample = cfg.Search.FallbackSampleSize
	sc.Layout = searchuc.Layout{
		CenterX: cfg.Layout.CenterX,
		CenterY: cfg.Layout.CenterY,
		Radius:  cfg.Layout.Radius,
		Groups:  cfg.Layout.GroupCount,
	}
	return sc
}

// buildEmbedder assembles the decorator chain: OpenAI -> Throttled -> Cached -> Metered.
// kv may be nil (no cache); budget may be nil (no limits).
func buildEmbedder(ec config.EmbeddingConfig, kv embcache.Store, budget *embeddinguc.Budget, logger *zap.Logger) *embeddinguc.Metered {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = embeddinguc.NewThrottled(base, ec.RequestsPerSecond, ec.Burst, ec.Provider)
	if kv != nil {
		embedder = embcache.New(embedder, kv, ec.Model, ec.CacheTTL(), logger)
	}

	// Pass a nil interface, not a typed nil pointer.
	var limiter embeddinguc.Limiter
	if budget != nil {
		limiter = budget
	}
	return embeddinguc.NewMetered(embedder, limiter, ec.Provider, ec.Model, logger)
}
