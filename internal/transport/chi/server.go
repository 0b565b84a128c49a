package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/thepool/internal/domain"
	"github.com/kailas-cloud/thepool/internal/domain/batch"
	"github.com/kailas-cloud/thepool/internal/domain/pool"
	"github.com/kailas-cloud/thepool/internal/domain/profile"
	"github.com/kailas-cloud/thepool/internal/domain/search/request"
	"github.com/kailas-cloud/thepool/internal/logger"
	"github.com/kailas-cloud/thepool/internal/metrics"
	embeddinguc "github.com/kailas-cloud/thepool/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/thepool/internal/usecase/health"
	searchuc "github.com/kailas-cloud/thepool/internal/usecase/search"
)

// Searcher runs pool searches.
type Searcher interface {
	SearchIn(ctx context.Context, req request.Request, canvas searchuc.Layout) (searchuc.Result, error)
}

// Indexer (re)generates profile embeddings.
type Indexer interface {
	EmbedProfile(ctx context.Context, id string) error
	Reindex(ctx context.Context, all bool) ([]batch.Result, error)
}

// HealthChecker aggregates dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter exposes embedding budget windows.
type UsageReporter interface {
	Usage() []embeddinguc.WindowUsage
}

// Server serves the pool HTTP API.
type Server struct {
	search        Searcher
	indexer       Indexer
	health        HealthChecker
	usage         UsageReporter
	canvas        searchuc.Layout
	apiKeys       []string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, indexer Indexer, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:        search,
		indexer:       indexer,
		health:        health,
		canvas:        searchuc.DefaultLayout(),
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithUsage enables GET /api/usage.
func (s *Server) WithUsage(u UsageReporter) *Server {
	s.usage = u
	return s
}

// WithCanvas sets the layout used when a request does not override it.
func (s *Server) WithCanvas(c searchuc.Layout) *Server {
	s.canvas = c
	return s
}

// WithAPIKeys enables bearer authentication.
func (s *Server) WithAPIKeys(keys []string) *Server {
	s.apiKeys = keys
	return s
}

// Handler builds the router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEvent(s.logger))
	r.Use(BearerAuthMiddleware(s.apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Get("/usage", s.Usage)
		r.Post("/profiles/reindex", s.Reindex)
		r.Post("/profiles/{id}/embedding", s.EmbedProfile)
	})
	return r
}

// SearchParams are the query parameters of GET /api/search.
type SearchParams struct {
	Q       string
	Exclude *string
	Limit   *int
	CX      *float64
	CY      *float64
	Radius  *float64
	Groups  *int
}

func bindSearchParams(r *http.Request) (SearchParams, error) {
	var p SearchParams
	q := r.URL.Query()
	binds := []struct {
		name     string
		required bool
		dest     any
	}{
		{"q", true, &p.Q},
		{"exclude", false, &p.Exclude},
		{"limit", false, &p.Limit},
		{"cx", false, &p.CX},
		{"cy", false, &p.CY},
		{"radius", false, &p.Radius},
		{"groups", false, &p.Groups},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, q, b.dest); err != nil {
			return SearchParams{}, fmt.Errorf("%w: parameter %q: %w", domain.ErrInvalidQuery, b.name, err)
		}
	}
	return p, nil
}

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Users    []pool.User   `json:"users"`
	Mode     pool.Mode     `json:"mode"`
	Groups   [][]pool.User `json:"groups,omitempty"`
	Semantic bool          `json:"semantic"`
}

// Search handles GET /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	req, err := request.New(params.Q, deref(params.Exclude), deref(params.Limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	for _, f := range []struct {
		name string
		v    *float64
	}{{"cx", params.CX}, {"cy", params.CY}, {"radius", params.Radius}} {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0)) {
			writeError(w, http.StatusBadRequest, CodeBadRequest, f.name+" must be a finite number")
			return
		}
	}

	canvas := s.canvas
	if params.CX != nil {
		canvas.CenterX = *params.CX
	}
	if params.CY != nil {
		canvas.CenterY = *params.CY
	}
	if params.Radius != nil {
		if *params.Radius <= 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "radius must be positive")
			return
		}
		canvas.Radius = *params.Radius
	}
	if params.Groups != nil {
		if *params.Groups < 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "groups must not be negative")
			return
		}
		canvas.Groups = *params.Groups
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.search.SearchIn(ctx, req, canvas)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	users := res.Users
	if users == nil {
		users = []pool.User{}
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{
		Users:    users,
		Mode:     res.Mode,
		Groups:   res.Groups,
		Semantic: res.Semantic,
	})
}

// EmbedProfile handles POST /api/profiles/{id}/embedding.
func (s *Server) EmbedProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := profile.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	err := s.indexer.EmbedProfile(ctx, id)
	setEmbeddingHeaders(w, usage)
	switch {
	case errors.Is(err, domain.ErrNotEnoughText):
		writeJSON(w, http.StatusOK, map[string]string{"message": "not enough text"})
	case err != nil:
		s.handleDomainError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// ReindexResponse is the body of POST /api/profiles/reindex.
type ReindexResponse struct {
	Summary batch.Summary  `json:"summary"`
	Items   []BatchItem    `json:"items"`
	Halted  *ErrorResponse `json:"halted,omitempty"`
}

// Reindex handles POST /api/profiles/reindex?all=true|false.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	var all *bool
	if err := runtime.BindQueryParameter("form", true, false, "all", r.URL.Query(), &all); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "parameter \"all\": "+err.Error())
		return
	}

	results, err := s.indexer.Reindex(r.Context(), deref(all))
	if err != nil && results == nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := ReindexResponse{
		Summary: batch.Summarize(results),
		Items:   make([]BatchItem, 0, len(results)),
	}
	for _, res := range results {
		resp.Items = append(resp.Items, batchResultToItem(res))
	}
	if err != nil {
		s.log(r).Warn("reindex stopped early", zap.Error(err))
		resp.Halted = &ErrorResponse{Code: batchErrorCode(err), Message: safeDomainMessage(err)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UsageResponse is the body of GET /api/usage.
type UsageResponse struct {
	Windows []embeddinguc.WindowUsage `json:"windows"`
}

// Usage handles GET /api/usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		writeJSON(w, http.StatusOK, UsageResponse{Windows: []embeddinguc.WindowUsage{}})
		return
	}
	windows := s.usage.Usage()
	if windows == nil {
		windows = []embeddinguc.WindowUsage{}
	}
	writeJSON(w, http.StatusOK, UsageResponse{Windows: windows})
}

// HealthCheck handles GET /health. A degraded service still answers 200: search falls back
// to lexical ranking.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) log(r *http.Request) *zap.Logger {
	return logger.FromContextOr(r.Context(), s.logger)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
