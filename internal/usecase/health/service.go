// Package health aggregates dependency checks for the /health endpoint.
package health

import (
	"context"
	"time"
)

// Status is the aggregated health.
type Status string

const (
	// Healthy means every dependency answered.
	Healthy Status = "ok"
	// Degraded means search works without the semantic signal.
	Degraded Status = "degraded"
	// Unhealthy means profiles cannot be read, so search cannot run.
	Unhealthy Status = "error"
)

// CheckResult is one dependency's outcome.
type CheckResult string

const (
	// CheckOK is a passing check.
	CheckOK CheckResult = "ok"
	// CheckError is a failing check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckDatabase  = "database"
	CheckEmbedding = "embedding"
	CheckBudget    = "budget"
)

// DefaultTimeout bounds each dependency check.
const DefaultTimeout = 2 * time.Second

// Report is the aggregated outcome.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service runs health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	budget    BudgetReader
	periods   []string
	timeout   time.Duration
}

// New creates a Service. embedding may be nil.
func New(db DBPinger, embedding EmbeddingChecker) *Service {
	return &Service{db: db, embedding: embedding, timeout: DefaultTimeout}
}

// WithBudget adds a check that fails once any of periods is spent.
func (s *Service) WithBudget(b BudgetReader, periods ...string) *Service {
	s.budget = b
	s.periods = periods
	return s
}

// Check runs every configured check.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		CheckDatabase: s.probe(ctx, s.db.Ping),
	}
	if s.embedding != nil {
		checks[CheckEmbedding] = s.probe(ctx, s.embedding.HealthCheck)
	}
	if s.budget != nil {
		checks[CheckBudget] = CheckOK
		for _, p := range s.periods {
			if s.budget.Remaining(p) == 0 {
				checks[CheckBudget] = CheckError
			}
		}
	}

	status := Healthy
	for name, res := range checks {
		if res != CheckError {
			continue
		}
		if name == CheckDatabase {
			status = Unhealthy
			break
		}
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func (s *Service) probe(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
