package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing; searches still work.
	Degraded Status = "degraded"
	// Unhealthy indicates a component every search depends on is failing.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultTimeout bounds each component check.
const DefaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type check struct {
	name     string
	required bool
	fn       func(ctx context.Context) error
}

// Service coordinates health checks.
type Service struct {
	checks  []check
	timeout time.Duration
}

// New creates a Service. embedding and cache can be nil.
// The database and the embedding backend are required; the cache is optional.
func New(db DBPinger, embedding EmbeddingChecker, cache DBPinger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Service{timeout: timeout}
	s.checks = append(s.checks, check{name: "database", required: true, fn: db.Ping})
	if embedding != nil {
		s.checks = append(s.checks, check{name: "embedding", required: true, fn: embedding.HealthCheck})
	}
	if cache != nil {
		s.checks = append(s.checks, check{name: "cache", fn: cache.Ping})
	}
	return s
}

// Check runs all component checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var mu sync.Mutex
	checks := make(map[string]CheckResult, len(s.checks))
	status := Healthy

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := c.fn(cctx); err != nil {
				res = CheckError
			}

			mu.Lock()
			defer mu.Unlock()
			checks[c.name] = res
			if res == CheckError {
				switch {
				case c.required:
					status = Unhealthy
				case status == Healthy:
					status = Degraded
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: status, Checks: checks}
}
