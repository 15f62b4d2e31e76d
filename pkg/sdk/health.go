package servicesearch

import (
	"context"

	healthuc "github.com/kailas-cloud/servicesearch/internal/usecase/health"
)

// Health status values.
const (
	StatusOK       = string(healthuc.Healthy)
	StatusDegraded = string(healthuc.Degraded)
	StatusError    = string(healthuc.Unhealthy)
)

// HealthStatus is the outcome of checking the database, the embedding backend
// and, when configured, the cache.
type HealthStatus struct {
	Status string
	Checks map[string]string // component -> "ok" | "error"
}

// Serving reports whether searches can run. A degraded client still serves.
func (h HealthStatus) Serving() bool {
	return h.Status != StatusError
}

// Health runs every component check concurrently, each bounded by its own timeout.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
