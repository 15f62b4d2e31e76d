// Package ranking executes the similarity queries against the service catalog.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/servicesearch/internal/db/postgres"
	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/geo"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/mode"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/result"
)

// pool is the consumer interface for connection borrowing (ISP).
type pool interface {
	Acquire(ctx context.Context) (postgres.Conn, error)
}

// Repo implements usecase/search.Ranker.
type Repo struct {
	pool         pool
	radiusMeters float64
}

// New creates a ranking repository. A non-positive radius falls back to geo.DefaultRadiusMeters.
func New(p pool, radiusMeters float64) *Repo {
	if radiusMeters <= 0 {
		radiusMeters = geo.DefaultRadiusMeters
	}
	return &Repo{pool: p, radiusMeters: radiusMeters}
}

// RadiusMeters returns the geo filter radius.
func (r *Repo) RadiusMeters() float64 { return r.radiusMeters }

// Rank returns at most limit services ordered by similarity to vec.
// A limit below 1 is treated as 1. The connection is released on every path.
func (r *Repo) Rank(ctx context.Context, vec []float32, limit int, m mode.Mode) ([]result.Result, error) {
	if limit < 1 {
		limit = 1
	}
	sql, args, err := statement(m, vec, limit, r.radiusMeters)
	if err != nil {
		return nil, err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrPoolUnavailable) {
			return nil, fmt.Errorf("rank %s: %w", m.Name(), err)
		}
		return nil, fmt.Errorf("rank %s: %w: %w", m.Name(), domain.ErrPoolUnavailable, err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("rank %s: %w", m.Name(), classify(err))
	}
	defer rows.Close()

	results := make([]result.Result, 0, limit)
	for rows.Next() {
		var (
			id, name, status       string
			description, shortDesc *string
			organizationName       *string
			similarity             float64
			distance               *float64
		)
		if err := rows.Scan(&id, &name, &description, &shortDesc, &status,
			&organizationName, &similarity, &distance); err != nil {
			return nil, fmt.Errorf("rank %s: scan: %w", m.Name(), classify(err))
		}
		results = append(results, result.New(id, name, description, shortDesc,
			status, organizationName, similarity, distance))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rank %s: %w", m.Name(), classify(err))
	}

	return results, nil
}

// classify maps a store failure to a domain sentinel, keeping the cause.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && isDimensionMismatch(pgErr.Message) {
		return fmt.Errorf("%w: %s", domain.ErrDimensionMismatch, pgErr.Message)
	}
	return fmt.Errorf("%w: %w", domain.ErrQueryFailed, err)
}

// isDimensionMismatch matches pgvector's "different vector dimensions 384 and 768"
// and "expected 384 dimensions, not 768".
func isDimensionMismatch(msg string) bool {
	if strings.Contains(msg, "different vector dimensions") {
		return true
	}
	return strings.HasPrefix(msg, "expected ") && strings.Contains(msg, " dimensions")
}
