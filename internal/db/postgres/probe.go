package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Probe statements run once at startup.
const (
	probeLiveness  = "SELECT 1"
	probeVector    = "SELECT 'vector'::regtype::text"
	probeGeography = "SELECT 'geography'::regtype::text"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// runProbes checks liveness and the extension types the ranking queries depend on.
func runProbes(ctx context.Context, q rowQuerier, requirePostGIS bool, logger *zap.Logger) error {
	var one int32
	if err := q.QueryRow(ctx, probeLiveness).Scan(&one); err != nil {
		return &StartupError{Kind: ProbeFailed, Detail: "liveness query failed", Err: err}
	}
	if one != 1 {
		return &StartupError{Kind: ProbeFailed, Detail: fmt.Sprintf("liveness query returned %d", one)}
	}
	logger.Info("database connection test successful")

	if err := probeType(ctx, q, probeVector); err != nil {
		return &StartupError{Kind: ProbeFailed, Detail: "pgvector extension is not available", Err: err}
	}
	logger.Info("pgvector extension is available")

	if !requirePostGIS {
		return nil
	}
	if err := probeType(ctx, q, probeGeography); err != nil {
		return &StartupError{Kind: ProbeFailed, Detail: "postgis extension is not available", Err: err}
	}
	logger.Info("postgis extension is available")
	return nil
}

func probeType(ctx context.Context, q rowQuerier, sql string) error {
	var name string
	if err := q.QueryRow(ctx, sql).Scan(&name); err != nil {
		return fmt.Errorf("%s: %w", sql, err)
	}
	return nil
}
