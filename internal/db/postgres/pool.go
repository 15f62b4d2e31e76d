package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/logger"
)

// Conn is a borrowed connection. Release returns it to the pool.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Release()
}

// Compile-time check: pooled connections satisfy Conn.
var _ Conn = (*pgxpool.Conn)(nil)

// Pool is the shared connection pool handle. It is safe for concurrent use.
type Pool struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// Connect builds the pool and runs the startup probes.
// Any failure is returned as *StartupError and no pool is produced.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (*Pool, error) {
	cfg.ApplyDefaults()

	log.Info("database connection parameters",
		zap.String("host", cfg.Host),
		zap.Uint16("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User),
		logger.Secret("password", cfg.Password),
		zap.String("application_name", cfg.ApplicationName),
	)

	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, &StartupError{Kind: ConnectionFailed, Detail: "invalid connection config", Err: err}
	}

	log.Info("building connection pool",
		zap.Int32("max_conns", pcfg.MaxConns),
		zap.Int32("min_conns", pcfg.MinConns),
		zap.Duration("max_conn_idle_time", pcfg.MaxConnIdleTime),
	)
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, &StartupError{Kind: PoolBuildFailed, Detail: "failed to build connection pool", Err: err}
	}

	p := &Pool{pool: pool, acquireTimeout: cfg.AcquireTimeout}

	conn, err := p.acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, &StartupError{Kind: ConnectionFailed, Detail: "failed to get initial test connection", Err: err}
	}
	err = runProbes(ctx, conn, cfg.RequirePostGIS, log)
	conn.Release()
	if err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("database connection pool initialized")
	return p, nil
}

func poolConfig(cfg Config) (*pgxpool.Config, error) {
	pcfg, err := pgxpool.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	cc := pcfg.ConnConfig
	cc.Host = cfg.Host
	cc.Port = cfg.Port
	cc.Database = cfg.Database
	cc.User = cfg.User
	cc.Password = cfg.Password
	cc.ConnectTimeout = cfg.ConnectTimeout
	cc.TLSConfig = nil
	cc.Fallbacks = nil
	if cc.RuntimeParams == nil {
		cc.RuntimeParams = map[string]string{}
	}
	cc.RuntimeParams["application_name"] = cfg.ApplicationName

	pcfg.MaxConns = cfg.MaxConns
	pcfg.MinConns = cfg.MinConns
	pcfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	return pcfg, nil
}

// Acquire borrows a connection, waiting at most the acquire timeout.
// Failures wrap domain.ErrPoolUnavailable.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPoolUnavailable, err)
	}
	return conn, nil
}

func (p *Pool) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire timed out after %s: %w", p.acquireTimeout, err)
		}
		return nil, fmt.Errorf("acquire: %w", err)
	}
	return conn, nil
}

// Ping checks that a connection can be acquired and is alive.
func (p *Pool) Ping(ctx context.Context) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	var one int32
	if err := conn.QueryRow(ctx, probeLiveness).Scan(&one); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Stat returns a snapshot of pool statistics.
func (p *Pool) Stat() *pgxpool.Stat { return p.pool.Stat() }

// Close releases all connections. In-flight acquisitions fail afterwards.
func (p *Pool) Close() { p.pool.Close() }

// Addr describes the target for logs.
func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(int(c.Port)) + "/" + c.Database
}
