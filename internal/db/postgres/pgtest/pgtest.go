//go:build integration

// Package pgtest starts a disposable PostGIS + pgvector server for integration tests.
package pgtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kailas-cloud/servicesearch/internal/db/postgres"
)

const (
	user     = "search"
	password = "search"
	database = "catalog"
)

func testdataDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata")
}

// Start runs the container and returns a pool config pointing at it.
// The database has PostGIS but not pgvector enabled until ApplySchema runs.
func Start(ctx context.Context, t *testing.T) postgres.Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			FromDockerfile: testcontainers.FromDockerfile{
				Context:    testdataDir(),
				Dockerfile: "Dockerfile",
				KeepImage:  true,
			},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       database,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(3 * time.Minute),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return postgres.Config{
		Host:     host,
		Port:     uint16(port.Int()),
		Database: database,
		User:     user,
		Password: password,
	}
}

// Exec runs sql on a dedicated connection outside the pool under test.
func Exec(ctx context.Context, t *testing.T, cfg postgres.Config, sql string, args ...any) {
	t.Helper()
	cc, err := pgx.ParseConfig("")
	require.NoError(t, err)
	cc.Host, cc.Port, cc.Database, cc.User, cc.Password = cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password
	cc.TLSConfig, cc.Fallbacks = nil, nil

	conn, err := pgx.ConnectConfig(ctx, cc)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	_, err = conn.Exec(ctx, sql, args...)
	require.NoError(t, err)
}

// ApplySchema creates the extensions and catalog tables.
func ApplySchema(ctx context.Context, t *testing.T, cfg postgres.Config) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(testdataDir(), "schema.sql"))
	require.NoError(t, err)
	Exec(ctx, t, cfg, string(data))
}
