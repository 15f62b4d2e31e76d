package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/servicesearch/internal/config"
	"github.com/kailas-cloud/servicesearch/internal/db/postgres"
)

func TestPostgresConfig(t *testing.T) {
	f := false
	db := config.DatabaseConfig{
		Host:              "pg.internal",
		Port:              "6432",
		Name:              "catalog",
		User:              "search",
		Password:          "pw",
		ApplicationName:   "searchctl",
		ConnectTimeoutSec: 3,
		AcquireTimeoutSec: 7,
		MaxConns:          12,
		MinConns:          1,
		MaxConnIdleSec:    30,
		RequirePostGIS:    &f,
	}

	got := PostgresConfig(db)
	want := postgres.Config{
		Host:            "pg.internal",
		Port:            6432,
		Database:        "catalog",
		User:            "search",
		Password:        "pw",
		ApplicationName: "searchctl",
		ConnectTimeout:  3 * time.Second,
		AcquireTimeout:  7 * time.Second,
		MaxConns:        12,
		MinConns:        1,
		MaxConnIdleTime: 30 * time.Second,
		RequirePostGIS:  false,
	}
	if got != want {
		t.Errorf("PostgresConfig =\n%+v\nwant\n%+v", got, want)
	}
}

func TestNew_DatabaseUnreachable(t *testing.T) {
	cfg := config.Config{
		Database: config.DatabaseConfig{Host: "127.0.0.1", Port: "1", ConnectTimeoutSec: 1},
		Embedding: config.EmbeddingConfig{
			ONNX: config.ONNXConfig{ModelDir: t.TempDir()},
		},
	}
	cfg.ApplyDefaults()

	_, err := New(context.Background(), &cfg, zap.NewNop())
	var se *postgres.StartupError
	if !errors.As(err, &se) {
		t.Fatalf("expected StartupError, got %v", err)
	}
	if se.Kind != postgres.ConnectionFailed {
		t.Errorf("kind = %v, want ConnectionFailed", se.Kind)
	}
}

func TestClose_ReverseOrder(t *testing.T) {
	var order []int
	a := &App{}
	for i := range 3 {
		a.closers = append(a.closers, func() { order = append(order, i) })
	}

	a.Close()
	a.Close()

	if len(order) != 3 || order[0] != 2 || order[2] != 0 {
		t.Errorf("close order = %v, want [2 1 0]", order)
	}
}
