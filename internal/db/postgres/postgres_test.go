package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRow struct {
	val any
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *int32:
		*d = r.val.(int32)
	case *string:
		*d = r.val.(string)
	}
	return nil
}

type fakeQuerier struct {
	rows map[string]fakeRow
	seen []string
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	q.seen = append(q.seen, sql)
	if r, ok := q.rows[sql]; ok {
		return r
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func healthyQuerier() *fakeQuerier {
	return &fakeQuerier{rows: map[string]fakeRow{
		probeLiveness:  {val: int32(1)},
		probeVector:    {val: "vector"},
		probeGeography: {val: "geography"},
	}}
}

func TestRunProbes_Success(t *testing.T) {
	q := healthyQuerier()
	require.NoError(t, runProbes(context.Background(), q, true, zap.NewNop()))
	assert.Equal(t, []string{probeLiveness, probeVector, probeGeography}, q.seen)
}

func TestRunProbes_SkipsPostGIS(t *testing.T) {
	q := healthyQuerier()
	require.NoError(t, runProbes(context.Background(), q, false, zap.NewNop()))
	assert.NotContains(t, q.seen, probeGeography)
}

func TestRunProbes_Failures(t *testing.T) {
	tests := []struct {
		name     string
		override map[string]fakeRow
	}{
		{"liveness error", map[string]fakeRow{probeLiveness: {err: errors.New("conn reset")}}},
		{"liveness value", map[string]fakeRow{probeLiveness: {val: int32(2)}}},
		{"no pgvector", map[string]fakeRow{probeVector: {err: errors.New(`type "vector" does not exist`)}}},
		{"no postgis", map[string]fakeRow{probeGeography: {err: errors.New(`type "geography" does not exist`)}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := healthyQuerier()
			for k, v := range tc.override {
				q.rows[k] = v
			}
			err := runProbes(context.Background(), q, true, zap.NewNop())
			var se *StartupError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, ProbeFailed, se.Kind)
		})
	}
}

func TestRunProbes_StopsAtFirstFailure(t *testing.T) {
	q := healthyQuerier()
	q.rows[probeLiveness] = fakeRow{err: errors.New("down")}
	_ = runProbes(context.Background(), q, true, zap.NewNop())
	assert.Equal(t, []string{probeLiveness}, q.seen)
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	assert.Equal(t, "localhost", c.Host)
	assert.Equal(t, uint16(5432), c.Port)
	assert.Equal(t, "dataplatform", c.Database)
	assert.Equal(t, "postgres", c.User)
	assert.Empty(t, c.Password)
	assert.Equal(t, "servicesearch", c.ApplicationName)
	assert.Equal(t, 10*time.Second, c.ConnectTimeout)
	assert.Equal(t, 15*time.Second, c.AcquireTimeout)
	assert.Equal(t, int32(30), c.MaxConns)
	assert.Equal(t, int32(2), c.MinConns)
	assert.Equal(t, 60*time.Second, c.MaxConnIdleTime)
}

func TestConfig_MinConnsCappedByMax(t *testing.T) {
	c := Config{MaxConns: 1, MinConns: 4}
	c.ApplyDefaults()
	assert.Equal(t, int32(1), c.MinConns)
}

func TestPoolConfig(t *testing.T) {
	c := Config{Host: "db.internal", Port: 6543, Database: "catalog", User: "search", Password: "pw"}
	c.ApplyDefaults()

	pc, err := poolConfig(c)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, uint16(6543), pc.ConnConfig.Port)
	assert.Equal(t, "catalog", pc.ConnConfig.Database)
	assert.Equal(t, "search", pc.ConnConfig.User)
	assert.Equal(t, "pw", pc.ConnConfig.Password)
	assert.Equal(t, "servicesearch", pc.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, 10*time.Second, pc.ConnConfig.ConnectTimeout)
	assert.Nil(t, pc.ConnConfig.TLSConfig)
	assert.Equal(t, int32(30), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, time.Minute, pc.MaxConnIdleTime)
}

func TestStartupError(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := &StartupError{Kind: ConnectionFailed, Detail: "failed to get initial test connection", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection failed")
	assert.Contains(t, err.Error(), "refused")

	noCause := &StartupError{Kind: ProbeFailed, Detail: "liveness query returned 2"}
	assert.Equal(t, "postgres probe failed: liveness query returned 2", noCause.Error())
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Port 1 on loopback refuses connections immediately.
	cfg := Config{Host: "127.0.0.1", Port: 1, ConnectTimeout: time.Second, AcquireTimeout: 2 * time.Second, MinConns: 1, MaxConns: 1}
	p, err := Connect(ctx, cfg, zap.NewNop())
	assert.Nil(t, p)
	var se *StartupError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ConnectionFailed, se.Kind)
}
