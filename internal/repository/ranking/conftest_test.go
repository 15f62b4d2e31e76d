package ranking

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/servicesearch/internal/db/postgres"
)

// row is one catalog hit in scan order.
type row struct {
	id, name, status       string
	description, shortDesc *string
	organizationName       *string
	similarity             float64
	distance               *float64
}

// mockRows implements pgx.Rows over a fixed slice.
type mockRows struct {
	rows    []row
	pos     int
	scanErr error
	iterErr error
	closed  bool
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.iterErr }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, errors.New("not implemented") }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

func (r *mockRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	if len(dest) != 8 {
		return fmt.Errorf("expected 8 scan targets, got %d", len(dest))
	}
	cur := r.rows[r.pos-1]
	*dest[0].(*string) = cur.id
	*dest[1].(*string) = cur.name
	*dest[2].(**string) = cur.description
	*dest[3].(**string) = cur.shortDesc
	*dest[4].(*string) = cur.status
	*dest[5].(**string) = cur.organizationName
	*dest[6].(*float64) = cur.similarity
	*dest[7].(**float64) = cur.distance
	return nil
}

// mockConn records the executed statement and its release.
type mockConn struct {
	queryFn  func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	sql      string
	args     []any
	released int
}

func (c *mockConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.sql, c.args = sql, args
	if c.queryFn != nil {
		return c.queryFn(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (c *mockConn) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (c *mockConn) Release() { c.released++ }

// mockPool hands out a single mockConn and tracks outstanding borrows.
type mockPool struct {
	conn       *mockConn
	acquireErr error
	acquired   int
}

func (p *mockPool) Acquire(context.Context) (postgres.Conn, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return p.conn, nil
}

// outstanding is the number of connections not yet returned.
func (p *mockPool) outstanding() int { return p.acquired - p.conn.released }

func newTestRepo(t *testing.T) (*Repo, *mockPool) {
	t.Helper()
	mp := &mockPool{conn: &mockConn{}}
	return New(mp, 0), mp
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func testVector() []float32       { return []float32{0.6, 0.8, 0} }
