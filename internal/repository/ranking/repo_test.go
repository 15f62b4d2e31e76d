package ranking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/geo"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/mode"
)

// --- statement selection ---

func TestRank_SemanticStatement(t *testing.T) {
	repo, mp := newTestRepo(t)

	if _, err := repo.Rank(context.Background(), testVector(), 7, mode.Semantic{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mp.conn.sql != semanticSQL {
		t.Fatalf("expected semantic statement, got %q", mp.conn.sql)
	}
	if len(mp.conn.args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(mp.conn.args))
	}
	vec, ok := mp.conn.args[0].(pgvector.Vector)
	if !ok {
		t.Fatalf("arg 0 = %T, want pgvector.Vector", mp.conn.args[0])
	}
	if got := vec.Slice(); len(got) != 3 || got[0] != 0.6 {
		t.Errorf("vector arg = %v", got)
	}
	if mp.conn.args[1] != int64(7) {
		t.Errorf("limit arg = %v", mp.conn.args[1])
	}
}

func TestRank_GeoStatement(t *testing.T) {
	repo, mp := newTestRepo(t)
	origin := geo.Point{Latitude: 44.97, Longitude: -93.26}

	if _, err := repo.Rank(context.Background(), testVector(), 5, mode.GeoFiltered{Origin: origin}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mp.conn.sql != geoSQL {
		t.Fatalf("expected geo statement, got %q", mp.conn.sql)
	}
	want := []any{44.97, -93.26, geo.DefaultRadiusMeters, int64(5)}
	for i, w := range want {
		if mp.conn.args[i+1] != w {
			t.Errorf("arg %d = %v, want %v", i+1, mp.conn.args[i+1], w)
		}
	}
}

func TestRank_CustomRadius(t *testing.T) {
	mp := &mockPool{conn: &mockConn{}}
	repo := New(mp, 1000)
	if repo.RadiusMeters() != 1000 {
		t.Fatalf("RadiusMeters() = %v", repo.RadiusMeters())
	}
	_, _ = repo.Rank(context.Background(), testVector(), 5, mode.GeoFiltered{})
	if mp.conn.args[3] != float64(1000) {
		t.Errorf("radius arg = %v", mp.conn.args[3])
	}
}

func TestStatements_Shape(t *testing.T) {
	if !strings.Contains(semanticSQL, "s.embedding IS NOT NULL") {
		t.Error("semantic statement must skip services without embeddings")
	}
	if strings.Contains(semanticSQL, "ST_") {
		t.Error("semantic statement must not filter by location")
	}
	for _, frag := range []string{"ST_DWithin", "MIN(ST_Distance", "JOIN nearby", "GROUP BY sal.service_id", "s.embedding IS NOT NULL"} {
		if !strings.Contains(geoSQL, frag) {
			t.Errorf("geo statement missing %q", frag)
		}
	}
	if strings.Contains(geoSQL, "LEFT JOIN nearby") {
		t.Error("services without nearby locations must be excluded")
	}
}

func TestRank_LimitCoercion(t *testing.T) {
	for _, limit := range []int{0, -3} {
		repo, mp := newTestRepo(t)
		_, _ = repo.Rank(context.Background(), testVector(), limit, mode.Semantic{})
		if mp.conn.args[1] != int64(1) {
			t.Errorf("limit %d: bound %v, want 1", limit, mp.conn.args[1])
		}
	}

	repo, mp := newTestRepo(t)
	_, _ = repo.Rank(context.Background(), testVector(), 1000, mode.Semantic{})
	if mp.conn.args[1] != int64(1000) {
		t.Errorf("no upper bound expected, got %v", mp.conn.args[1])
	}
}

func TestRank_NilMode(t *testing.T) {
	repo, mp := newTestRepo(t)
	_, err := repo.Rank(context.Background(), testVector(), 5, nil)
	if !errors.Is(err, domain.ErrQueryFailed) {
		t.Fatalf("expected ErrQueryFailed, got %v", err)
	}
	if mp.acquired != 0 {
		t.Error("no connection should be acquired for an invalid mode")
	}
}

// --- row mapping ---

func TestRank_MapsRows(t *testing.T) {
	repo, mp := newTestRepo(t)
	rows := &mockRows{rows: []row{
		{id: "a", name: "Food Shelf", description: strPtr("groceries"), status: "active",
			organizationName: strPtr("Aid"), similarity: 0.91, distance: floatPtr(812.5)},
		{id: "b", name: "Clinic", status: "inactive", similarity: 1.0000001},
	}}
	mp.conn.queryFn = func(context.Context, string, ...any) (pgx.Rows, error) { return rows, nil }

	results, err := repo.Rank(context.Background(), testVector(), 10, mode.GeoFiltered{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID() != "a" || *results[0].Distance() != 812.5 || *results[0].OrganizationName() != "Aid" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Description() != nil || results[1].OrganizationName() != nil || results[1].Distance() != nil {
		t.Error("absent fields must stay nil")
	}
	if results[1].Similarity() != 1 {
		t.Errorf("similarity = %v, want clamped 1", results[1].Similarity())
	}
	if !rows.closed {
		t.Error("rows not closed")
	}
}

func TestRank_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)
	results, err := repo.Rank(context.Background(), testVector(), 10, mode.Semantic{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

// --- errors and release ---

func TestRank_AcquireFailure(t *testing.T) {
	mp := &mockPool{conn: &mockConn{}, acquireErr: errors.New("context deadline exceeded")}
	repo := New(mp, 0)

	_, err := repo.Rank(context.Background(), testVector(), 10, mode.Semantic{})
	if !errors.Is(err, domain.ErrPoolUnavailable) {
		t.Fatalf("expected ErrPoolUnavailable, got %v", err)
	}
}

func TestRank_ErrorClassificationAndRelease(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *mockConn)
		want  error
	}{
		{
			name: "query error",
			setup: func(c *mockConn) {
				c.queryFn = func(context.Context, string, ...any) (pgx.Rows, error) {
					return nil, &pgconn.PgError{Code: "42601", Message: "syntax error at or near \"SELEC\""}
				}
			},
			want: domain.ErrQueryFailed,
		},
		{
			name: "different dimensions",
			setup: func(c *mockConn) {
				c.queryFn = func(context.Context, string, ...any) (pgx.Rows, error) {
					return nil, &pgconn.PgError{Code: "22000", Message: "different vector dimensions 384 and 3"}
				}
			},
			want: domain.ErrDimensionMismatch,
		},
		{
			name: "expected dimensions",
			setup: func(c *mockConn) {
				c.queryFn = func(context.Context, string, ...any) (pgx.Rows, error) {
					return &mockRows{iterErr: &pgconn.PgError{Code: "22000", Message: "expected 384 dimensions, not 3"}}, nil
				}
			},
			want: domain.ErrDimensionMismatch,
		},
		{
			name: "scan error",
			setup: func(c *mockConn) {
				c.queryFn = func(context.Context, string, ...any) (pgx.Rows, error) {
					return &mockRows{rows: []row{{id: "a"}}, scanErr: errors.New("cannot scan NULL into *string")}, nil
				}
			},
			want: domain.ErrQueryFailed,
		},
		{
			name: "iteration error",
			setup: func(c *mockConn) {
				c.queryFn = func(context.Context, string, ...any) (pgx.Rows, error) {
					return &mockRows{iterErr: errors.New("unexpected EOF")}, nil
				}
			},
			want: domain.ErrQueryFailed,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mp := newTestRepo(t)
			tc.setup(mp.conn)

			_, err := repo.Rank(context.Background(), testVector(), 10, mode.Semantic{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if mp.outstanding() != 0 {
				t.Errorf("connection not released: %d outstanding", mp.outstanding())
			}
		})
	}
}

func TestRank_ReleasesOnSuccess(t *testing.T) {
	repo, mp := newTestRepo(t)
	for i := 0; i < 3; i++ {
		if _, err := repo.Rank(context.Background(), testVector(), 10, mode.Semantic{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if mp.acquired != 3 || mp.outstanding() != 0 {
		t.Errorf("acquired=%d outstanding=%d", mp.acquired, mp.outstanding())
	}
}

func TestIsDimensionMismatch(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"different vector dimensions 384 and 768", true},
		{"expected 384 dimensions, not 768", true},
		{"relation \"service\" does not exist", false},
		{"expected integer", false},
	}
	for _, tc := range tests {
		if got := isDimensionMismatch(tc.msg); got != tc.want {
			t.Errorf("isDimensionMismatch(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}
