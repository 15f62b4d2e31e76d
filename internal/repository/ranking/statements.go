package ranking

import (
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/mode"
)

// semanticSQL ranks every embedded service by cosine distance.
//
//	$1 query vector, $2 limit
const semanticSQL = `
SELECT
    s.id::text,
    s.name,
    s.description,
    s.short_description,
    s.status::text,
    o.name AS organization_name,
    (1 - (s.embedding <=> $1::vector))::float8 AS similarity,
    NULL::float8 AS distance
FROM service s
LEFT JOIN organization o ON o.id = s.organization_id
WHERE s.embedding IS NOT NULL
ORDER BY s.embedding <=> $1::vector, s.id
LIMIT $2`

// geoSQL keeps services with at least one location inside the radius,
// reporting the nearest one, and ranks them by cosine distance.
//
//	$1 query vector, $2 latitude, $3 longitude, $4 radius meters, $5 limit
const geoSQL = `
WITH nearby AS (
    SELECT
        sal.service_id,
        MIN(ST_Distance(
            ST_SetSRID(ST_MakePoint(l.longitude, l.latitude), 4326)::geography,
            ST_SetSRID(ST_MakePoint($3::float8, $2::float8), 4326)::geography
        )) AS distance
    FROM service_at_location sal
    JOIN location l ON l.id = sal.location_id
    WHERE ST_DWithin(
        ST_SetSRID(ST_MakePoint(l.longitude, l.latitude), 4326)::geography,
        ST_SetSRID(ST_MakePoint($3::float8, $2::float8), 4326)::geography,
        $4::float8
    )
    GROUP BY sal.service_id
)
SELECT
    s.id::text,
    s.name,
    s.description,
    s.short_description,
    s.status::text,
    o.name AS organization_name,
    (1 - (s.embedding <=> $1::vector))::float8 AS similarity,
    n.distance::float8 AS distance
FROM service s
JOIN nearby n ON n.service_id = s.id
LEFT JOIN organization o ON o.id = s.organization_id
WHERE s.embedding IS NOT NULL
ORDER BY s.embedding <=> $1::vector, n.distance, s.id
LIMIT $5`

// statement picks the query for m and binds its arguments.
func statement(m mode.Mode, vec []float32, limit int, radiusMeters float64) (string, []any, error) {
	v := pgvector.NewVector(vec)
	switch m := m.(type) {
	case mode.Semantic:
		return semanticSQL, []any{v, int64(limit)}, nil
	case mode.GeoFiltered:
		return geoSQL, []any{v, m.Origin.Latitude, m.Origin.Longitude, radiusMeters, int64(limit)}, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported ranking mode %T", domain.ErrQueryFailed, m)
	}
}
