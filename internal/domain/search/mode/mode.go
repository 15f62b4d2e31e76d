// Package mode defines the ranking strategy chosen for a search request.
package mode

import "github.com/kailas-cloud/servicesearch/internal/domain/geo"

// Mode is the ranking strategy, resolved once per request.
// The concrete variants are Semantic and GeoFiltered.
type Mode interface {
	// Name is a stable label for logs and metrics.
	Name() string
	isMode()
}

// Semantic ranks every embedded record by cosine distance to the query vector.
type Semantic struct{}

// Name implements Mode.
func (Semantic) Name() string { return "semantic" }

func (Semantic) isMode() {}

// GeoFiltered keeps only records with a location within the radius of Origin,
// then ranks the survivors by similarity.
type GeoFiltered struct {
	Origin geo.Point
}

// Name implements Mode.
func (GeoFiltered) Name() string { return "geo" }

func (GeoFiltered) isMode() {}

// IsGeo reports whether m carries a geographic filter.
func IsGeo(m Mode) bool {
	_, ok := m.(GeoFiltered)
	return ok
}
