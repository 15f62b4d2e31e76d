package servicesearch

import "github.com/kailas-cloud/servicesearch/internal/domain/search/result"

// Result is a single ranked service.
type Result struct {
	ID               string
	Name             string
	Description      *string
	ShortDescription *string
	Status           string
	OrganizationName *string
	// Similarity is in [0, 1], higher is closer.
	Similarity float64
	// Distance in meters from the search origin; nil for semantic searches.
	Distance *float64
}

func toResults(rs []result.Result) []Result {
	out := make([]Result, len(rs))
	for i := range rs {
		r := &rs[i]
		out[i] = Result{
			ID:               r.ID(),
			Name:             r.Name(),
			Description:      r.Description(),
			ShortDescription: r.ShortDescription(),
			Status:           r.Status(),
			OrganizationName: r.OrganizationName(),
			Similarity:       r.Similarity(),
			Distance:         r.Distance(),
		}
	}
	return out
}

// SearchOption configures a single search.
type SearchOption func(*searchParams)

type searchParams struct {
	limit    *int
	lat, lng *float64
}

// Limit sets the maximum number of results. Values above the client's
// maximum are clamped; zero or negative values are rejected.
func Limit(n int) SearchOption {
	return func(p *searchParams) { p.limit = &n }
}

// Near restricts results to services within the search radius of the point.
func Near(lat, lng float64) SearchOption {
	return func(p *searchParams) {
		p.lat = &lat
		p.lng = &lng
	}
}
