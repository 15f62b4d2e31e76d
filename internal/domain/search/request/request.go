package request

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/servicesearch/internal/domain"
	"github.com/kailas-cloud/servicesearch/internal/domain/geo"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in bytes.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 50
)

// Policy holds the limit defaults applied to incoming requests.
type Policy struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultPolicy returns the built-in limit policy.
func DefaultPolicy() Policy {
	return Policy{DefaultLimit: DefaultLimit, MaxLimit: MaxLimit}
}

// Request is a validated search query.
type Request struct {
	query string
	limit int
	mode  mode.Mode
}

// New validates a raw search request and resolves its ranking mode.
//
// A nil limit takes the policy default and a limit above the policy maximum is
// clamped; zero or negative limits are rejected. Latitude and longitude must be
// given together: both select mode.GeoFiltered, neither selects mode.Semantic.
func New(query string, limit *int, lat, lng *float64, p Policy) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}

	n, err := resolveLimit(limit, p)
	if err != nil {
		return Request{}, err
	}

	m, err := resolveMode(lat, lng)
	if err != nil {
		return Request{}, err
	}

	return Request{query: query, limit: n, mode: m}, nil
}

func resolveLimit(limit *int, p Policy) (int, error) {
	if p.DefaultLimit <= 0 {
		p.DefaultLimit = DefaultLimit
	}
	if p.MaxLimit <= 0 {
		p.MaxLimit = MaxLimit
	}
	if limit == nil {
		return min(p.DefaultLimit, p.MaxLimit), nil
	}
	if *limit <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidRequest)
	}
	return min(*limit, p.MaxLimit), nil
}

func resolveMode(lat, lng *float64) (mode.Mode, error) {
	switch {
	case lat == nil && lng == nil:
		return mode.Semantic{}, nil
	case lat == nil || lng == nil:
		return nil, fmt.Errorf("%w: latitude and longitude must be provided together", domain.ErrInvalidRequest)
	}
	if math.IsNaN(*lat) || math.IsNaN(*lng) {
		return nil, fmt.Errorf("%w: coordinates must be numbers", domain.ErrInvalidRequest)
	}
	origin, err := geo.NewPoint(*lat, *lng)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return mode.GeoFiltered{Origin: origin}, nil
}

// Query returns the trimmed search text.
func (r *Request) Query() string { return r.query }

// Limit returns the maximum number of results.
func (r *Request) Limit() int { return r.limit }

// Mode returns the resolved ranking strategy.
func (r *Request) Mode() mode.Mode { return r.mode }
