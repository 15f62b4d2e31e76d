package result

// Result is a single ranked catalog record.
type Result struct {
	id               string
	name             string
	description      *string
	shortDescription *string
	status           string
	organizationName *string
	similarity       float64
	distance         *float64
}

// New creates a search result. Similarity is clamped to [0, 1].
func New(
	id, name string, description, shortDescription *string,
	status string, organizationName *string,
	similarity float64, distance *float64,
) Result {
	return Result{
		id: id, name: name,
		description: description, shortDescription: shortDescription,
		status: status, organizationName: organizationName,
		similarity: clamp(similarity), distance: distance,
	}
}

func clamp(s float64) float64 {
	switch {
	case s != s: // NaN
		return 0
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

// ID returns the catalog record identifier.
func (r *Result) ID() string { return r.id }

// Name returns the record name.
func (r *Result) Name() string { return r.name }

// Description returns the long description, nil when absent.
func (r *Result) Description() *string { return r.description }

// ShortDescription returns the short description, nil when absent.
func (r *Result) ShortDescription() *string { return r.shortDescription }

// Status returns the record status.
func (r *Result) Status() string { return r.status }

// OrganizationName returns the owning organization's name, nil when absent.
func (r *Result) OrganizationName() *string { return r.organizationName }

// Similarity returns 1 - cosine distance to the query vector.
func (r *Result) Similarity() float64 { return r.similarity }

// Distance returns the distance in meters to the nearest location.
// It is nil for semantic-only searches.
func (r *Result) Distance() *float64 { return r.distance }
