package servicesearch

import "github.com/kailas-cloud/servicesearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrTokenization           = domain.ErrTokenization
	ErrEmptyInput             = domain.ErrEmptyInput
	ErrEncoderFailed          = domain.ErrEncoderFailed
	ErrDegenerateEmbedding    = domain.ErrDegenerateEmbedding
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrPoolUnavailable        = domain.ErrPoolUnavailable
	ErrQueryFailed            = domain.ErrQueryFailed
	ErrDimensionMismatch      = domain.ErrDimensionMismatch
)

// IsEmbeddingError reports whether err was produced while turning query text into a vector.
func IsEmbeddingError(err error) bool {
	return domain.IsEmbeddingError(err)
}
