package domain

import (
	"errors"
)

// Request errors. Every one of them fails a single search and never affects other requests.
var (
	// ErrInvalidRequest signals a malformed search request (empty query, partial coordinates, bad limit).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTokenization signals that the tokenizer rejected the query text.
	ErrTokenization = errors.New("tokenization failed")
	// ErrEmptyInput signals an attention mask with no attended tokens.
	ErrEmptyInput = errors.New("empty attention mask")
	// ErrEncoderFailed signals a failed or malformed encoder forward pass.
	ErrEncoderFailed = errors.New("encoder forward pass failed")
	// ErrDegenerateEmbedding signals a pooled vector with zero or non-finite norm.
	ErrDegenerateEmbedding = errors.New("degenerate embedding")
	// ErrEmbeddingProviderError signals a remote embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")

	// ErrPoolUnavailable signals that no connection could be acquired within the acquire timeout.
	ErrPoolUnavailable = errors.New("connection pool unavailable")
	// ErrQueryFailed signals a ranking query execution failure.
	ErrQueryFailed = errors.New("ranking query failed")
	// ErrDimensionMismatch signals that the query vector and the catalog vectors differ in dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// IsEmbeddingError reports whether err was produced while turning query text into a vector.
func IsEmbeddingError(err error) bool {
	return errors.Is(err, ErrTokenization) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrEncoderFailed) ||
		errors.Is(err, ErrDegenerateEmbedding) ||
		errors.Is(err, ErrEmbeddingProviderError)
}
