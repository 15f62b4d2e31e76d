// Package vector holds the numeric transforms that turn per-token encoder output
// into a single unit-length query vector.
package vector

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/servicesearch/internal/domain"
)

// UnitTolerance is the allowed deviation of a normalized vector's norm from 1.
const UnitTolerance = 1e-5

// MeanPool averages the hidden states of every attended token.
//
// hidden has one row per token, mask one entry per token. Rows whose mask entry is 0
// contribute to neither the sum nor the divisor, wherever they appear in the sequence.
// Sums are accumulated in float64.
func MeanPool(hidden [][]float32, mask []int64) ([]float32, error) {
	if len(hidden) != len(mask) {
		return nil, fmt.Errorf("%w: %d hidden rows for %d mask entries",
			domain.ErrEncoderFailed, len(hidden), len(mask))
	}

	dim := -1
	attended := 0
	var sum []float64
	for i, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[i]
		if dim < 0 {
			dim = len(row)
			if dim == 0 {
				return nil, fmt.Errorf("%w: zero-width hidden state", domain.ErrEncoderFailed)
			}
			sum = make([]float64, dim)
		}
		if len(row) != dim {
			return nil, fmt.Errorf("%w: token %d has width %d, expected %d",
				domain.ErrEncoderFailed, i, len(row), dim)
		}
		for d, x := range row {
			sum[d] += float64(x)
		}
		attended++
	}
	if attended == 0 {
		return nil, domain.ErrEmptyInput
	}

	pooled := make([]float32, dim)
	n := float64(attended)
	for d, s := range sum {
		pooled[d] = float32(s / n)
	}
	return pooled, nil
}

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	return math.Sqrt(sq)
}

// Normalize returns a copy of v scaled to unit length.
// A zero, NaN or infinite norm is reported as domain.ErrDegenerateEmbedding.
func Normalize(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty vector", domain.ErrDegenerateEmbedding)
	}
	norm := Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("%w: norm is %v", domain.ErrDegenerateEmbedding, norm)
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// IsUnit reports whether v has norm 1 within UnitTolerance.
func IsUnit(v []float32) bool {
	return math.Abs(Norm(v)-1) <= UnitTolerance
}
