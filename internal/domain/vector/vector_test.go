package vector

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/servicesearch/internal/domain"
)

func TestMeanPool_ExcludesPadding(t *testing.T) {
	v0 := []float32{1, 2, 3}
	v1 := []float32{3, 4, 5}
	for _, pad := range [][]float32{{0, 0, 0}, {100, -100, 7}, {1e6, 1e6, 1e6}} {
		pooled, err := MeanPool([][]float32{v0, v1, pad}, []int64{1, 1, 0})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []float32{2, 3, 4}
		for d := range want {
			if pooled[d] != want[d] {
				t.Errorf("pad=%v: pooled[%d] = %f, want %f", pad, d, pooled[d], want[d])
			}
		}
	}
}

func TestMeanPool_NonPrefixMask(t *testing.T) {
	hidden := [][]float32{{9, 9}, {2, 4}, {9, 9}, {4, 8}}
	pooled, err := MeanPool(hidden, []int64{0, 1, 0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pooled[0] != 3 || pooled[1] != 6 {
		t.Errorf("pooled = %v, want [3 6]", pooled)
	}
}

func TestMeanPool_EmptyMask(t *testing.T) {
	_, err := MeanPool([][]float32{{1, 2}, {3, 4}}, []int64{0, 0})
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}

	_, err = MeanPool(nil, nil)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput for empty sequence, got %v", err)
	}
}

func TestMeanPool_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name   string
		hidden [][]float32
		mask   []int64
	}{
		{"row count", [][]float32{{1}}, []int64{1, 1}},
		{"ragged rows", [][]float32{{1, 2}, {3}}, []int64{1, 1}},
		{"zero width", [][]float32{{}}, []int64{1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := MeanPool(tc.hidden, tc.mask)
			if !errors.Is(err, domain.ErrEncoderFailed) {
				t.Errorf("expected ErrEncoderFailed, got %v", err)
			}
		})
	}
}

func TestNormalize_UnitLength(t *testing.T) {
	inputs := [][]float32{
		{3, 4},
		{1e-20, 2e-20, 3e-20},
		{1e18, -1e18},
		{-0.25, 0.5, 0.125, 7, -3},
		{42},
	}
	for _, in := range inputs {
		out, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%v): %v", in, err)
		}
		if !IsUnit(out) {
			t.Errorf("Normalize(%v) norm = %v, want 1", in, Norm(out))
		}
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []float32{3, 4}
	out, err := Normalize(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in[0] != 3 || in[1] != 4 {
		t.Errorf("input mutated: %v", in)
	}
	if math.Abs(float64(out[0])-0.6) > 1e-7 || math.Abs(float64(out[1])-0.8) > 1e-7 {
		t.Errorf("out = %v, want [0.6 0.8]", out)
	}
}

func TestNormalize_Degenerate(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	for _, in := range [][]float32{{0, 0, 0}, {nan, 1}, {inf, 1}, {}} {
		_, err := Normalize(in)
		if !errors.Is(err, domain.ErrDegenerateEmbedding) {
			t.Errorf("Normalize(%v): expected ErrDegenerateEmbedding, got %v", in, err)
		}
	}
}

func TestPoolThenNormalize_Deterministic(t *testing.T) {
	hidden := [][]float32{{0.1, -0.7, 0.33}, {0.9, 0.2, -0.4}, {0.5, 0.5, 0.5}}
	mask := []int64{1, 1, 1}

	first, err := MeanPool(hidden, mask)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := Normalize(first)
	second, _ := MeanPool(hidden, mask)
	b, _ := Normalize(second)
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}
