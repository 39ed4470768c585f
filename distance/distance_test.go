package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 0},
		{name: "unit apart", a: []float32{0, 0, 0}, b: []float32{1, 0, 0}, want: 1},
		{name: "mixed signs", a: []float32{1, -2, 3, -4, 5}, b: []float32{-1, 2, -3, 4, -5}, want: 4 + 16 + 36 + 64 + 100},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SquaredL2(tt.a, tt.b), 1e-6)
		})
	}
}

func TestDot(t *testing.T) {
	assert.InDelta(t, float32(32), Dot([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-6)
	assert.InDelta(t, float32(0), Dot(nil, nil), 1e-6)

	// Length 5 exercises both the unrolled body and the tail.
	assert.InDelta(t, float32(55), Dot([]float32{1, 2, 3, 4, 5}, []float32{1, 2, 3, 4, 5}), 1e-6)
}

func TestNormalizeL2InPlace(t *testing.T) {
	v := []float32{3, 4}
	assert.True(t, NormalizeL2InPlace(v))
	assert.InDelta(t, float32(0.6), v[0], 1e-6)
	assert.InDelta(t, float32(0.8), v[1], 1e-6)

	assert.False(t, NormalizeL2InPlace([]float32{0, 0}))
	assert.False(t, NormalizeL2InPlace(nil))
}
