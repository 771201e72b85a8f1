package kernels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRBFEval(t *testing.T) {
	k := NewIsotropicRBF(1.0, 1, 1.0)

	// k(x, x) = variance
	assert.InDelta(t, 1.0, k.Eval([]float64{0.3}, []float64{0.3}), 1e-12)

	// k(0, 1) = exp(-1/2)
	assert.InDelta(t, math.Exp(-0.5), k.Eval([]float64{0.0}, []float64{1.0}), 1e-12)
}

func TestRBFARDLengthscales(t *testing.T) {
	k := NewRBF([]float64{1.0, 2.0}, 0.5)

	ls := k.Lengthscales()
	assert.Equal(t, []float64{1.0, 2.0}, ls)
	assert.Equal(t, 0.5, k.Variance())
	assert.Equal(t, 2, k.Dims())

	// A unit step along the longer-lengthscale axis decays less.
	alongFirst := k.Eval([]float64{0, 0}, []float64{1, 0})
	alongSecond := k.Eval([]float64{0, 0}, []float64{0, 1})
	assert.Greater(t, alongSecond, alongFirst)

	// Mutating the returned slice must not affect the kernel.
	ls[0] = 100.0
	assert.Equal(t, []float64{1.0, 2.0}, k.Lengthscales())
}

func TestRBFValidation(t *testing.T) {
	assert.Panics(t, func() { NewRBF([]float64{-1.0}, 1.0) })
	assert.Panics(t, func() { NewRBF([]float64{1.0}, 0.0) })
	assert.Panics(t, func() { NewRBF(nil, 1.0) })
}

func TestProductLengthscaleMirroring(t *testing.T) {
	first := NewRBF([]float64{1.0, 2.0}, 1.0)
	second := NewRBF([]float64{7.0, 9.0}, 1.0)
	k := NewProduct(first, second)

	// Both halves share the first factor's per-axis scales.
	assert.Equal(t, []float64{1.0, 2.0, 1.0, 2.0}, k.Lengthscales())
}

func TestProductEval(t *testing.T) {
	first := NewRBF([]float64{1.0, 2.0}, 1.0)
	second := NewRBF([]float64{1.0, 2.0}, 1.0)
	k := NewProduct(first, second)

	x1 := []float64{0.1, 0.2, 0.3, 0.4}
	x2 := []float64{0.5, 0.6, 0.7, 0.8}

	want := first.Eval(x1[:2], x2[:2]) * second.Eval(x1[2:], x2[2:])
	assert.InDelta(t, want, k.Eval(x1, x2), 1e-12)

	require.Equal(t, 1.0, k.Variance())
}

func TestProductValidation(t *testing.T) {
	assert.Panics(t, func() { NewProduct(nil, NewRBF([]float64{1}, 1)) })
	assert.Panics(t, func() {
		NewProduct(NewRBF([]float64{1}, 1), NewRBF([]float64{1, 2}, 1))
	})
}
