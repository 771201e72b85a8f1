package kernels

import (
	"fmt"
	"math"
)

// Kernel represents a stationary kernel whose spectral lengthscales can
// be read per input dimension. The Fourier feature sampler only needs
// Lengthscales; Eval is kept for direct kernel evaluation.
type Kernel interface {
	// Eval computes the kernel value between two points x1 and x2
	Eval(x1, x2 []float64) float64

	// Lengthscales returns the per-input-dimension lengthscales
	Lengthscales() []float64

	// Variance returns the signal variance
	Variance() float64
}

// RBF implements the Radial Basis Function (squared exponential) kernel
// with automatic relevance determination: one lengthscale per dimension.
type RBF struct {
	// Per-dimension lengthscales (larger = smoother along that axis)
	lengthscales []float64
	// Signal variance (controls the amplitude of the function)
	signalVar float64
}

// NewRBF creates a new ARD RBF kernel with the given parameters
func NewRBF(lengthscales []float64, signalVar float64) *RBF {
	if len(lengthscales) == 0 {
		panic("lengthscales must not be empty")
	}
	for i, l := range lengthscales {
		if l <= 0 {
			panic(fmt.Sprintf("lengthscale[%d] must be positive, got %v", i, l))
		}
	}
	if signalVar <= 0 {
		panic(fmt.Sprintf("signalVar must be positive, got %v", signalVar))
	}
	return &RBF{
		lengthscales: append([]float64(nil), lengthscales...),
		signalVar:    signalVar,
	}
}

// NewIsotropicRBF creates an RBF kernel sharing one lengthscale across
// dims dimensions.
func NewIsotropicRBF(lengthscale float64, dims int, signalVar float64) *RBF {
	ls := make([]float64, dims)
	for i := range ls {
		ls[i] = lengthscale
	}
	return NewRBF(ls, signalVar)
}

// Eval computes the RBF kernel value between x1 and x2
func (k *RBF) Eval(x1, x2 []float64) float64 {
	sumSq := 0.0
	for i := range x1 {
		diff := (x1[i] - x2[i]) / k.lengthscales[i]
		sumSq += diff * diff
	}
	return k.signalVar * math.Exp(-sumSq/2.0)
}

// Lengthscales returns a copy of the per-dimension lengthscales
func (k *RBF) Lengthscales() []float64 {
	return append([]float64(nil), k.lengthscales...)
}

// Variance returns the signal variance
func (k *RBF) Variance() float64 {
	return k.signalVar
}

// Dims returns the number of input dimensions the kernel covers
func (k *RBF) Dims() int {
	return len(k.lengthscales)
}

// Product is a product of two kernels over equal-dimensional halves of
// the input, used when modeling a query-minus-reference difference
// representation. Both halves share the first factor's per-axis
// lengthscales: Lengthscales mirrors them into the second half.
type Product struct {
	first  Kernel
	second Kernel
}

// NewProduct creates a product kernel from two factors covering d/2
// dimensions each.
func NewProduct(first, second Kernel) *Product {
	if first == nil || second == nil {
		panic("product kernel factors must not be nil")
	}
	if len(first.Lengthscales()) != len(second.Lengthscales()) {
		panic(fmt.Sprintf("product kernel factors must cover equal dimensions, got %d and %d",
			len(first.Lengthscales()), len(second.Lengthscales())))
	}
	return &Product{first: first, second: second}
}

// Eval computes k1(x1[:h], x2[:h]) * k2(x1[h:], x2[h:])
func (k *Product) Eval(x1, x2 []float64) float64 {
	h := len(x1) / 2
	return k.first.Eval(x1[:h], x2[:h]) * k.second.Eval(x1[h:], x2[h:])
}

// Lengthscales returns the first factor's lengthscales mirrored into
// the second half, so both halves scale identically per axis.
func (k *Product) Lengthscales() []float64 {
	half := k.first.Lengthscales()
	out := make([]float64, 0, 2*len(half))
	out = append(out, half...)
	out = append(out, half...)
	return out
}

// Variance returns the product of the factors' signal variances
func (k *Product) Variance() float64 {
	return k.first.Variance() * k.second.Variance()
}
