// Package fourier implements Thompson sampling over the posterior of a
// variational GP by approximating the RBF kernel with random Fourier
// features. Each posterior draw becomes a linear-in-features function
// whose maximizer is located with gradient-based optimization.
package fourier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/Hsiang-1/HDPBO-reproduction/internal/sampling/kernels"
)

// Features maps points to random Fourier features of the RBF kernel:
//
//	phi[i,j] = sqrt(2/D) * cos(W[j]·X[i] + b[j])
//
// X is (n, d), W is (D, d), b has length D; the result is (n, D).
// The normalizing constant alpha of the full RFF kernel approximation
// is omitted: it is a positive scalar and does not move the argmax.
func Features(X, W *mat.Dense, b *mat.VecDense) *mat.Dense {
	n, _ := X.Dims()
	D, _ := W.Dims()
	phi := mat.NewDense(n, D, nil)
	FeaturesInto(phi, X, W, b)
	return phi
}

// FeaturesInto is Features writing into a preallocated (n, D) matrix,
// used by the maximizer search to avoid reallocating every step.
func FeaturesInto(dst, X, W *mat.Dense, b *mat.VecDense) {
	D, _ := W.Dims()
	scale := math.Sqrt(2.0 / float64(D))

	// dst = X W^T, then shift by b and take the scaled cosine in place.
	dst.Mul(X, W.T())
	n, _ := X.Dims()
	for i := 0; i < n; i++ {
		row := dst.RawRowView(i)
		for j := 0; j < D; j++ {
			row[j] = scale * math.Cos(row[j]+b.AtVec(j))
		}
	}
}

// SampleFourierFeatures draws count independent random Fourier feature
// approximations of the GP prior at the points X. For each batch entry
// it samples W[j,k] ~ N(0, 1/lengthscale[k]) and b[j] ~ U[0, 2pi), then
// maps X through Features.
//
// X holds count replicas of the (n, d) evaluation points. Degenerate
// lengthscales (zero or negative) are the caller's responsibility.
func SampleFourierFeatures(X []*mat.Dense, kernel kernels.Kernel, D int, rng *rand.Rand) (phi, W []*mat.Dense, b []*mat.VecDense) {
	count := len(X)
	_, d := X[0].Dims()
	ls := kernel.Lengthscales()

	phi = make([]*mat.Dense, count)
	W = make([]*mat.Dense, count)
	b = make([]*mat.VecDense, count)

	for c := 0; c < count; c++ {
		Wc := mat.NewDense(D, d, nil)
		for j := 0; j < D; j++ {
			row := Wc.RawRowView(j)
			for k := 0; k < d; k++ {
				row[k] = rng.NormFloat64() / ls[k]
			}
		}

		bc := mat.NewVecDense(D, nil)
		for j := 0; j < D; j++ {
			bc.SetVec(j, rng.Float64()*2.0*math.Pi)
		}

		W[c] = Wc
		b[c] = bc
		phi[c] = Features(X[c], Wc, bc)
	}

	return phi, W, b
}
