package fourier

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/Hsiang-1/HDPBO-reproduction/internal/sampling"
)

// SampleTheta draws one linear-model weight vector per feature sample
// such that phi @ theta is distributed as a draw from the variational
// posterior q(f) = N(qMu, qSqrt qSqrt^T) pushed through the features.
//
// phi holds count matrices of shape (n, D); qMu has length n and qSqrt
// is the (n, n) lower-triangular posterior scale. The result holds
// count weight vectors of length D.
//
// Returns ErrSingularMatrix (wrapped) when the Gram matrix of any
// sample cannot be inverted; the caller recovers by resampling.
func SampleTheta(phi []*mat.Dense, qMu *mat.VecDense, qSqrt *mat.Dense, rng *rand.Rand) ([]*mat.VecDense, error) {
	const op = "SampleTheta"

	count := len(phi)
	n := qMu.Len()

	theta := make([]*mat.VecDense, count)
	z := mat.NewVecDense(n, nil)
	f := mat.NewVecDense(n, nil)

	for c := 0; c < count; c++ {
		// f = qSqrt z + qMu, one posterior function-value draw.
		for i := 0; i < n; i++ {
			z.SetVec(i, rng.NormFloat64())
		}
		f.MulVec(qSqrt, z)
		f.AddVec(f, qMu)

		th, err := pseudoSolve(phi[c], f)
		if err != nil {
			return nil, sampling.WrapError(err, "fourier: "+op)
		}
		theta[c] = th
	}

	return theta, nil
}

// pseudoSolve finds the least-squares solution of phi @ theta = f via
// the Moore-Penrose pseudo-inverse, inverting whichever Gram matrix is
// smaller:
//
//	n >= D: theta = inv(phi^T phi) phi^T f   (normal equations, D x D)
//	n <  D: theta = phi^T inv(phi phi^T) f   (transpose identity, n x n)
//
// Both branches require the respective Gram matrix be non-singular;
// failure surfaces as ErrSingularMatrix.
func pseudoSolve(phi *mat.Dense, f *mat.VecDense) (*mat.VecDense, error) {
	n, D := phi.Dims()

	var gram, inv mat.Dense
	theta := mat.NewVecDense(D, nil)

	if n >= D {
		gram.Mul(phi.T(), phi)
		if err := inv.Inverse(&gram); err != nil {
			return nil, sampling.WrapError(sampling.ErrSingularMatrix, err.Error())
		}
		// theta = inv (phi^T f)
		ptf := mat.NewVecDense(D, nil)
		ptf.MulVec(phi.T(), f)
		theta.MulVec(&inv, ptf)
		return theta, nil
	}

	gram.Mul(phi, phi.T())
	if err := inv.Inverse(&gram); err != nil {
		return nil, sampling.WrapError(sampling.ErrSingularMatrix, err.Error())
	}
	// theta = phi^T (inv f)
	gf := mat.NewVecDense(n, nil)
	gf.MulVec(&inv, f)
	theta.MulVec(phi.T(), gf)
	return theta, nil
}
