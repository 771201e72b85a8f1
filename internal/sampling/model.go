package sampling

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/Hsiang-1/HDPBO-reproduction/internal/sampling/kernels"
)

// Model is the trained variational GP collaborator the samplers read
// from. The kernel and the variational parameters are supplied already
// fitted; this package never trains them.
type Model struct {
	// Kernel provides the per-dimension lengthscales used to draw the
	// random Fourier projections.
	Kernel kernels.Kernel

	// QMu is the variational posterior mean over function values at the
	// n evaluation points.
	QMu *mat.VecDense

	// QSqrt is the lower-triangular scale factor of the variational
	// posterior, so that q(f) = N(QMu, QSqrt QSqrt^T).
	QSqrt *mat.Dense
}

// Validate checks the model's shape consistency.
func (m *Model) Validate() error {
	const op = "Model.Validate"

	if m == nil {
		return WrapError(errors.New("model is nil"), "sampling: "+op)
	}
	if m.Kernel == nil {
		return WrapError(errors.New("kernel is nil"), "sampling: "+op)
	}
	if m.QMu == nil || m.QSqrt == nil {
		return WrapError(errors.New("variational parameters must not be nil"), "sampling: "+op)
	}

	n := m.QMu.Len()
	r, c := m.QSqrt.Dims()
	if r != n || c != n {
		return WrapError(
			NewErrorf("q_sqrt must be %dx%d to match q_mu, got %dx%d", n, n, r, c),
			"sampling: "+op,
		)
	}
	return nil
}
