package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Hsiang-1/HDPBO-reproduction/internal/sampling/kernels"
)

func TestModelValidate(t *testing.T) {
	model := &Model{
		Kernel: kernels.NewIsotropicRBF(1.0, 1, 1.0),
		QMu:    mat.NewVecDense(3, nil),
		QSqrt:  mat.NewDense(3, 3, nil),
	}
	require.NoError(t, model.Validate())

	t.Run("nil model", func(t *testing.T) {
		var m *Model
		assert.Error(t, m.Validate())
	})

	t.Run("nil kernel", func(t *testing.T) {
		m := &Model{QMu: mat.NewVecDense(3, nil), QSqrt: mat.NewDense(3, 3, nil)}
		assert.Error(t, m.Validate())
	})

	t.Run("shape mismatch", func(t *testing.T) {
		m := &Model{
			Kernel: kernels.NewIsotropicRBF(1.0, 1, 1.0),
			QMu:    mat.NewVecDense(3, nil),
			QSqrt:  mat.NewDense(2, 2, nil),
		}
		err := m.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "q_sqrt")
	})
}
