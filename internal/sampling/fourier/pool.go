package fourier

import "gonum.org/v1/gonum/mat"

// matrixPool reuses matrix allocations across the optimization steps of
// a maximizer search. Matrices are only handed back out when the
// requested dimensions match.
type matrixPool struct {
	dense []*mat.Dense
	vecs  []*mat.VecDense
}

func newMatrixPool() *matrixPool {
	return &matrixPool{
		dense: make([]*mat.Dense, 0, 8),
		vecs:  make([]*mat.VecDense, 0, 8),
	}
}

// getDense returns an (r, c) matrix from the pool or allocates one.
func (p *matrixPool) getDense(r, c int) *mat.Dense {
	for i := len(p.dense) - 1; i >= 0; i-- {
		m := p.dense[i]
		mr, mc := m.Dims()
		if mr == r && mc == c {
			p.dense = append(p.dense[:i], p.dense[i+1:]...)
			return m
		}
	}
	return mat.NewDense(r, c, nil)
}

// putDense returns a matrix to the pool.
func (p *matrixPool) putDense(m *mat.Dense) {
	p.dense = append(p.dense, m)
}

// getVecDense returns a length-n vector from the pool or allocates one.
func (p *matrixPool) getVecDense(n int) *mat.VecDense {
	for i := len(p.vecs) - 1; i >= 0; i-- {
		v := p.vecs[i]
		if v.Len() == n {
			p.vecs = append(p.vecs[:i], p.vecs[i+1:]...)
			return v
		}
	}
	return mat.NewVecDense(n, nil)
}

// putVecDense returns a vector to the pool.
func (p *matrixPool) putVecDense(v *mat.VecDense) {
	p.vecs = append(p.vecs, v)
}
