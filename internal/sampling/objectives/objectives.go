// Package objectives provides the black-box test functions consumed by
// the preference-learning loop, plus helpers that turn a function and a
// batch of candidate points into preference observations.
package objectives

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Hsiang-1/HDPBO-reproduction/internal/sampling"
)

// Objective is a pure scalar function over an input point.
type Objective func(x []float64) (float64, error)

// Forrester is the 1-dimensional test function by Forrester et al.
// (2008): f(x) = (6x-2)^2 * sin(12x-4), x in [0, 1].
func Forrester(x []float64) (float64, error) {
	x0 := x[0]
	t := 6.0*x0 - 2.0
	return t * t * math.Sin(12.0*x0-4.0), nil
}

// SixHumpCamel is the 2-D test function by Molga & Smutnicki (2005).
// Two global minima with f = -1.0316 at [0.0898, -0.7126] and
// [-0.0898, 0.7126].
func SixHumpCamel(x []float64) (float64, error) {
	x1, x2 := x[0], x[1]
	return (4.0-2.1*x1*x1+x1*x1*x1*x1/3.0)*x1*x1 +
		x1*x2 +
		(-4.0+4.0*x2*x2)*x2*x2, nil
}

// Hartmann3D is a 3-D test function with 4 local minima, global minimum
// f = -3.86278 at [0.114614, 0.555649, 0.852547], x in [0, 1]^3.
func Hartmann3D(x []float64) (float64, error) {
	alpha := [4]float64{1.0, 1.2, 3.0, 3.2}
	A := [4][3]float64{
		{3.0, 10, 30},
		{0.1, 10, 35},
		{3.0, 10, 30},
		{0.1, 10, 35},
	}
	P := [4][3]float64{
		{0.3689, 0.1170, 0.2673},
		{0.4699, 0.4387, 0.7470},
		{0.1091, 0.8732, 0.5547},
		{0.0381, 0.5743, 0.8828},
	}

	sum := 0.0
	for i := 0; i < 4; i++ {
		inner := 0.0
		for j := 0; j < 3; j++ {
			diff := x[j] - P[i][j]
			inner += A[i][j] * diff * diff
		}
		sum += alpha[i] * math.Exp(-inner)
	}
	return -sum, nil
}

// NegObservations evaluates the objective at every choice point and
// returns the negated values as a (numChoices) vector. The observation
// model treats larger values as more preferred, while the objectives
// above are minimized, hence the negation.
func NegObservations(f Objective, choices *mat.Dense) (*mat.VecDense, error) {
	numChoices, _ := choices.Dims()
	out := mat.NewVecDense(numChoices, nil)
	for i := 0; i < numChoices; i++ {
		v, err := f(choices.RawRowView(i))
		if err != nil {
			return nil, err
		}
		out.SetVec(i, -v)
	}
	return out, nil
}

// Preferred returns the choice point with the lowest objective value,
// the preferred point of the batch. Ties break toward the lowest index.
func Preferred(f Objective, choices *mat.Dense) ([]float64, error) {
	numChoices, _ := choices.Dims()
	if numChoices == 0 {
		return nil, sampling.WrapError(errors.New("no choice points"), "objectives: Preferred")
	}

	best := 0
	bestVal := math.Inf(1)
	for i := 0; i < numChoices; i++ {
		v, err := f(choices.RawRowView(i))
		if err != nil {
			return nil, err
		}
		if v < bestVal {
			bestVal = v
			best = i
		}
	}
	return append([]float64(nil), choices.RawRowView(best)...), nil
}

// PreferredBatch applies Preferred to each query's choice batch and
// stacks the winners into a (len(queries), d) matrix.
func PreferredBatch(f Objective, queries []*mat.Dense) (*mat.Dense, error) {
	if len(queries) == 0 {
		return nil, sampling.WrapError(errors.New("no queries"), "objectives: PreferredBatch")
	}
	_, d := queries[0].Dims()
	out := mat.NewDense(len(queries), d, nil)
	for q, choices := range queries {
		winner, err := Preferred(f, choices)
		if err != nil {
			return nil, err
		}
		out.SetRow(q, winner)
	}
	return out, nil
}
