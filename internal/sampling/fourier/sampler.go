package fourier

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/Hsiang-1/HDPBO-reproduction/internal/sampling"
)

// Default optimization constants for the maximizer search.
const (
	// DefaultNumSteps is the default gradient-step budget.
	DefaultNumSteps = 3000
	// DefaultConvergenceTol is the default relative-change threshold of
	// the early-stopping rule.
	DefaultConvergenceTol = 1e-7
	// DefaultLearningRate is the default step size.
	DefaultLearningRate = 1e-3
	// DefaultEpsilon stabilizes the adaptive step-size denominator.
	DefaultEpsilon = 1e-7
)

// Config configures a maximizer sampling run.
type Config struct {
	// Count is the number of maximizers to sample. Each is taken from
	// one independent posterior function sample.
	Count int

	// NInit is the number of initializing candidate points per function
	// sample; the best candidate after optimization wins.
	NInit int

	// NumFeatures is the number of random Fourier features D.
	NumFeatures int

	// MinVal and MaxVal bound every maximizer coordinate elementwise.
	MinVal float64
	MaxVal float64

	// NumSteps is the gradient-step budget. Defaults to DefaultNumSteps.
	NumSteps int

	// ConvergenceTol is the relative loss-change threshold for early
	// stopping. Defaults to DefaultConvergenceTol.
	ConvergenceTol float64

	// LearningRate is the optimizer step size. Defaults to DefaultLearningRate.
	LearningRate float64

	// Rho is the moving-average decay of the adaptive step-size rule.
	// The default 0 disables the moving average, which reduces the rule
	// to plain normalized gradient descent.
	Rho float64

	// Epsilon stabilizes the step-size denominator. Defaults to DefaultEpsilon.
	Epsilon float64

	// RandomSeed seeds the sampler's randomness; 0 seeds from the clock.
	RandomSeed int64
}

// Sampler samples maximizers of posterior function draws from a trained
// variational GP model.
type Sampler struct {
	model *sampling.Model
	cfg   Config

	rng  *rand.Rand
	pool *matrixPool

	// resamples holds the discarded draw count of the last run.
	resamples int

	logger *zap.Logger
}

// NewSampler creates a Sampler for the given fitted model.
func NewSampler(model *sampling.Model, cfg Config) (*Sampler, error) {
	const op = "NewSampler"

	if err := model.Validate(); err != nil {
		return nil, sampling.WrapError(err, "fourier: "+op)
	}
	if cfg.Count < 1 {
		return nil, sampling.WrapError(errors.New("count must be at least 1"), "fourier: "+op)
	}
	if cfg.NInit < 1 {
		return nil, sampling.WrapError(errors.New("n_init must be at least 1"), "fourier: "+op)
	}
	if cfg.NumFeatures < 1 {
		return nil, sampling.WrapError(errors.New("num_features must be at least 1"), "fourier: "+op)
	}
	if !(cfg.MinVal < cfg.MaxVal) {
		return nil, sampling.WrapError(
			sampling.NewErrorf("invalid bounds [%v, %v]", cfg.MinVal, cfg.MaxVal),
			"fourier: "+op,
		)
	}

	if cfg.NumSteps < 1 {
		cfg.NumSteps = DefaultNumSteps
	}
	if cfg.ConvergenceTol <= 0 {
		cfg.ConvergenceTol = DefaultConvergenceTol
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = DefaultLearningRate
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}

	rng := rand.New(rand.NewSource(cfg.RandomSeed))
	if cfg.RandomSeed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	logger, _ := zap.NewDevelopment()

	return &Sampler{
		model:  model,
		cfg:    cfg,
		rng:    rng,
		pool:   newMatrixPool(),
		logger: logger.Named("fourier_sampler"),
	}, nil
}

// SetLogger replaces the sampler's logger.
func (s *Sampler) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Resamples reports how many feature draws the last SampleMaximizers
// run discarded to singular Gram matrices.
func (s *Sampler) Resamples() int {
	return s.resamples
}

// SampleFeaturesWeights draws (phi, W, b, theta) for count feature
// samples, redrawing all four whenever the weight solve hits a singular
// Gram matrix. Each failed attempt discards everything; no partial
// reuse. After MaxResampleAttempts consecutive failures it gives up
// with ErrRetryLimitExceeded. attempts reports how many draws were
// made, including the successful one.
func SampleFeaturesWeights(X []*mat.Dense, model *sampling.Model, D int, rng *rand.Rand, logger *zap.Logger) (phi, W []*mat.Dense, b, theta []*mat.VecDense, attempts int, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	err = sampling.Retry(sampling.MaxResampleAttempts,
		func(e error) bool { return errors.Is(e, sampling.ErrSingularMatrix) },
		func() error {
			attempts++
			phi, W, b = SampleFourierFeatures(X, model.Kernel, D, rng)
			var thErr error
			theta, thErr = SampleTheta(phi, model.QMu, model.QSqrt, rng)
			if thErr != nil {
				phi, W, b, theta = nil, nil, nil, nil
				logger.Warn("Resampling phi, W, b, theta",
					zap.Int("attempt", attempts),
					zap.Error(thErr),
				)
				return thErr
			}
			return nil
		})
	if err != nil {
		return nil, nil, nil, nil, attempts, err
	}
	return phi, W, b, theta, attempts, nil
}

// SampleMaximizers samples count maximizers from the posterior over the
// global maximizer, one per independent posterior function draw. X is
// the (n, d) matrix of evaluation points underlying the variational
// posterior. The result is (count, d); every coordinate lies within
// [MinVal, MaxVal].
func (s *Sampler) SampleMaximizers(X *mat.Dense) (*mat.Dense, error) {
	const op = "Sampler.SampleMaximizers"

	if X == nil {
		return nil, sampling.WrapError(errors.New("input matrix X is nil"), "fourier: "+op)
	}
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return nil, sampling.WrapError(errors.New("input matrix X must not be empty"), "fourier: "+op)
	}
	if n != s.model.QMu.Len() {
		return nil, sampling.WrapError(
			sampling.NewErrorf("X has %d points but q_mu has length %d", n, s.model.QMu.Len()),
			"fourier: "+op,
		)
	}

	s.logger.Debug("Sampling maximizers",
		zap.Int("count", s.cfg.Count),
		zap.Int("n_init", s.cfg.NInit),
		zap.Int("num_features", s.cfg.NumFeatures),
		zap.Int("points", n),
		zap.Int("dims", d),
	)

	// The replicas are read-only, so all count batch entries can share
	// the same backing matrix.
	replicas := make([]*mat.Dense, s.cfg.Count)
	for c := range replicas {
		replicas[c] = X
	}

	_, W, b, theta, attempts, err := SampleFeaturesWeights(replicas, s.model, s.cfg.NumFeatures, s.rng, s.logger)
	s.resamples = attempts - 1
	if err != nil {
		return nil, sampling.WrapError(err, "fourier: "+op)
	}

	xStar := s.initCandidates(d)
	s.optimizeCandidates(xStar, W, b, theta)
	return s.selectMaximizers(xStar, W, b, theta), nil
}

// initCandidates draws count swarms of nInit uniform candidates inside
// the box bounds.
func (s *Sampler) initCandidates(d int) []*mat.Dense {
	span := s.cfg.MaxVal - s.cfg.MinVal
	xStar := make([]*mat.Dense, s.cfg.Count)
	for c := range xStar {
		m := mat.NewDense(s.cfg.NInit, d, nil)
		for i := 0; i < s.cfg.NInit; i++ {
			row := m.RawRowView(i)
			for k := 0; k < d; k++ {
				row[k] = s.cfg.MinVal + s.rng.Float64()*span
			}
		}
		xStar[c] = m
	}
	return xStar
}

// optimizeCandidates runs up to NumSteps updates of every candidate in
// every swarm, minimizing the negated mean of the linear objective.
// The loss is a single scalar averaged over all count*nInit candidates;
// the objective is separable across the batch, so gradients still flow
// to each candidate's own coordinates. Stops early once the relative
// loss change drops below ConvergenceTol.
func (s *Sampler) optimizeCandidates(xStar []*mat.Dense, W []*mat.Dense, b, theta []*mat.VecDense) {
	count := s.cfg.Count
	nInit := s.cfg.NInit
	D := s.cfg.NumFeatures
	_, d := xStar[0].Dims()
	scale := math.Sqrt(2.0 / float64(D))
	invN := 1.0 / float64(count*nInit)

	// Per-step working buffers, reused across all steps.
	proj := s.pool.getDense(nInit, D)
	defer s.pool.putDense(proj)
	grads := make([]*mat.Dense, count)
	msAvg := make([]*mat.Dense, count)
	for c := 0; c < count; c++ {
		grads[c] = s.pool.getDense(nInit, d)
		msAvg[c] = s.pool.getDense(nInit, d)
		msAvg[c].Zero()
	}
	defer func() {
		for c := 0; c < count; c++ {
			s.pool.putDense(grads[c])
			s.pool.putDense(msAvg[c])
		}
	}()

	// lossAndGrads evaluates the scalar loss and fills grads at the
	// current candidate positions. For one candidate x the objective is
	// g(x) = sum_j theta_j * scale * cos(W_j.x + b_j), so
	// dLoss/dx_k = invN * sum_j theta_j * scale * sin(W_j.x + b_j) * W_jk.
	lossAndGrads := func() float64 {
		loss := 0.0
		for c := 0; c < count; c++ {
			proj.Mul(xStar[c], W[c].T())
			th := theta[c]
			for i := 0; i < nInit; i++ {
				row := proj.RawRowView(i)
				for j := 0; j < D; j++ {
					z := row[j] + b[c].AtVec(j)
					loss -= invN * scale * math.Cos(z) * th.AtVec(j)
					row[j] = scale * math.Sin(z) * th.AtVec(j)
				}
			}
			grads[c].Mul(proj, W[c])
			grads[c].Scale(invN, grads[c])
		}
		return loss
	}

	lr := s.cfg.LearningRate
	rho := s.cfg.Rho
	eps := s.cfg.Epsilon

	prevLoss := math.NaN()
	for step := 0; step < s.cfg.NumSteps; step++ {
		loss := lossAndGrads()

		if step%500 == 0 {
			s.logger.Debug("Maximizer optimization progress",
				zap.Int("step", step),
				zap.Float64("loss", loss),
			)
		}
		if step > 0 && math.Abs((loss-prevLoss)/prevLoss) < s.cfg.ConvergenceTol {
			s.logger.Debug("Maximizer optimization converged",
				zap.Int("step", step),
				zap.Float64("loss", loss),
			)
			break
		}
		prevLoss = loss

		// Moving-average adaptive step, then clamp back into the box.
		for c := 0; c < count; c++ {
			for i := 0; i < nInit; i++ {
				x := xStar[c].RawRowView(i)
				g := grads[c].RawRowView(i)
				ms := msAvg[c].RawRowView(i)
				for k := 0; k < d; k++ {
					ms[k] = rho*ms[k] + (1.0-rho)*g[k]*g[k]
					x[k] -= lr * g[k] / (math.Sqrt(ms[k]) + eps)
					if x[k] < s.cfg.MinVal {
						x[k] = s.cfg.MinVal
					} else if x[k] > s.cfg.MaxVal {
						x[k] = s.cfg.MaxVal
					}
				}
			}
		}
	}
}

// selectMaximizers recomputes per-candidate function values at the
// optimized positions and gathers the best candidate of each swarm.
// Ties break toward the lowest candidate index.
func (s *Sampler) selectMaximizers(xStar []*mat.Dense, W []*mat.Dense, b, theta []*mat.VecDense) *mat.Dense {
	count := s.cfg.Count
	nInit := s.cfg.NInit
	D := s.cfg.NumFeatures
	_, d := xStar[0].Dims()

	maximizers := mat.NewDense(count, d, nil)
	phiBuf := s.pool.getDense(nInit, D)
	defer s.pool.putDense(phiBuf)
	fvals := s.pool.getVecDense(nInit)
	defer s.pool.putVecDense(fvals)

	for c := 0; c < count; c++ {
		FeaturesInto(phiBuf, xStar[c], W[c], b[c])
		fvals.MulVec(phiBuf, theta[c])

		best := 0
		for i := 1; i < nInit; i++ {
			if fvals.AtVec(i) > fvals.AtVec(best) {
				best = i
			}
		}
		maximizers.SetRow(c, xStar[c].RawRowView(best))
	}
	return maximizers
}
