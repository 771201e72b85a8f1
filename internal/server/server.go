package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"gonum.org/v1/gonum/mat"

	"github.com/Hsiang-1/HDPBO-reproduction/internal/config"
	"github.com/Hsiang-1/HDPBO-reproduction/internal/logging"
	"github.com/Hsiang-1/HDPBO-reproduction/internal/sampling"
	"github.com/Hsiang-1/HDPBO-reproduction/internal/sampling/fourier"
	"github.com/Hsiang-1/HDPBO-reproduction/internal/sampling/kernels"
)

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// SampleRequest is the payload of POST /api/v1/maximizers. It carries
// the fitted model (kernel hyperparameters and variational posterior)
// together with the sampling parameters.
type SampleRequest struct {
	// Kernel hyperparameters of the fitted ARD RBF kernel.
	Lengthscales []float64 `json:"lengthscales"`
	Variance     float64   `json:"variance"`
	// ProductKernel mirrors the lengthscales into a second equal half,
	// for the query-minus-reference difference representation.
	ProductKernel bool `json:"product_kernel,omitempty"`

	// Points are the n evaluation points underlying the posterior, row-major n x d.
	Points [][]float64 `json:"points"`
	// QMu and QSqrt are the variational posterior parameters.
	QMu   []float64   `json:"q_mu"`
	QSqrt [][]float64 `json:"q_sqrt"`

	Count       int     `json:"count"`
	NInit       int     `json:"n_init"`
	NumFeatures int     `json:"num_features,omitempty"`
	MinVal      float64 `json:"min_val"`
	MaxVal      float64 `json:"max_val"`
	NumSteps    int     `json:"num_steps,omitempty"`
	Seed        int64   `json:"seed,omitempty"`
}

// JobState represents the state of a sampling job. It is thread-safe
// and can be polled concurrently while the job runs.
type JobState struct {
	ID          string
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	StartTime   time.Time
	EndTime     *time.Time
	Maximizers  [][]float64
	Err         string
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
}

// Server implements the HTTP API of the maximizer sampling service.
// It manages sampling jobs and provides endpoints to submit, poll, and
// cancel them.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *Metrics

	jobs   map[string]*JobState
	jobsMu sync.RWMutex
}

// NewServer creates a new server instance with the given config and logger.
func NewServer(cfg *config.Config, logger Logger, metrics *Metrics) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		jobs:    make(map[string]*JobState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/maximizers", s.handleSubmit)
		r.Get("/jobs/{id}", s.handleStatus)
		r.Delete("/jobs/{id}", s.handleCancel)
	})
}

// handleSubmit starts a new sampling job and returns its ID.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	model, X, err := buildModel(&req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := fourier.Config{
		Count:       req.Count,
		NInit:       req.NInit,
		NumFeatures: req.NumFeatures,
		MinVal:      req.MinVal,
		MaxVal:      req.MaxVal,
		NumSteps:    req.NumSteps,
		RandomSeed:  req.Seed,
	}
	if cfg.NumFeatures == 0 {
		cfg.NumFeatures = s.cfg.Sampling.NumFeatures
	}
	if cfg.NumSteps == 0 {
		cfg.NumSteps = s.cfg.Sampling.NumSteps
	}

	sampler, err := fourier.NewSampler(model, cfg)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sampler.SetLogger(logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{
		"component": "fourier_sampler",
	})))

	id := fmt.Sprintf("job_%d", time.Now().UnixNano())
	ctx, cancel := context.WithCancel(context.Background())

	state := &JobState{
		ID:          id,
		Status:      "pending",
		StartTime:   time.Now(),
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
	}

	s.jobsMu.Lock()
	s.jobs[id] = state
	s.jobsMu.Unlock()

	go s.runJob(ctx, state, sampler, X)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"job_id": id,
		"status": "pending",
	})
}

// buildModel converts the request payload into a validated Model plus
// the evaluation-point matrix.
func buildModel(req *SampleRequest) (*sampling.Model, *mat.Dense, error) {
	if len(req.Points) == 0 || len(req.Points[0]) == 0 {
		return nil, nil, fmt.Errorf("points are required")
	}
	if len(req.Lengthscales) == 0 {
		return nil, nil, fmt.Errorf("lengthscales are required")
	}
	for _, l := range req.Lengthscales {
		if l <= 0 {
			return nil, nil, fmt.Errorf("lengthscales must be positive")
		}
	}
	if req.Variance <= 0 {
		return nil, nil, fmt.Errorf("variance must be positive")
	}

	n := len(req.Points)
	d := len(req.Points[0])
	X := mat.NewDense(n, d, nil)
	for i, row := range req.Points {
		if len(row) != d {
			return nil, nil, fmt.Errorf("points must be rectangular")
		}
		X.SetRow(i, row)
	}

	if len(req.QMu) != n {
		return nil, nil, fmt.Errorf("q_mu must have length %d, got %d", n, len(req.QMu))
	}
	if len(req.QSqrt) != n {
		return nil, nil, fmt.Errorf("q_sqrt must be %dx%d", n, n)
	}
	qSqrt := mat.NewDense(n, n, nil)
	for i, row := range req.QSqrt {
		if len(row) != n {
			return nil, nil, fmt.Errorf("q_sqrt must be %dx%d", n, n)
		}
		qSqrt.SetRow(i, row)
	}

	var kernel kernels.Kernel
	rbf := kernels.NewRBF(req.Lengthscales, req.Variance)
	kernel = rbf
	if req.ProductKernel {
		if len(req.Lengthscales)*2 != d {
			return nil, nil, fmt.Errorf("product kernel needs lengthscales for half of %d dimensions", d)
		}
		kernel = kernels.NewProduct(rbf, rbf)
	} else if len(req.Lengthscales) != d {
		return nil, nil, fmt.Errorf("lengthscales must have length %d, got %d", d, len(req.Lengthscales))
	}

	model := &sampling.Model{
		Kernel: kernel,
		QMu:    mat.NewVecDense(n, append([]float64(nil), req.QMu...)),
		QSqrt:  qSqrt,
	}
	if err := model.Validate(); err != nil {
		return nil, nil, err
	}
	return model, X, nil
}

// runJob executes a sampling job in a goroutine.
func (s *Server) runJob(ctx context.Context, state *JobState, sampler *fourier.Sampler, X *mat.Dense) {
	s.jobsMu.Lock()
	state.Status = "running"
	state.LastUpdated = time.Now()
	s.jobsMu.Unlock()
	s.metrics.JobsRunning.Inc()
	defer s.metrics.JobsRunning.Dec()

	start := time.Now()
	maximizers, err := sampler.SampleMaximizers(X)
	elapsed := time.Since(start)
	if n := sampler.Resamples(); n > 0 {
		s.metrics.ResampleDiscarded.Add(float64(n))
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	// A cancelled job discards its result even if sampling finished.
	if ctx.Err() != nil && state.Status == "cancelled" {
		return
	}

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	if err != nil {
		s.logger.Error("Sampling job failed", map[string]interface{}{
			"job_id": state.ID,
			"error":  err.Error(),
		})
		state.Status = "failed"
		state.Err = err.Error()
		s.metrics.JobsTotal.WithLabelValues("failed").Inc()
		return
	}

	rows, cols := maximizers.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		copy(out[i], maximizers.RawRowView(i))
	}
	state.Status = "completed"
	state.Maximizers = out
	s.metrics.JobsTotal.WithLabelValues("completed").Inc()
	s.metrics.JobDuration.Observe(elapsed.Seconds())

	s.logger.Info("Sampling job completed", map[string]interface{}{
		"job_id":     state.ID,
		"count":      rows,
		"elapsed_ms": elapsed.Milliseconds(),
	})
}

// handleStatus returns the current status and result of a job.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	s.jobsMu.RLock()
	state, exists := s.jobs[id]
	if !exists {
		s.jobsMu.RUnlock()
		s.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	response := map[string]interface{}{
		"job_id":      state.ID,
		"status":      state.Status,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Maximizers != nil {
		response["maximizers"] = state.Maximizers
	}
	if state.Err != "" {
		response["error"] = state.Err
	}
	s.jobsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleCancel cancels a pending or running job.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	s.jobsMu.Lock()
	state, exists := s.jobs[id]
	if !exists {
		s.jobsMu.Unlock()
		s.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		s.jobsMu.Unlock()
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("cannot cancel job with status: %s", state.Status))
		return
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}
	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	s.jobsMu.Unlock()
	s.metrics.JobsTotal.WithLabelValues("cancelled").Inc()

	s.logger.Info("Sampling job cancelled", map[string]interface{}{
		"job_id": id,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "cancelled",
	})
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  status,
		"message": message,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// Close cancels all running jobs.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	for _, job := range s.jobs {
		if job.CancelFunc != nil {
			job.CancelFunc()
		}
	}
	return nil
}
