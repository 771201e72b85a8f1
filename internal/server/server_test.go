package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hsiang-1/HDPBO-reproduction/internal/config"
	"github.com/Hsiang-1/HDPBO-reproduction/internal/logging"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"
	cfg.Logging.Output = "stdout"

	cfg.Sampling.NumFeatures = 50
	cfg.Sampling.NumSteps = 100
	cfg.Sampling.ConvergenceTol = 1e-7
	cfg.Sampling.LearningRate = 0.001
	cfg.Sampling.WorkerCount = 2

	return cfg
}

// testLogger creates a test logger
func testLogger(t *testing.T) *logging.Logger {
	logger, err := logging.NewLogger(&logging.Config{
		Level:  "error",
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func testServer(t *testing.T) (*Server, chi.Router) {
	t.Helper()
	srv := NewServer(testConfig(t), testLogger(t), NewMetrics(prometheus.NewRegistry()))
	t.Cleanup(func() { srv.Close() })
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

// validRequest builds a small but well-formed sampling request.
func validRequest() SampleRequest {
	return SampleRequest{
		Lengthscales: []float64{0.5},
		Variance:     1.0,
		Points:       [][]float64{{0.1}, {0.4}, {0.7}},
		QMu:          []float64{0.2, 0.5, 0.1},
		QSqrt: [][]float64{
			{0.1, 0, 0},
			{0, 0.1, 0},
			{0, 0, 0.1},
		},
		Count:       2,
		NInit:       3,
		NumFeatures: 20,
		MinVal:      0,
		MaxVal:      1,
		NumSteps:    30,
		Seed:        7,
	}
}

func submitJob(t *testing.T, r chi.Router, req SampleRequest) string {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/maximizers", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rr.Code, "body: %s", rr.Body.String())

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotEmpty(t, resp["job_id"])
	assert.Equal(t, "pending", resp["status"])
	return resp["job_id"]
}

func jobStatus(t *testing.T, r chi.Router, id string) map[string]interface{} {
	t.Helper()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/jobs/"+id, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestNewServer(t *testing.T) {
	srv, _ := testServer(t)
	assert.NotNil(t, srv, "Server should be created")
}

func TestSubmitAndPollJob(t *testing.T) {
	_, r := testServer(t)
	req := validRequest()
	id := submitJob(t, r, req)

	var status map[string]interface{}
	deadline := time.Now().Add(10 * time.Second)
	for {
		status = jobStatus(t, r, id)
		if s := status["status"].(string); s == "completed" || s == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, last status: %v", status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Equal(t, "completed", status["status"], "error: %v", status["error"])

	maximizers, ok := status["maximizers"].([]interface{})
	require.True(t, ok, "completed job should carry maximizers")
	require.Len(t, maximizers, req.Count)
	for _, row := range maximizers {
		coords := row.([]interface{})
		require.Len(t, coords, 1)
		v := coords[0].(float64)
		assert.GreaterOrEqual(t, v, req.MinVal)
		assert.LessOrEqual(t, v, req.MaxVal)
	}
}

func TestSubmitInvalidBody(t *testing.T) {
	_, r := testServer(t)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/maximizers", bytes.NewReader([]byte("{not json"))))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSubmitValidation(t *testing.T) {
	_, r := testServer(t)

	cases := []struct {
		name   string
		mutate func(*SampleRequest)
	}{
		{"no points", func(r *SampleRequest) { r.Points = nil }},
		{"ragged points", func(r *SampleRequest) { r.Points = [][]float64{{0.1}, {0.2, 0.3}, {0.4}} }},
		{"no lengthscales", func(r *SampleRequest) { r.Lengthscales = nil }},
		{"negative lengthscale", func(r *SampleRequest) { r.Lengthscales = []float64{-0.5} }},
		{"zero variance", func(r *SampleRequest) { r.Variance = 0 }},
		{"q_mu length mismatch", func(r *SampleRequest) { r.QMu = []float64{0.1, 0.2} }},
		{"q_sqrt shape mismatch", func(r *SampleRequest) { r.QSqrt = r.QSqrt[:2] }},
		{"lengthscale dim mismatch", func(r *SampleRequest) { r.Lengthscales = []float64{0.5, 0.5} }},
		{"inverted bounds", func(r *SampleRequest) { r.MinVal, r.MaxVal = 1, 0 }},
		{"zero count", func(r *SampleRequest) { r.Count = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			body, err := json.Marshal(req)
			require.NoError(t, err)

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/maximizers", bytes.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestSubmitProductKernel(t *testing.T) {
	_, r := testServer(t)

	req := validRequest()
	req.ProductKernel = true
	req.Points = [][]float64{
		{0.1, 0.2},
		{0.4, 0.3},
		{0.7, 0.6},
	}
	id := submitJob(t, r, req)

	deadline := time.Now().Add(10 * time.Second)
	for {
		status := jobStatus(t, r, id)
		if status["status"] == "completed" {
			maximizers := status["maximizers"].([]interface{})
			require.Len(t, maximizers, req.Count)
			require.Len(t, maximizers[0].([]interface{}), 2)
			return
		}
		if status["status"] == "failed" {
			t.Fatalf("job failed: %v", status["error"])
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubmitProductKernelDimMismatch(t *testing.T) {
	_, r := testServer(t)

	// Two lengthscales against 2-D points: the product form needs
	// lengthscales covering only the first half of the dimensions.
	req := validRequest()
	req.ProductKernel = true
	req.Lengthscales = []float64{0.5, 0.5}
	req.Points = [][]float64{
		{0.1, 0.2},
		{0.4, 0.3},
		{0.7, 0.6},
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/maximizers", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusUnknownJob(t *testing.T) {
	_, r := testServer(t)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/jobs/job_0", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCancelUnknownJob(t *testing.T) {
	_, r := testServer(t)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/v1/jobs/job_0", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCancelJob(t *testing.T) {
	_, r := testServer(t)

	// A heavier job so cancellation usually lands before completion.
	req := validRequest()
	req.NumSteps = 3000
	req.NumFeatures = 200
	id := submitJob(t, r, req)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/v1/jobs/"+id, nil))

	if rr.Code == http.StatusOK {
		status := jobStatus(t, r, id)
		assert.Equal(t, "cancelled", status["status"])
		assert.Nil(t, status["maximizers"], "cancelled job must not expose a result")

		// Cancelling twice is rejected.
		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/v1/jobs/"+id, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	} else {
		// The job finished before the cancel arrived.
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	}
}

func TestClose(t *testing.T) {
	srv, _ := testServer(t)
	assert.NoError(t, srv.Close())
}

func TestBuildModelDefensiveCopies(t *testing.T) {
	req := validRequest()
	model, X, err := buildModel(&req)
	require.NoError(t, err)

	req.QMu[0] = 99
	req.Points[0][0] = 99
	assert.Equal(t, 0.2, model.QMu.AtVec(0))
	assert.Equal(t, 0.1, X.At(0, 0))
}
