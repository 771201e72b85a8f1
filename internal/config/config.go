package config

import (
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/Hsiang-1/HDPBO-reproduction/internal/sampling/fourier"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Sampling struct {
		NumFeatures    int     `env:"SAMPLING_NUM_FEATURES" envDefault:"100"`
		NumSteps       int     `env:"SAMPLING_NUM_STEPS" envDefault:"3000"`
		ConvergenceTol float64 `env:"SAMPLING_CONVERGENCE_TOL" envDefault:"1e-7"`
		LearningRate   float64 `env:"SAMPLING_LEARNING_RATE" envDefault:"0.001"`
		WorkerCount    int     `env:"SAMPLING_WORKER_COUNT" envDefault:"4"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if cfg.Sampling.NumSteps < 1 {
		cfg.Sampling.NumSteps = fourier.DefaultNumSteps
	}
	if cfg.Sampling.ConvergenceTol <= 0 {
		cfg.Sampling.ConvergenceTol = fourier.DefaultConvergenceTol
	}

	return cfg, nil
}

// GetEnv returns the value of the environment variable or the default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt returns the value of the environment variable as int or the default value
func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
