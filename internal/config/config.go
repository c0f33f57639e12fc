// Package config loads the varqopt configuration from a YAML file, an
// optional .env file and VARQOPT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/varqopt/internal/backend"
	"github.com/cwbudde/varqopt/internal/opt"
	"github.com/cwbudde/varqopt/internal/solver"
)

// Backend kinds.
const (
	BackendSimulator = "simulator"
	// BackendLocalDevice routes circuits through the hardware adapter onto
	// the in-process simulator, exercising the OpenQASM round trip.
	BackendLocalDevice = "local-device"
)

// Config holds application configuration
type Config struct {
	DataDir   string        `yaml:"data_dir" validate:"required"`
	Addr      string        `yaml:"addr" validate:"required"`
	LogLevel  string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	Seed      uint64        `yaml:"seed"`
	Optimizer string        `yaml:"optimizer" validate:"oneof=neldermead mayfly"`
	Backend   BackendConfig `yaml:"backend"`

	PCE  solver.PCEConfig  `yaml:"pce"`
	QAOA solver.QAOAConfig `yaml:"qaoa"`
	VQE  solver.VQEConfig  `yaml:"vqe"`
}

// BackendConfig selects and decorates the execution backend.
type BackendConfig struct {
	Kind string `yaml:"kind" validate:"oneof=simulator local-device"`
	// ReadoutError flips every measured bit with this probability.
	ReadoutError float64       `yaml:"readout_error" validate:"gte=0,lte=1"`
	SubmitRate   float64       `yaml:"submit_rate" validate:"gte=0"`
	SubmitBurst  int           `yaml:"submit_burst" validate:"gte=0"`
	PollTimeout  time.Duration `yaml:"poll_timeout" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:   "data",
		Addr:      ":8080",
		LogLevel:  "info",
		Optimizer: "neldermead",
		Backend: BackendConfig{
			Kind:        BackendSimulator,
			PollTimeout: backend.DefaultPollTimeout,
		},
		PCE:  solver.DefaultPCEConfig(),
		QAOA: solver.DefaultQAOAConfig(),
		VQE:  solver.DefaultVQEConfig(),
	}
}

// Load reads path over the defaults (an empty path skips the file), then
// applies environment overrides and validates the result. A .env file in
// the working directory is loaded first if it exists.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	cfg.DataDir = abs

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	c.DataDir = getEnv("VARQOPT_DATA_DIR", c.DataDir)
	c.Addr = getEnv("VARQOPT_ADDR", c.Addr)
	c.LogLevel = getEnv("VARQOPT_LOG_LEVEL", c.LogLevel)
	if v := os.Getenv("VARQOPT_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid VARQOPT_SEED %q: %w", v, err)
		}
		c.SetSeed(seed)
	}
	return nil
}

// SetSeed applies seed to the top level and every solver section.
func (c *Config) SetSeed(seed uint64) {
	c.Seed = seed
	c.PCE.Seed = seed
	c.QAOA.Seed = seed
	c.VQE.Seed = seed
}

var validate = validator.New()

// Validate checks the struct tags of the whole tree.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewBackend builds the configured backend. A non-nil metrics wraps it with
// instrumentation labelled by kind.
func (c *Config) NewBackend(metrics *backend.Metrics) (backend.Backend, error) {
	var b backend.Backend
	switch c.Backend.Kind {
	case BackendSimulator:
		b = backend.NewSimulator(c.Seed)
	case BackendLocalDevice:
		opts := []backend.HardwareOption{backend.WithPollTimeout(c.Backend.PollTimeout)}
		if c.Backend.SubmitRate > 0 {
			opts = append(opts, backend.WithSubmitRate(c.Backend.SubmitRate, c.Backend.SubmitBurst))
		}
		b = backend.NewHardware(backend.NewLocalDevice(c.Seed), opts...)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", c.Backend.Kind)
	}

	if c.Backend.ReadoutError > 0 {
		noisy, err := backend.NewNoisy(b, c.Backend.ReadoutError, c.Seed+1)
		if err != nil {
			return nil, err
		}
		b = noisy
	}
	if metrics != nil {
		b = metrics.Instrument(c.Backend.Kind, b)
	}
	return b, nil
}

// NewOptimizer returns the configured optimizer with an evaluation budget.
func (c *Config) NewOptimizer(maxIter int) (opt.Optimizer, error) {
	return opt.New(c.Optimizer, maxIter, int64(c.Seed))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
