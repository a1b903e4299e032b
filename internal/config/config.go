package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/chaosnet/internal/analysis"
	"github.com/san-kum/chaosnet/internal/dynamo"
)

const (
	DefaultN            = 200
	DefaultCoupling     = 1.2
	DefaultGain         = 1.0
	DefaultSeed         = 28031987
	DefaultPerturbation = 1e-8
	DefaultDataDir      = "runs"
)

// Environment overrides, read after .env files are loaded.
const (
	EnvDataDir = "CHAOSNET_DATA"
	EnvSeed    = "CHAOSNET_SEED"
	EnvWorkers = "CHAOSNET_WORKERS"
)

type Config struct {
	N           int                 `yaml:"n"`
	Couplings   []float64           `yaml:"couplings"`
	Gain        float64             `yaml:"gain"`
	Seed        int64               `yaml:"seed"`
	Runs        int                 `yaml:"runs"`
	Workers     int                 `yaml:"workers"`
	BurnIn      dynamo.Window       `yaml:"burn_in"`
	Observe     dynamo.Window       `yaml:"observe"`
	Solver      dynamo.SolverConfig `yaml:"solver"`
	Lyapunov    LyapunovConfig      `yaml:"lyapunov"`
	Correlation CorrelationConfig   `yaml:"correlation"`
	DataDir     string              `yaml:"data_dir"`
}

type LyapunovConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Window       dynamo.Window `yaml:"window" json:"window"`
	Perturbation float64       `yaml:"perturbation" json:"perturbation"`
}

type CorrelationConfig struct {
	Mode string `yaml:"mode" json:"mode"`
	Unit int    `yaml:"unit" json:"unit"`
}

func DefaultConfig() *Config {
	return &Config{
		N:         DefaultN,
		Couplings: []float64{DefaultCoupling},
		Gain:      DefaultGain,
		Seed:      DefaultSeed,
		Runs:      1,
		BurnIn:    dynamo.Window{T0: 0, Tf: 500, Dt: 1},
		Observe:   dynamo.Window{T0: 0, Tf: 200, Dt: 0.1},
		Solver:    dynamo.DefaultSolverConfig(),
		Lyapunov: LyapunovConfig{
			Enabled:      true,
			Window:       dynamo.Window{T0: 0, Tf: 50, Dt: 0.5},
			Perturbation: DefaultPerturbation,
		},
		Correlation: CorrelationConfig{Mode: string(analysis.SingleUnitMode)},
		DataDir:     DefaultDataDir,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file over a copy of base, so keys absent from the file
// keep base's values. base is not modified.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy so presets are never mutated by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Couplings = append([]float64(nil), c.Couplings...)
	return &out
}

func (c *Config) Validate() error {
	if c.N <= 0 {
		return fmt.Errorf("n=%d: %w", c.N, dynamo.ErrInvalidDimension)
	}
	if len(c.Couplings) == 0 {
		return fmt.Errorf("no coupling strengths: %w", dynamo.ErrInvalidParameter)
	}
	for _, s := range c.Couplings {
		if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("coupling %g: %w", s, dynamo.ErrInvalidParameter)
		}
	}
	if math.IsNaN(c.Gain) || math.IsInf(c.Gain, 0) {
		return fmt.Errorf("gain %g: %w", c.Gain, dynamo.ErrInvalidParameter)
	}
	if c.Runs < 1 {
		return fmt.Errorf("runs=%d: %w", c.Runs, dynamo.ErrInvalidParameter)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers=%d: %w", c.Workers, dynamo.ErrInvalidParameter)
	}
	if err := c.BurnIn.Validate(); err != nil {
		return fmt.Errorf("burn_in: %w", err)
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	if c.Lyapunov.Enabled {
		if err := c.Lyapunov.Window.Validate(); err != nil {
			return fmt.Errorf("lyapunov.window: %w", err)
		}
		if !(c.Lyapunov.Perturbation > 0) || math.IsInf(c.Lyapunov.Perturbation, 0) {
			return fmt.Errorf("lyapunov.perturbation %g: %w", c.Lyapunov.Perturbation, dynamo.ErrInvalidParameter)
		}
	}
	if _, err := analysis.ParseCorrelationMode(c.Correlation.Mode); err != nil {
		return err
	}
	if c.Correlation.Unit < 0 || c.Correlation.Unit >= c.N {
		return fmt.Errorf("correlation.unit %d outside [0, %d): %w", c.Correlation.Unit, c.N, dynamo.ErrInvalidParameter)
	}
	return nil
}

// LoadEnv loads the given .env files into the process environment. Missing
// files are skipped; existing variables are not overwritten.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides data_dir, seed and workers from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvSeed, v, dynamo.ErrInvalidParameter)
		}
		c.Seed = seed
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		w, err := strconv.Atoi(v)
		if err != nil || w < 0 {
			return fmt.Errorf("%s=%q: %w", EnvWorkers, v, dynamo.ErrInvalidParameter)
		}
		c.Workers = w
	}
	return nil
}
