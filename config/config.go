// Package config loads experiment descriptions from YAML files, with
// overrides from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sarchlab/ptpsim/freq"
	"github.com/sarchlab/ptpsim/pdv"
	"gopkg.in/yaml.v3"
)

// Config describes a full experiment.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Estimator  EstimatorConfig  `yaml:"estimator"`
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	Cache      CacheConfig      `yaml:"cache"`
	Recording  RecordingConfig  `yaml:"recording"`
	Monitor    MonitorConfig    `yaml:"monitor"`
}

// SimulationConfig configures the simulated exchange.
type SimulationConfig struct {
	NumExchanges int `yaml:"num_exchanges"`

	// SyncRate is the number of Sync messages per second.
	SyncRate float64 `yaml:"sync_rate"`

	RTCFreqMHz       float64    `yaml:"rtc_freq_mhz"`
	FreqOffsetPPB    float64    `yaml:"freq_offset_ppb"`
	IntervalJitterNs float64    `yaml:"interval_jitter_ns"`
	Seed             uint64     `yaml:"seed"`
	PDV              pdv.Config `yaml:"pdv"`
}

// EstimatorConfig configures the frequency offset estimator.
type EstimatorConfig struct {
	Delta    int           `yaml:"delta"`
	Strategy freq.Strategy `yaml:"strategy"`
}

// OptimizerConfig configures the parameter searches.
type OptimizerConfig struct {
	Loss          freq.Loss      `yaml:"loss"`
	Criterion     freq.Criterion `yaml:"criterion"`
	MaxWindowSpan float64        `yaml:"max_window_span"`
	MaxTransient  float64        `yaml:"max_transient"`
	Force         bool           `yaml:"force"`
}

// CacheConfig tells where optimal loop configurations are kept.
type CacheConfig struct {
	Path string `yaml:"path"`
	ID   string `yaml:"id"`
}

// RecordingConfig tells where datasets are written. An empty output picks a
// unique file name.
type RecordingConfig struct {
	Output string `yaml:"output"`
	Table  string `yaml:"table"`
}

// MonitorConfig configures the monitoring server.
type MonitorConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Default returns 2000 exchanges at 16 Sync per second between 125 MHz
// clocks, estimated with a window of 64 samples.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			NumExchanges:     2000,
			SyncRate:         16,
			RTCFreqMHz:       125,
			IntervalJitterNs: 1500,
			Seed:             1,
			PDV:              pdv.DefaultConfig(),
		},
		Estimator: EstimatorConfig{
			Delta:    64,
			Strategy: freq.TwoWay,
		},
		Optimizer: OptimizerConfig{
			Loss:          freq.MSE,
			Criterion:     freq.Cumulative,
			MaxWindowSpan: 0.2,
			MaxTransient:  0.2,
		},
		Cache: CacheConfig{
			Path: "ptpsim_cache.sqlite3",
			ID:   "loop",
		},
		Recording: RecordingConfig{
			Table: "exchange",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return c, nil
}

// Validate checks that the experiment can run.
func (c *Config) Validate() error {
	s := c.Simulation

	switch {
	case s.NumExchanges <= 0:
		return fmt.Errorf("num_exchanges must be positive, got %d", s.NumExchanges)
	case s.SyncRate <= 0:
		return fmt.Errorf("sync_rate must be positive, got %g", s.SyncRate)
	case s.RTCFreqMHz <= 0:
		return fmt.Errorf("rtc_freq_mhz must be positive, got %g", s.RTCFreqMHz)
	case s.IntervalJitterNs < 0:
		return fmt.Errorf("interval_jitter_ns must not be negative, got %g",
			s.IntervalJitterNs)
	}

	if err := s.PDV.Validate(); err != nil {
		return fmt.Errorf("pdv: %w", err)
	}

	if c.Estimator.Delta <= 0 {
		return fmt.Errorf("delta must be positive, got %d", c.Estimator.Delta)
	}

	o := c.Optimizer
	if o.MaxWindowSpan <= 0 || o.MaxWindowSpan > 1 {
		return fmt.Errorf("max_window_span must be in (0, 1], got %g",
			o.MaxWindowSpan)
	}

	if o.MaxTransient <= 0 || o.MaxTransient >= 1 {
		return fmt.Errorf("max_transient must be in (0, 1), got %g",
			o.MaxTransient)
	}

	if c.Recording.Table == "" {
		return errors.New("recording table must not be empty")
	}

	return nil
}

// Environment variables that override the configuration.
const (
	EnvCachePath    = "PTPSIM_CACHE"
	EnvOutput       = "PTPSIM_OUTPUT"
	EnvMonitorPort  = "PTPSIM_MONITOR_PORT"
	EnvSeed         = "PTPSIM_SEED"
	EnvNumExchanges = "PTPSIM_NUM_EXCHANGES"
)

// LoadEnv loads the given dotenv files, ".env" if none, into the environment.
// Missing files are ignored and variables already set are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	return nil
}

// ApplyEnv overrides the configuration with the PTPSIM_* variables that are
// set.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvCachePath); ok {
		c.Cache.Path = v
	}

	if v, ok := os.LookupEnv(EnvOutput); ok {
		c.Recording.Output = v
	}

	if v, ok := os.LookupEnv(EnvMonitorPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMonitorPort, err)
		}

		c.Monitor.Enabled = true
		c.Monitor.Port = port
	}

	if v, ok := os.LookupEnv(EnvSeed); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}

		c.Simulation.Seed = seed
	}

	if v, ok := os.LookupEnv(EnvNumExchanges); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvNumExchanges, err)
		}

		c.Simulation.NumExchanges = n
	}

	return c.Validate()
}
