// Package config provides configuration management for frame operations.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables for frame evaluation.
type Config struct {
	// ParallelThreshold is the minimum group count before eager group
	// aggregation fans out to the worker pool.
	ParallelThreshold int `json:"parallel_threshold" yaml:"parallel_threshold"`
	// WorkerPoolSize is the number of worker goroutines (0 = CPU count).
	WorkerPoolSize int `json:"worker_pool_size" yaml:"worker_pool_size"`
	// ChunkSize is the row-chunk size for parallel scans (0 = auto).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`
	// MaxParallelism caps concurrently running operations.
	MaxParallelism int `json:"max_parallelism" yaml:"max_parallelism"`
	// VerboseLogging enables extra diagnostics in the CLI.
	VerboseLogging bool `json:"verbose_logging" yaml:"verbose_logging"`
}

var (
	globalConfig Config
	configMutex  sync.RWMutex
)

const (
	DefaultParallelThreshold = 1000
	DefaultMaxParallelism    = 16
)

func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a configuration with default values.
func NewConfig() Config {
	return Config{
		ParallelThreshold: DefaultParallelThreshold,
		WorkerPoolSize:    0,
		ChunkSize:         0,
		MaxParallelism:    DefaultMaxParallelism,
	}
}

// Validate returns an error when the configuration is inconsistent.
func (c *Config) Validate() error {
	if c.ParallelThreshold <= 0 {
		return fmt.Errorf("ParallelThreshold must be positive, got %d", c.ParallelThreshold)
	}
	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("WorkerPoolSize must be non-negative, got %d", c.WorkerPoolSize)
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("ChunkSize must be non-negative, got %d", c.ChunkSize)
	}
	if c.MaxParallelism <= 0 {
		return fmt.Errorf("MaxParallelism must be positive, got %d", c.MaxParallelism)
	}
	return nil
}

// WithDefaults fills zero values with defaults. Boolean fields are left
// alone so an explicit false stays distinguishable from unset.
func (c Config) WithDefaults() Config {
	defaults := NewConfig()
	if c.ParallelThreshold == 0 {
		c.ParallelThreshold = defaults.ParallelThreshold
	}
	if c.MaxParallelism == 0 {
		c.MaxParallelism = defaults.MaxParallelism
	}
	return c
}

// SetGlobalConfig replaces the process-wide configuration.
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current process-wide configuration.
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromJSON parses a configuration from JSON data.
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads a configuration file, dispatching on extension
// (.json, .yaml, .yml).
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}
	return config.WithDefaults(), nil
}

// LoadFromEnv reads FACET_* environment overrides on top of the defaults.
func LoadFromEnv() Config {
	config := NewConfig()

	if val := os.Getenv("FACET_PARALLEL_THRESHOLD"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.ParallelThreshold = parsed
		}
	}
	if val := os.Getenv("FACET_WORKER_POOL_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.WorkerPoolSize = parsed
		}
	}
	if val := os.Getenv("FACET_CHUNK_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.ChunkSize = parsed
		}
	}
	if val := os.Getenv("FACET_MAX_PARALLELISM"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.MaxParallelism = parsed
		}
	}
	if val := os.Getenv("FACET_VERBOSE_LOGGING"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.VerboseLogging = parsed
		}
	}

	return config
}
