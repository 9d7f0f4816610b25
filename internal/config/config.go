// Package config holds the engine's runtime configuration.
//
// Configuration can come from three places, in the order a caller usually
// layers them: Default() for the baked-in defaults, LoadFile for a YAML
// config file (the CLI's path), and LoadFromEnv for environment-variable
// overrides (NORNICDB_CORE_* prefixed). Validate checks the result before
// the store is opened.
//
// Example:
//
//	cfg := config.Default()
//	if err := cfg.LoadFromEnv(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every knob the core engine exposes.
type Config struct {
	// DataDir is where the KV backend keeps its files. Ignored when
	// InMemory is set.
	DataDir string `yaml:"data_dir"`

	// InMemory runs the KV backend entirely in memory. Nothing survives
	// process exit; intended for tests and experiments.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites forces an fsync on every commit. The reference
	// configuration leaves this off: durability is explicitly not
	// guaranteed beyond what the backend provides.
	SyncWrites bool `yaml:"sync_writes"`

	// BlockCacheMB sizes the backend's block cache in megabytes.
	BlockCacheMB int64 `yaml:"block_cache_mb"`

	// PullBudget caps the number of operator pulls a single query may
	// issue, bounding unbounded traversals. Zero disables the cap.
	PullBudget int64 `yaml:"pull_budget"`
}

// Default returns the baked-in defaults: on-disk store under ./data, a
// 512 MiB block cache, no sync-on-commit, no pull cap.
func Default() Config {
	return Config{
		DataDir:      "./data",
		BlockCacheMB: 512,
	}
}

// LoadFile reads a YAML config file over the receiver's current values.
// Fields absent from the file keep their prior values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv overlays NORNICDB_CORE_* environment variables onto the
// receiver. Unset variables leave their fields untouched.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("NORNICDB_CORE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	var err error
	if c.InMemory, err = envBool("NORNICDB_CORE_IN_MEMORY", c.InMemory); err != nil {
		return err
	}
	if c.SyncWrites, err = envBool("NORNICDB_CORE_SYNC_WRITES", c.SyncWrites); err != nil {
		return err
	}
	if c.BlockCacheMB, err = envInt64("NORNICDB_CORE_BLOCK_CACHE_MB", c.BlockCacheMB); err != nil {
		return err
	}
	if c.PullBudget, err = envInt64("NORNICDB_CORE_PULL_BUDGET", c.PullBudget); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if !c.InMemory && c.DataDir == "" {
		return fmt.Errorf("config: data_dir is required unless in_memory is set")
	}
	if c.BlockCacheMB < 0 {
		return fmt.Errorf("config: block_cache_mb must be >= 0, got %d", c.BlockCacheMB)
	}
	if c.PullBudget < 0 {
		return fmt.Errorf("config: pull_budget must be >= 0, got %d", c.PullBudget)
	}
	return nil
}

func envBool(name string, fallback bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("config: %s=%q: %w", name, v, err)
	}
	return b, nil
}

func envInt64(name string, fallback int64) (int64, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback, fmt.Errorf("config: %s=%q: %w", name, v, err)
	}
	return n, nil
}
