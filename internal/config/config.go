package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all jsonsmoke configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Document generation
	Generator GeneratorConfig `yaml:"generator"`

	// Where generated documents go
	Output OutputConfig `yaml:"output"`

	// JSON library under test
	Backend BackendConfig `yaml:"backend"`

	// Run history database
	History HistoryConfig `yaml:"history"`

	// Concurrent batch runs
	Batch BatchConfig `yaml:"batch"`

	// File watching for read --watch
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GeneratorConfig configures the random tree generator.
type GeneratorConfig struct {
	Size      int            `yaml:"size"`
	MaxInt    int            `yaml:"max_int"`
	MaxFanout int            `yaml:"max_fanout"`
	MaxDepth  int            `yaml:"max_depth"`
	Weights   map[string]int `yaml:"weights"` // int, string, object, array, null, bool, float
}

// OutputConfig configures generated files.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Pretty bool   `yaml:"pretty"`
}

// BackendConfig selects the JSON library and the limits it is opened with.
type BackendConfig struct {
	Name             string `yaml:"name"` // cybergodev, stdlib
	MaxJSONSize      int64  `yaml:"max_json_size"`
	MaxDepth         int    `yaml:"max_depth"`
	MaxObjectKeys    int    `yaml:"max_object_keys"`
	MaxArrayElements int    `yaml:"max_array_elements"`
}

// HistoryConfig configures the SQLite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// BatchConfig configures the batch command.
type BatchConfig struct {
	Count int `yaml:"count"`
	Jobs  int `yaml:"jobs"`
}

// WatchConfig configures read --watch.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "jsonsmoke",
		Version: "0.3.0",

		Generator: GeneratorConfig{
			Size:      1000,
			MaxInt:    10000,
			MaxFanout: 4,
			MaxDepth:  32,
			Weights: map[string]int{
				"int":    1,
				"string": 1,
				"object": 1,
				"array":  1,
			},
		},

		Output: OutputConfig{
			Dir:    ".",
			Pretty: false,
		},

		Backend: BackendConfig{
			Name:             "cybergodev",
			MaxJSONSize:      64 * 1024 * 1024,
			MaxDepth:         64,
			MaxObjectKeys:    100000,
			MaxArrayElements: 1000000,
		},

		History: HistoryConfig{
			Enabled: true,
			Path:    ".jsonsmoke/history.db",
		},

		Batch: BatchConfig{
			Count: 8,
			Jobs:  4,
		},

		Watch: WatchConfig{
			Debounce: "250ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns the config location inside a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".jsonsmoke", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if the file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if name := os.Getenv("JSONSMOKE_BACKEND"); name != "" {
		c.Backend.Name = name
	}
	if raw := os.Getenv("JSONSMOKE_SIZE"); raw != "" {
		// Ignore garbage; Validate reports the configured value instead.
		if n, err := strconv.Atoi(raw); err == nil {
			c.Generator.Size = n
		}
	}
	if path := os.Getenv("JSONSMOKE_HISTORY_DB"); path != "" {
		c.History.Path = path
	}
	if level := os.Getenv("JSONSMOKE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetWatchDebounce returns the watch debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 250 * time.Millisecond
	}
	return d
}

// ValidBackends lists the JSON libraries jsonsmoke can drive.
var ValidBackends = []string{"cybergodev", "stdlib"}

// ValidLogLevels lists accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !contains(ValidBackends, c.Backend.Name) {
		return fmt.Errorf("invalid backend: %s (valid: %v)", c.Backend.Name, ValidBackends)
	}
	if c.Generator.Size < 0 {
		return fmt.Errorf("generator size must not be negative, got %d", c.Generator.Size)
	}
	if c.Generator.MaxDepth >= c.Backend.MaxDepth {
		return fmt.Errorf("generator max_depth %d must stay below backend max_depth %d",
			c.Generator.MaxDepth, c.Backend.MaxDepth)
	}
	if c.Batch.Jobs < 1 {
		return fmt.Errorf("batch jobs must be at least 1, got %d", c.Batch.Jobs)
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history enabled but no path configured")
	}
	if !contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	return nil
}

// ResolvePath makes a relative path relative to the workspace.
func ResolvePath(workspace, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
