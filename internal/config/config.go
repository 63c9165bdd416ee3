package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/throwdown/internal/errors"
)

// Configuration file names, in lookup order.
const (
	ConfigFileName = "throwdown.json"
	YAMLFileName   = "throwdown.yaml"
	YMLFileName    = "throwdown.yml"
)

// Defaults.
const (
	DefaultAllocator      = "counter"
	DefaultPrefix         = "a"
	DefaultMaxAttempts    = 8
	DefaultTaskBuffer     = 256
	DefaultMaxFlushRounds = 64
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultNamespace      = "throwdown"
	DefaultInspectAddr    = "127.0.0.1:7070"
	DefaultEventBuffer    = 128
)

var (
	allocators = []string{"counter", "ulid", "uuid"}
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Config is the complete throwdown configuration.
type Config struct {
	Identity IdentityConfig `json:"identity" yaml:"identity"`
	Runtime  RuntimeConfig  `json:"runtime" yaml:"runtime"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Inspect  InspectConfig  `json:"inspect" yaml:"inspect"`

	// path is where the config was loaded from.
	path string
}

// IdentityConfig configures identifier allocation.
type IdentityConfig struct {
	// Allocator is counter, ulid or uuid.
	Allocator string `json:"allocator" yaml:"allocator"`

	// Prefix is prepended to every identifier.
	Prefix string `json:"prefix" yaml:"prefix"`

	// MaxAttempts bounds retries when a generated identifier is live.
	MaxAttempts int `json:"maxAttempts" yaml:"maxAttempts"`
}

// RuntimeConfig configures the lifecycle event loop.
type RuntimeConfig struct {
	TaskBuffer     int `json:"taskBuffer" yaml:"taskBuffer"`
	MaxFlushRounds int `json:"maxFlushRounds" yaml:"maxFlushRounds"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// InspectConfig configures the inspect server.
type InspectConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Addr        string `json:"addr" yaml:"addr"`
	EventBuffer int    `json:"eventBuffer" yaml:"eventBuffer"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Identity: IdentityConfig{
			Allocator:   DefaultAllocator,
			Prefix:      DefaultPrefix,
			MaxAttempts: DefaultMaxAttempts,
		},
		Runtime: RuntimeConfig{
			TaskBuffer:     DefaultTaskBuffer,
			MaxFlushRounds: DefaultMaxFlushRounds,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Inspect: InspectConfig{
			Addr:        DefaultInspectAddr,
			EventBuffer: DefaultEventBuffer,
		},
	}
}

// Load reads the configuration file in dir. With no file present it
// returns the defaults.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, YAMLFileName, YMLFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return Default(), nil
}

// LoadFile reads and validates one configuration file. The format follows
// the extension: .yaml and .yml are YAML, anything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E151").
			WithDetail("Cannot read " + path).
			Wrap(err)
	}

	cfg := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E150").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check the file syntax against the documented structure")
	}

	cfg.path = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Path returns the file the configuration was loaded from, or "".
func (c *Config) Path() string { return c.path }

// Validate checks every field.
func (c *Config) Validate() error {
	invalid := func(detail, suggestion string) error {
		return errors.New("E150").WithDetail(detail).WithSuggestion(suggestion)
	}

	if !slices.Contains(allocators, c.Identity.Allocator) {
		return invalid("identity.allocator must be one of "+strings.Join(allocators, ", ")+", got "+quote(c.Identity.Allocator),
			"Use \"counter\" unless identifiers must be unique across processes")
	}
	if c.Identity.MaxAttempts < 1 {
		return invalid("identity.maxAttempts must be at least 1", "Remove the field to use the default")
	}
	if c.Runtime.TaskBuffer < 0 || c.Runtime.MaxFlushRounds < 0 {
		return invalid("runtime buffers must not be negative", "Use 0 for the default")
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return invalid("log.level must be one of "+strings.Join(logLevels, ", ")+", got "+quote(c.Log.Level), "")
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return invalid("log.format must be text or json, got "+quote(c.Log.Format), "")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace must be set when metrics are enabled", "")
	}
	if c.Inspect.Enabled && c.Inspect.Addr == "" {
		return invalid("inspect.addr must be set when the inspect server is enabled", "")
	}
	if c.Inspect.EventBuffer < 0 {
		return invalid("inspect.eventBuffer must not be negative", "")
	}
	return nil
}

func quote(s string) string { return `"` + s + `"` }

// Encode writes the configuration as YAML or JSON.
func (c *Config) Encode(w io.Writer, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// SlogLevel returns the configured level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Handler returns a text or JSON slog handler writing to w.
func (l LogConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if strings.ToLower(l.Format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
