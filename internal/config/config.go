// Package config loads codexref settings from defaults, an optional TOML
// file and CODEXREF_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "CODEXREF_"

// Config contains every tunable of the engine and its front ends
type Config struct {
	// StorePath is the JSON snapshot of the document store; empty keeps the
	// store in memory only
	StorePath string `toml:"store_path"`
	// IndexPath is the SQLite full-text index file; empty keeps it in memory
	IndexPath string `toml:"index_path"`

	Workers       int  `toml:"workers"`
	IncludeTests  bool `toml:"include_tests"`
	IncludeVendor bool `toml:"include_vendor"`

	DefaultLimit int           `toml:"default_limit"`
	MaxDepth     int           `toml:"max_depth"`
	CacheSize    int           `toml:"cache_size"`
	CacheTTL     time.Duration `toml:"cache_ttl"`

	WatchDebounce time.Duration `toml:"watch_debounce"`
	LogLevel      string        `toml:"log_level"`
}

// Dir returns the codexref directory in the user's home
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".codexref"), nil
}

// DefaultPath returns the location of the default config file
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{
		Workers:       runtime.NumCPU(),
		IncludeTests:  true,
		IncludeVendor: false,
		DefaultLimit:  50,
		MaxDepth:      10,
		CacheSize:     1000,
		CacheTTL:      5 * time.Minute,
		WatchDebounce: 300 * time.Millisecond,
		LogLevel:      "info",
	}
	if dir, err := Dir(); err == nil {
		cfg.StorePath = filepath.Join(dir, "index.json")
	}
	return cfg
}

// Load builds the effective configuration. An empty path reads the default
// config file if it exists; an explicit path must exist. Environment
// overrides are applied last and the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil || explicit {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg; keys absent from the file keep
// their current values
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Write encodes cfg as TOML
func (c *Config) Write(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from CODEXREF_* environment variables
func (c *Config) ApplyEnv() error {
	var errs []error

	if v, ok := lookup("STORE_PATH"); ok {
		c.StorePath = v
	}
	if v, ok := lookup("INDEX_PATH"); ok {
		c.IndexPath = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	errs = append(errs,
		envInt("WORKERS", &c.Workers),
		envInt("DEFAULT_LIMIT", &c.DefaultLimit),
		envInt("MAX_DEPTH", &c.MaxDepth),
		envInt("CACHE_SIZE", &c.CacheSize),
		envBool("INCLUDE_TESTS", &c.IncludeTests),
		envBool("INCLUDE_VENDOR", &c.IncludeVendor),
		envDuration("CACHE_TTL", &c.CacheTTL),
		envDuration("WATCH_DEBOUNCE", &c.WatchDebounce),
	)
	return errors.Join(errs...)
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func envInt(name string, dst *int) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = n
	return nil
}

func envBool(name string, dst *bool) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = b
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, field, msg string) {
		if !ok {
			errs = append(errs, ValidationError{Field: field, Message: msg})
		}
	}

	check(c.Workers > 0, "workers", "must be positive")
	check(c.DefaultLimit > 0 && c.DefaultLimit <= 1000, "default_limit", "must be between 1 and 1000")
	check(c.MaxDepth > 0, "max_depth", "must be positive")
	check(c.CacheSize > 0, "cache_size", "must be positive")
	check(c.CacheTTL > 0, "cache_ttl", "must be positive")
	check(c.WatchDebounce > 0, "watch_debounce", "must be positive")
	_, err := ParseLevel(c.LogLevel)
	check(err == nil, "log_level", "must be one of debug, info, warn, error")

	return errors.Join(errs...)
}

// ParseLevel converts a level name to a slog level
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// Level returns the configured slog level, info when invalid
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ExpandPath replaces a leading ~ with the home directory
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
