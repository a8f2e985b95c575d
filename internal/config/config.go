// Package config loads BeingDB's YAML configuration: a typed Config struct,
// a DefaultConfig constructor, and a Validate method run after every load.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures every tunable knob the compile pipeline and server need.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Query   QueryConfig   `yaml:"query"`
	Compile CompileConfig `yaml:"compile"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP surface and the admission gate.
type ServerConfig struct {
	// Port the HTTP server listens on.
	Port int `yaml:"port"`
	// PackDir is the pack snapshot directory `serve` opens read-only.
	PackDir string `yaml:"pack_dir"`
	// MaxConcurrent bounds concurrent query handlers (the admission gate,
	// default ~20).
	MaxConcurrent int `yaml:"max_concurrent"`
}

// QueryConfig controls the query safety layer.
type QueryConfig struct {
	// MaxResults is the server-wide ceiling composed with a request's own
	// limit: effective_limit = min(user_limit ?? MaxResults, MaxResults).
	MaxResults int `yaml:"max_results"`
	// MaxIntermediateResults is the join frontier cap.
	MaxIntermediateResults int `yaml:"max_intermediate_results"`
	// QueryTimeout is a parseable duration string (e.g. "5s") bounding a
	// single query's execution.
	QueryTimeout string `yaml:"query_timeout"`
}

// CompileConfig controls the compile pipeline's defaults.
type CompileConfig struct {
	SourceDir string `yaml:"source_dir"`
	PackDir   string `yaml:"pack_dir"`
}

// LoggingConfig controls the structured logger (internal/logging).
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
}

// DefaultConfig provides reasonable defaults for local development: 20
// concurrent handlers, a 5s query timeout, and a 10 000-binding
// intermediate-result cap.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:          8080,
			PackDir:       "pack",
			MaxConcurrent: 20,
		},
		Query: QueryConfig{
			MaxResults:             1000,
			MaxIntermediateResults: 10_000,
			QueryTimeout:           "5s",
		},
		Compile: CompileConfig{
			SourceDir: "facts",
			PackDir:   "pack",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads YAML config from disk and overlays it onto DefaultConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config: path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate ensures required fields hold sane values so the server or
// compiler fails fast at startup instead of deep inside a request or a
// predicate file.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port must be positive")
	}
	if c.Server.MaxConcurrent <= 0 {
		return errors.New("server.max_concurrent must be positive")
	}
	if c.Query.MaxResults <= 0 {
		return errors.New("query.max_results must be positive")
	}
	if c.Query.MaxIntermediateResults <= 0 {
		return errors.New("query.max_intermediate_results must be positive")
	}
	if _, err := c.Query.Timeout(); err != nil {
		return fmt.Errorf("query.query_timeout: %w", err)
	}
	return nil
}

// Timeout parses QueryTimeout, defaulting to 5s on an empty value so a
// missing config field never silently disables the deadline guard.
func (q QueryConfig) Timeout() (time.Duration, error) {
	if q.QueryTimeout == "" {
		return 5 * time.Second, nil
	}
	d, err := time.ParseDuration(q.QueryTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", q.QueryTimeout, err)
	}
	return d, nil
}
