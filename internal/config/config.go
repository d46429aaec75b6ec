package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the server settings. Values are resolved in three layers:
// built-in defaults, then an optional YAML file, then environment variables.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr" env:"CODEDECK_ADDR"`

	// WorkspaceRoot anchors relative workspace paths from chat requests.
	WorkspaceRoot string `yaml:"workspace_root" env:"CODEDECK_WORKSPACE_ROOT"`

	// TranscriptDir enables protocol transcript recording when non-empty.
	TranscriptDir string `yaml:"transcript_dir" env:"CODEDECK_TRANSCRIPT_DIR"`

	// AllowedOrigin is echoed in CORS headers. "*" allows any origin.
	AllowedOrigin string `yaml:"allowed_origin" env:"CODEDECK_ALLOWED_ORIGIN"`

	// CSRFCookie names the double-submit CSRF cookie. Empty picks the
	// built-in default.
	CSRFCookie string `yaml:"csrf_cookie" env:"CODEDECK_CSRF_COOKIE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"CODEDECK_LOG_LEVEL"`

	// ProbeTimeoutSeconds bounds the one-shot CLI status probe.
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds" env:"CODEDECK_PROBE_TIMEOUT_SECONDS"`

	// TerminateGraceSeconds is how long a terminated process may take to
	// exit before it is killed outright.
	TerminateGraceSeconds int `yaml:"terminate_grace_seconds" env:"CODEDECK_TERMINATE_GRACE_SECONDS"`

	// StreamBuffer is the per-subscriber event channel capacity.
	StreamBuffer int `yaml:"stream_buffer" env:"CODEDECK_STREAM_BUFFER"`
}

func Default() Config {
	return Config{
		Addr:                  ":8080",
		WorkspaceRoot:         ".",
		AllowedOrigin:         "*",
		LogLevel:              "info",
		ProbeTimeoutSeconds:   10,
		TerminateGraceSeconds: 5,
		StreamBuffer:          256,
	}
}

// Load resolves the configuration. A non-empty path must name a readable
// YAML file; environment variables override whatever the file set.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.ProbeTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: probe_timeout_seconds must be positive", ErrInvalidConfig)
	}
	if c.TerminateGraceSeconds <= 0 {
		return fmt.Errorf("%w: terminate_grace_seconds must be positive", ErrInvalidConfig)
	}
	if c.StreamBuffer <= 0 {
		return fmt.Errorf("%w: stream_buffer must be positive", ErrInvalidConfig)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
