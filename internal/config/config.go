// Package config loads physutils CLI configuration from YAML.
//
// Every field has a default, so a missing config file is not an error.
// Command-line flags override whatever the file sets.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/physutils/internal/dispatch"
	"github.com/roach88/physutils/internal/replay"
)

// Config is the top-level configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Format is the CLI output format: text or json.
	Format string `yaml:"format"`

	// Catalog is the path of the provenance catalog. Empty disables
	// recording unless --db is given.
	Catalog string `yaml:"catalog"`

	Transform TransformConfig `yaml:"transform"`
	Replay    ReplayConfig    `yaml:"replay"`
}

// TransformConfig holds defaults for the transform command.
type TransformConfig struct {
	Mode           string            `yaml:"mode"`
	FS             float64           `yaml:"fs"`
	BIDSParameters map[string]string `yaml:"bids_parameters"`
	BIDSChannel    string            `yaml:"bids_channel"`
}

// ReplayConfig configures history replay.
type ReplayConfig struct {
	// Collaborators are the operation scopes whose absence is reported
	// before replaying.
	Collaborators []string `yaml:"collaborators"`

	// Verbose logs each rerun operation at info level.
	Verbose bool `yaml:"verbose"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Format:   "text",
		Transform: TransformConfig{
			Mode: string(dispatch.ModePhysio),
		},
		Replay: ReplayConfig{
			Collaborators: append([]string(nil), replay.DefaultCollaborators...),
		},
	}
}

// Load reads path over the defaults. Unknown keys are rejected so typos
// surface instead of being silently ignored.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Format {
	case "text", "json":
	default:
		return &dispatch.ConfigError{Field: "format", Message: fmt.Sprintf("must be text or json, got %q", c.Format)}
	}
	if _, err := dispatch.ParseMode(c.Transform.Mode); err != nil {
		return err
	}
	if c.Transform.FS < 0 {
		return &dispatch.ConfigError{Field: "transform.fs", Message: fmt.Sprintf("must be positive, got %v", c.Transform.FS)}
	}
	for _, scope := range c.Replay.Collaborators {
		if strings.TrimSpace(scope) == "" {
			return &dispatch.ConfigError{Field: "replay.collaborators", Message: "scope names must not be empty"}
		}
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, &dispatch.ConfigError{Field: "log_level", Message: fmt.Sprintf("unrecognized level %q", c.LogLevel)}
	}
	return level, nil
}

// Request builds a dispatch request for input from the transform
// defaults.
func (c *Config) Request(input string) (dispatch.Request, error) {
	mode, err := dispatch.ParseMode(c.Transform.Mode)
	if err != nil {
		return dispatch.Request{}, err
	}
	return dispatch.Request{
		InputFile:      input,
		Mode:           mode,
		FS:             c.Transform.FS,
		BIDSParameters: c.Transform.BIDSParameters,
		BIDSChannel:    c.Transform.BIDSChannel,
	}, nil
}
