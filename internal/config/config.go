// Package config loads slidecast settings from a YAML or TOML file.
//
// Loading starts from Default, decodes the file over it in strict mode
// (unknown keys are errors), normalizes paths and names, then validates.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/slidecast/slidecast/internal/audio"
)

// Recording contains capture settings.
type Recording struct {
	// IdleTimeout is how long a page must stay on screen before the visit
	// is recorded.
	IdleTimeout   Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	AudioDevice   string   `yaml:"audio_device" toml:"audio_device"`
	SampleRate    int      `yaml:"sample_rate" toml:"sample_rate"`
	Channels      int      `yaml:"channels" toml:"channels"`
	BitsPerSample int      `yaml:"bits_per_sample" toml:"bits_per_sample"`
}

// Checkpoint contains crash-recovery settings.
type Checkpoint struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Config encapsulates all configuration values.
type Config struct {
	Recording  Recording  `yaml:"recording" toml:"recording"`
	Checkpoint Checkpoint `yaml:"checkpoint" toml:"checkpoint"`
	Logging    Logging    `yaml:"logging" toml:"logging"`
}

// Format identifies a config file syntax.
type Format string

// Supported config syntaxes.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the syntax from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config file type %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// Load reads the config file at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		if err := cfg.finish(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // config path comes from the user
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f, format)
}

// Decode parses a config document in the given syntax over the defaults.
func Decode(r io.Reader, format Format) (*Config, error) {
	cfg := Default()

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		// An empty document keeps the defaults.
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finish() error {
	if err := c.normalize(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// AudioFormat returns the configured capture format.
func (c *Config) AudioFormat() audio.Format {
	return audio.Format{
		SampleRate:    c.Recording.SampleRate,
		Channels:      c.Recording.Channels,
		BitsPerSample: c.Recording.BitsPerSample,
	}
}

// IdleTimeout returns the page commit delay.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Recording.IdleTimeout)
}

// Duration is a time.Duration written as a Go duration string ("2s",
// "1500ms") in config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
