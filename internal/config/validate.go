package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRecording(); err != nil {
		return err
	}
	if c.Checkpoint.Dir == "" {
		return errors.New("checkpoint.dir must be set")
	}
	return c.validateLogging()
}

func (c *Config) validateRecording() error {
	if c.Recording.IdleTimeout <= 0 {
		return errors.New("recording.idle_timeout must be positive")
	}
	if c.Recording.AudioDevice == "" {
		return errors.New("recording.audio_device must be set")
	}
	if c.Recording.SampleRate <= 0 {
		return errors.New("recording.sample_rate must be positive")
	}
	if err := c.AudioFormat().Validate(); err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
