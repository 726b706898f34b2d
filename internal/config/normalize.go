package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.Recording.AudioDevice = strings.TrimSpace(c.Recording.AudioDevice)

	dir, err := expandPath(strings.TrimSpace(c.Checkpoint.Dir))
	if err != nil {
		return fmt.Errorf("checkpoint.dir: %w", err)
	}
	c.Checkpoint.Dir = dir

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	return nil
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
// The empty path is returned unchanged.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			path = home
		} else if len(path) > 1 && (path[1] == '/' || path[1] == '\\') {
			path = filepath.Join(home, path[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}
	return abs, nil
}
