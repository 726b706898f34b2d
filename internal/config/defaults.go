package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/idle"
)

const (
	defaultAudioDevice = "default"
	defaultLogLevel    = "info"
	defaultLogFormat   = "console"
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Recording: Recording{
			IdleTimeout:   Duration(idle.DefaultTimeout),
			AudioDevice:   defaultAudioDevice,
			SampleRate:    audio.DefaultFormat.SampleRate,
			Channels:      audio.DefaultFormat.Channels,
			BitsPerSample: audio.DefaultFormat.BitsPerSample,
		},
		Checkpoint: Checkpoint{
			Dir: DefaultCheckpointDir(),
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

// DefaultCheckpointDir returns the checkpoint directory under the user
// cache directory.
func DefaultCheckpointDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "slidecast", "checkpoints")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/slidecast/checkpoints"
	}
	return filepath.Join(home, ".cache", "slidecast", "checkpoints")
}
