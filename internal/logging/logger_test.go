package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecast/slidecast/internal/config"
	"github.com/slidecast/slidecast/internal/logging"
)

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Output: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("page committed", "page", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="page committed"`)
	assert.Contains(t, out, "page=3")
	assert.NotContains(t, out, ".go:")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "JSON", Output: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("checkpoint write failed", "label", "2026-03-14_09-26")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "warn", record["level"])
	assert.Equal(t, "checkpoint write failed", record["msg"])
	assert.Equal(t, "2026-03-14_09-26", record["label"])
	assert.Contains(t, record, "ts")
	assert.NotContains(t, record, "time")
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		opts    logging.Options
		wantErr string
	}{
		{"bad level", logging.Options{Level: "loud"}, `log level: unsupported value "loud"`},
		{"bad format", logging.Options{Format: "xml"}, `log format: unsupported value "xml"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := logging.New(tt.opts)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Logging.Level = "debug"

	var buf bytes.Buffer
	logger, err := logging.NewFromConfig(cfg, &buf)
	require.NoError(t, err)

	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "logger_test.go:")

	_, err = logging.NewFromConfig(nil, &buf)
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	logger := logging.Discard()
	require.NotNil(t, logger)
	logger.Error("dropped")
}
