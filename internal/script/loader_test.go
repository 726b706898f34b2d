package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecast/slidecast/internal/config"
)

const validScript = `meta:
  name: quarterly
  document: q3-deck
steps:
  - at: 0s
    page: 1
  - at: 120ms
    action: pen
  - at: 1.5s
    suspend: true
  - at: 2s
    resume: true
  - at: 2s
    page: 2
`

func TestLoad_Valid(t *testing.T) {
	s, err := Load(strings.NewReader(validScript))
	require.NoError(t, err)

	assert.Equal(t, "quarterly", s.Meta.Name)
	assert.Equal(t, "q3-deck", s.Meta.DocumentID())
	require.Len(t, s.Steps, 5)
	assert.Equal(t, KindPage, s.Steps[0].Kind())
	assert.Equal(t, config.Duration(120*time.Millisecond), s.Steps[1].At)
	assert.Equal(t, KindAction, s.Steps[1].Kind())
	assert.Equal(t, KindSuspend, s.Steps[2].Kind())
	assert.Equal(t, KindResume, s.Steps[3].Kind())
	assert.Equal(t, 2, *s.Steps[4].Page)
}

func TestMeta_DocumentIDDefaultsToName(t *testing.T) {
	m := Meta{Name: "talk"}
	assert.Equal(t, "talk", m.DocumentID())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty", "", "empty script file"},
		{"unknown field", "meta:\n  name: x\n  author: me\nsteps:\n  - at: 0s\n    page: 1\n", "failed to parse script"},
		{"missing name", "meta:\n  name: \" \"\nsteps:\n  - at: 0s\n    page: 1\n", "meta: name must be non-empty"},
		{"no steps", "meta:\n  name: x\nsteps: []\n", "at least one step"},
		{"first step not a page", "meta:\n  name: x\nsteps:\n  - at: 0s\n    action: pen\n", "first step must select a page"},
		{"two kinds", "meta:\n  name: x\nsteps:\n  - at: 0s\n    page: 1\n    action: pen\n", "step 0: exactly one of"},
		{"no kind", "meta:\n  name: x\nsteps:\n  - at: 0s\n    page: 1\n  - at: 1s\n", "step 1: exactly one of"},
		{"page zero", "meta:\n  name: x\nsteps:\n  - at: 0s\n    page: 0\n", "page must be >= 1"},
		{"unknown action", "meta:\n  name: x\nsteps:\n  - at: 0s\n    page: 1\n  - at: 1s\n    action: lasso\n", `unknown action "lasso"`},
		{"negative offset", "meta:\n  name: x\nsteps:\n  - at: -1s\n    page: 1\n", "at must not be negative"},
		{"out of order", "meta:\n  name: x\nsteps:\n  - at: 2s\n    page: 1\n  - at: 1s\n    page: 2\n", "before the previous step"},
		{"double suspend", "meta:\n  name: x\nsteps:\n  - at: 0s\n    page: 1\n  - at: 1s\n    suspend: true\n  - at: 2s\n    suspend: true\n", "already suspended"},
		{"resume without suspend", "meta:\n  name: x\nsteps:\n  - at: 0s\n    page: 1\n  - at: 1s\n    resume: true\n", "resume without suspend"},
		{"bad duration", "meta:\n  name: x\nsteps:\n  - at: soon\n    page: 1\n", "invalid duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validScript), 0o600))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, s.Steps, 5)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to open script file")
}
