package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/slidecast/slidecast/internal/action"
	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/checkpoint"
	"github.com/slidecast/slidecast/internal/pagelog"
)

var testFormat = audio.Format{SampleRate: 8000, Channels: 1, BitsPerSample: 16}

// newTestRoot creates a fresh root with the persistent flags and one
// subcommand. Registering flags again resets the package-level flag values.
func newTestRoot(sub *cobra.Command) *cobra.Command {
	root := &cobra.Command{
		Use:           "slidecast",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addRootFlags(root)
	root.AddCommand(sub)
	return root
}

// execute runs root with args and returns what it wrote to stdout and stderr.
func execute(t *testing.T, root *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("SLIDECAST_CONFIG", "")
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func testPages() []*pagelog.Page {
	return []*pagelog.Page{
		{
			Number: 0,
			Ref:    pagelog.PageRef{DocumentID: "deck", Number: 0},
			Live: []action.Action{
				&action.ToolBegin{Base: action.Base{Timestamp: 120}},
				&action.ToolEnd{Base: action.Base{Timestamp: 340}},
			},
		},
		{
			Number:    1,
			Timestamp: 900,
			Ref:       pagelog.PageRef{DocumentID: "deck", Number: 1},
			Static:    []action.Action{&action.NextPage{}},
		},
	}
}

func testWAV(d time.Duration) []byte {
	return append(audio.PlaceholderHeader(testFormat), make([]byte, testFormat.Bytes(d))...)
}

// writeCheckpoint lays out the artifacts of one checkpoint label in dir.
func writeCheckpoint(t *testing.T, dir, label string, exts ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))
	for _, ext := range exts {
		var data []byte
		switch ext {
		case checkpoint.ExtDocument:
			data = []byte("%PDF-1.7 deck")
		case checkpoint.ExtEvents:
			data = pagelog.MarshalPages(testPages())
		case checkpoint.ExtAudio:
			data = testWAV(1500 * time.Millisecond)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, label+ext), data, 0o600))
	}
}
