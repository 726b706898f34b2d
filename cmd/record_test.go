package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecast/slidecast/internal/action"
	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/recording"
)

// makeRecordRoot creates a fresh root + record command tree for testing.
func makeRecordRoot() *cobra.Command {
	c := &cobra.Command{
		Use:  "record",
		Args: cobra.NoArgs,
		RunE: runRecord,
	}
	c.Flags().StringVarP(&recordScriptFlag, "script", "s", "", "Presentation script")
	c.Flags().StringVarP(&recordAudioFlag, "audio", "a", "", "Audio track")
	c.Flags().StringVarP(&recordDocumentFlag, "document", "d", "", "Document")
	c.Flags().StringVarP(&recordOutputFlag, "output", "o", "", "Output recording")
	c.Flags().StringVar(&recordDirFlag, "dir", "", "Checkpoint directory")
	return newTestRoot(c)
}

const talkScript = `meta:
  name: demo
  document: deck
steps:
  - at: 0s
    page: 1
  - at: 120ms
    action: pen
  - at: 500ms
    page: 2
  - at: 1s
    page: 3
  - at: 1.2s
    page: 2
  - at: 3.5s
    action: undo
  - at: 3.7s
    suspend: true
  - at: 4s
    resume: true
`

type recordFixture struct {
	script   string
	audio    string
	document string
	dir      string
	output   string
}

func newRecordFixture(t *testing.T) recordFixture {
	t.Helper()
	root := t.TempDir()
	f := recordFixture{
		script:   filepath.Join(root, "talk.yaml"),
		audio:    filepath.Join(root, "talk.wav"),
		document: filepath.Join(root, "deck.pdf"),
		dir:      filepath.Join(root, "checkpoints"),
		output:   filepath.Join(root, "talk.scr"),
	}
	require.NoError(t, os.WriteFile(f.script, []byte(talkScript), 0o600))
	pcm := testFormat.Bytes(5 * time.Second)
	wav := append(audio.Header(testFormat, pcm), make([]byte, pcm)...)
	require.NoError(t, os.WriteFile(f.audio, wav, 0o600))
	require.NoError(t, os.WriteFile(f.document, []byte("%PDF-1.7 deck"), 0o600))
	return f
}

func (f recordFixture) args() []string {
	return []string{"record", "--script", f.script, "--audio", f.audio, "--document", f.document, "--dir", f.dir, "-o", f.output}
}

func liveTimestamps(actions []action.Action) []uint32 {
	out := make([]uint32, len(actions))
	for i, a := range actions {
		out[i] = a.Header().Timestamp
	}
	return out
}

func TestRecord(t *testing.T) {
	f := newRecordFixture(t)

	_, stderr, err := execute(t, makeRecordRoot(), f.args()...)
	require.NoError(t, err)
	assert.Contains(t, stderr, `recorded "demo" to `+f.output+" (2 pages,")

	rec, err := recording.ReadFile(f.output)
	require.NoError(t, err)

	// 5s of input minus the 300ms pause.
	assert.Equal(t, 4700*time.Millisecond, rec.Header.Duration)
	assert.Equal(t, []byte("%PDF-1.7 deck"), rec.Document)

	// Page 3 was shown for less than the idle timeout, so the visit to page 2
	// counts from when it was shown again at 1.2s.
	require.Len(t, rec.Pages, 2)
	assert.Equal(t, 0, rec.Pages[0].Ref.Number)
	assert.Equal(t, "deck", rec.Pages[0].Ref.DocumentID)
	assert.Equal(t, []uint32{120}, liveTimestamps(rec.Pages[0].Live))
	assert.Equal(t, 1, rec.Pages[1].Ref.Number)
	assert.Equal(t, uint32(1200), rec.Pages[1].Timestamp)
	assert.Equal(t, []uint32{3500}, liveTimestamps(rec.Pages[1].Live))

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "checkpoints are removed after the recording is written")
}

func TestRecord_InterruptedThenRecovered(t *testing.T) {
	f := newRecordFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := makeRecordRoot()
	root.SetContext(ctx)
	_, _, err := execute(t, root, f.args()...)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, f.output)

	recovered := filepath.Join(filepath.Dir(f.output), "recovered.scr")
	_, _, err = execute(t, makeRecoverRoot(), "recover", "--dir", f.dir, "--output", recovered)
	require.NoError(t, err)

	rec, err := recording.ReadFile(recovered)
	require.NoError(t, err)
	require.Len(t, rec.Pages, 1)
	assert.Equal(t, "deck", rec.Pages[0].Ref.DocumentID)
	assert.Equal(t, []byte("%PDF-1.7 deck"), rec.Document)
	assert.Zero(t, rec.Header.Duration)
}

func TestRecord_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, f *recordFixture)
		wantErr string
	}{
		{
			name: "invalid script",
			mutate: func(t *testing.T, f *recordFixture) {
				require.NoError(t, os.WriteFile(f.script, []byte("meta:\n  name: x\nsteps: []\n"), 0o600))
			},
			wantErr: "invalid script",
		},
		{
			name: "missing audio",
			mutate: func(_ *testing.T, f *recordFixture) {
				f.audio = filepath.Join(filepath.Dir(f.audio), "missing.wav")
			},
			wantErr: "failed to open audio input",
		},
		{
			name: "missing document",
			mutate: func(_ *testing.T, f *recordFixture) {
				f.document = filepath.Join(filepath.Dir(f.document), "missing.pdf")
			},
			wantErr: "failed to read document",
		},
		{
			name: "missing output directory",
			mutate: func(_ *testing.T, f *recordFixture) {
				f.output = filepath.Join(filepath.Dir(f.output), "nope", "talk.scr")
			},
			wantErr: "output directory does not exist",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRecordFixture(t)
			tt.mutate(t, &f)
			_, _, err := execute(t, makeRecordRoot(), f.args()...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
