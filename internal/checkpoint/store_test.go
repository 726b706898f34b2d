package checkpoint

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecast/slidecast/internal/action"
	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/pagelog"
	"github.com/slidecast/slidecast/internal/recording"
)

var (
	testFormat = audio.Format{SampleRate: 8000, Channels: 1, BitsPerSample: 16}
	testStart  = time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	testLabel  = "2026-03-14_09-26"
)

func newTestStore(t *testing.T, dir string, opts ...Option) *Store {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return testStart }),
		WithFormat(testFormat),
	}
	return New(dir, append(base, opts...)...)
}

// syncBuffer is a log sink safe for use from the worker goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingDocument struct{}

func (failingDocument) WriteTo(io.Writer) (int64, error) {
	return 0, errors.New("document locked by renderer")
}

// gatedDocument blocks its first WriteTo until released and counts calls.
type gatedDocument struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	writes  []string
	content string
}

func (d *gatedDocument) WriteTo(w io.Writer) (int64, error) {
	d.mu.Lock()
	first := len(d.writes) == 0
	d.writes = append(d.writes, d.content)
	d.mu.Unlock()
	if first {
		close(d.started)
		<-d.release
	}
	n, err := io.WriteString(w, d.content)
	return int64(n), err
}

func samplePages() []*pagelog.Page {
	return []*pagelog.Page{{
		Ref: pagelog.PageRef{DocumentID: "deck"},
		Live: []action.Action{
			&action.ToolBegin{Base: action.Base{Timestamp: 120}, Point: action.Point{X: 1, Y: 1}},
			&action.ToolEnd{Base: action.Base{Timestamp: 340}, Point: action.Point{X: 9, Y: 9}},
		},
	}}
}

func TestStore_Open(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "checkpoints")
	s := newTestStore(t, dir)

	label, err := s.Open()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.Equal(t, testLabel, label)
	assert.Equal(t, testLabel, s.Label())
	assert.True(t, s.IsOpen())

	wav, err := os.ReadFile(s.Path(label, ExtAudio))
	require.NoError(t, err)
	assert.Equal(t, audio.PlaceholderHeader(testFormat), wav)

	_, err = s.Open()
	assert.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestStore_Open_LabelHeldByAnotherProcess(t *testing.T) {
	dir := t.TempDir()
	owner := newTestStore(t, dir)
	_, err := owner.Open()
	require.NoError(t, err)
	defer func() { _ = owner.Close() }()

	_, err = newTestStore(t, dir).Open()
	assert.ErrorIs(t, err, ErrLabelInUse)
}

func TestStore_Open_ReplacesStaleArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, testLabel+ExtEvents), []byte("stale"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, testLabel+ExtDocument), []byte("stale"), 0o600))

	s := newTestStore(t, dir)
	_, err := s.Open()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.NoFileExists(t, filepath.Join(dir, testLabel+ExtEvents))
	assert.NoFileExists(t, filepath.Join(dir, testLabel+ExtDocument))
}

func TestStore_AsyncWrites(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	label, err := s.Open()
	require.NoError(t, err)

	s.WriteDocumentAsync(bytes.NewReader([]byte("%PDF-1.7 deck")))
	s.WritePagesAsync(samplePages())
	s.Flush()

	doc, err := os.ReadFile(s.Path(label, ExtDocument))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 deck", string(doc))

	events, err := os.ReadFile(s.Path(label, ExtEvents))
	require.NoError(t, err)
	assert.Equal(t, pagelog.MarshalPages(samplePages()), events)

	require.NoError(t, s.Close())
	assert.Zero(t, s.Failures())
	assert.NoFileExists(t, s.Path(label, ExtDocument+extTemp))
}

func TestStore_AsyncWrites_Coalesce(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	label, err := s.Open()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	doc := &gatedDocument{started: make(chan struct{}), release: make(chan struct{}), content: "v1"}
	s.WriteDocumentAsync(doc)
	<-doc.started

	// Queued behind the in-flight write; only the newest survives.
	for _, v := range []string{"v2", "v3", "v4"} {
		next := &gatedDocument{started: make(chan struct{}), release: make(chan struct{}), content: v}
		close(next.release)
		s.WriteDocumentAsync(next)
	}
	close(doc.release)
	s.Flush()

	assert.Len(t, doc.writes, 1)
	got, err := os.ReadFile(s.Path(label, ExtDocument))
	require.NoError(t, err)
	assert.Equal(t, "v4", string(got))
}

func TestStore_WriteFailureIsLogged(t *testing.T) {
	logs := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := newTestStore(t, t.TempDir(), WithLogger(logger))
	label, err := s.Open()
	require.NoError(t, err)

	s.WriteDocumentAsync(failingDocument{})
	s.WritePagesAsync(samplePages())
	s.Flush()

	assert.Equal(t, 1, s.Failures())
	assert.Contains(t, logs.String(), "checkpoint write failed")
	assert.Contains(t, logs.String(), "document locked by renderer")
	assert.NoFileExists(t, s.Path(label, ExtDocument))
	assert.FileExists(t, s.Path(label, ExtEvents))
	require.NoError(t, s.Close())
}

func TestStore_WritesWhenClosedAreDropped(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)

	s.WriteDocumentAsync(bytes.NewReader([]byte("doc")))
	s.Flush()
	_, err := s.AudioWriter().Write([]byte{1, 2})
	assert.ErrorIs(t, err, os.ErrClosed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, s.Close())
}

func TestStore_CloseKeepsArtifacts(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	label, err := s.Open()
	require.NoError(t, err)

	w := s.AudioWriter()
	_, err = w.Write(make([]byte, 1600))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = w.Write([]byte{0})
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.False(t, s.IsOpen())

	info, err := os.Stat(s.Path(label, ExtAudio))
	require.NoError(t, err)
	assert.Equal(t, int64(audio.HeaderSize+1600), info.Size())

	require.NoError(t, s.Close(), "second close is a no-op")
}

func TestBackupWriteError(t *testing.T) {
	err := &BackupWriteError{Label: testLabel, Artifact: ExtEvents, Err: os.ErrPermission}
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, "backup 2026-03-14_09-26.events: permission denied", err.Error())

	var target *BackupWriteError
	require.True(t, errors.As(error(err), &target))
}

func TestStore_MaterializeMatchesAssemble(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	label, err := s.Open()
	require.NoError(t, err)

	pcm := bytes.Repeat([]byte{0x10, 0x20}, 4000)
	_, err = s.AudioWriter().Write(pcm)
	require.NoError(t, err)
	s.WriteDocumentAsync(bytes.NewReader([]byte("%PDF")))
	s.WritePagesAsync(samplePages())
	require.NoError(t, s.Close())

	got, err := s.Materialize(label)
	require.NoError(t, err)

	wav := append(audio.PlaceholderHeader(testFormat), pcm...)
	want, err := recording.Assemble(samplePages(), wav, []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, time.Second/2, got.Header.Duration)
	assert.Equal(t, int64(len(pcm)), got.Header.AudioLength)
}
