package checkpoint

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/pagelog"
)

func writeArtifact(t *testing.T, dir, label, ext string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, label+ext), data, 0o600))
}

func testWAV(pcm int) []byte {
	return append(audio.PlaceholderHeader(testFormat), make([]byte, pcm)...)
}

func TestDiscoverLatestCheckpoint(t *testing.T) {
	tests := []struct {
		name      string
		artifacts map[string][]string
		want      string
		found     bool
	}{
		{
			name:      "document and audio",
			artifacts: map[string][]string{"2026-03-14_09-26": {ExtDocument, ExtAudio}},
			want:      "2026-03-14_09-26",
			found:     true,
		},
		{
			name:      "events and audio",
			artifacts: map[string][]string{"2026-03-14_09-26": {ExtEvents, ExtAudio}},
			want:      "2026-03-14_09-26",
			found:     true,
		},
		{
			name:      "document only",
			artifacts: map[string][]string{"2026-03-14_09-26": {ExtDocument}},
		},
		{
			name:      "audio only",
			artifacts: map[string][]string{"2026-03-14_09-26": {ExtAudio}},
		},
		{
			name:      "document and events without audio",
			artifacts: map[string][]string{"2026-03-14_09-26": {ExtDocument, ExtEvents}},
		},
		{
			name: "newest complete label wins",
			artifacts: map[string][]string{
				"2026-03-13_18-00": {ExtDocument, ExtEvents, ExtAudio},
				"2026-03-14_08-15": {ExtDocument, ExtAudio},
				"2026-03-14_09-26": {ExtDocument},
			},
			want:  "2026-03-14_08-15",
			found: true,
		},
		{
			name:      "unrelated files ignored",
			artifacts: map[string][]string{"notes": {ExtDocument, ExtAudio}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for label, exts := range tt.artifacts {
				for _, ext := range exts {
					writeArtifact(t, dir, label, ext, []byte("x"))
				}
			}

			label, found, err := New(dir).DiscoverLatestCheckpoint()
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, label)
		})
	}
}

func TestDiscoverLatestCheckpoint_MissingDirectory(t *testing.T) {
	label, found, err := New(filepath.Join(t.TempDir(), "absent")).DiscoverLatestCheckpoint()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, label)
}

func TestLabels(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "2026-03-14_09-26", ExtDocument, []byte("12345"))
	writeArtifact(t, dir, "2026-03-14_09-26", ExtAudio, []byte("123"))
	writeArtifact(t, dir, "2026-03-14_09-26", ExtEvents+extTemp, []byte("partial"))
	writeArtifact(t, dir, "2026-03-10_14-00", ExtEvents, []byte("1"))

	labels, err := New(dir).Labels()
	require.NoError(t, err)
	require.Len(t, labels, 2)

	assert.Equal(t, "2026-03-14_09-26", labels[0].Label)
	assert.True(t, labels[0].Document)
	assert.True(t, labels[0].Audio)
	assert.False(t, labels[0].Events)
	assert.Equal(t, int64(8), labels[0].Size)
	assert.True(t, labels[0].Recoverable())
	assert.True(t, time.Date(2026, 3, 14, 9, 26, 0, 0, time.Local).Equal(labels[0].Time()))

	assert.Equal(t, "2026-03-10_14-00", labels[1].Label)
	assert.False(t, labels[1].Recoverable())
}

func TestLabels_LiveSessionIsLocked(t *testing.T) {
	dir := t.TempDir()
	owner := newTestStore(t, dir)
	label, err := owner.Open()
	require.NoError(t, err)
	owner.WriteDocumentAsync(bytes.NewReader([]byte("doc")))
	owner.Flush()

	observer := New(dir)
	labels, err := observer.Labels()
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.True(t, labels[0].Locked)

	_, found, err := observer.DiscoverLatestCheckpoint()
	require.NoError(t, err)
	assert.False(t, found, "a label held by a live session is not recoverable")

	ownLabels, err := owner.Labels()
	require.NoError(t, err)
	assert.False(t, ownLabels[0].Locked)

	require.NoError(t, owner.Close())
	got, found, err := observer.DiscoverLatestCheckpoint()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, label, got)
}

func TestMaterialize(t *testing.T) {
	t.Run("document and audio without events", func(t *testing.T) {
		dir := t.TempDir()
		writeArtifact(t, dir, testLabel, ExtDocument, []byte("%PDF"))
		writeArtifact(t, dir, testLabel, ExtAudio, testWAV(16000))

		rec, err := New(dir).Materialize(testLabel)
		require.NoError(t, err)
		assert.Empty(t, rec.Pages)
		assert.Equal(t, []byte("%PDF"), rec.Document)
		assert.Equal(t, time.Second, rec.Header.Duration)
	})

	t.Run("missing audio", func(t *testing.T) {
		dir := t.TempDir()
		writeArtifact(t, dir, testLabel, ExtDocument, []byte("%PDF"))

		_, err := New(dir).Materialize(testLabel)
		assert.ErrorIs(t, err, ErrIncomplete)
	})

	t.Run("audio only", func(t *testing.T) {
		dir := t.TempDir()
		writeArtifact(t, dir, testLabel, ExtAudio, testWAV(10))

		_, err := New(dir).Materialize(testLabel)
		assert.ErrorIs(t, err, ErrIncomplete)
	})

	t.Run("torn event list keeps leading pages", func(t *testing.T) {
		dir := t.TempDir()
		pages := append(samplePages(), &pagelog.Page{Number: 1, Timestamp: 900, Ref: pagelog.PageRef{DocumentID: "deck", Number: 1}})
		events := pagelog.MarshalPages(pages)
		writeArtifact(t, dir, testLabel, ExtEvents, events[:len(events)-3])
		writeArtifact(t, dir, testLabel, ExtAudio, testWAV(100))

		rec, err := New(dir).Materialize(testLabel)
		require.NoError(t, err)
		require.Len(t, rec.Pages, 1)
		assert.Len(t, rec.Dropped, 1)
	})

	t.Run("audio is not a WAV file", func(t *testing.T) {
		dir := t.TempDir()
		writeArtifact(t, dir, testLabel, ExtDocument, []byte("%PDF"))
		writeArtifact(t, dir, testLabel, ExtAudio, []byte("raw pcm without header, longer than forty-four bytes"))

		_, err := New(dir).Materialize(testLabel)
		assert.ErrorIs(t, err, audio.ErrNotWAV)
	})
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "2026-03-13_18-00", ExtDocument, []byte("x"))
	writeArtifact(t, dir, "2026-03-13_18-00", ExtAudio, testWAV(2))
	writeArtifact(t, dir, "2026-03-13_18-00", extLock, nil)
	writeArtifact(t, dir, "2026-03-12_10-00", ExtEvents+extTemp, []byte("x"))
	writeArtifact(t, dir, "keep", ".txt", []byte("x"))

	s := New(dir)
	require.NoError(t, s.Clean())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep.txt", entries[0].Name())

	_, found, err := s.DiscoverLatestCheckpoint()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClean_SkipsLiveSession(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "2026-03-13_18-00", ExtDocument, []byte("x"))
	writeArtifact(t, dir, "2026-03-13_18-00", ExtAudio, testWAV(2))

	owner := newTestStore(t, dir)
	label, err := owner.Open()
	require.NoError(t, err)

	require.NoError(t, New(dir).Clean())
	assert.FileExists(t, owner.Path(label, ExtAudio))
	assert.FileExists(t, owner.Path(label, extLock))
	assert.NoFileExists(t, filepath.Join(dir, "2026-03-13_18-00"+ExtDocument))

	// The owner cleans its own history but never the label it is recording.
	require.NoError(t, owner.Clean())
	assert.FileExists(t, owner.Path(label, ExtAudio))

	require.NoError(t, owner.Close())
	require.NoError(t, owner.Clean())
	assert.NoFileExists(t, owner.Path(label, ExtAudio))
}

func TestSplitArtifact(t *testing.T) {
	tests := []struct {
		name  string
		label string
		ext   string
		ok    bool
	}{
		{"2026-03-14_09-26.wav", "2026-03-14_09-26", ExtAudio, true},
		{"2026-03-14_09-26.events.tmp", "2026-03-14_09-26", extTemp, true},
		{"2026-03-14_09-26.lock", "2026-03-14_09-26", extLock, true},
		{"slides.pdf", "", "", false},
		{"2026-03-14.wav", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, ext, ok := splitArtifact(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.label, label)
			assert.Equal(t, tt.ext, ext)
		})
	}
}
