// Package checkpoint backs up an in-progress recording so it can be
// recovered after an unexpected termination.
//
// A checkpoint is a set of files in one directory sharing a session label as
// their stem: the document snapshot, the serialized page list and the raw
// audio. A lock file next to them marks the label as owned by a live
// process; locks are released by the OS when the process dies, which is what
// makes an abandoned label recoverable.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/logging"
	"github.com/slidecast/slidecast/internal/pagelog"
)

// Artifact file extensions.
const (
	ExtDocument = ".pdf"
	ExtEvents   = ".events"
	ExtAudio    = ".wav"
	extLock     = ".lock"
	extTemp     = ".tmp"
)

// LabelLayout formats session start times into labels (minute granularity).
const LabelLayout = "2006-01-02_15-04"

var (
	// ErrAlreadyOpen is returned by Open on a store that is already open.
	ErrAlreadyOpen = errors.New("checkpoint already open")
	// ErrLabelInUse is returned when another live process holds the label.
	ErrLabelInUse = errors.New("checkpoint label held by another process")
	// ErrIncomplete is returned when a label lacks the artifacts needed for
	// recovery.
	ErrIncomplete = errors.New("checkpoint incomplete")
)

// BackupWriteError reports a failed artifact write. It is logged, never
// returned to the recording path.
type BackupWriteError struct {
	Label    string
	Artifact string
	Err      error
}

func (e *BackupWriteError) Error() string {
	return fmt.Sprintf("backup %s%s: %v", e.Label, e.Artifact, e.Err)
}

func (e *BackupWriteError) Unwrap() error {
	return e.Err
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for backup diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source used to label new checkpoints.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFormat sets the PCM format written into the audio placeholder header.
func WithFormat(f audio.Format) Option {
	return func(s *Store) { s.format = f }
}

// Store manages the checkpoints in one directory. Artifact writes are queued
// and performed by a single background worker per open checkpoint.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
	format audio.Format

	mu    sync.Mutex
	label string
	open  bool
	lock  *flock.Flock
	audio *audioFile

	q *queue
}

// New returns a Store rooted at dir. Nothing is created until Open.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		logger: logging.Discard(),
		now:    time.Now,
		format: audio.DefaultFormat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the checkpoint directory.
func (s *Store) Dir() string {
	return s.dir
}

// Label returns the label of the current or most recently opened checkpoint.
func (s *Store) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// IsOpen reports whether a checkpoint is open.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Path returns the file path of an artifact of label.
func (s *Store) Path(label, ext string) string {
	return filepath.Join(s.dir, label+ext)
}

// Open begins a new checkpoint labeled with the current time. Artifacts left
// under the same label by an earlier take of this store are replaced.
func (s *Store) Open() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return "", ErrAlreadyOpen
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	label := s.now().Format(LabelLayout)
	lock := flock.New(s.Path(label, extLock))
	ok, err := lock.TryLock()
	if err != nil {
		return "", fmt.Errorf("failed to lock checkpoint %s: %w", label, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrLabelInUse, label)
	}

	for _, ext := range []string{ExtDocument, ExtEvents} {
		if err := os.Remove(s.Path(label, ext)); err != nil && !errors.Is(err, os.ErrNotExist) {
			_ = lock.Unlock()
			return "", fmt.Errorf("failed to reset checkpoint %s: %w", label, err)
		}
	}

	af, err := createAudioFile(s.Path(label, ExtAudio), s.format)
	if err != nil {
		_ = lock.Unlock()
		return "", err
	}

	s.label = label
	s.lock = lock
	s.audio = af
	s.open = true
	s.q = newQueue(s.write)

	s.logger.Info("checkpoint opened", "label", label, "dir", s.dir)
	return label, nil
}

// AudioWriter returns the writer appending raw PCM to the open checkpoint's
// audio file. Writes fail once the checkpoint is closed.
func (s *Store) AudioWriter() io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audio == nil {
		return closedWriter{}
	}
	return s.audio
}

// WriteDocumentAsync queues a backup of the document. It never blocks on
// I/O; a queued document backup that has not started yet is replaced.
func (s *Store) WriteDocumentAsync(doc io.WriterTo) {
	s.enqueue(ExtDocument, func(w io.Writer) error {
		_, err := doc.WriteTo(w)
		return err
	})
}

// WritePagesAsync queues a backup of the page list. pages must be a
// snapshot the caller no longer mutates.
func (s *Store) WritePagesAsync(pages []*pagelog.Page) {
	s.enqueue(ExtEvents, func(w io.Writer) error {
		return pagelog.EncodePages(w, pages)
	})
}

// Flush blocks until every queued write has been attempted.
func (s *Store) Flush() {
	s.mu.Lock()
	q := s.q
	s.mu.Unlock()
	if q != nil {
		q.flush()
	}
}

// Failures returns the number of failed artifact writes of the current
// checkpoint.
func (s *Store) Failures() int {
	s.mu.Lock()
	q := s.q
	s.mu.Unlock()
	if q == nil {
		return 0
	}
	return q.failures()
}

// Close drains the write queue, closes the audio file and releases the
// label. The label remains available to Materialize and Clean.
func (s *Store) Close() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	q := s.q
	s.mu.Unlock()

	// The worker needs no store lock, so draining happens unlocked.
	q.stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.audio.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close checkpoint audio: %w", err))
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("failed to unlock checkpoint: %w", err))
	}
	s.audio = nil
	s.lock = nil
	s.open = false
	s.logger.Info("checkpoint closed", "label", s.label)
	return errors.Join(errs...)
}

func (s *Store) enqueue(ext string, fn func(io.Writer) error) {
	s.mu.Lock()
	open, label, q := s.open, s.label, s.q
	s.mu.Unlock()
	if !open {
		s.logger.Debug("checkpoint not open, backup dropped", "artifact", ext)
		return
	}
	q.push(job{label: label, ext: ext, write: fn})
}

// write stores one artifact atomically: temp file, sync, rename.
func (s *Store) write(j job) error {
	path := s.Path(j.label, j.ext)
	tmpFile := path + extTemp

	err := func() error {
		f, err := os.OpenFile(tmpFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // derived path
		if err != nil {
			return err
		}
		if err := j.write(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		return os.Rename(tmpFile, path)
	}()
	if err != nil {
		_ = os.Remove(tmpFile)
		werr := &BackupWriteError{Label: j.label, Artifact: j.ext, Err: err}
		s.logger.Warn("checkpoint write failed", "label", j.label, "artifact", j.ext, "error", werr)
		return werr
	}
	s.logger.Debug("checkpoint written", "label", j.label, "artifact", j.ext)
	return nil
}

// audioFile is the append-only PCM backup. Writes come from the capture
// thread while Close may come from the session.
type audioFile struct {
	mu   sync.Mutex
	file *os.File
}

func createAudioFile(path string, f audio.Format) (*audioFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // derived path
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint audio: %w", err)
	}
	if _, err := file.Write(audio.PlaceholderHeader(f)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to write checkpoint audio header: %w", err)
	}
	return &audioFile{file: file}, nil
}

func (a *audioFile) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return 0, os.ErrClosed
	}
	return a.file.Write(p)
}

func (a *audioFile) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Sync()
	if cerr := a.file.Close(); err == nil {
		err = cerr
	}
	a.file = nil
	return err
}

type closedWriter struct{}

func (closedWriter) Write([]byte) (int, error) { return 0, os.ErrClosed }
