package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/slidecast/slidecast/internal/pagelog"
	"github.com/slidecast/slidecast/internal/recording"
)

// Artifacts describes the files present under one checkpoint label.
type Artifacts struct {
	Label    string
	Document bool
	Events   bool
	Audio    bool
	// Size is the combined size of the artifact files in bytes.
	Size    int64
	ModTime time.Time
	// Locked is set when another live process holds the label.
	Locked bool
}

// Recoverable reports whether the audio and at least one of the document
// and event list are present.
func (a Artifacts) Recoverable() bool {
	return a.Audio && (a.Document || a.Events)
}

// Time returns the session start time encoded in the label.
func (a Artifacts) Time() time.Time {
	t, _ := time.ParseInLocation(LabelLayout, a.Label, time.Local)
	return t
}

// Labels groups the checkpoint directory by label, newest first. A missing
// directory yields no labels.
func (s *Store) Labels() ([]Artifacts, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	byLabel := make(map[string]*Artifacts)
	hasLock := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		label, ext, ok := splitArtifact(e.Name())
		if !ok {
			continue
		}
		if ext == extLock {
			hasLock[label] = true
			continue
		}
		if ext != ExtDocument && ext != ExtEvents && ext != ExtAudio {
			continue
		}
		a := byLabel[label]
		if a == nil {
			a = &Artifacts{Label: label}
			byLabel[label] = a
		}
		switch ext {
		case ExtDocument:
			a.Document = true
		case ExtEvents:
			a.Events = true
		case ExtAudio:
			a.Audio = true
		}
		if info, err := e.Info(); err == nil {
			a.Size += info.Size()
			if info.ModTime().After(a.ModTime) {
				a.ModTime = info.ModTime()
			}
		}
	}

	own := s.ownLabel()
	out := make([]Artifacts, 0, len(byLabel))
	for label, a := range byLabel {
		if hasLock[label] && label != own {
			a.Locked = s.heldElsewhere(label)
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label > out[j].Label })
	return out, nil
}

// DiscoverLatestCheckpoint returns the most recent recoverable label not held
// by a live process.
func (s *Store) DiscoverLatestCheckpoint() (string, bool, error) {
	labels, err := s.Labels()
	if err != nil {
		return "", false, err
	}
	for _, a := range labels {
		if a.Recoverable() && !a.Locked {
			return a.Label, true, nil
		}
	}
	return "", false, nil
}

// Materialize assembles the artifacts of label into a Recording, the same
// way a finished session does. Event list frames that fail to decode are
// dropped and reported in Recording.Dropped.
func (s *Store) Materialize(label string) (*recording.Recording, error) {
	wav, err := os.ReadFile(s.Path(label, ExtAudio))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no audio", ErrIncomplete, label)
		}
		return nil, fmt.Errorf("failed to read checkpoint audio: %w", err)
	}
	document, docErr := readOptional(s.Path(label, ExtDocument))
	if docErr != nil {
		return nil, fmt.Errorf("failed to read checkpoint document: %w", docErr)
	}
	events, evErr := readOptional(s.Path(label, ExtEvents))
	if evErr != nil {
		return nil, fmt.Errorf("failed to read checkpoint events: %w", evErr)
	}
	if document == nil && events == nil {
		return nil, fmt.Errorf("%w: %s has only audio", ErrIncomplete, label)
	}

	var (
		pages   []*pagelog.Page
		dropped []error
	)
	if events != nil {
		pages, dropped, err = pagelog.DecodePages(events)
		if err != nil {
			// Keep the pages that decoded; a torn tail is expected after a crash.
			dropped = append(dropped, err)
		}
		for _, ferr := range dropped {
			s.logger.Warn("checkpoint event dropped", "label", label, "error", ferr)
		}
	}

	rec, err := recording.Assemble(pages, wav, document)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble checkpoint %s: %w", label, err)
	}
	rec.Dropped = dropped
	return rec, nil
}

// Clean removes every artifact of every label, except labels held by a live
// process and the label this store has open.
func (s *Store) Clean() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	own := s.ownLabel()
	held := make(map[string]bool)
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		label, ext, ok := splitArtifact(e.Name())
		if !ok || label == own {
			continue
		}
		if ext == extLock {
			// Lock files go last; removing one first would unguard the label.
			continue
		}
		locked, seen := held[label]
		if !seen {
			locked = s.heldElsewhere(label)
			held[label] = locked
		}
		if locked {
			s.logger.Info("checkpoint in use, skipped", "label", label)
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	for _, e := range entries {
		label, ext, ok := splitArtifact(e.Name())
		if !ok || ext != extLock || label == own {
			continue
		}
		if locked, seen := held[label]; seen && locked {
			continue
		}
		if !s.heldElsewhere(label) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to clean checkpoints: %w", err)
	}
	s.logger.Info("checkpoints cleaned", "dir", s.dir)
	return nil
}

// ownLabel returns the label this store currently holds, if any.
func (s *Store) ownLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ""
	}
	return s.label
}

// heldElsewhere tries the label's lock file. A label without a lock file is
// never held.
func (s *Store) heldElsewhere(label string) bool {
	path := s.Path(label, extLock)
	if _, err := os.Stat(path); err != nil {
		return false
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = fl.Unlock()
		return false
	}
	return true
}

// splitArtifact splits a file name into label and extension. Temporary files
// report extTemp so callers can tell them from finished artifacts.
func splitArtifact(name string) (label, ext string, ok bool) {
	base := strings.TrimSuffix(name, extTemp)
	ext = filepath.Ext(base)
	label = strings.TrimSuffix(base, ext)
	if _, err := time.Parse(LabelLayout, label); err != nil {
		return "", "", false
	}
	if base != name {
		return label, extTemp, true
	}
	return label, ext, true
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // derived path
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}
