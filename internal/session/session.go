// Package session drives a recording: it routes presentation events into
// the page log, decides when page visits become durable, keeps the
// checkpoint current and assembles the final recording.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slidecast/slidecast/internal/action"
	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/checkpoint"
	"github.com/slidecast/slidecast/internal/events"
	"github.com/slidecast/slidecast/internal/idle"
	"github.com/slidecast/slidecast/internal/logging"
	"github.com/slidecast/slidecast/internal/pagelog"
	"github.com/slidecast/slidecast/internal/recording"
)

// Document is the presentation being annotated. WriteTo serializes its
// current state.
type Document interface {
	io.WriterTo
	Close() error
}

// Options configures a Session.
type Options struct {
	Store    *checkpoint.Store
	Device   audio.Device
	Document Document
	Events   events.Source

	// Mixer, if set, receives a copy of the captured audio.
	Mixer io.Writer

	// IdleTimeout is how long a page must stay active before its visit is
	// committed. Zero selects idle.DefaultTimeout.
	IdleTimeout time.Duration
	// Clock drives the idle timer. Nil selects the system clock.
	Clock idle.Clock

	Logger *slog.Logger
	// Format is the capture format. Zero selects audio.DefaultFormat.
	Format audio.Format
}

// Session is a single recording session. It is safe for concurrent use: the
// event producer, the idle timer and the controlling goroutine may call it
// simultaneously.
type Session struct {
	id       string
	store    *checkpoint.Store
	device   audio.Device
	document Document
	source   events.Source
	mixer    io.Writer
	format   audio.Format
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	err       error
	log       *pagelog.Log
	pending   *pagelog.PendingBuffer
	timer     *idle.Timer
	sink      *audio.CountingSink
	sub       events.Subscription
	capturing bool
	active    pagelog.PageRef
	hasActive bool
	// armed is the page visit waiting on the idle window. It stays set after
	// the timer fires until the callback gets the lock.
	armed *visit

	listeners []func(State)
	changes   []State
}

// New validates opts and returns a session in the Created state.
func New(opts Options) (*Session, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("session requires a checkpoint store")
	case opts.Device == nil:
		return nil, errors.New("session requires an audio device")
	case opts.Document == nil:
		return nil, errors.New("session requires a document")
	case opts.Events == nil:
		return nil, errors.New("session requires an event source")
	}
	format := opts.Format
	if format == (audio.Format{}) {
		format = audio.DefaultFormat
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audio format: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Session{
		id:       uuid.NewString(),
		store:    opts.Store,
		device:   opts.Device,
		document: opts.Document,
		source:   opts.Events,
		mixer:    opts.Mixer,
		format:   format,
		pending:  pagelog.NewPendingBuffer(),
		timer:    idle.New(opts.IdleTimeout, opts.Clock),
	}
	s.logger = logger.With("session", s.id)
	s.log = pagelog.New(s.elapsedLocked)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that moved the session into the Error state, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// OnStateChange registers fn to be called after every state change. fn runs
// on the goroutine that caused the change, after the session lock is
// released.
func (s *Session) OnStateChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Elapsed returns the recorded time of the current take in milliseconds.
func (s *Session) Elapsed() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

// Pages returns a copy of the committed page visits.
func (s *Session) Pages() []*pagelog.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Snapshot()
}

// IdleTimeout returns the page commit delay.
func (s *Session) IdleTimeout() time.Duration {
	return s.timer.Timeout()
}

// Initialize registers for presentation events and clears any state left
// from a previous use.
func (s *Session) Initialize() error {
	s.mu.Lock()
	defer s.unlock()

	if s.state != Created {
		return &InvalidTransitionError{Op: "initialize", From: s.state}
	}
	s.log.Reset()
	s.pending.Clear()
	if err := s.subscribeLocked(); err != nil {
		return s.failLocked("initialize", err)
	}
	s.setStateLocked(Initialized)
	return nil
}

// Start begins a fresh take from Initialized, Stopped or Error, or resumes
// a suspended one. From Error, a take whose checkpoint and capture are still
// open is resumed rather than replaced.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.unlock()

	switch s.state {
	case Suspended:
		return s.resumeLocked()
	case Error:
		if s.capturing && s.store.IsOpen() {
			return s.resumeLocked()
		}
		return s.startLocked()
	case Initialized, Stopped:
		return s.startLocked()
	default:
		return &InvalidTransitionError{Op: "start", From: s.state}
	}
}

// Suspend pauses capture. Events received while suspended are staged and
// reconciled on the next Start.
func (s *Session) Suspend() error {
	s.flushVisit()

	s.mu.Lock()
	defer s.unlock()

	if s.state != Started {
		return &InvalidTransitionError{Op: "suspend", From: s.state}
	}
	s.cancelVisitLocked()

	if err := s.device.Suspend(); err != nil {
		return s.failLocked("suspend", fmt.Errorf("failed to suspend audio device: %w", err))
	}
	if s.hasActive {
		s.pending.StagePage(s.active)
	}
	s.log.SetRecording(false)
	s.backupPagesLocked()
	s.setStateLocked(Suspended)
	s.logger.Info("recording suspended", "elapsed_ms", s.elapsedLocked())
	return nil
}

// Stop ends the take and closes its checkpoint. The committed pages remain
// available to WriteRecording; the next Start begins a new timeline.
func (s *Session) Stop() error {
	s.flushVisit()

	s.mu.Lock()
	defer s.unlock()

	switch s.state {
	case Started, Suspended, Error:
	default:
		return &InvalidTransitionError{Op: "stop", From: s.state}
	}
	return s.stopLocked()
}

// Destroy releases every resource. A running take is stopped first.
func (s *Session) Destroy() error {
	s.flushVisit()

	s.mu.Lock()
	defer s.unlock()

	if s.state.Terminal() {
		return &InvalidTransitionError{Op: "destroy", From: s.state}
	}

	var errs []error
	if s.state.Recording() || s.capturing {
		if err := s.stopLocked(); err != nil {
			errs = append(errs, err)
		}
	}
	s.setStateLocked(Destroying)
	s.cancelVisitLocked()

	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	if s.store.IsOpen() {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.document.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close document: %w", err))
	}
	s.pending.Clear()
	s.setStateLocked(Destroyed)
	s.logger.Info("session destroyed")
	return errors.Join(errs...)
}

// WriteRecording assembles the stopped take into a recording container at
// dest. On success the checkpoint is discarded; on failure it is kept so
// the write can be retried or the take recovered later.
func (s *Session) WriteRecording(dest string) error {
	s.mu.Lock()
	defer s.unlock()

	if s.state != Stopped {
		return &InvalidTransitionError{Op: "write", From: s.state}
	}
	if s.log.Len() == 0 {
		return &FinalizationError{Dest: dest, Err: ErrNothingRecorded}
	}

	label := s.store.Label()
	wav, err := os.ReadFile(s.store.Path(label, checkpoint.ExtAudio))
	if err != nil {
		return &FinalizationError{Dest: dest, Err: fmt.Errorf("failed to read audio: %w", err)}
	}
	var doc bytes.Buffer
	if _, err := s.document.WriteTo(&doc); err != nil {
		return &FinalizationError{Dest: dest, Err: fmt.Errorf("failed to serialize document: %w", err)}
	}
	rec, err := recording.Assemble(s.log.Snapshot(), wav, doc.Bytes())
	if err != nil {
		return &FinalizationError{Dest: dest, Err: err}
	}
	if err := recording.WriteFile(dest, rec); err != nil {
		return &FinalizationError{Dest: dest, Err: err}
	}

	s.logger.Info("recording written",
		"path", dest,
		"label", label,
		"pages", rec.Header.PageCount,
		"duration", rec.Header.Duration,
	)
	if err := s.store.Clean(); err != nil {
		s.logger.Warn("failed to clean checkpoints", "error", err)
	}
	return nil
}

// OnPageChanged implements events.Handler.
func (s *Session) OnPageChanged(page pagelog.PageRef) {
	s.mu.Lock()
	defer s.unlock()

	if s.state.Terminal() {
		return
	}
	s.active = page
	s.hasActive = true

	if s.state != Started {
		s.logger.Debug("page change staged", "page", page, "state", s.state)
		return
	}
	if s.log.Len() == 0 {
		s.commitLocked(page, s.elapsedLocked())
		return
	}
	s.armVisitLocked(page)
}

// OnAction implements events.Handler.
func (s *Session) OnAction(page pagelog.PageRef, a action.Action) {
	// The action belongs to the page the presenter sees, so a visit still
	// waiting on the idle window is committed first.
	s.flushVisit()

	s.mu.Lock()
	defer s.unlock()

	switch s.state {
	case Started:
		if err := s.log.AppendLive(a); err != nil {
			s.logger.Debug("action dropped", "type", a.Type(), "error", err)
			return
		}
		s.backupPagesLocked()
	case Initialized, Suspended:
		s.pending.StageAction(page, a)
		s.logger.Debug("action staged", "type", a.Type(), "page", page, "state", s.state)
	default:
		s.logger.Debug("action dropped", "type", a.Type(), "state", s.state)
	}
}

func (s *Session) startLocked() error {
	if !s.device.Available() {
		s.logger.Warn("audio device unavailable", "device", s.device.Name())
		return &DeviceUnavailableError{Device: s.device.Name()}
	}
	if err := s.subscribeLocked(); err != nil {
		return s.failLocked("start", err)
	}
	label, err := s.store.Open()
	if err != nil {
		return s.failLocked("start", fmt.Errorf("failed to open checkpoint: %w", err))
	}

	s.log.Reset()
	s.log.SetRecording(true)
	s.sink = audio.NewCountingSink(s.format, s.store.AudioWriter(), s.mixer)
	if err := s.device.Start(s.sink); err != nil {
		s.sink = nil
		s.log.SetRecording(false)
		if cerr := s.store.Close(); cerr != nil {
			s.logger.Warn("failed to close checkpoint", "label", label, "error", cerr)
		}
		return s.failLocked("start", fmt.Errorf("failed to start audio device: %w", err))
	}
	s.capturing = true
	s.setStateLocked(Started)
	s.err = nil

	s.backupDocumentLocked()
	if s.hasActive {
		s.commitLocked(s.active, 0)
	}
	s.pending.ClearPendingPage()
	s.logger.Info("recording started", "label", label, "device", s.device.Name(), "format", s.format.String())
	return nil
}

func (s *Session) resumeLocked() error {
	if !s.device.Available() {
		s.logger.Warn("audio device unavailable", "device", s.device.Name())
		return &DeviceUnavailableError{Device: s.device.Name()}
	}
	if err := s.device.Resume(); err != nil {
		return s.failLocked("resume", fmt.Errorf("failed to resume audio device: %w", err))
	}
	s.log.SetRecording(true)
	s.setStateLocked(Started)
	s.err = nil

	staged, ok := s.pending.PendingPage()
	s.pending.ClearPendingPage()
	if s.hasActive {
		cur := s.log.Current()
		if ok && staged.Same(s.active) && cur != nil && cur.Ref.Same(s.active) {
			// Still on the page that was active at suspension: what was drawn
			// meanwhile continues the visit.
			for _, a := range s.pending.Drain(s.active) {
				_ = s.log.AppendLive(a)
			}
			s.backupPagesLocked()
		} else {
			s.commitLocked(s.active, s.elapsedLocked())
		}
	}
	s.logger.Info("recording resumed", "elapsed_ms", s.elapsedLocked())
	return nil
}

func (s *Session) stopLocked() error {
	s.cancelVisitLocked()

	var errs []error
	if s.capturing {
		if err := s.device.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audio device: %w", err))
		}
		s.capturing = false
	}
	if s.store.IsOpen() {
		s.backupPagesLocked()
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	elapsed := s.elapsedLocked()
	s.log.SetRecording(false)
	s.sink = nil
	s.pending.Clear()

	if err := errors.Join(errs...); err != nil {
		return s.failLocked("stop", err)
	}
	s.setStateLocked(Stopped)
	s.logger.Info("recording stopped", "pages", s.log.Len(), "elapsed_ms", elapsed)
	return nil
}

// commitLocked records a visit to page at ts. A newly created entry takes
// the actions staged for its page as static actions.
func (s *Session) commitLocked(page pagelog.PageRef, ts uint32) {
	entry, created := s.log.CommitPage(page, ts)
	if !created {
		return
	}
	if staged := s.pending.Drain(page); len(staged) > 0 {
		_ = s.log.AppendStatic(staged...)
	}
	s.logger.Debug("page committed", "page", page, "entry", entry.Number, "ts", entry.Timestamp)
	s.backupDocumentLocked()
	s.backupPagesLocked()
}

// visit is a page change inside its idle window.
type visit struct {
	page pagelog.PageRef
	ts   uint32
}

// armVisitLocked starts the idle window for page. The timestamp is taken
// now so the visit starts when the page appeared, not when it was
// confirmed.
func (s *Session) armVisitLocked(page pagelog.PageRef) {
	prev := s.armed
	v := &visit{page: page, ts: s.elapsedLocked()}
	s.armed = v
	discarded := s.timer.Start(func(dwell time.Duration) {
		s.commitVisit(v, dwell)
	})
	if prev != nil && !discarded {
		// prev outlived its idle window; its callback is waiting on the lock.
		s.logger.Debug("page visit confirmed", "page", prev.page)
		s.commitLocked(prev.page, prev.ts)
	}
}

func (s *Session) commitVisit(v *visit, dwell time.Duration) {
	s.mu.Lock()
	defer s.unlock()

	if s.armed != v {
		return
	}
	s.armed = nil
	if s.state != Started {
		return
	}
	s.logger.Debug("page visit confirmed", "page", v.page, "dwell", dwell)
	s.commitLocked(v.page, v.ts)
}

// flushVisit commits a visit still inside its idle window. It must be
// called without the session lock, since the visit callback takes it.
func (s *Session) flushVisit() {
	if dwell, ok := s.timer.Flush(); ok {
		s.logger.Debug("page visit flushed", "dwell", dwell)
	}
}

// cancelVisitLocked discards a visit still inside its idle window. A visit
// whose window already closed, with its callback waiting on the lock, is
// committed here instead.
func (s *Session) cancelVisitLocked() {
	v := s.armed
	s.armed = nil
	if s.timer.Cancel() || v == nil || s.state != Started {
		return
	}
	s.logger.Debug("page visit confirmed", "page", v.page)
	s.commitLocked(v.page, v.ts)
}

func (s *Session) subscribeLocked() error {
	if s.sub != nil {
		return nil
	}
	sub, err := s.source.Subscribe(s)
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}
	s.sub = sub
	return nil
}

// backupDocumentLocked serializes the document now and hands the bytes to
// the checkpoint worker, which never reads the live document.
func (s *Session) backupDocumentLocked() {
	var buf bytes.Buffer
	_, err := s.document.WriteTo(&buf)
	s.store.WriteDocumentAsync(&documentSnapshot{data: buf.Bytes(), err: err})
}

// documentSnapshot replays a serialized document, or the error serializing
// it failed with, so the store reports it like any other backup failure.
type documentSnapshot struct {
	data []byte
	err  error
}

func (d *documentSnapshot) WriteTo(w io.Writer) (int64, error) {
	if d.err != nil {
		return 0, d.err
	}
	n, err := w.Write(d.data)
	return int64(n), err
}

func (s *Session) backupPagesLocked() {
	if s.log.Len() == 0 {
		return
	}
	s.store.WritePagesAsync(s.log.Snapshot())
}

func (s *Session) elapsedLocked() uint32 {
	if s.sink == nil {
		return 0
	}
	return s.sink.Elapsed()
}

func (s *Session) failLocked(op string, err error) error {
	s.err = err
	s.setStateLocked(Error)
	s.logger.Error("session transition failed", "op", op, "error", err)
	return err
}

func (s *Session) setStateLocked(st State) {
	if st == s.state {
		return
	}
	s.logger.Debug("state changed", "from", s.state, "to", st)
	s.state = st
	s.changes = append(s.changes, st)
}

// unlock releases the session lock and then notifies listeners of the
// state changes made while it was held.
func (s *Session) unlock() {
	changes := s.changes
	s.changes = nil
	listeners := s.listeners
	s.mu.Unlock()

	for _, st := range changes {
		for _, fn := range listeners {
			fn(st)
		}
	}
}
