// Package testutil provides configurable test doubles for the collaborators
// of a recording session: audio device, document and event source.
package testutil

import (
	"errors"
	"io"
	"sync"

	"github.com/slidecast/slidecast/internal/action"
	"github.com/slidecast/slidecast/internal/events"
	"github.com/slidecast/slidecast/internal/pagelog"
)

// ErrNotCapturing is returned by FakeAudioDevice.Emit when the device is not
// delivering audio.
var ErrNotCapturing = errors.New("fake device not capturing")

// Call records a single method invocation on a fake.
type Call struct {
	Method string
	Args   []string
}

// FakeAudioDevice is a configurable test double implementing audio.Device.
// Test authors set the function fields to control behavior per test case
// and push PCM with Emit.
type FakeAudioDevice struct {
	mu sync.Mutex

	// NameValue is returned by Name(). Default: "fake".
	NameValue string

	// AvailableValue is returned by Available(). Default: true.
	AvailableValue bool

	// StartFunc overrides Start. The sink is still attached when it
	// returns nil.
	StartFunc func() error

	// SuspendFunc and ResumeFunc override Suspend and Resume. Delivery is
	// left unchanged when they return an error.
	SuspendFunc func() error
	ResumeFunc  func() error

	// StopFunc overrides Stop.
	StopFunc func() error

	// Calls tracks method invocations for assertion.
	Calls []Call

	sink      io.Writer
	running   bool
	suspended bool
}

// NewFakeAudioDevice returns an available FakeAudioDevice.
func NewFakeAudioDevice() *FakeAudioDevice {
	return &FakeAudioDevice{NameValue: "fake", AvailableValue: true}
}

// Name returns the configured device name.
func (f *FakeAudioDevice) Name() string {
	return f.NameValue
}

// Available reports AvailableValue.
func (f *FakeAudioDevice) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: "Available"})
	return f.AvailableValue
}

// SetAvailable changes what Available reports.
func (f *FakeAudioDevice) SetAvailable(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AvailableValue = ok
}

// Start attaches sink or delegates to StartFunc first.
func (f *FakeAudioDevice) Start(sink io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: "Start"})
	if f.StartFunc != nil {
		if err := f.StartFunc(); err != nil {
			return err
		}
	}
	f.sink = sink
	f.running = true
	f.suspended = false
	return nil
}

// Suspend pauses delivery or delegates to SuspendFunc first.
func (f *FakeAudioDevice) Suspend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: "Suspend"})
	if f.SuspendFunc != nil {
		if err := f.SuspendFunc(); err != nil {
			return err
		}
	}
	f.suspended = true
	return nil
}

// Resume continues delivery or delegates to ResumeFunc first.
func (f *FakeAudioDevice) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: "Resume"})
	if f.ResumeFunc != nil {
		if err := f.ResumeFunc(); err != nil {
			return err
		}
	}
	f.suspended = false
	return nil
}

// Stop detaches the sink or delegates to StopFunc first.
func (f *FakeAudioDevice) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: "Stop"})
	if f.StopFunc != nil {
		if err := f.StopFunc(); err != nil {
			return err
		}
	}
	f.sink = nil
	f.running = false
	f.suspended = false
	return nil
}

// Emit delivers p to the attached sink as if it had been captured.
func (f *FakeAudioDevice) Emit(p []byte) error {
	f.mu.Lock()
	sink, capturing := f.sink, f.running && !f.suspended
	f.mu.Unlock()
	if !capturing {
		return ErrNotCapturing
	}
	_, err := sink.Write(p)
	return err
}

// EmitSilence delivers n zero bytes.
func (f *FakeAudioDevice) EmitSilence(n int) error {
	return f.Emit(make([]byte, n))
}

// Capturing reports whether Emit would reach a sink.
func (f *FakeAudioDevice) Capturing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running && !f.suspended
}

// Methods returns the names of the recorded calls, in order.
func (f *FakeAudioDevice) Methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, c.Method)
	}
	return out
}

// FakeDocument is an in-memory presentation document.
type FakeDocument struct {
	mu sync.Mutex

	// Content is what WriteTo produces.
	Content []byte

	// WriteToFunc overrides WriteTo.
	WriteToFunc func(w io.Writer) (int64, error)

	// Closed is set by Close.
	Closed bool

	// Writes counts WriteTo calls.
	Writes int
}

// NewFakeDocument returns a document serializing to content.
func NewFakeDocument(content string) *FakeDocument {
	return &FakeDocument{Content: []byte(content)}
}

// WriteTo writes Content or delegates to WriteToFunc.
func (d *FakeDocument) WriteTo(w io.Writer) (int64, error) {
	d.mu.Lock()
	d.Writes++
	fn, content := d.WriteToFunc, append([]byte(nil), d.Content...)
	d.mu.Unlock()
	if fn != nil {
		return fn(w)
	}
	n, err := w.Write(content)
	return int64(n), err
}

// SetContent replaces the serialized form.
func (d *FakeDocument) SetContent(content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Content = []byte(content)
}

// Close marks the document closed.
func (d *FakeDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}

// FakeEventSource is a configurable test double implementing events.Source.
type FakeEventSource struct {
	mu sync.Mutex

	// SubscribeErr is returned by Subscribe when set.
	SubscribeErr error

	// Subscribes and Unsubscribes count calls.
	Subscribes   int
	Unsubscribes int

	handlers map[int]events.Handler
	next     int
}

// NewFakeEventSource returns an event source with no subscribers.
func NewFakeEventSource() *FakeEventSource {
	return &FakeEventSource{handlers: make(map[int]events.Handler)}
}

// Subscribe registers h.
func (s *FakeEventSource) Subscribe(h events.Handler) (events.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SubscribeErr != nil {
		return nil, s.SubscribeErr
	}
	s.Subscribes++
	id := s.next
	s.next++
	s.handlers[id] = h
	return &fakeSubscription{source: s, id: id}, nil
}

// Subscribers returns the number of registered handlers.
func (s *FakeEventSource) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// PageChanged delivers a page change to every handler.
func (s *FakeEventSource) PageChanged(page pagelog.PageRef) {
	for _, h := range s.snapshot() {
		h.OnPageChanged(page)
	}
}

// Action delivers an action to every handler.
func (s *FakeEventSource) Action(page pagelog.PageRef, a action.Action) {
	for _, h := range s.snapshot() {
		h.OnAction(page, a)
	}
}

func (s *FakeEventSource) snapshot() []events.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		out = append(out, h)
	}
	return out
}

type fakeSubscription struct {
	source *FakeEventSource
	id     int
}

func (f *fakeSubscription) Unsubscribe() {
	f.source.mu.Lock()
	defer f.source.mu.Unlock()
	f.source.Unsubscribes++
	delete(f.source.handlers, f.id)
}
