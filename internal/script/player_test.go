package script

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecast/slidecast/internal/action"
	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/events"
	"github.com/slidecast/slidecast/internal/idle"
	"github.com/slidecast/slidecast/internal/pagelog"
)

var testFormat = audio.Format{SampleRate: 8000, Channels: 1, BitsPerSample: 16}

// fakeInput hands out remaining bytes and reports io.EOF once drained.
type fakeInput struct {
	remaining int64
	pumped    int64
}

func (f *fakeInput) Pump(n int64) (int64, error) {
	if n > f.remaining {
		n = f.remaining
	}
	f.remaining -= n
	f.pumped += n
	if f.remaining == 0 {
		return n, io.EOF
	}
	return n, nil
}

// timeline logs every delivered event with the clock offset it arrived at.
type timeline struct {
	clock *idle.ManualClock
	start time.Time
	got   []string
}

func (l *timeline) note(format string, args ...any) {
	at := l.clock.Now().Sub(l.start)
	l.got = append(l.got, fmt.Sprintf("%s "+format, append([]any{at}, args...)...))
}

func (l *timeline) OnPageChanged(page pagelog.PageRef) { l.note("page %s", page) }

func (l *timeline) OnAction(page pagelog.PageRef, a action.Action) {
	l.note("%s on %s", a.Type(), page)
}

func (l *timeline) Start() error   { l.note("start"); return nil }
func (l *timeline) Suspend() error { l.note("suspend"); return nil }

func TestPlayer_Play(t *testing.T) {
	s, err := Load(strings.NewReader(validScript))
	require.NoError(t, err)

	start := time.Unix(0, 0)
	clock := idle.NewManualClock(start)
	bus := events.NewBus()
	tl := &timeline{clock: clock, start: start}
	_, err = bus.Subscribe(tl)
	require.NoError(t, err)

	input := &fakeInput{remaining: testFormat.Bytes(3 * time.Second)}
	p := &Player{Input: input, Format: testFormat, Clock: clock, Events: bus, Session: tl}
	require.NoError(t, p.Play(context.Background(), s))

	assert.Equal(t, []string{
		"0s page q3-deck#0",
		"120ms pen on q3-deck#0",
		"1.5s suspend",
		"2s start",
		"2s page q3-deck#1",
	}, tl.got)
	assert.Equal(t, testFormat.Bytes(3*time.Second), input.pumped)
	assert.Equal(t, 3*time.Second, p.Position())
}

func TestPlayer_StepsPastEndOfInput(t *testing.T) {
	s, err := Load(strings.NewReader(validScript))
	require.NoError(t, err)

	clock := idle.NewManualClock(time.Unix(0, 0))
	input := &fakeInput{remaining: testFormat.Bytes(time.Second)}
	p := &Player{Input: input, Format: testFormat, Clock: clock, Events: events.NewBus(), Session: &timeline{clock: clock}}

	require.NoError(t, p.Play(context.Background(), s))
	assert.Equal(t, 2*time.Second, p.Position())
	assert.Equal(t, testFormat.Bytes(time.Second), input.pumped)
}

func TestPlayer_Cancelled(t *testing.T) {
	s, err := Load(strings.NewReader(validScript))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	clock := idle.NewManualClock(time.Unix(0, 0))
	p := &Player{
		Input:   &fakeInput{remaining: testFormat.Bytes(time.Second)},
		Format:  testFormat,
		Clock:   clock,
		Events:  events.NewBus(),
		Session: &timeline{clock: clock},
	}
	assert.ErrorIs(t, p.Play(ctx, s), context.Canceled)
}
