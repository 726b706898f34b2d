package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/slidecast/slidecast/internal/action"
	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/events"
	"github.com/slidecast/slidecast/internal/idle"
	"github.com/slidecast/slidecast/internal/logging"
	"github.com/slidecast/slidecast/internal/pagelog"
)

// DefaultTick is the audio granularity Play advances time by.
const DefaultTick = 10 * time.Millisecond

// Input is a pumped audio source, such as audio.FileDevice.
type Input interface {
	Pump(n int64) (int64, error)
}

// Controller is the part of a recording session a script pauses and
// resumes.
type Controller interface {
	Start() error
	Suspend() error
}

// Player feeds a script to a session. Audio is pumped from Input and Clock
// is advanced by the same amount, so the session's idle timer and its audio
// clock move together.
type Player struct {
	Input   Input
	Format  audio.Format
	Clock   *idle.ManualClock
	Events  *events.Bus
	Session Controller
	Tick    time.Duration
	Logger  *slog.Logger

	pos       time.Duration
	exhausted bool
}

// Play delivers every step at its offset, then plays out the rest of the
// input.
func (p *Player) Play(ctx context.Context, s *Script) error {
	if p.Tick <= 0 {
		p.Tick = DefaultTick
	}
	if p.Logger == nil {
		p.Logger = logging.Discard()
	}

	page := pagelog.PageRef{DocumentID: s.Meta.DocumentID()}
	for i, step := range s.Steps {
		if err := p.advance(ctx, time.Duration(step.At)-p.pos); err != nil {
			return err
		}
		switch step.Kind() {
		case KindPage:
			page.Number = *step.Page - 1
			p.Events.PageChanged(page)
		case KindAction:
			t, _ := action.ParseType(step.Action)
			p.Events.Action(page, action.New(t))
		case KindSuspend:
			if err := p.Session.Suspend(); err != nil {
				return fmt.Errorf("step %d: failed to suspend: %w", i, err)
			}
		case KindResume:
			if err := p.Session.Start(); err != nil {
				return fmt.Errorf("step %d: failed to resume: %w", i, err)
			}
		}
		p.Logger.Debug("script step", "index", i, "kind", step.Kind(), "at", step.At)
	}

	for !p.exhausted {
		if err := p.advance(ctx, p.Tick); err != nil {
			return err
		}
	}
	return nil
}

// Position returns how far into the input playback has advanced.
func (p *Player) Position() time.Duration {
	return p.pos
}

func (p *Player) advance(ctx context.Context, d time.Duration) error {
	for d > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := min(p.Tick, d)
		if !p.exhausted {
			_, err := p.Input.Pump(p.Format.Bytes(chunk))
			switch {
			case errors.Is(err, io.EOF):
				p.exhausted = true
				p.Logger.Debug("audio input exhausted", "at", p.pos+chunk)
			case err != nil:
				return err
			}
		}
		p.Clock.Advance(chunk)
		p.pos += chunk
		d -= chunk
	}
	return nil
}
