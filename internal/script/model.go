// Package script provides types and functions for loading, validating and
// playing presentation scripts: timed page changes and annotation actions
// that drive a recording session offline against a prerecorded audio track.
package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/slidecast/slidecast/internal/action"
	"github.com/slidecast/slidecast/internal/config"
)

// Script is a presentation timeline loaded from a YAML file.
type Script struct {
	Meta  Meta   `yaml:"meta"`
	Steps []Step `yaml:"steps"`
}

// Validate checks that the script is valid.
func (s *Script) Validate() error {
	if err := s.Meta.Validate(); err != nil {
		return fmt.Errorf("meta: %w", err)
	}
	if len(s.Steps) == 0 {
		return errors.New("steps must contain at least one step")
	}

	var prev config.Duration
	suspended := false
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if i == 0 && step.Kind() != KindPage {
			return errors.New("step 0: first step must select a page")
		}
		if step.At < prev {
			return fmt.Errorf("step %d: at %s is before the previous step (%s)", i, step.At, prev)
		}
		prev = step.At

		switch step.Kind() {
		case KindSuspend:
			if suspended {
				return fmt.Errorf("step %d: already suspended", i)
			}
			suspended = true
		case KindResume:
			if !suspended {
				return fmt.Errorf("step %d: resume without suspend", i)
			}
			suspended = false
		}
	}
	return nil
}

// Meta contains script metadata.
type Meta struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Document identifies the presented document in page references.
	// Defaults to Name.
	Document string `yaml:"document,omitempty"`
}

// Validate checks that the meta section is valid.
func (m *Meta) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("name must be non-empty")
	}
	return nil
}

// DocumentID returns the document identifier used in page references.
func (m *Meta) DocumentID() string {
	if m.Document != "" {
		return m.Document
	}
	return m.Name
}

// Kind names what a step does.
type Kind string

// Step kinds.
const (
	KindPage    Kind = "page"
	KindAction  Kind = "action"
	KindSuspend Kind = "suspend"
	KindResume  Kind = "resume"
)

// Step is one timed event. Exactly one of Page, Action, Suspend and Resume
// is set.
type Step struct {
	// At is the offset from the start of the audio input.
	At config.Duration `yaml:"at"`
	// Page is the 1-based page number to show.
	Page    *int   `yaml:"page,omitempty"`
	Action  string `yaml:"action,omitempty"`
	Suspend bool   `yaml:"suspend,omitempty"`
	Resume  bool   `yaml:"resume,omitempty"`
}

// Kind returns the kind of the step, or "" when none or several are set.
func (s *Step) Kind() Kind {
	var kinds []Kind
	if s.Page != nil {
		kinds = append(kinds, KindPage)
	}
	if s.Action != "" {
		kinds = append(kinds, KindAction)
	}
	if s.Suspend {
		kinds = append(kinds, KindSuspend)
	}
	if s.Resume {
		kinds = append(kinds, KindResume)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Validate checks that the step is valid.
func (s *Step) Validate() error {
	if s.At < 0 {
		return fmt.Errorf("at must not be negative, got %s", s.At)
	}
	switch s.Kind() {
	case KindPage:
		if *s.Page < 1 {
			return fmt.Errorf("page must be >= 1, got %d", *s.Page)
		}
	case KindAction:
		if _, ok := action.ParseType(s.Action); !ok {
			return fmt.Errorf("unknown action %q", s.Action)
		}
	case KindSuspend, KindResume:
	default:
		return errors.New("exactly one of page, action, suspend or resume must be set")
	}
	return nil
}
