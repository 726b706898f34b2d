// Package report provides structured output types and formatters (text, JSON,
// YAML) for inspecting recording containers.
package report

import (
	"github.com/slidecast/slidecast/internal/action"
	"github.com/slidecast/slidecast/internal/recording"
)

// Report is the structured summary of one recording.
type Report struct {
	File          string       `json:"file" yaml:"file"`
	Version       uint8        `json:"version" yaml:"version"`
	DurationMs    int64        `json:"duration_ms" yaml:"duration_ms"`
	AudioBytes    int64        `json:"audio_bytes" yaml:"audio_bytes"`
	SampleRate    int          `json:"sample_rate" yaml:"sample_rate"`
	Channels      int          `json:"channels" yaml:"channels"`
	BitsPerSample int          `json:"bits_per_sample" yaml:"bits_per_sample"`
	DocumentBytes int          `json:"document_bytes" yaml:"document_bytes"`
	StaticActions int          `json:"static_actions" yaml:"static_actions"`
	LiveActions   int          `json:"live_actions" yaml:"live_actions"`
	Dropped       []string     `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Pages         []PageReport `json:"pages" yaml:"pages"`
}

// PageReport describes one committed page visit.
type PageReport struct {
	Index       int            `json:"index" yaml:"index"`
	TimestampMs uint32         `json:"timestamp_ms" yaml:"timestamp_ms"`
	Document    string         `json:"document,omitempty" yaml:"document,omitempty"`
	Page        int            `json:"page" yaml:"page"`
	Static      []ActionReport `json:"static,omitempty" yaml:"static,omitempty"`
	Live        []ActionReport `json:"live,omitempty" yaml:"live,omitempty"`
}

// ActionReport describes one action.
type ActionReport struct {
	TimestampMs uint32 `json:"timestamp_ms" yaml:"timestamp_ms"`
	Type        string `json:"type" yaml:"type"`
	Key         bool   `json:"key,omitempty" yaml:"key,omitempty"`
}

// Build constructs a Report from a recording read from file.
func Build(file string, rec *recording.Recording) *Report {
	static, live := rec.ActionCount()
	r := &Report{
		File:          file,
		Version:       rec.Header.Version,
		DurationMs:    rec.Header.Duration.Milliseconds(),
		AudioBytes:    rec.Header.AudioLength,
		SampleRate:    rec.Header.Format.SampleRate,
		Channels:      rec.Header.Format.Channels,
		BitsPerSample: rec.Header.Format.BitsPerSample,
		DocumentBytes: len(rec.Document),
		StaticActions: static,
		LiveActions:   live,
		Pages:         make([]PageReport, len(rec.Pages)),
	}
	for _, err := range rec.Dropped {
		r.Dropped = append(r.Dropped, err.Error())
	}
	for i, p := range rec.Pages {
		r.Pages[i] = PageReport{
			Index:       p.Number,
			TimestampMs: p.Timestamp,
			Document:    p.Ref.DocumentID,
			Page:        p.Ref.Number,
			Static:      actionReports(p.Static),
			Live:        actionReports(p.Live),
		}
	}
	return r
}

func actionReports(actions []action.Action) []ActionReport {
	if len(actions) == 0 {
		return nil
	}
	out := make([]ActionReport, len(actions))
	for i, a := range actions {
		h := a.Header()
		out[i] = ActionReport{
			TimestampMs: h.Timestamp,
			Type:        a.Type().String(),
			Key:         h.Key != nil,
		}
	}
	return out
}
