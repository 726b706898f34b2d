package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// ColorMode controls ANSI color output in text reports.
type ColorMode int

// Color modes.
const (
	ColorAuto ColorMode = iota
	ColorOn
	ColorOff
)

// ResolveColor determines whether to emit ANSI color codes when writing to f.
// Priority: SLIDECAST_COLOR env > NO_COLOR env > auto-detect TTY.
func ResolveColor(f *os.File) ColorMode {
	if v := os.Getenv("SLIDECAST_COLOR"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return ColorOn
		case "0", "false", "no", "off":
			return ColorOff
		}
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return ColorOff
	}
	if f != nil && term.IsTerminal(int(f.Fd())) {
		return ColorOn
	}
	return ColorOff
}

func red(s string, c ColorMode) string {
	if c == ColorOn {
		return "\033[31m" + s + "\033[0m"
	}
	return s
}

func dim(s string, c ColorMode) string {
	if c == ColorOn {
		return "\033[2m" + s + "\033[0m"
	}
	return s
}

func bold(s string, c ColorMode) string {
	if c == ColorOn {
		return "\033[1m" + s + "\033[0m"
	}
	return s
}

// FormatText writes a human-readable listing of the Report.
func FormatText(w io.Writer, r *Report, color ColorMode) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", bold(r.File, color))
	fmt.Fprintf(&b, "  version:   %d\n", r.Version)
	fmt.Fprintf(&b, "  duration:  %s\n", formatMs(r.DurationMs))
	fmt.Fprintf(&b, "  audio:     %s (%d Hz, %d ch, %d-bit)\n",
		humanize.Bytes(uint64(r.AudioBytes)), r.SampleRate, r.Channels, r.BitsPerSample)
	fmt.Fprintf(&b, "  document:  %s\n", humanize.Bytes(uint64(r.DocumentBytes)))
	fmt.Fprintf(&b, "  pages:     %d\n", len(r.Pages))
	fmt.Fprintf(&b, "  actions:   %d static, %d live\n", r.StaticActions, r.LiveActions)
	for _, d := range r.Dropped {
		fmt.Fprintf(&b, "  %s %s\n", red("dropped:", color), d)
	}

	for _, p := range r.Pages {
		ref := fmt.Sprintf("page %d", p.Page+1)
		if p.Document != "" {
			ref = p.Document + " " + ref
		}
		fmt.Fprintf(&b, "\n%s @ %s  %s\n",
			bold(fmt.Sprintf("Visit %d", p.Index+1), color), formatMs(int64(p.TimestampMs)), ref)
		for _, a := range p.Static {
			fmt.Fprintf(&b, "    %s %8s  %s\n", dim("static", color), formatMs(int64(a.TimestampMs)), actionLabel(a))
		}
		for _, a := range p.Live {
			fmt.Fprintf(&b, "    %s %8s  %s\n", "live  ", formatMs(int64(a.TimestampMs)), actionLabel(a))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func actionLabel(a ActionReport) string {
	if a.Key {
		return a.Type + " (key)"
	}
	return a.Type
}

func formatMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
