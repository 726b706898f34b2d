package pagelog

import (
	"errors"

	"github.com/slidecast/slidecast/internal/action"
)

// ErrNoPage is returned when a live action arrives before any page commit.
var ErrNoPage = errors.New("no page committed")

// Log is the ordered list of committed page visits.
type Log struct {
	pages     []*Page
	elapsed   func() uint32
	recording bool
}

// New returns an empty Log. elapsed reports the current offset from
// recording start and is used to stamp live actions.
func New(elapsed func() uint32) *Log {
	return &Log{elapsed: elapsed}
}

// SetRecording enables or disables the log. While disabled, commits and
// appends are dropped.
func (l *Log) SetRecording(on bool) {
	l.recording = on
}

// Recording reports whether the log accepts commits and appends.
func (l *Log) Recording() bool {
	return l.recording
}

// CommitPage records a visit to ref at ts. If ref is the page committed last,
// the existing entry is returned and created is false. A revisit of a page
// seen earlier seeds the new entry's static actions with everything that
// happened on the most recent earlier visit.
func (l *Log) CommitPage(ref PageRef, ts uint32) (page *Page, created bool) {
	if !l.recording {
		return nil, false
	}
	if cur := l.Current(); cur != nil && cur.Ref.Same(ref) {
		return cur, false
	}

	p := &Page{
		Number:    len(l.pages),
		Timestamp: ts,
		Ref:       ref,
	}
	if cur := l.Current(); cur != nil && ts < cur.Timestamp {
		p.Timestamp = cur.Timestamp
	}
	if prev := l.lastVisit(ref); prev != nil {
		p.Static = prev.Bake()
	}
	l.pages = append(l.pages, p)
	return p, true
}

// AppendLive stamps a with the current elapsed time and appends it to the
// most recently committed page.
func (l *Log) AppendLive(a action.Action) error {
	if !l.recording {
		return nil
	}
	cur := l.Current()
	if cur == nil {
		return ErrNoPage
	}
	ts := l.elapsed()
	if n := len(cur.Live); n > 0 {
		if last := cur.Live[n-1].Header().Timestamp; ts < last {
			ts = last
		}
	}
	if ts < cur.Timestamp {
		ts = cur.Timestamp
	}
	action.SetTimestamp(a, ts)
	cur.Live = append(cur.Live, a)
	return nil
}

// AppendStatic appends actions to the static actions of the current page.
func (l *Log) AppendStatic(actions ...action.Action) error {
	if !l.recording || len(actions) == 0 {
		return nil
	}
	cur := l.Current()
	if cur == nil {
		return ErrNoPage
	}
	cur.Static = append(cur.Static, actions...)
	return nil
}

// BakeCurrentPage returns copies of the current page's static and live
// actions, or nil when nothing has been committed.
func (l *Log) BakeCurrentPage() []action.Action {
	cur := l.Current()
	if cur == nil {
		return nil
	}
	return cur.Bake()
}

// Current returns the most recently committed page, or nil.
func (l *Log) Current() *Page {
	if len(l.pages) == 0 {
		return nil
	}
	return l.pages[len(l.pages)-1]
}

// Pages returns the committed pages. The entries are shared with the log.
func (l *Log) Pages() []*Page {
	return l.pages
}

// Snapshot returns a deep copy of the committed pages.
func (l *Log) Snapshot() []*Page {
	out := make([]*Page, len(l.pages))
	for i, p := range l.pages {
		out[i] = p.Clone()
	}
	return out
}

// Len returns the number of committed pages.
func (l *Log) Len() int {
	return len(l.pages)
}

// Reset discards every committed page.
func (l *Log) Reset() {
	l.pages = nil
}

func (l *Log) lastVisit(ref PageRef) *Page {
	for i := len(l.pages) - 1; i >= 0; i-- {
		if l.pages[i].Ref.Same(ref) {
			return l.pages[i]
		}
	}
	return nil
}
