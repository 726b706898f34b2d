// Package pagelog keeps the ordered list of committed page visits of a
// recording, each with its live and static actions, together with the
// buffer that holds actions captured while recording was not active.
//
// Log and PendingBuffer are not safe for concurrent use; the owning session
// serializes access to both under a single lock.
package pagelog

import (
	"fmt"

	"github.com/slidecast/slidecast/internal/action"
)

// PageRef identifies a document page across visits.
type PageRef struct {
	DocumentID string
	Number     int
	// UID is an optional durable page identifier. When both sides of a
	// comparison carry one it takes precedence over DocumentID and Number.
	UID string
}

// Same reports whether r and other denote the same document page.
func (r PageRef) Same(other PageRef) bool {
	if r.UID != "" && other.UID != "" {
		return r.UID == other.UID
	}
	return r.DocumentID == other.DocumentID && r.Number == other.Number
}

// IsZero reports whether r is unset.
func (r PageRef) IsZero() bool {
	return r == PageRef{}
}

func (r PageRef) String() string {
	if r.UID != "" {
		return fmt.Sprintf("%s#%d(%s)", r.DocumentID, r.Number, r.UID)
	}
	return fmt.Sprintf("%s#%d", r.DocumentID, r.Number)
}

// Page is one committed visit to a document page.
type Page struct {
	// Number is the 0-based commit sequence, not the document page number.
	Number int
	// Timestamp is the commit offset from recording start in milliseconds.
	Timestamp uint32
	Ref       PageRef
	// Static actions rebuild the state left by earlier visits and are
	// replayed instantly, before any live action.
	Static []action.Action
	// Live actions happened during this visit, in timeline order.
	Live []action.Action
}

// Actions returns the page's actions in replay order.
func (p *Page) Actions() []action.Action {
	out := make([]action.Action, 0, len(p.Static)+len(p.Live))
	out = append(out, p.Static...)
	return append(out, p.Live...)
}

// Clone returns a deep copy of p.
func (p *Page) Clone() *Page {
	return &Page{
		Number:    p.Number,
		Timestamp: p.Timestamp,
		Ref:       p.Ref,
		Static:    action.CloneAll(p.Static),
		Live:      action.CloneAll(p.Live),
	}
}

// Bake returns copies of every action of p, to be replayed as static actions
// on a later visit of the same page.
func (p *Page) Bake() []action.Action {
	return action.CloneAll(p.Actions())
}
