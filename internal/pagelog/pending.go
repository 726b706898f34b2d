package pagelog

import "github.com/slidecast/slidecast/internal/action"

// PendingBuffer holds actions captured while recording is not active,
// tagged with their page, plus the page that was active when recording
// paused. Pages are matched with PageRef.Same, so an action staged under a
// ref without a UID drains for the same page reported with one.
type PendingBuffer struct {
	staged  []stagedAction
	page    PageRef
	hasPage bool
}

type stagedAction struct {
	ref    PageRef
	action action.Action
}

// NewPendingBuffer returns an empty buffer.
func NewPendingBuffer() *PendingBuffer {
	return &PendingBuffer{}
}

// StageAction queues a for ref.
func (b *PendingBuffer) StageAction(ref PageRef, a action.Action) {
	b.staged = append(b.staged, stagedAction{ref: ref, action: a})
}

// StagePage sets the pending page slot.
func (b *PendingBuffer) StagePage(ref PageRef) {
	b.page = ref
	b.hasPage = true
}

// PendingPage returns the pending page slot.
func (b *PendingBuffer) PendingPage() (PageRef, bool) {
	return b.page, b.hasPage
}

// ClearPendingPage empties the pending page slot.
func (b *PendingBuffer) ClearPendingPage() {
	b.page = PageRef{}
	b.hasPage = false
}

// Drain removes and returns the actions queued for ref, in staging order.
// A second call without an intervening StageAction returns nil.
func (b *PendingBuffer) Drain(ref PageRef) []action.Action {
	var out []action.Action
	kept := b.staged[:0]
	for _, st := range b.staged {
		if st.ref.Same(ref) {
			out = append(out, st.action)
			continue
		}
		kept = append(kept, st)
	}
	clear(b.staged[len(kept):])
	b.staged = kept
	return out
}

// HasPending reports whether actions are queued for ref.
func (b *PendingBuffer) HasPending(ref PageRef) bool {
	for _, st := range b.staged {
		if st.ref.Same(ref) {
			return true
		}
	}
	return false
}

// Len returns the number of queued actions across all pages.
func (b *PendingBuffer) Len() int {
	return len(b.staged)
}

// Clear discards every queued action and the pending page slot.
func (b *PendingBuffer) Clear() {
	b.staged = nil
	b.ClearPendingPage()
}
