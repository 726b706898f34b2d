// Package events defines the notifications a presentation surface delivers
// to a recording session.
package events

import (
	"github.com/slidecast/slidecast/internal/action"
	"github.com/slidecast/slidecast/internal/pagelog"
)

// Handler receives presentation events. Calls arrive from a single producer
// goroutine.
type Handler interface {
	// OnPageChanged reports that page became the active page.
	OnPageChanged(page pagelog.PageRef)
	// OnAction reports an annotation action produced on page.
	OnAction(page pagelog.PageRef, a action.Action)
}

// Source delivers events to subscribed handlers.
type Source interface {
	Subscribe(h Handler) (Subscription, error)
}

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	Unsubscribe()
}
