package events

import (
	"sync"

	"github.com/slidecast/slidecast/internal/action"
	"github.com/slidecast/slidecast/internal/pagelog"
)

// Bus is an in-process Source. Publishers call PageChanged and Action;
// handlers run synchronously on the publishing goroutine in subscription
// order.
type Bus struct {
	mu       sync.Mutex
	next     uint64
	handlers []entry
}

type entry struct {
	id uint64
	h  Handler
}

// NewBus returns a Bus with no subscribers.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h until the returned Subscription is cancelled.
func (b *Bus) Subscribe(h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.handlers = append(b.handlers, entry{id: b.next, h: h})
	return &busSubscription{bus: b, id: b.next}, nil
}

// Len returns the number of subscribed handlers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

// PageChanged delivers a page change to every handler.
func (b *Bus) PageChanged(page pagelog.PageRef) {
	for _, h := range b.snapshot() {
		h.OnPageChanged(page)
	}
}

// Action delivers an action to every handler.
func (b *Bus) Action(page pagelog.PageRef, a action.Action) {
	for _, h := range b.snapshot() {
		h.OnAction(page, a)
	}
}

// snapshot lets handlers unsubscribe while being called.
func (b *Bus) snapshot() []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Handler, len(b.handlers))
	for i, e := range b.handlers {
		out[i] = e.h
	}
	return out
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.handlers {
		if e.id == id {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

type busSubscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

func (s *busSubscription) Unsubscribe() {
	s.once.Do(func() { s.bus.remove(s.id) })
}
