package event

import (
	"context"
	"sync"
)

// History keeps the most recent domain events in a fixed-size ring.
// It subscribes to the event bus and backs the recent-activity API.
type History struct {
	mu     sync.RWMutex
	events []DomainEvent
	next   int
	full   bool
}

// NewHistory creates a history holding up to size events.
func NewHistory(size int) *History {
	if size < 1 {
		size = 256
	}
	return &History{events: make([]DomainEvent, size)}
}

// HandleEvent records one event, evicting the oldest when full.
func (h *History) HandleEvent(_ context.Context, evt DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events[h.next] = evt
	h.next++
	if h.next == len(h.events) {
		h.next = 0
		h.full = true
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (h *History) Recent(limit int) []DomainEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := h.next
	if h.full {
		count = len(h.events)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]DomainEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.events)) % len(h.events)
		out = append(out, h.events[idx])
	}
	return out
}
