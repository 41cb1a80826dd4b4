package eventbus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pimkit/pimkit/internal/event"
)

type recordingHandler struct {
	mu   sync.Mutex
	seen []string
}

func (h *recordingHandler) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, evt.ID)
	return nil
}

func (h *recordingHandler) ids() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

func TestBus_DeliversInOrderToAllSubscribers(t *testing.T) {
	bus := New(8)
	first := &recordingHandler{}
	second := &recordingHandler{}
	bus.Subscribe("first", first)
	bus.Subscribe("second", second)

	ctx := context.Background()
	bus.Start(ctx)

	bus.Publish(ctx, event.DomainEvent{ID: "a"})
	bus.Publish(ctx, event.DomainEvent{ID: "b"})
	bus.Stop()

	assert.Equal(t, []string{"a", "b"}, first.ids())
	assert.Equal(t, []string{"a", "b"}, second.ids())
}

func TestBus_DropsWhenBufferFull(t *testing.T) {
	bus := New(1)
	handler := &recordingHandler{}
	bus.Subscribe("slow", handler)

	ctx := context.Background()
	// Not started: the buffer holds one event, the second is dropped.
	bus.Publish(ctx, event.DomainEvent{ID: "kept"})
	bus.Publish(ctx, event.DomainEvent{ID: "dropped"})

	bus.Start(ctx)
	bus.Stop()

	require.Equal(t, []string{"kept"}, handler.ids())
}

func TestHandlerFunc(t *testing.T) {
	var got string
	h := HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
		got = evt.ID
		return nil
	})
	require.NoError(t, h.HandleEvent(context.Background(), event.DomainEvent{ID: "x"}))
	assert.Equal(t, "x", got)
}
