// Package eventsource delivers named external events to webhook-wait
// subscribers, either in-process or through Redis pub/sub.
package eventsource

import (
	"context"
	"sync"

	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

// Source is an event source that also accepts publishes, so the API can
// feed webhook deliveries into it.
type Source interface {
	protocol.EventSource
	Publish(ctx context.Context, eventName string, payload map[string]any) error
}

// Hub is an in-process event source. Publish fans out to every active
// subscriber of the event name.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[int]chan map[string]any
	nextID      int
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[int]chan map[string]any),
	}
}

func (h *Hub) Subscribe(_ context.Context, eventName string) (<-chan map[string]any, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[eventName] == nil {
		h.subscribers[eventName] = make(map[int]chan map[string]any)
	}

	id := h.nextID
	h.nextID++

	ch := make(chan map[string]any, 16)
	h.subscribers[eventName][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if subs, ok := h.subscribers[eventName]; ok {
			if _, ok := subs[id]; ok {
				delete(subs, id)
				close(ch)
			}

			if len(subs) == 0 {
				delete(h.subscribers, eventName)
			}
		}
	}

	return ch, cancel, nil
}

// Publish delivers the payload to all current subscribers of eventName.
// Subscribers with full buffers are skipped rather than blocked on.
func (h *Hub) Publish(_ context.Context, eventName string, payload map[string]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subscribers[eventName] {
		select {
		case ch <- payload:
		default:
		}
	}

	return nil
}
