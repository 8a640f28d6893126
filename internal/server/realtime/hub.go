// Package realtime fans out record-change events to connected clients over
// websockets. Events are advisory; clients re-pull through the delta
// endpoint rather than applying event payloads.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/offlinehq/tidesync/internal/logging"
)

// Event is one change notification as sent on the wire.
type Event struct {
	Table  string    `json:"table"`
	ID     string    `json:"id"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// Hub tracks subscribers and broadcasts events to them. A subscriber that
// cannot keep up has its oldest events dropped rather than blocking the
// writer.
type Hub struct {
	logger logging.Logger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   map[chan Event]struct{}{},
	}
}

// Register adds a subscriber and returns its event channel plus an
// unregister func. The channel is closed on unregister.
func (h *Hub) Register() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unregister := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, unregister
}

// RecordChanged implements services.ChangeNotifier.
func (h *Hub) RecordChanged(table, id string, deleted bool) {
	action := "update"
	if deleted {
		action = "delete"
	}
	h.Broadcast(Event{Table: table, ID: id, Action: action, At: time.Now().UTC()})
}

// Broadcast delivers ev to every subscriber without blocking; a full
// subscriber loses its oldest event first.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// SubscriberCount is used by tests and diagnostics.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Run keeps the hub alive until ctx is cancelled, then unregisters
// everything so connected writers observe closed channels.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	h.logger.Debug(context.Background(), "realtime hub stopped")
}
