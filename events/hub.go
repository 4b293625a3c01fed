// events/hub.go
package events

import "sync"

// Event is the single frame shape shared by the WebSocket and SSE feeds.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Dashboard event kinds.
const (
	TypeStatusUpdate    = "status_update"
	TypeQRCode          = "qr_code"
	TypeMessageSent     = "message_sent"
	TypeMessageReceived = "message_received"
	TypeBotReady        = "bot_ready"
	TypeBotDisconnected = "bot_disconnected"
	TypeNewTrainer      = "new_trainer"
	TypeDuelCreated     = "duel_created"
	TypeError           = "error"
)

// Bus is the narrow emit-only face the dispatcher and session tracker
// depend on; only the transport layer sees the full Hub.
type Bus interface {
	Publish(Event)
}

const subscriberBuffer = 16

// Hub fans events out to all live subscribers, best-effort at-most-once:
// a subscriber that cannot keep up drops events rather than blocking
// the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			// Slow consumer; skip it.
		}
	}
}

// Subscribe returns a receive channel and a cancel func. Cancel closes
// the channel; consumers must stop reading after calling it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// SubscriberCount reports the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
