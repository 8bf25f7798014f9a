package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/home-hub/home-hub/internal/domain/event"
)

// DefaultBuffer is the per-subscriber outbound queue size.
const DefaultBuffer = 100

// Subscriber is one observer's outbound event queue.
type Subscriber struct {
	ID     string
	events chan event.Message
}

// Events returns the outbound stream. The channel is closed on unsubscribe.
func (s *Subscriber) Events() <-chan event.Message {
	return s.events
}

// Hub fans out registry events to all subscribed observers. Publish is
// non-blocking: a subscriber whose queue is full loses its oldest buffered
// event, never the publisher's time.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	buffer int
	logger zerolog.Logger
}

func NewHub(buffer int, logger zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[string]*Subscriber),
		buffer: buffer,
		logger: logger.With().Str("service", "hub").Logger(),
	}
}

// Subscribe registers a new observer queue.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:     uuid.New().String(),
		events: make(chan event.Message, h.buffer),
	}
	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()
	h.logger.Debug().Str("subscriber_id", sub.ID).Msg("observer subscribed")
	return sub
}

// Unsubscribe removes the observer and closes its queue. Safe to call for
// unknown ids.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()
	if ok {
		close(sub.events)
		h.logger.Debug().Str("subscriber_id", id).Msg("observer unsubscribed")
	}
}

// Publish delivers msg to every subscriber currently registered.
func (h *Hub) Publish(msg event.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		offer(sub, msg)
	}
}

// SendTo delivers msg to a single subscriber.
func (h *Hub) SendTo(id string, msg event.Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sub, ok := h.subs[id]
	if !ok {
		return ErrSubscriberNotFound
	}
	offer(sub, msg)
	return nil
}

// SubscriberCount returns the number of connected observers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Stop disconnects all subscribers.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		close(sub.events)
		delete(h.subs, id)
	}
}

// offer enqueues without blocking. On a full queue the oldest buffered
// event is dropped to make room.
func offer(sub *Subscriber, msg event.Message) {
	select {
	case sub.events <- msg:
		return
	default:
	}
	select {
	case <-sub.events:
	default:
	}
	select {
	case sub.events <- msg:
	default:
	}
}
