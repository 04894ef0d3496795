package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Topic names for core domain events.
const (
	TopicConfigUpdated      = "config.updated"
	TopicSessionInvalidated = "session.invalidated"
	TopicTokensRefreshed    = "tokens.refreshed"
	TopicMutationQueued     = "mutation.queued"
	TopicQueueFlushed       = "queue.flushed"

	// TopicAll subscribes to every topic.
	TopicAll = "*"
)

// QueueFlushed is the payload of TopicQueueFlushed.
type QueueFlushed struct {
	Replayed  int `json:"replayed"`
	Remaining int `json:"remaining"`
}

// Event represents a published message on the event bus.
type Event struct {
	Topic     string            `json:"topic"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   any               `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Handler processes an incoming event.
type Handler func(context.Context, Event)

// Publisher exposes the ability to publish events to the hub.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any, metadata map[string]string)
}

// Subscriber exposes subscription capabilities.
type Subscriber interface {
	Subscribe(topic string, handler Handler) func()
}

type subscription struct {
	id      int64
	topic   string
	handler Handler
}

// Hub is an in-process pub/sub bus. Handlers run synchronously on the
// publisher's goroutine, in subscription order; a panicking handler is logged
// and skipped.
type Hub struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int64
}

// NewHub constructs a new empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a handler for topic, or for every topic with TopicAll.
// The returned function unsubscribes; calling it twice is harmless.
func (h *Hub) Subscribe(topic string, handler Handler) func() {
	if handler == nil {
		return func() {}
	}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscription{id: id, topic: topic, handler: handler})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.unsubscribe(id) })
	}
}

func (h *Hub) unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.subs {
		if s.id == id {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to the subscribers of topic and to TopicAll
// subscribers. A nil hub drops the event.
func (h *Hub) Publish(ctx context.Context, topic string, payload any, metadata map[string]string) {
	if h == nil {
		return
	}
	event := Event{
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
		Metadata:  metadata,
	}
	for _, handler := range h.matching(topic) {
		deliver(ctx, handler, event)
	}
}

// Subscribers returns how many handlers would receive an event on topic.
func (h *Hub) Subscribers(topic string) int {
	return len(h.matching(topic))
}

func (h *Hub) matching(topic string) []Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []Handler
	for _, s := range h.subs {
		if s.topic == topic || s.topic == TopicAll {
			out = append(out, s.handler)
		}
	}
	return out
}

func deliver(ctx context.Context, handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"topic": event.Topic,
				"panic": r,
			}).Error("event handler panicked")
		}
	}()
	handler(ctx, event)
}
