// Package session broadcasts "this session is no longer valid" to the
// application shell.
package session

import (
	"context"
	"sync"

	"fuelcoach-go/internal/events"
	log "github.com/sirupsen/logrus"
)

// Reason describes why a session ended.
type Reason string

const (
	ReasonRefreshFailed  Reason = "refresh_failed"
	ReasonRetryRejected  Reason = "retry_rejected"
	ReasonNoRefreshToken Reason = "no_refresh_token"
)

// Handler reacts to an invalidated session, typically by navigating to login.
type Handler func(ctx context.Context, reason Reason)

// Notifier holds at most one unauthorized handler. Registering a new handler
// replaces the previous one. It is safe for concurrent use.
type Notifier struct {
	mu      sync.RWMutex
	handler Handler
	events  events.Publisher
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// SetEventPublisher also publishes every notification on the event hub.
func (n *Notifier) SetEventPublisher(p events.Publisher) {
	n.mu.Lock()
	n.events = p
	n.mu.Unlock()
}

// SetOnUnauthorized registers h. A nil h clears the slot.
func (n *Notifier) SetOnUnauthorized(h Handler) {
	n.mu.Lock()
	n.handler = h
	n.mu.Unlock()
}

// Notify invokes the registered handler, if any.
func (n *Notifier) Notify(ctx context.Context, reason Reason) {
	if n == nil {
		return
	}
	n.mu.RLock()
	h := n.handler
	pub := n.events
	n.mu.RUnlock()

	log.WithField("reason", string(reason)).Info("session invalidated")
	if pub != nil {
		pub.Publish(ctx, events.TopicSessionInvalidated, reason, nil)
	}
	if h != nil {
		h(ctx, reason)
	}
}
