// Package events provides the in-process publish/subscribe hub the engine
// uses to fan out alert, ticket and device events to listeners.
package events

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies a category of engine event.
type EventKind string

const (
	KindTicketBreached  EventKind = "ticket.breached"
	KindTicketEscalated EventKind = "ticket.escalated"
	KindAlertEscalated  EventKind = "alert.escalated"
	KindSLAWarning      EventKind = "sla.warning"
	KindDeviceUnhealthy EventKind = "device.unhealthy"
)

// Event is a fan-out payload. Entity references are optional; only those
// relevant to the kind are set.
type Event struct {
	Kind     EventKind  `json:"kind"`
	At       time.Time  `json:"at"`
	TicketID *uuid.UUID `json:"ticket_id,omitempty"`
	AlertID  *uuid.UUID `json:"alert_id,omitempty"`
	DeviceID *uuid.UUID `json:"device_id,omitempty"`
	Severity string     `json:"severity,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// Handler consumes a published event. Errors are logged, never propagated
// to the publisher.
type Handler func(context.Context, Event) error

// Subscription identifies a registered listener so it can be removed.
type Subscription struct {
	id   uint64
	name string
	hub  *Hub
}

// Cancel removes the subscription from its hub.
func (s Subscription) Cancel() {
	if s.hub != nil {
		s.hub.Unsubscribe(s)
	}
}

type listener struct {
	id      uint64
	name    string
	kinds   map[EventKind]bool // nil means all kinds
	handler Handler
}

// Hub is a synchronous in-process dispatcher. Delivery is best-effort:
// subscriber errors and panics are caught and do not reach the publisher.
type Hub struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners []listener
	logger    *log.Logger
}

// NewHub creates a hub. A nil logger falls back to the default logger.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{logger: logger}
}

// Subscribe registers a named handler for the given kinds. An empty kinds
// slice subscribes to every event.
func (h *Hub) Subscribe(name string, kinds []EventKind, handler Handler) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	l := listener{id: h.nextID, name: name, handler: handler}
	if len(kinds) > 0 {
		l.kinds = make(map[EventKind]bool, len(kinds))
		for _, k := range kinds {
			l.kinds[k] = true
		}
	}
	h.listeners = append(h.listeners, l)
	return Subscription{id: l.id, name: name, hub: h}
}

// Unsubscribe removes a previously registered subscription. Unknown
// subscriptions are ignored.
func (h *Hub) Unsubscribe(s Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, l := range h.listeners {
		if l.id == s.id {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			return
		}
	}
}

// Publish synchronously invokes matching handlers. Fire-and-forget from
// the publisher's perspective: it never fails.
func (h *Hub) Publish(ctx context.Context, event Event) {
	h.mu.RLock()
	matched := make([]listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		if l.kinds == nil || l.kinds[event.Kind] {
			matched = append(matched, l)
		}
	}
	h.mu.RUnlock()

	for _, l := range matched {
		h.deliver(ctx, l, event)
	}
}

func (h *Hub) deliver(ctx context.Context, l listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Printf("events: subscriber %s panicked on %s: %v", l.name, event.Kind, r)
		}
	}()
	if err := l.handler(ctx, event); err != nil {
		h.logger.Printf("events: subscriber %s failed on %s: %v", l.name, event.Kind, err)
	}
}
