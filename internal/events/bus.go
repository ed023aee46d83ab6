// Package events is the in-process bus that carries view changes between
// the session, the badge service, the SSE stream and the NATS bridge.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies an event.
type Type string

const (
	TypeInboxUpdated          Type = "inbox.updated"
	TypeThreadUpdated         Type = "thread.updated"
	TypeComposeUpdated        Type = "compose.updated"
	TypeNotificationShown     Type = "notification.shown"
	TypeNotificationDismissed Type = "notification.dismissed"
	TypeCountsUpdated         Type = "counts.updated"
)

// Event is a single bus message. Payload is a render view or model value
// and is treated as immutable by subscribers.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// New builds an event stamped with an id and the current time.
func New(t Type, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Handler receives matching events synchronously on the publisher's goroutine.
type Handler func(Event)

// Filter restricts a subscription to a set of types (empty means all).
type Filter struct {
	Types []Type
}

// Matches reports whether e passes the filter.
func (f Filter) Matches(e Event) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if e.Type == t {
			return true
		}
	}
	return false
}

type subscription struct {
	filter  Filter
	handler Handler
}

// Bus is a synchronous fan-out publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]subscription)}
}

// Publish delivers e to every matching subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.filter.Matches(e) {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Subscribe registers h and returns its subscription id.
func (b *Bus) Subscribe(filter Filter, h Handler) string {
	id := uuid.NewString()

	b.mu.Lock()
	b.subs[id] = subscription{filter: filter, handler: h}
	b.mu.Unlock()

	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Channel subscribes with a buffered channel that is closed when ctx ends.
// Events are dropped for a subscriber whose buffer is full rather than
// blocking the publisher; the next view event supersedes them.
func (b *Bus) Channel(ctx context.Context, buffer int, filter Filter) <-chan Event {
	ch := make(chan Event, buffer)

	var mu sync.Mutex
	closed := false

	id := b.Subscribe(filter, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
		}
	})

	go func() {
		<-ctx.Done()
		b.Unsubscribe(id)
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}
