// Package notify holds the transient toast notifications shown to the viewer.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raitha-mitra/inbox-sync/internal/events"
	"github.com/raitha-mitra/inbox-sync/internal/schedule"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
	"github.com/raitha-mitra/inbox-sync/pkg/metrics"
)

// Kind is the notification style.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is a toast that dismisses itself after the center's TTL.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier is what the session and badge service need from a Center.
type Notifier interface {
	Notify(kind Kind, text string) Notification
}

// Center tracks active notifications and publishes their lifecycle.
type Center struct {
	ttl    time.Duration
	bus    *events.Bus
	logger *logger.Logger

	mu     sync.Mutex
	active []Notification
	timers map[string]*schedule.Timer
	closed bool
}

// NewCenter creates a center. bus may be nil.
func NewCenter(ttl time.Duration, bus *events.Bus, log *logger.Logger) *Center {
	if log == nil {
		log = logger.Global()
	}
	return &Center{
		ttl:    ttl,
		bus:    bus,
		logger: log.Named("notify"),
		timers: make(map[string]*schedule.Timer),
	}
}

// Notify shows a notification and schedules its removal.
func (c *Center) Notify(kind Kind, text string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return n
	}
	c.active = append(c.active, n)
	if c.ttl > 0 {
		id := n.ID
		c.timers[id] = schedule.After(c.ttl, func() { c.Dismiss(id) })
	}
	c.mu.Unlock()

	metrics.NotificationsTotal.WithLabelValues(string(kind)).Inc()
	c.logger.Debug("notification shown",
		zap.String("id", n.ID),
		zap.String("kind", string(kind)),
		zap.String("text", text),
	)
	c.publish(events.TypeNotificationShown, n)

	return n
}

// Dismiss removes a notification. It reports whether id was active.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	idx := -1
	for i, n := range c.active {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	n := c.active[idx]
	c.active = append(c.active[:idx], c.active[idx+1:]...)
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	c.mu.Unlock()

	c.publish(events.TypeNotificationDismissed, n)
	return true
}

// Active returns the live notifications, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, len(c.active))
	copy(out, c.active)
	return out
}

// Close cancels pending dismissals. Later Notify calls are dropped.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.closed = true
}

func (c *Center) publish(t events.Type, n Notification) {
	if c.bus != nil {
		c.bus.Publish(events.New(t, n))
	}
}
