package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/raitha-mitra/inbox-sync/internal/events"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
	"github.com/raitha-mitra/inbox-sync/pkg/metrics"
)

const (
	// StreamName is the name of the inbox events stream.
	StreamName = "INBOX_EVENTS"

	// SubjectPrefix is the prefix for all inbox event subjects.
	SubjectPrefix = "inbox"

	publishTimeout = 5 * time.Second
)

// BridgedTypes are the bus events forwarded to JetStream.
var BridgedTypes = []events.Type{events.TypeCountsUpdated, events.TypeInboxUpdated}

// EnsureStream creates the inbox events stream if it does not exist.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:              StreamName,
		Subjects:          []string{SubjectPrefix + ".>"},
		Retention:         jetstream.LimitsPolicy,
		MaxAge:            24 * time.Hour,
		MaxMsgsPerSubject: 100,
		Discard:           jetstream.DiscardOld,
		Storage:           jetstream.FileStorage,
		Replicas:          1,
		Description:       "Inbox and badge count changes per viewer",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Subject returns the subject an event for userID is published on.
func Subject(userID int64, t events.Type) string {
	user := "anonymous"
	if userID > 0 {
		user = strconv.FormatInt(userID, 10)
	}
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, user, t)
}

// Publisher is the JetStream publish call the bridge uses.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Envelope is the JSON body of a forwarded event.
type Envelope struct {
	ID        string      `json:"id"`
	Type      events.Type `json:"type"`
	UserID    int64       `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// Bridge forwards bus events to JetStream for other processes.
type Bridge struct {
	pub    Publisher
	bus    *events.Bus
	userID int64
	logger *logger.Logger
}

// NewBridge creates a bridge for the viewer userID.
func NewBridge(pub Publisher, bus *events.Bus, userID int64, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.Global()
	}
	return &Bridge{
		pub:    pub,
		bus:    bus,
		userID: userID,
		logger: log.Named("bridge"),
	}
}

// Run forwards events until ctx is cancelled. Publish failures are logged
// and the event is dropped.
func (b *Bridge) Run(ctx context.Context) error {
	ch := b.bus.Channel(ctx, 64, events.Filter{Types: BridgedTypes})
	for e := range ch {
		if err := b.forward(ctx, e); err != nil && ctx.Err() == nil {
			b.logger.Warn("event forward failed",
				zap.String("type", string(e.Type)),
				zap.String("event_id", e.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (b *Bridge) forward(ctx context.Context, e events.Event) error {
	data, err := json.Marshal(Envelope{
		ID:        e.ID,
		Type:      e.Type,
		UserID:    b.userID,
		Timestamp: e.Timestamp,
		Payload:   e.Payload,
	})
	if err != nil {
		metrics.BridgePublishTotal.WithLabelValues(string(e.Type), "error").Inc()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if _, err := b.pub.Publish(ctx, Subject(b.userID, e.Type), data, jetstream.WithMsgID(e.ID)); err != nil {
		metrics.BridgePublishTotal.WithLabelValues(string(e.Type), "error").Inc()
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.BridgePublishTotal.WithLabelValues(string(e.Type), "ok").Inc()
	return nil
}
