package nats

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/raitha-mitra/inbox-sync/internal/events"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: payload})
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.msgs))}, nil
}

func (f *fakePublisher) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "inbox.12.counts.updated", Subject(12, events.TypeCountsUpdated))
	assert.Equal(t, "inbox.anonymous.inbox.updated", Subject(0, events.TypeInboxUpdated))
}

func TestBridgeForwardsSelectedEvents(t *testing.T) {
	bus := events.NewBus()
	pub := &fakePublisher{}
	bridge := NewBridge(pub, bus, 12, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	bus.Publish(events.New(events.TypeThreadUpdated, "ignored"))
	counts := events.New(events.TypeCountsUpdated, map[string]int{"unread_messages": 3})
	bus.Publish(counts)

	require.Eventually(t, func() bool { return len(pub.snapshot()) == 1 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	msg := pub.snapshot()[0]
	assert.Equal(t, "inbox.12.counts.updated", msg.subject)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.data, &env))
	assert.Equal(t, counts.ID, env.ID)
	assert.Equal(t, events.TypeCountsUpdated, env.Type)
	assert.Equal(t, int64(12), env.UserID)
}

func TestBridgeSurvivesPublishErrors(t *testing.T) {
	bus := events.NewBus()
	pub := &fakePublisher{err: errors.New("no responders")}
	bridge := NewBridge(pub, bus, 12, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	bus.Publish(events.New(events.TypeInboxUpdated, nil))
	bus.Publish(events.New(events.TypeInboxUpdated, nil))

	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, pub.snapshot())
}
