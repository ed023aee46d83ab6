package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFilterMatches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  Event
		want   bool
	}{
		{
			name:   "empty filter matches any event",
			filter: Filter{},
			event:  New(TypeInboxUpdated, nil),
			want:   true,
		},
		{
			name:   "type filter matches",
			filter: Filter{Types: []Type{TypeCountsUpdated}},
			event:  New(TypeCountsUpdated, nil),
			want:   true,
		},
		{
			name:   "type filter rejects others",
			filter: Filter{Types: []Type{TypeCountsUpdated}},
			event:  New(TypeThreadUpdated, nil),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}
}

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()

	var got []Type
	id := bus.Subscribe(Filter{Types: []Type{TypeInboxUpdated, TypeCountsUpdated}}, func(e Event) {
		got = append(got, e.Type)
	})

	bus.Publish(New(TypeInboxUpdated, 1))
	bus.Publish(New(TypeThreadUpdated, 2))
	bus.Publish(New(TypeCountsUpdated, 3))

	assert.Equal(t, []Type{TypeInboxUpdated, TypeCountsUpdated}, got)

	bus.Unsubscribe(id)
	bus.Publish(New(TypeInboxUpdated, 4))
	assert.Len(t, got, 2)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestBusChannelClosesWithContext(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch := bus.Channel(ctx, 4, Filter{})
	bus.Publish(New(TypeNotificationShown, "hello"))

	select {
	case e := <-ch:
		assert.Equal(t, TypeNotificationShown, e.Type)
		assert.Equal(t, "hello", e.Payload)
		assert.NotEmpty(t, e.ID)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, bus.SubscriberCount())

	// Publishing after close must not panic.
	bus.Publish(New(TypeNotificationShown, "late"))
}

func TestBusChannelDropsWhenFull(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := bus.Channel(ctx, 1, Filter{})
	bus.Publish(New(TypeInboxUpdated, 1))
	bus.Publish(New(TypeInboxUpdated, 2))

	e := <-ch
	assert.Equal(t, 1, e.Payload)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected buffered event %v", extra)
	default:
	}
}
