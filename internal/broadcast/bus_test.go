package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndPublishDelivers(t *testing.T) {
	b := New()
	sub := b.Subscribe([]string{"chat"}, "")

	b.Publish(Event{Topic: "chat", Payload: "hello"})

	select {
	case ev := <-sub.C:
		assert.Equal(t, "hello", ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribeFiltersByTopic(t *testing.T) {
	b := New()
	sub := b.Subscribe([]string{"chat"}, "")

	b.Publish(Event{Topic: "cron", Payload: "tick"})

	select {
	case <-sub.C:
		t.Fatal("unexpected event delivered for unsubscribed topic")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSubscribeWithNoTopicsMatchesAll(t *testing.T) {
	b := New()
	sub := b.Subscribe(nil, "")

	b.Publish(Event{Topic: "anything"})

	select {
	case ev := <-sub.C:
		assert.Equal(t, "anything", ev.Topic)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribeFiltersBySessionKey(t *testing.T) {
	b := New()
	sub := b.Subscribe(nil, "session-a")

	b.Publish(Event{Topic: "chat", SessionKey: "session-b"})

	select {
	case <-sub.C:
		t.Fatal("unexpected event delivered for a different session")
	case <-time.After(20 * time.Millisecond):
	}

	b.Publish(Event{Topic: "chat", SessionKey: "session-a"})
	select {
	case ev := <-sub.C:
		assert.Equal(t, "session-a", ev.SessionKey)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for matching session event")
	}
}

func TestSubscribeSessionScopedStillReceivesUnscopedEvents(t *testing.T) {
	b := New()
	sub := b.Subscribe(nil, "session-a")

	b.Publish(Event{Topic: "logs", SessionKey: ""})

	select {
	case ev := <-sub.C:
		assert.Equal(t, "logs", ev.Topic)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for unscoped event")
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	b := New(WithCapacity(1))
	sub := b.Subscribe(nil, "")

	b.Publish(Event{Topic: "a"})
	b.Publish(Event{Topic: "b"}) // dropped, channel already full

	ev := <-sub.C
	assert.Equal(t, "a", ev.Topic)

	select {
	case <-sub.C:
		t.Fatal("expected second event to have been dropped")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	sub := b.Subscribe(nil, "")
	sub.Unsubscribe()

	_, ok := <-sub.C
	require.False(t, ok)

	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Topic: "a"})
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	sub := b.Subscribe(nil, "")
	sub.Unsubscribe()
	assert.NotPanics(t, sub.Unsubscribe)
}
