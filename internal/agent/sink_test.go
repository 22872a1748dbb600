package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltis-ai/moltis/internal/broadcast"
)

func TestBroadcastSinkWrapsEventWithRunAndSessionIdentity(t *testing.T) {
	bus := broadcast.New()
	sub := bus.Subscribe([]string{BroadcastTopic}, "session-1")

	sink := NewBroadcastSink(bus, "run-1", "session-1")
	sink.Emit(eventTextDelta("hi"))

	select {
	case ev := <-sub.C:
		re, ok := ev.Payload.(RunEvent)
		require.True(t, ok)
		assert.Equal(t, "run-1", re.RunID)
		assert.Equal(t, "session-1", re.SessionKey)
		assert.Equal(t, EventTextDelta, re.Event.Type)
		assert.Equal(t, "hi", re.Event.Text)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast event")
	}
}

func TestBroadcastSinkScopesToItsSession(t *testing.T) {
	bus := broadcast.New()
	sub := bus.Subscribe([]string{BroadcastTopic}, "other-session")

	sink := NewBroadcastSink(bus, "run-1", "session-1")
	sink.Emit(eventTextDelta("hi"))

	select {
	case <-sub.C:
		t.Fatal("unexpected delivery to a differently-scoped subscriber")
	case <-time.After(20 * time.Millisecond):
	}
}
