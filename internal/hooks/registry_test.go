package hooks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	name     string
	events   []Event
	priority int
	fn       func(ctx context.Context, p Payload) (Action, error)
	calls    atomic.Int32
}

func (f *fakeHandler) Name() string     { return f.name }
func (f *fakeHandler) Events() []Event  { return f.events }
func (f *fakeHandler) Priority() int    { return f.priority }
func (f *fakeHandler) Handle(ctx context.Context, p Payload) (Action, error) {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn(ctx, p)
	}
	return Continue(), nil
}

func newOrdered(name string, priority int, order *[]string, mu *sync.Mutex) *fakeHandler {
	return &fakeHandler{
		name:     name,
		events:   []Event{EventBeforeToolCall},
		priority: priority,
		fn: func(ctx context.Context, p Payload) (Action, error) {
			mu.Lock()
			*order = append(*order, name)
			mu.Unlock()
			return Continue(), nil
		},
	}
}

func TestPriorityOrdering(t *testing.T) {
	var mu sync.Mutex
	var order []string

	reg := NewRegistry()
	reg.Register(newOrdered("low", 0, &order, &mu))
	reg.Register(newOrdered("high", 10, &order, &mu))
	reg.Register(newOrdered("mid", 5, &order, &mu))

	_, err := reg.Dispatch(context.Background(), BeforeToolCall{SessionKey: "s1", ToolName: "t"})
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestHigherPriorityBlockWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeHandler{
		name:     "blocker",
		events:   []Event{EventBeforeToolCall},
		priority: 10,
		fn: func(ctx context.Context, p Payload) (Action, error) {
			return Block("not allowed"), nil
		},
	})
	neverCalled := &fakeHandler{name: "never", events: []Event{EventBeforeToolCall}, priority: 0}
	reg.Register(neverCalled)

	action, err := reg.Dispatch(context.Background(), BeforeToolCall{SessionKey: "s1", ToolName: "t"})
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, action.Kind)
	assert.Equal(t, "not allowed", action.Reason)
	assert.Zero(t, neverCalled.calls.Load())
}

func TestLastModifyWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeHandler{
		name: "first", events: []Event{EventMessageSending}, priority: 10,
		fn: func(ctx context.Context, p Payload) (Action, error) {
			return Modify(MessageSending{SessionKey: "s1", Text: "first"}), nil
		},
	})
	reg.Register(&fakeHandler{
		name: "second", events: []Event{EventMessageSending}, priority: 5,
		fn: func(ctx context.Context, p Payload) (Action, error) {
			return Modify(MessageSending{SessionKey: "s1", Text: "second"}), nil
		},
	})

	action, err := reg.Dispatch(context.Background(), MessageSending{SessionKey: "s1", Text: "orig"})
	require.NoError(t, err)
	require.Equal(t, ActionModify, action.Kind)
	assert.Equal(t, "second", action.Payload.(MessageSending).Text)
}

func TestReadOnlyEventsIgnoreBlock(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeHandler{
		name: "blocker", events: []Event{EventMessageSent},
		fn: func(ctx context.Context, p Payload) (Action, error) {
			return Block("ignored"), nil
		},
	})

	action, err := reg.Dispatch(context.Background(), MessageSent{SessionKey: "s1", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, ActionContinue, action.Kind)
}

func TestReadOnlyEventsRunInParallel(t *testing.T) {
	reg := NewRegistry()
	const n = 5
	var started, release sync.WaitGroup
	started.Add(n)
	release.Add(1)

	for i := 0; i < n; i++ {
		reg.Register(&fakeHandler{
			name:   fmt.Sprintf("h%d", i),
			events: []Event{EventSessionStart},
			fn: func(ctx context.Context, p Payload) (Action, error) {
				started.Done()
				release.Wait()
				return Continue(), nil
			},
		})
	}

	done := make(chan struct{})
	go func() {
		_, _ = reg.Dispatch(context.Background(), SessionStart{SessionKey: "s1"})
		close(done)
	}()

	waitOK := make(chan struct{})
	go func() {
		started.Wait()
		close(waitOK)
	}()

	select {
	case <-waitOK:
	case <-time.After(time.Second):
		t.Fatal("handlers did not start concurrently")
	}
	release.Done()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch did not complete")
	}
}

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	reg := NewRegistry(WithCircuitBreaker(3, time.Hour))
	h := &fakeHandler{
		name: "flaky", events: []Event{EventBeforeToolCall}, priority: 0,
		fn: func(ctx context.Context, p Payload) (Action, error) {
			return Continue(), assert.AnError
		},
	}
	reg.Register(h)

	for i := 0; i < 3; i++ {
		_, _ = reg.Dispatch(context.Background(), BeforeToolCall{SessionKey: "s1", ToolName: "t"})
	}
	assert.EqualValues(t, 3, h.calls.Load())

	// The breaker trips when the next dispatch checks the failure streak.
	_, _ = reg.Dispatch(context.Background(), BeforeToolCall{SessionKey: "s1", ToolName: "t"})
	assert.EqualValues(t, 3, h.calls.Load(), "circuit-broken handler should be skipped")

	stats, ok := reg.HandlerStats("flaky")
	require.True(t, ok)
	assert.True(t, stats.Disabled())
}

func TestCircuitBreakerResetsAfterCooldown(t *testing.T) {
	reg := NewRegistry(WithCircuitBreaker(1, time.Millisecond))
	h := &fakeHandler{
		name: "flaky", events: []Event{EventBeforeToolCall},
		fn: func(ctx context.Context, p Payload) (Action, error) {
			return Continue(), assert.AnError
		},
	}
	reg.Register(h)

	// First dispatch fails; the second trips the breaker and skips the handler.
	_, _ = reg.Dispatch(context.Background(), BeforeToolCall{SessionKey: "s1", ToolName: "t"})
	_, _ = reg.Dispatch(context.Background(), BeforeToolCall{SessionKey: "s1", ToolName: "t"})
	stats, _ := reg.HandlerStats("flaky")
	assert.True(t, stats.Disabled())

	// After the cooldown the next dispatch re-enables the handler.
	time.Sleep(5 * time.Millisecond)
	_, _ = reg.Dispatch(context.Background(), BeforeToolCall{SessionKey: "s1", ToolName: "t"})
	assert.False(t, stats.Disabled())
}

func TestDryRunDoesNotBlockOrModify(t *testing.T) {
	reg := NewRegistry(WithDryRun(true))
	reg.Register(&fakeHandler{
		name: "blocker", events: []Event{EventBeforeToolCall},
		fn: func(ctx context.Context, p Payload) (Action, error) {
			return Block("would block"), nil
		},
	})

	action, err := reg.Dispatch(context.Background(), BeforeToolCall{SessionKey: "s1", ToolName: "t"})
	require.NoError(t, err)
	assert.Equal(t, ActionContinue, action.Kind)
}

func TestHandlerFailureDoesNotHaltDispatch(t *testing.T) {
	reg := NewRegistry()
	var called bool
	reg.Register(&fakeHandler{
		name: "erroring", events: []Event{EventBeforeToolCall}, priority: 10,
		fn: func(ctx context.Context, p Payload) (Action, error) {
			return Continue(), assert.AnError
		},
	})
	reg.Register(&fakeHandler{
		name: "normal", events: []Event{EventBeforeToolCall}, priority: 0,
		fn: func(ctx context.Context, p Payload) (Action, error) {
			called = true
			return Continue(), nil
		},
	})

	_, err := reg.Dispatch(context.Background(), BeforeToolCall{SessionKey: "s1", ToolName: "t"})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestHookStatsTracking(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeHandler{name: "h", events: []Event{EventSessionStart}})

	_, _ = reg.Dispatch(context.Background(), SessionStart{SessionKey: "s1"})
	_, _ = reg.Dispatch(context.Background(), SessionStart{SessionKey: "s1"})

	stats, ok := reg.HandlerStats("h")
	require.True(t, ok)
	assert.EqualValues(t, 2, stats.CallCount())
	assert.EqualValues(t, 0, stats.FailureCount())
}

func TestHasHandlersAndHandlerNames(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.HasHandlers(EventSessionStart))

	reg.Register(&fakeHandler{name: "a", events: []Event{EventSessionStart}})
	reg.Register(&fakeHandler{name: "b", events: []Event{EventSessionEnd}})

	assert.True(t, reg.HasHandlers(EventSessionStart))
	assert.False(t, reg.HasHandlers(EventBeforeAgentStart))
	assert.Equal(t, []string{"a", "b"}, reg.HandlerNames())
}

func TestDispatchSyncFallsBackToHandle(t *testing.T) {
	reg := NewRegistry()
	var called bool
	reg.Register(&fakeHandler{
		name: "h", events: []Event{EventToolResultPersist},
		fn: func(ctx context.Context, p Payload) (Action, error) {
			called = true
			return Continue(), nil
		},
	})

	_, err := reg.DispatchSync(ToolResultPersist{SessionKey: "s1", ToolName: "t", Result: "ok"})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestReadOnlyClassification(t *testing.T) {
	assert.True(t, EventAgentEnd.IsReadOnly())
	assert.True(t, EventCommand.IsReadOnly())
	assert.False(t, EventBeforeToolCall.IsReadOnly())
	assert.False(t, EventMessageSending.IsReadOnly())
}

func TestCommandEventCarriesPayload(t *testing.T) {
	reg := NewRegistry()
	var got Command
	reg.Register(&fakeHandler{
		name: "h", events: []Event{EventCommand},
		fn: func(ctx context.Context, p Payload) (Action, error) {
			got = p.(Command)
			return Continue(), nil
		},
	})

	sender := "sender-1"
	_, err := reg.Dispatch(context.Background(), Command{SessionKey: "s1", Action: "pause", SenderID: &sender})
	require.NoError(t, err)
	assert.Equal(t, "pause", got.Action)
	require.NotNil(t, got.SenderID)
	assert.Equal(t, "sender-1", *got.SenderID)
}

func TestDispatchNoHandlersReturnsContinue(t *testing.T) {
	reg := NewRegistry()
	action, err := reg.Dispatch(context.Background(), SessionStart{SessionKey: "s1"})
	require.NoError(t, err)
	assert.Equal(t, ActionContinue, action.Kind)
}
