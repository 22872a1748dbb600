package agent

import (
	"encoding/json"

	"github.com/moltis-ai/moltis/internal/llm/model"
)

// EventType discriminates a RunnerEvent.
type EventType string

const (
	EventThinking      EventType = "thinking"
	EventThinkingDone  EventType = "thinking_done"
	EventThinkingText  EventType = "thinking_text"
	EventTextDelta     EventType = "text_delta"
	EventIteration     EventType = "iteration"
	EventToolCallStart EventType = "tool_call_start"
	EventToolCallEnd   EventType = "tool_call_end"
	EventFinal         EventType = "final"
)

// RunnerEvent is a single point-in-time signal emitted by a run. Only the
// fields relevant to Type are populated; the rest are zero.
type RunnerEvent struct {
	Type EventType

	// Text carries TextDelta.Text, ThinkingText.Text, or Final.Text.
	Text string

	// Iteration carries Iteration.N.
	Iteration int

	// ToolCallID, ToolCallName, and ToolCallArguments carry ToolCallStart's
	// fields.
	ToolCallID        string
	ToolCallName      string
	ToolCallArguments json.RawMessage

	// ToolCallSuccess, ToolCallError, and ToolCallResult carry ToolCallEnd's
	// fields. ToolCallResult is truncated to ~10KB before delivery here; the
	// untruncated result is what the loop feeds back to the model.
	ToolCallSuccess bool
	ToolCallError   string
	ToolCallResult  json.RawMessage

	// Usage carries Final.Usage.
	Usage model.TokenUsage
}

func eventThinking() RunnerEvent     { return RunnerEvent{Type: EventThinking} }
func eventThinkingDone() RunnerEvent { return RunnerEvent{Type: EventThinkingDone} }

func eventThinkingText(text string) RunnerEvent {
	return RunnerEvent{Type: EventThinkingText, Text: text}
}

func eventTextDelta(text string) RunnerEvent {
	return RunnerEvent{Type: EventTextDelta, Text: text}
}

func eventIteration(n int) RunnerEvent {
	return RunnerEvent{Type: EventIteration, Iteration: n}
}

func eventToolCallStart(id, name string, args json.RawMessage) RunnerEvent {
	return RunnerEvent{Type: EventToolCallStart, ToolCallID: id, ToolCallName: name, ToolCallArguments: args}
}

func eventToolCallEnd(id, name string, result json.RawMessage, callErr error) RunnerEvent {
	ev := RunnerEvent{Type: EventToolCallEnd, ToolCallID: id, ToolCallName: name, ToolCallResult: result}
	if callErr != nil {
		ev.ToolCallError = callErr.Error()
	} else {
		ev.ToolCallSuccess = true
	}
	return ev
}

func eventFinal(text string, usage model.TokenUsage) RunnerEvent {
	return RunnerEvent{Type: EventFinal, Text: text, Usage: usage}
}

// EventSink receives RunnerEvents as a run progresses. Implementations must
// not block; the run loop emits serially from a single goroutine and a slow
// sink stalls the whole turn.
type EventSink interface {
	Emit(RunnerEvent)
}

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(RunnerEvent)

func (f EventSinkFunc) Emit(ev RunnerEvent) { f(ev) }

// NopEventSink discards every event.
type NopEventSink struct{}

func (NopEventSink) Emit(RunnerEvent) {}

// CollectingEventSink appends every event to a slice; useful in tests.
type CollectingEventSink struct {
	Events []RunnerEvent
}

func (s *CollectingEventSink) Emit(ev RunnerEvent) { s.Events = append(s.Events, ev) }
