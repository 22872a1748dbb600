package agent

import "github.com/moltis-ai/moltis/internal/broadcast"

// BroadcastTopic is the topic RunnerEvents are published under.
const BroadcastTopic = "chat"

// RunEvent is the payload published to the broadcast bus: a RunnerEvent
// tagged with the run and session it belongs to, so subscribers can
// correlate events across concurrent runs without inspecting bus plumbing.
type RunEvent struct {
	RunID      string
	SessionKey string
	Event      RunnerEvent
}

// BroadcastSink publishes every emitted RunnerEvent to a Bus, wrapped with
// the run's identity. Construct one per run.
type BroadcastSink struct {
	bus        *broadcast.Bus
	runID      string
	sessionKey string
}

// NewBroadcastSink returns an EventSink that fans RunnerEvents for (runID,
// sessionKey) out through bus.
func NewBroadcastSink(bus *broadcast.Bus, runID, sessionKey string) *BroadcastSink {
	return &BroadcastSink{bus: bus, runID: runID, sessionKey: sessionKey}
}

func (s *BroadcastSink) Emit(ev RunnerEvent) {
	s.bus.Publish(broadcast.Event{
		Topic:      BroadcastTopic,
		SessionKey: s.sessionKey,
		Payload:    RunEvent{RunID: s.runID, SessionKey: s.sessionKey, Event: ev},
	})
}

var _ EventSink = (*BroadcastSink)(nil)
