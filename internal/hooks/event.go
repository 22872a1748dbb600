// Package hooks implements a priority-ordered, circuit-broken event bus.
//
// Handlers register for one or more Events. Read-only events fan out to all
// handlers in parallel and always return Continue; mutating events run
// handlers sequentially in priority order, the first Block short-circuits,
// and the last ModifyPayload wins.
package hooks

// Event identifies a lifecycle point at which the runtime dispatches to
// registered handlers.
type Event string

const (
	EventBeforeAgentStart Event = "beforeAgentStart"
	EventAgentEnd         Event = "agentEnd"
	EventBeforeLLMCall    Event = "beforeLLMCall"
	EventAfterLLMCall     Event = "afterLLMCall"
	EventBeforeCompaction Event = "beforeCompaction"
	EventAfterCompaction  Event = "afterCompaction"
	EventMessageReceived  Event = "messageReceived"
	EventMessageSending   Event = "messageSending"
	EventMessageSent      Event = "messageSent"
	EventBeforeToolCall   Event = "beforeToolCall"
	EventAfterToolCall    Event = "afterToolCall"
	EventToolResultPersist Event = "toolResultPersist"
	EventSessionStart     Event = "sessionStart"
	EventSessionEnd       Event = "sessionEnd"
	EventGatewayStart     Event = "gatewayStart"
	EventGatewayStop      Event = "gatewayStop"
	EventCommand          Event = "command"
)

// AllEvents lists every hook event in stable declaration order.
var AllEvents = []Event{
	EventBeforeAgentStart,
	EventAgentEnd,
	EventBeforeLLMCall,
	EventAfterLLMCall,
	EventBeforeCompaction,
	EventAfterCompaction,
	EventMessageReceived,
	EventMessageSending,
	EventMessageSent,
	EventBeforeToolCall,
	EventAfterToolCall,
	EventToolResultPersist,
	EventSessionStart,
	EventSessionEnd,
	EventGatewayStart,
	EventGatewayStop,
	EventCommand,
}

var readOnlyEvents = map[Event]bool{
	EventAgentEnd:        true,
	EventAfterToolCall:   true,
	EventMessageReceived: true,
	EventMessageSent:     true,
	EventAfterCompaction: true,
	EventSessionStart:    true,
	EventSessionEnd:      true,
	EventGatewayStart:    true,
	EventGatewayStop:     true,
	EventCommand:         true,
}

// IsReadOnly reports whether handlers subscribed to e may run concurrently
// and cannot influence the outcome of the causing action.
func (e Event) IsReadOnly() bool {
	return readOnlyEvents[e]
}
