package hooks

import "context"

// Handler subscribes to one or more Events and produces an Action for each
// dispatched Payload.
type Handler interface {
	// Name is a stable identifier used for stats lookup and logging.
	Name() string
	// Events lists the (non-empty) set of events this handler subscribes to.
	Events() []Event
	// Priority orders handlers within an event; higher runs first. Default 0.
	Priority() int
	// Handle processes a dispatched payload.
	Handle(ctx context.Context, payload Payload) (Action, error)
}

// SyncHandler is implemented by handlers that offer a non-blocking, inline
// execution path for hot events (e.g. ToolResultPersist) that must not incur
// goroutine scheduling latency. Handlers that don't implement SyncHandler
// fall back to calling Handle directly on the caller's goroutine with a
// background context — there is no async/await boundary to bridge in Go.
type SyncHandler interface {
	Handler
	HandleSync(payload Payload) (Action, error)
}

func handleSync(ctx context.Context, h Handler, payload Payload) (Action, error) {
	if sh, ok := h.(SyncHandler); ok {
		return sh.HandleSync(payload)
	}
	return h.Handle(ctx, payload)
}
