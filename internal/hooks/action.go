package hooks

// ActionKind discriminates an Action.
type ActionKind int

const (
	// ActionContinue lets dispatch proceed unchanged.
	ActionContinue ActionKind = iota
	// ActionModify carries a replacement payload. In sequential dispatch the
	// last handler to return ActionModify wins.
	ActionModify
	// ActionBlock short-circuits sequential dispatch with a reason.
	ActionBlock
)

// Action is the outcome of a single handler invocation, or of a full
// dispatch.
type Action struct {
	Kind    ActionKind
	Payload Payload // set when Kind == ActionModify
	Reason  string  // set when Kind == ActionBlock
}

// Continue is the default, no-op action.
func Continue() Action { return Action{Kind: ActionContinue} }

// Modify returns an action replacing the dispatched payload.
func Modify(p Payload) Action { return Action{Kind: ActionModify, Payload: p} }

// Block returns an action that halts sequential dispatch.
func Block(reason string) Action { return Action{Kind: ActionBlock, Reason: reason} }
