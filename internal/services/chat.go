package services

import "context"

// ChatService is the transport-facing contract for the agent run loop: a
// concrete implementation adapts internal/agent.Runner plus
// internal/sessionstore.Store to this generic shape.
type ChatService interface {
	Send(ctx context.Context, params any) (any, error)
	// SendSync runs a chat send inline (no spawn) and returns
	// {"text": "...", "inputTokens": N, "outputTokens": N}.
	SendSync(ctx context.Context, params any) (any, error)
	Abort(ctx context.Context, params any) (any, error)
	CancelQueued(ctx context.Context, params any) (any, error)
	History(ctx context.Context, params any) (any, error)
	Inject(ctx context.Context, params any) (any, error)
	Clear(ctx context.Context, params any) (any, error)
	Compact(ctx context.Context, params any) (any, error)
	Context(ctx context.Context, params any) (any, error)
	// RawPrompt builds the complete system prompt and returns it for
	// inspection.
	RawPrompt(ctx context.Context, params any) (any, error)
	// FullContext returns the full messages array (system prompt + history)
	// in OpenAI format.
	FullContext(ctx context.Context, params any) (any, error)
	// Active reports whether the given session has an in-flight run.
	Active(ctx context.Context, params any) (any, error)
	// ActiveSessionKeys returns session keys with a run in flight.
	ActiveSessionKeys(ctx context.Context) []string
	// ActiveThinkingText returns the accumulated thinking text for a
	// session with an in-flight run, so a reconnecting client can restore
	// it.
	ActiveThinkingText(ctx context.Context, sessionKey string) (string, bool)
	// ActiveVoicePending reports whether the in-flight run for a session is
	// using the voice reply medium.
	ActiveVoicePending(ctx context.Context, sessionKey string) bool
}

type NoopChatService struct{}

func (NoopChatService) Send(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("chat not configured")
}

func (s NoopChatService) SendSync(ctx context.Context, params any) (any, error) {
	return s.Send(ctx, params)
}

func (NoopChatService) Abort(ctx context.Context, params any) (any, error) {
	return map[string]any{}, nil
}

func (NoopChatService) CancelQueued(ctx context.Context, params any) (any, error) {
	return map[string]any{"cleared": 0}, nil
}

func (NoopChatService) History(ctx context.Context, params any) (any, error) {
	return []any{}, nil
}

func (NoopChatService) Inject(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("chat not configured")
}

func (NoopChatService) Clear(ctx context.Context, params any) (any, error) {
	return map[string]any{"ok": true}, nil
}

func (NoopChatService) Compact(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("chat not configured")
}

func (NoopChatService) Context(ctx context.Context, params any) (any, error) {
	return map[string]any{"session": map[string]any{}, "project": nil, "tools": []any{}, "providers": []any{}}, nil
}

func (NoopChatService) RawPrompt(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("chat not configured")
}

func (NoopChatService) FullContext(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("chat not configured")
}

func (NoopChatService) Active(ctx context.Context, params any) (any, error) {
	return map[string]any{"active": false}, nil
}

func (NoopChatService) ActiveSessionKeys(ctx context.Context) []string { return nil }

func (NoopChatService) ActiveThinkingText(ctx context.Context, sessionKey string) (string, bool) {
	return "", false
}

func (NoopChatService) ActiveVoicePending(ctx context.Context, sessionKey string) bool {
	return false
}
