package services

import "context"

// AgentService drives ad-hoc agent runs outside the chat send path (e.g. a
// one-shot tool invocation triggered by an automation).
type AgentService interface {
	Run(ctx context.Context, params any) (any, error)
	RunWait(ctx context.Context, params any) (any, error)
	IdentityGet(ctx context.Context) (any, error)
	List(ctx context.Context) (any, error)
}

type NoopAgentService struct{}

func (NoopAgentService) Run(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("agent service not configured")
}

func (NoopAgentService) RunWait(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("agent service not configured")
}

func (NoopAgentService) IdentityGet(ctx context.Context) (any, error) {
	return map[string]any{"name": "moltis", "avatar": nil}, nil
}

func (NoopAgentService) List(ctx context.Context) (any, error) {
	return []any{}, nil
}
