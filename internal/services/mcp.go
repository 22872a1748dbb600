package services

import "context"

// McpService manages configured Model Context Protocol servers. A concrete
// implementation backs OauthStart/OauthComplete with one
// internal/mcpauth.Provider per configured server.
type McpService interface {
	List(ctx context.Context) (any, error)
	Add(ctx context.Context, params any) (any, error)
	Remove(ctx context.Context, params any) (any, error)
	Enable(ctx context.Context, params any) (any, error)
	Disable(ctx context.Context, params any) (any, error)
	Status(ctx context.Context, params any) (any, error)
	Tools(ctx context.Context, params any) (any, error)
	Restart(ctx context.Context, params any) (any, error)
	Update(ctx context.Context, params any) (any, error)
	Reauth(ctx context.Context, params any) (any, error)
	OauthStart(ctx context.Context, params any) (any, error)
	OauthComplete(ctx context.Context, params any) (any, error)
}

type NoopMcpService struct{}

func (NoopMcpService) List(ctx context.Context) (any, error) {
	return map[string]any{"servers": []any{}}, nil
}

func (NoopMcpService) Add(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("MCP not configured")
}

func (NoopMcpService) Remove(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("MCP not configured")
}

func (NoopMcpService) Enable(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("MCP not configured")
}

func (NoopMcpService) Disable(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("MCP not configured")
}

func (NoopMcpService) Status(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("MCP not configured")
}

func (NoopMcpService) Tools(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("MCP not configured")
}

func (NoopMcpService) Restart(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("MCP not configured")
}

func (NoopMcpService) Update(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("MCP not configured")
}

func (NoopMcpService) Reauth(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("MCP not configured")
}

func (NoopMcpService) OauthStart(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("MCP not configured")
}

func (NoopMcpService) OauthComplete(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("MCP not configured")
}
