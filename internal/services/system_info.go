package services

import "context"

// SystemInfoService covers gateway-level introspection: connections, nodes,
// hooks, and heartbeat, read directly from runtime state rather than a
// domain service.
type SystemInfoService interface {
	Health(ctx context.Context) (any, error)
	Status(ctx context.Context) (any, error)
	SystemPresence(ctx context.Context) (any, error)
	NodeList(ctx context.Context) (any, error)
	NodeDescribe(ctx context.Context, params any) (any, error)
	HooksList(ctx context.Context) (any, error)
	HeartbeatStatus(ctx context.Context) (any, error)
	HeartbeatRuns(ctx context.Context, params any) (any, error)
}

type NoopSystemInfoService struct{}

func (NoopSystemInfoService) Health(ctx context.Context) (any, error) {
	return map[string]any{"ok": true, "connections": 0}, nil
}

func (NoopSystemInfoService) Status(ctx context.Context) (any, error) {
	return map[string]any{
		"hostname":    "unknown",
		"version":     "0.0.0",
		"connections": 0,
		"uptimeMs":    0,
	}, nil
}

func (NoopSystemInfoService) SystemPresence(ctx context.Context) (any, error) {
	return map[string]any{"clients": []any{}, "nodes": []any{}}, nil
}

func (NoopSystemInfoService) NodeList(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopSystemInfoService) NodeDescribe(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("system info service not configured")
}

func (NoopSystemInfoService) HooksList(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopSystemInfoService) HeartbeatStatus(ctx context.Context) (any, error) {
	return map[string]any{"config": nil}, nil
}

func (NoopSystemInfoService) HeartbeatRuns(ctx context.Context, params any) (any, error) {
	return []any{}, nil
}
