package services

import "context"

// SessionService manages session lifecycle: listing, previewing, patching,
// sharing, forking, and deletion.
type SessionService interface {
	List(ctx context.Context) (any, error)
	Preview(ctx context.Context, params any) (any, error)
	Resolve(ctx context.Context, params any) (any, error)
	Patch(ctx context.Context, params any) (any, error)
	VoiceGenerate(ctx context.Context, params any) (any, error)
	ShareCreate(ctx context.Context, params any) (any, error)
	ShareList(ctx context.Context, params any) (any, error)
	ShareRevoke(ctx context.Context, params any) (any, error)
	Reset(ctx context.Context, params any) (any, error)
	Delete(ctx context.Context, params any) (any, error)
	Compact(ctx context.Context, params any) (any, error)
	Search(ctx context.Context, params any) (any, error)
	Fork(ctx context.Context, params any) (any, error)
	Branches(ctx context.Context, params any) (any, error)
	ClearAll(ctx context.Context) (any, error)
	MarkSeen(ctx context.Context, key string)
}

type NoopSessionService struct{}

func (NoopSessionService) List(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopSessionService) Preview(ctx context.Context, params any) (any, error) {
	return map[string]any{}, nil
}

func (NoopSessionService) Resolve(ctx context.Context, params any) (any, error) {
	return map[string]any{}, nil
}

func (NoopSessionService) Patch(ctx context.Context, params any) (any, error) {
	return map[string]any{}, nil
}

func (NoopSessionService) VoiceGenerate(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("session voice generation not available")
}

func (NoopSessionService) ShareCreate(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("session sharing not available")
}

func (NoopSessionService) ShareList(ctx context.Context, params any) (any, error) {
	return []any{}, nil
}

func (NoopSessionService) ShareRevoke(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("session sharing not available")
}

func (NoopSessionService) Reset(ctx context.Context, params any) (any, error) {
	return map[string]any{}, nil
}

func (NoopSessionService) Delete(ctx context.Context, params any) (any, error) {
	return map[string]any{"ok": true}, nil
}

func (NoopSessionService) Compact(ctx context.Context, params any) (any, error) {
	return map[string]any{}, nil
}

func (NoopSessionService) Search(ctx context.Context, params any) (any, error) {
	return []any{}, nil
}

func (NoopSessionService) Fork(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("session forking not available")
}

func (NoopSessionService) Branches(ctx context.Context, params any) (any, error) {
	return []any{}, nil
}

func (NoopSessionService) ClearAll(ctx context.Context) (any, error) {
	return map[string]any{"deleted": 0}, nil
}

func (NoopSessionService) MarkSeen(ctx context.Context, key string) {}
