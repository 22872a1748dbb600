package services

import "context"

// TtsService converts text to speech audio.
type TtsService interface {
	Status(ctx context.Context) (any, error)
	Providers(ctx context.Context) (any, error)
	Enable(ctx context.Context, params any) (any, error)
	Disable(ctx context.Context) (any, error)
	Convert(ctx context.Context, params any) (any, error)
	SetProvider(ctx context.Context, params any) (any, error)
}

type NoopTtsService struct{}

func (NoopTtsService) Status(ctx context.Context) (any, error) {
	return map[string]any{"enabled": false}, nil
}

func (NoopTtsService) Providers(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopTtsService) Enable(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("tts not available")
}

func (NoopTtsService) Disable(ctx context.Context) (any, error) {
	return map[string]any{}, nil
}

func (NoopTtsService) Convert(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("tts not available")
}

func (NoopTtsService) SetProvider(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("tts not available")
}
