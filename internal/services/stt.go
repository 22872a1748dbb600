package services

import "context"

// SttService transcribes speech to text.
type SttService interface {
	Status(ctx context.Context) (any, error)
	Providers(ctx context.Context) (any, error)
	// Transcribe decodes base64-encoded audio carried in params.
	Transcribe(ctx context.Context, params any) (any, error)
	// TranscribeBytes transcribes raw audio bytes directly. format is a
	// short name like "webm", "ogg", "mp3".
	TranscribeBytes(ctx context.Context, audio []byte, format string, provider, language, prompt *string) (any, error)
	SetProvider(ctx context.Context, params any) (any, error)
}

type NoopSttService struct{}

func (NoopSttService) Status(ctx context.Context) (any, error) {
	return map[string]any{"enabled": false, "configured": false}, nil
}

func (NoopSttService) Providers(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopSttService) Transcribe(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("STT not available")
}

func (NoopSttService) TranscribeBytes(ctx context.Context, audio []byte, format string, provider, language, prompt *string) (any, error) {
	return nil, Unavailable("STT not available")
}

func (NoopSttService) SetProvider(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("STT not available")
}
