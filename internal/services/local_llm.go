package services

import "context"

// LocalLlmService manages a local (GGUF/MLX) model provider.
type LocalLlmService interface {
	// SystemInfo reports RAM, GPU, and memory tier.
	SystemInfo(ctx context.Context) (any, error)
	// Models returns available models with recommendations based on memory
	// tier.
	Models(ctx context.Context) (any, error)
	// Configure loads a model by id from the registry.
	Configure(ctx context.Context, params any) (any, error)
	Status(ctx context.Context) (any, error)
	// SearchHf searches HuggingFace for models by query and backend.
	SearchHf(ctx context.Context, params any) (any, error)
	// ConfigureCustom configures a custom model from a HuggingFace repo URL.
	ConfigureCustom(ctx context.Context, params any) (any, error)
	RemoveModel(ctx context.Context, params any) (any, error)
}

type NoopLocalLlmService struct{}

func (NoopLocalLlmService) SystemInfo(ctx context.Context) (any, error) {
	return nil, Unavailable("local-llm feature not enabled")
}

func (NoopLocalLlmService) Models(ctx context.Context) (any, error) {
	return nil, Unavailable("local-llm feature not enabled")
}

func (NoopLocalLlmService) Configure(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("local-llm feature not enabled")
}

func (NoopLocalLlmService) Status(ctx context.Context) (any, error) {
	return map[string]any{"status": "unavailable"}, nil
}

func (NoopLocalLlmService) SearchHf(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("local-llm feature not enabled")
}

func (NoopLocalLlmService) ConfigureCustom(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("local-llm feature not enabled")
}

func (NoopLocalLlmService) RemoveModel(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("local-llm feature not enabled")
}
