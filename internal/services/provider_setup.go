package services

import "context"

// ProviderSetupService configures LLM provider credentials.
type ProviderSetupService interface {
	Available(ctx context.Context) (any, error)
	SaveKey(ctx context.Context, params any) (any, error)
	OauthStart(ctx context.Context, params any) (any, error)
	OauthComplete(ctx context.Context, params any) (any, error)
	OauthStatus(ctx context.Context, params any) (any, error)
	RemoveKey(ctx context.Context, params any) (any, error)
	// ValidateKey validates provider credentials without persisting them,
	// returning {valid: true, models: [...]} or {valid: false, error: "..."}.
	ValidateKey(ctx context.Context, params any) (any, error)
	// SaveModel saves a model preference for a configured provider without
	// changing credentials.
	SaveModel(ctx context.Context, params any) (any, error)
	// SaveModels saves multiple model preferences, replacing existing ones.
	SaveModels(ctx context.Context, params any) (any, error)
	// AddCustom adds a custom OpenAI-compatible provider by endpoint URL and
	// API key.
	AddCustom(ctx context.Context, params any) (any, error)
}

type NoopProviderSetupService struct{}

func (NoopProviderSetupService) Available(ctx context.Context) (any, error) {
	return []any{}, nil
}

func (NoopProviderSetupService) SaveKey(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("provider setup not configured")
}

func (NoopProviderSetupService) OauthStart(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("provider setup not configured")
}

func (NoopProviderSetupService) OauthComplete(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("provider setup not configured")
}

func (NoopProviderSetupService) OauthStatus(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("provider setup not configured")
}

func (NoopProviderSetupService) RemoveKey(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("provider setup not configured")
}

func (NoopProviderSetupService) ValidateKey(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("provider setup not configured")
}

func (NoopProviderSetupService) SaveModel(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("provider setup not configured")
}

func (NoopProviderSetupService) SaveModels(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("provider setup not configured")
}

func (NoopProviderSetupService) AddCustom(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("provider setup not configured")
}
