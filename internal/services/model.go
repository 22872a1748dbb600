package services

import (
	"context"

	"github.com/moltis-ai/moltis/internal/telemetry"
)

// ModelService manages the set of runtime-selectable LLM models.
type ModelService interface {
	// List returns runtime-selectable models (unsupported models hidden).
	List(ctx context.Context) (any, error)
	// ListAll returns all configured models, including unsupported ones,
	// for diagnostics.
	ListAll(ctx context.Context) (any, error)
	// Disable hides a model from the list.
	Disable(ctx context.Context, params any) (any, error)
	// Enable un-hides a model.
	Enable(ctx context.Context, params any) (any, error)
	// DetectSupported probes configured models and flags unsupported ones
	// for this account.
	DetectSupported(ctx context.Context, params any) (any, error)
	// Test sends a probe request to a single model.
	Test(ctx context.Context, params any) (any, error)
}

type NoopModelService struct {
	Log telemetry.Logger
}

func modelServiceNotConfiguredError(ctx context.Context, log telemetry.Logger, operation string) error {
	if log != nil {
		log.Warn(ctx, "model service not configured (gateway services not fully initialized)", "operation", operation)
	}
	return Unavailable("model service not configured")
}

func (NoopModelService) List(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopModelService) ListAll(ctx context.Context) (any, error) { return []any{}, nil }

func (s NoopModelService) Disable(ctx context.Context, params any) (any, error) {
	return nil, modelServiceNotConfiguredError(ctx, s.Log, "models.disable")
}

func (s NoopModelService) Enable(ctx context.Context, params any) (any, error) {
	return nil, modelServiceNotConfiguredError(ctx, s.Log, "models.enable")
}

func (s NoopModelService) DetectSupported(ctx context.Context, params any) (any, error) {
	return nil, modelServiceNotConfiguredError(ctx, s.Log, "models.detect_supported")
}

func (s NoopModelService) Test(ctx context.Context, params any) (any, error) {
	return nil, modelServiceNotConfiguredError(ctx, s.Log, "models.test")
}
