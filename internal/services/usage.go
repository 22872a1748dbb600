package services

import "context"

// UsageService reports LLM spend and request counts.
type UsageService interface {
	Status(ctx context.Context) (any, error)
	Cost(ctx context.Context, params any) (any, error)
}

type NoopUsageService struct{}

func (NoopUsageService) Status(ctx context.Context) (any, error) {
	return map[string]any{"totalCost": 0, "requests": 0}, nil
}

func (NoopUsageService) Cost(ctx context.Context, params any) (any, error) {
	return map[string]any{"cost": 0}, nil
}
