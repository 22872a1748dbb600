package services

import "context"

// CronService is the transport-facing contract for scheduled jobs. A
// concrete implementation adapts internal/cron.Service's typed API to the
// generic params/result shape transports speak.
type CronService interface {
	List(ctx context.Context) (any, error)
	Status(ctx context.Context) (any, error)
	Add(ctx context.Context, params any) (any, error)
	Update(ctx context.Context, params any) (any, error)
	Remove(ctx context.Context, params any) (any, error)
	Run(ctx context.Context, params any) (any, error)
	Runs(ctx context.Context, params any) (any, error)
}

type NoopCronService struct{}

func (NoopCronService) List(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopCronService) Status(ctx context.Context) (any, error) {
	return map[string]any{"running": false}, nil
}

func (NoopCronService) Add(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("cron not configured")
}

func (NoopCronService) Update(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("cron not configured")
}

func (NoopCronService) Remove(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("cron not configured")
}

func (NoopCronService) Run(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("cron not configured")
}

func (NoopCronService) Runs(ctx context.Context, params any) (any, error) {
	return []any{}, nil
}
