package services

import "context"

// ProjectService manages project workspace metadata.
type ProjectService interface {
	List(ctx context.Context) (any, error)
	Get(ctx context.Context, params any) (any, error)
	Upsert(ctx context.Context, params any) (any, error)
	Delete(ctx context.Context, params any) (any, error)
	Detect(ctx context.Context, params any) (any, error)
	CompletePath(ctx context.Context, params any) (any, error)
	Context(ctx context.Context, params any) (any, error)
}

type NoopProjectService struct{}

func (NoopProjectService) List(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopProjectService) Get(ctx context.Context, params any) (any, error) { return nil, nil }

func (NoopProjectService) Upsert(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("project service not configured")
}

func (NoopProjectService) Delete(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("project service not configured")
}

func (NoopProjectService) Detect(ctx context.Context, params any) (any, error) {
	return []any{}, nil
}

func (NoopProjectService) CompletePath(ctx context.Context, params any) (any, error) {
	return []any{}, nil
}

func (NoopProjectService) Context(ctx context.Context, params any) (any, error) { return nil, nil }
