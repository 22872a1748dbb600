package services

import "context"

// UpdateService triggers self-update of the running binary.
type UpdateService interface {
	Run(ctx context.Context, params any) (any, error)
}

type NoopUpdateService struct{}

func (NoopUpdateService) Run(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("update not available")
}
