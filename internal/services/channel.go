package services

import "context"

// ChannelService manages inbound/outbound messaging channels (e.g. chat
// bridges) and their approved senders.
type ChannelService interface {
	Status(ctx context.Context) (any, error)
	Logout(ctx context.Context, params any) (any, error)
	Send(ctx context.Context, params any) (any, error)
	Add(ctx context.Context, params any) (any, error)
	Remove(ctx context.Context, params any) (any, error)
	Update(ctx context.Context, params any) (any, error)
	SendersList(ctx context.Context, params any) (any, error)
	SenderApprove(ctx context.Context, params any) (any, error)
	SenderDeny(ctx context.Context, params any) (any, error)
}

type NoopChannelService struct{}

func (NoopChannelService) Status(ctx context.Context) (any, error) {
	return map[string]any{"channels": []any{}}, nil
}

func (NoopChannelService) Logout(ctx context.Context, params any) (any, error) {
	return map[string]any{}, nil
}

func (NoopChannelService) Send(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("no channels configured")
}

func (NoopChannelService) Add(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("no channel service configured")
}

func (NoopChannelService) Remove(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("no channel service configured")
}

func (NoopChannelService) Update(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("no channel service configured")
}

func (NoopChannelService) SendersList(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("no channel service configured")
}

func (NoopChannelService) SenderApprove(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("no channel service configured")
}

func (NoopChannelService) SenderDeny(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("no channel service configured")
}
