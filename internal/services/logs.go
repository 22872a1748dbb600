package services

import "context"

// LogsService streams and queries the gateway's own log history.
type LogsService interface {
	Tail(ctx context.Context, params any) (any, error)
	List(ctx context.Context, params any) (any, error)
	Status(ctx context.Context) (any, error)
	Ack(ctx context.Context) (any, error)
	// LogFilePath returns the path to the persisted JSONL log file, if any.
	LogFilePath() (string, bool)
}

type NoopLogsService struct{}

func (NoopLogsService) Tail(ctx context.Context, params any) (any, error) {
	return map[string]any{"subscribed": true}, nil
}

func (NoopLogsService) List(ctx context.Context, params any) (any, error) {
	return map[string]any{"entries": []any{}}, nil
}

func (NoopLogsService) Status(ctx context.Context) (any, error) {
	return map[string]any{
		"unseen_warns":  0,
		"unseen_errors": 0,
		"enabled_levels": map[string]any{
			"debug": false,
			"trace": false,
		},
	}, nil
}

func (NoopLogsService) Ack(ctx context.Context) (any, error) {
	return map[string]any{}, nil
}

func (NoopLogsService) LogFilePath() (string, bool) { return "", false }
