package services

import (
	"context"
	"time"
)

// BrowserService drives an embedded or remote browser automation backend.
type BrowserService interface {
	Request(ctx context.Context, params any) (any, error)
	// CleanupIdle releases idle browser instances; called periodically.
	CleanupIdle(ctx context.Context)
	// Shutdown tears down all browser instances; called on process exit.
	Shutdown(ctx context.Context)
	// ShutdownWithGrace attempts Shutdown within grace and reports whether
	// it completed in time.
	ShutdownWithGrace(ctx context.Context, grace time.Duration) bool
	// CloseAll closes all browser sessions; called on sessions.clear_all.
	CloseAll(ctx context.Context)
}

type NoopBrowserService struct{}

func (NoopBrowserService) Request(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("browser not available")
}

func (NoopBrowserService) CleanupIdle(ctx context.Context) {}

func (NoopBrowserService) Shutdown(ctx context.Context) {}

func (s NoopBrowserService) ShutdownWithGrace(ctx context.Context, grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.Shutdown(ctx)
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}

func (NoopBrowserService) CloseAll(ctx context.Context) {}
