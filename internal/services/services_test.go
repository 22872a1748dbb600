package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopBrowserServiceLifecycleMethods(t *testing.T) {
	svc := NoopBrowserService{}
	ctx := context.Background()

	svc.CleanupIdle(ctx)
	svc.Shutdown(ctx)
	assert.True(t, svc.ShutdownWithGrace(ctx, 10*time.Millisecond))
	svc.CloseAll(ctx)
}

func TestNoopBrowserServiceRequestReturnsError(t *testing.T) {
	svc := NoopBrowserService{}
	_, err := svc.Request(context.Background(), map[string]any{})
	require.Error(t, err)
}

type slowShutdownBrowserService struct{ NoopBrowserService }

func (slowShutdownBrowserService) Shutdown(ctx context.Context) {
	time.Sleep(50 * time.Millisecond)
}

func (s slowShutdownBrowserService) ShutdownWithGrace(ctx context.Context, grace time.Duration) bool {
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

func TestBrowserShutdownWithGraceTimesOut(t *testing.T) {
	svc := slowShutdownBrowserService{}
	assert.False(t, svc.ShutdownWithGrace(context.Background(), 5*time.Millisecond))
}

func TestModelServiceNotConfiguredErrorReturnsExpectedMessage(t *testing.T) {
	err := modelServiceNotConfiguredError(context.Background(), nil, "models.test")
	assert.Equal(t, "model service not configured", err.Error())
}

func TestUnavailableErrorCarriesCode(t *testing.T) {
	err := Unavailable("chat not configured")
	assert.Equal(t, CodeUnavailable, err.Code)
	assert.Equal(t, "chat not configured", err.Error())
}

func TestNewDefaultPopulatesEveryField(t *testing.T) {
	s := NewDefault()
	assert.NotNil(t, s.Agent)
	assert.NotNil(t, s.Session)
	assert.NotNil(t, s.Channel)
	assert.NotNil(t, s.Config)
	assert.NotNil(t, s.Cron)
	assert.NotNil(t, s.Chat)
	assert.NotNil(t, s.Tts)
	assert.NotNil(t, s.Stt)
	assert.NotNil(t, s.Skills)
	assert.NotNil(t, s.Mcp)
	assert.NotNil(t, s.Browser)
	assert.NotNil(t, s.Usage)
	assert.NotNil(t, s.ExecApproval)
	assert.NotNil(t, s.Onboarding)
	assert.NotNil(t, s.Update)
	assert.NotNil(t, s.Model)
	assert.NotNil(t, s.WebLogin)
	assert.NotNil(t, s.Voicewake)
	assert.NotNil(t, s.Logs)
	assert.NotNil(t, s.ProviderSetup)
	assert.NotNil(t, s.Project)
	assert.NotNil(t, s.LocalLlm)
	assert.NotNil(t, s.SystemInfo)
}

func TestNoopChatServiceSendSyncDelegatesToSend(t *testing.T) {
	svc := NoopChatService{}
	_, err := svc.SendSync(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not configured")
}
