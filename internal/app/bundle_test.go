package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moltis-ai/moltis/internal/agent"
	"github.com/moltis-ai/moltis/internal/broadcast"
	"github.com/moltis-ai/moltis/internal/cron"
	"github.com/moltis-ai/moltis/internal/mcpauth"
	"github.com/moltis-ai/moltis/internal/services"
	"github.com/moltis-ai/moltis/internal/sessionstore"
	"github.com/moltis-ai/moltis/internal/toolregistry"
)

func TestNewBundleLeavesEverythingNoopWhenConfigEmpty(t *testing.T) {
	bundle := NewBundle(BundleConfig{})
	defaults := services.NewDefault()

	assert.IsType(t, defaults.Chat, bundle.Chat)
	assert.IsType(t, defaults.Cron, bundle.Cron)
	assert.IsType(t, defaults.Mcp, bundle.Mcp)
}

func TestNewBundleWiresChatWhenCollaboratorsPresent(t *testing.T) {
	bundle := NewBundle(BundleConfig{
		Runner: agent.NewRunner(),
		Store:  sessionstore.NewMemoryStore(),
		Bus:    broadcast.New(),
		Client: &fakeClient{},
		Tools:  toolregistry.New(),
	})

	_, isChatService := bundle.Chat.(*ChatService)
	assert.True(t, isChatService)
}

func TestNewBundleWiresCronWhenServicePresent(t *testing.T) {
	cronSvc := cron.NewService(cron.NewMemoryStore(),
		func(string) {},
		func(ctx context.Context, req cron.AgentTurnRequest) (cron.AgentTurnResult, error) {
			return cron.AgentTurnResult{}, nil
		},
	)

	bundle := NewBundle(BundleConfig{CronService: cronSvc})

	_, isCronService := bundle.Cron.(*CronService)
	assert.True(t, isCronService)
}

func TestNewBundleWiresMcpWhenStoresPresent(t *testing.T) {
	bundle := NewBundle(BundleConfig{
		TokenStore:        mcpauth.NewMemoryTokenStore(),
		RegistrationStore: mcpauth.NewMemoryRegistrationStore(),
	})

	_, isMcpService := bundle.Mcp.(*McpService)
	assert.True(t, isMcpService)
}
