package app

import (
	"github.com/moltis-ai/moltis/internal/agent"
	"github.com/moltis-ai/moltis/internal/broadcast"
	"github.com/moltis-ai/moltis/internal/cron"
	"github.com/moltis-ai/moltis/internal/llm/model"
	"github.com/moltis-ai/moltis/internal/mcpauth"
	"github.com/moltis-ai/moltis/internal/services"
	"github.com/moltis-ai/moltis/internal/sessionstore"
	"github.com/moltis-ai/moltis/internal/telemetry"
	"github.com/moltis-ai/moltis/internal/toolregistry"
)

// BundleConfig carries every concrete backend NewBundle wires into a
// services.Services. Fields left nil keep their Noop default.
type BundleConfig struct {
	Runner            *agent.Runner
	Store             sessionstore.Store
	Bus               *broadcast.Bus
	Client            model.Client
	Tools             *toolregistry.Registry
	ToolMode          agent.ToolMode
	SystemPromptBase  string
	MaxIterations     int
	CronService       *cron.Service
	TokenStore        mcpauth.TokenStore
	RegistrationStore mcpauth.RegistrationStore
	Log               telemetry.Logger
}

// NewBundle builds a services.Services with Chat, Cron, and Mcp backed by
// concrete implementations and every other domain left at its Noop default.
func NewBundle(cfg BundleConfig) *services.Services {
	bundle := services.NewDefault()

	if cfg.Runner != nil && cfg.Store != nil && cfg.Bus != nil && cfg.Client != nil {
		bundle.Chat = NewChatService(cfg.Runner, cfg.Store, cfg.Bus, cfg.Client, cfg.Tools, cfg.ToolMode, cfg.SystemPromptBase, cfg.Log).
			WithMaxIterations(cfg.MaxIterations)
	}
	if cfg.CronService != nil {
		bundle.Cron = NewCronService(cfg.CronService)
	}
	if cfg.TokenStore != nil && cfg.RegistrationStore != nil {
		bundle.Mcp = NewMcpService(cfg.TokenStore, cfg.RegistrationStore)
	}

	return bundle
}
