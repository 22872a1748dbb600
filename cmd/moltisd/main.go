// Command moltisd wires together the cron scheduler, agent run loop,
// session store, MCP OAuth registry, and broadcast bus into a running
// services.Services bundle, then blocks until terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/moltis-ai/moltis/internal/agent"
	"github.com/moltis-ai/moltis/internal/app"
	"github.com/moltis-ai/moltis/internal/broadcast"
	"github.com/moltis-ai/moltis/internal/cron"
	"github.com/moltis-ai/moltis/internal/llm/anthropic"
	"github.com/moltis-ai/moltis/internal/llm/model"
	"github.com/moltis-ai/moltis/internal/llm/openai"
	"github.com/moltis-ai/moltis/internal/mcpauth"
	"github.com/moltis-ai/moltis/internal/sessionstore"
	"github.com/moltis-ai/moltis/internal/telemetry"
	"github.com/moltis-ai/moltis/internal/toolregistry"
)

func main() {
	configPathF := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPathF)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := telemetry.NewClueLogger()
	metrics := telemetry.NewClueMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := buildModelClient(cfg.Provider)
	if err != nil {
		log.Error(ctx, "failed to build model client", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.resolvePassword(),
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	sessionStore, closeMongo, err := buildSessionStore(ctx, cfg.Mongo)
	if err != nil {
		log.Error(ctx, "failed to build session store", "error", err)
		os.Exit(1)
	}
	defer closeMongo()

	bus := broadcast.New()
	tools := toolregistry.New()

	toolMode := agent.ToolModeNative
	if cfg.Agent.ToolMode == "prompt" {
		toolMode = agent.ToolModePrompt
	}

	runner := agent.NewRunner(agent.WithLogger(log))

	cronStore := cron.NewRedisStore(redisClient)
	cronSvc := buildCronService(cronStore, runner, sessionStore, bus, client, tools, toolMode, cfg.Agent, log, metrics)

	tokenStore := mcpauth.NewFileTokenStore("mcp-tokens.json")
	registrationStore := mcpauth.NewFileRegistrationStore("mcp-registrations.json")

	bundle := app.NewBundle(app.BundleConfig{
		Runner:            runner,
		Store:             sessionStore,
		Bus:               bus,
		Client:            client,
		Tools:             tools,
		ToolMode:          toolMode,
		SystemPromptBase:  cfg.Agent.SystemPromptBase,
		MaxIterations:     cfg.Agent.MaxIterations,
		CronService:       cronSvc,
		TokenStore:        tokenStore,
		RegistrationStore: registrationStore,
		Log:               log,
	})
	_ = bundle // consumed by transports, none of which are wired up yet

	if err := cronSvc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start cron service", "error", err)
		os.Exit(1)
	}
	defer cronSvc.Stop()

	log.Info(ctx, "moltisd started", "provider", cfg.Provider.Name, "toolMode", cfg.Agent.ToolMode)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	log.Info(ctx, "shutting down", "signal", sig.String())
}

func buildModelClient(cfg ProviderConfig) (model.Client, error) {
	apiKey, err := cfg.resolveAPIKey()
	if err != nil {
		return nil, err
	}
	switch cfg.Name {
	case "", "anthropic":
		return anthropic.NewFromAPIKey(apiKey, cfg.DefaultModel)
	case "openai":
		return openai.NewFromAPIKey(apiKey, cfg.DefaultModel)
	default:
		return nil, fmt.Errorf("config: unsupported provider %q", cfg.Name)
	}
}

func buildSessionStore(ctx context.Context, cfg MongoConfig) (sessionstore.Store, func(), error) {
	if cfg.URI == "" {
		return sessionstore.NewMemoryStore(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	mongoClient, err := mongodriver.Connect(mongooptions.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := mongoClient.Ping(connectCtx, nil); err != nil {
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	store, err := sessionstore.NewMongoStore(ctx, sessionstore.MongoOptions{
		Client:   mongoClient,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init session store: %w", err)
	}

	closeFn := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}
	return store, closeFn, nil
}

// buildCronService wires the cron scheduler's two collaborators:
// onSystemEvent broadcasts a notice on the "session" topic, and onAgentTurn
// drives an isolated, non-interactive Agent Run Loop turn.
func buildCronService(store cron.Store, runner *agent.Runner, sessions sessionstore.Store, bus *broadcast.Bus, client model.Client, tools *toolregistry.Registry, toolMode agent.ToolMode, agentCfg AgentConfig, log telemetry.Logger, metrics telemetry.Metrics) *cron.Service {
	onSystemEvent := func(text string) {
		bus.Publish(broadcast.Event{Topic: "session", Payload: text})
	}

	onAgentTurn := func(ctx context.Context, req cron.AgentTurnRequest) (cron.AgentTurnResult, error) {
		sessionKey := cronSessionKey(req.SessionTarget)
		history, err := sessions.Read(ctx, sessionKey)
		if err != nil {
			return cron.AgentTurnResult{}, fmt.Errorf("cron turn: read history: %w", err)
		}

		result, err := runner.Run(ctx, agent.RunContext{
			SessionKey:    sessionKey,
			SystemPrompt:  agentCfg.SystemPromptBase,
			History:       history,
			UserText:      req.Message,
			Client:        client,
			ToolMode:      toolMode,
			Tools:         tools,
			MaxIterations: agentCfg.MaxIterations,
		}, agent.NopEventSink{})
		if err != nil {
			return cron.AgentTurnResult{}, fmt.Errorf("cron turn: %w", err)
		}

		inputTokens := uint64(result.Usage.InputTokens)
		outputTokens := uint64(result.Usage.OutputTokens)
		return cron.AgentTurnResult{
			Output:       result.Text,
			InputTokens:  &inputTokens,
			OutputTokens: &outputTokens,
		}, nil
	}

	onNotify := func(n cron.CronNotification) {
		bus.Publish(broadcast.Event{Topic: "cron", Payload: n})
	}

	return cron.NewService(store, onSystemEvent, onAgentTurn,
		cron.WithLogger(log),
		cron.WithMetrics(metrics),
		cron.WithNotify(onNotify),
	)
}

// cronSessionKey derives the session store key a cron job's isolated turn
// reads/writes history against.
func cronSessionKey(target cron.SessionTarget) string {
	switch target.Kind {
	case cron.SessionTargetKindNamed:
		return "named:" + target.Name
	case cron.SessionTargetKindIsolated:
		return "isolated"
	default:
		return "main"
	}
}
