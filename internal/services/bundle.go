package services

// Services bundles every domain service trait object. Shared by the HTTP
// RPC, WebSocket, and GraphQL transports — each calls service methods
// directly through this struct, with no string-based dispatch or RPC
// indirection between them.
type Services struct {
	Agent         AgentService
	Session       SessionService
	Channel       ChannelService
	Config        ConfigService
	Cron          CronService
	Chat          ChatService
	Tts           TtsService
	Stt           SttService
	Skills        SkillsService
	Mcp           McpService
	Browser       BrowserService
	Usage         UsageService
	ExecApproval  ExecApprovalService
	Onboarding    OnboardingService
	Update        UpdateService
	Model         ModelService
	WebLogin      WebLoginService
	Voicewake     VoicewakeService
	Logs          LogsService
	ProviderSetup ProviderSetupService
	Project       ProjectService
	LocalLlm      LocalLlmService
	SystemInfo    SystemInfoService
}

// NewDefault returns a Services bundle wired entirely to Noop
// implementations, so transports compile and run before any domain is
// configured. Call sites replace individual fields as concrete backends
// come online.
func NewDefault() *Services {
	return &Services{
		Agent:         NoopAgentService{},
		Session:       NoopSessionService{},
		Channel:       NoopChannelService{},
		Config:        NoopConfigService{},
		Cron:          NoopCronService{},
		Chat:          NoopChatService{},
		Tts:           NoopTtsService{},
		Stt:           NoopSttService{},
		Skills:        NoopSkillsService{},
		Mcp:           NoopMcpService{},
		Browser:       NoopBrowserService{},
		Usage:         NoopUsageService{},
		ExecApproval:  NoopExecApprovalService{},
		Onboarding:    NoopOnboardingService{},
		Update:        NoopUpdateService{},
		Model:         NoopModelService{},
		WebLogin:      NoopWebLoginService{},
		Voicewake:     NoopVoicewakeService{},
		Logs:          NoopLogsService{},
		ProviderSetup: NoopProviderSetupService{},
		Project:       NoopProjectService{},
		LocalLlm:      NoopLocalLlmService{},
		SystemInfo:    NoopSystemInfoService{},
	}
}
