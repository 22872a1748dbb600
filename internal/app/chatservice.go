package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/moltis-ai/moltis/internal/agent"
	"github.com/moltis-ai/moltis/internal/broadcast"
	"github.com/moltis-ai/moltis/internal/llm/model"
	"github.com/moltis-ai/moltis/internal/services"
	"github.com/moltis-ai/moltis/internal/sessionstore"
	"github.com/moltis-ai/moltis/internal/telemetry"
	"github.com/moltis-ai/moltis/internal/toolregistry"
)

// multiSink fans a RunnerEvent out to every wrapped sink, in order.
type multiSink []agent.EventSink

func (m multiSink) Emit(ev agent.RunnerEvent) {
	for _, s := range m {
		s.Emit(ev)
	}
}

type runState struct {
	runID    string
	cancel   context.CancelFunc
	mu       sync.Mutex
	thinking strings.Builder
	voice    bool
	done     chan struct{}
}

// ChatService adapts internal/agent.Runner plus internal/sessionstore.Store
// to the generic params/result shape services.ChatService speaks. One
// ChatService instance is shared across sessions; per-session in-flight
// state lives in the active map.
type ChatService struct {
	runner           *agent.Runner
	store            sessionstore.Store
	bus              *broadcast.Bus
	client           model.Client
	tools            *toolregistry.Registry
	toolMode         agent.ToolMode
	systemPromptBase string
	maxIterations    int
	log              telemetry.Logger

	mu     sync.Mutex
	active map[string]*runState
}

// WithMaxIterations overrides the Agent Run Loop's iteration cap for every
// run this service starts. Zero leaves agent.DefaultMaxIterations in effect.
func (s *ChatService) WithMaxIterations(n int) *ChatService {
	s.maxIterations = n
	return s
}

// NewChatService wires a Runner, Store, and broadcast Bus into a
// services.ChatService.
func NewChatService(runner *agent.Runner, store sessionstore.Store, bus *broadcast.Bus, client model.Client, tools *toolregistry.Registry, toolMode agent.ToolMode, systemPromptBase string, log telemetry.Logger) *ChatService {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &ChatService{
		runner:           runner,
		store:            store,
		bus:              bus,
		client:           client,
		tools:            tools,
		toolMode:         toolMode,
		systemPromptBase: systemPromptBase,
		log:              log,
		active:           make(map[string]*runState),
	}
}

type sendParams struct {
	SessionKey string `json:"sessionKey"`
	Text       string `json:"text"`
	Voice      bool   `json:"voice"`
}

func (s *ChatService) Send(ctx context.Context, params any) (any, error) {
	var p sendParams
	if err := decodeParams(params, &p); err != nil || p.SessionKey == "" || p.Text == "" {
		return nil, services.NewError(services.CodeInvalid, "chat: sessionKey and text are required")
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(context.Background())
	rs := &runState{runID: runID, cancel: cancel, voice: p.Voice, done: make(chan struct{})}

	s.mu.Lock()
	if _, busy := s.active[p.SessionKey]; busy {
		s.mu.Unlock()
		cancel()
		return nil, services.NewError(services.CodeInvalid, "chat: session %q already has a run in flight", p.SessionKey)
	}
	s.active[p.SessionKey] = rs
	s.mu.Unlock()

	go func() {
		defer close(rs.done)
		defer func() {
			s.mu.Lock()
			delete(s.active, p.SessionKey)
			s.mu.Unlock()
		}()
		if _, err := s.doRun(runCtx, runID, p.SessionKey, p.Text, rs); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn(runCtx, "chat run failed", "sessionKey", p.SessionKey, "runId", runID, "error", err)
		}
	}()

	return map[string]any{"runId": runID}, nil
}

func (s *ChatService) SendSync(ctx context.Context, params any) (any, error) {
	var p sendParams
	if err := decodeParams(params, &p); err != nil || p.SessionKey == "" || p.Text == "" {
		return nil, services.NewError(services.CodeInvalid, "chat: sessionKey and text are required")
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	rs := &runState{runID: runID, cancel: cancel, voice: p.Voice, done: make(chan struct{})}

	s.mu.Lock()
	if _, busy := s.active[p.SessionKey]; busy {
		s.mu.Unlock()
		return nil, services.NewError(services.CodeInvalid, "chat: session %q already has a run in flight", p.SessionKey)
	}
	s.active[p.SessionKey] = rs
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.active, p.SessionKey)
		s.mu.Unlock()
	}()

	result, err := s.doRun(runCtx, runID, p.SessionKey, p.Text, rs)
	if err != nil {
		return nil, fmt.Errorf("chat: send: %w", err)
	}
	return map[string]any{
		"text":         result.Text,
		"inputTokens":  result.Usage.InputTokens,
		"outputTokens": result.Usage.OutputTokens,
	}, nil
}

// doRun appends the user message, runs one turn, and persists the assistant
// response exactly once on success. History passed to the run loop excludes
// the just-appended user message; the run loop re-adds it as UserText.
func (s *ChatService) doRun(ctx context.Context, runID, sessionKey, text string, rs *runState) (agent.RunResult, error) {
	prior, err := s.store.Read(ctx, sessionKey)
	if err != nil {
		return agent.RunResult{}, fmt.Errorf("read history: %w", err)
	}

	userMsg := &model.Message{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: text}}}
	if err := s.store.Append(ctx, sessionKey, userMsg); err != nil {
		return agent.RunResult{}, fmt.Errorf("append user message: %w", err)
	}

	sink := multiSink{
		agent.NewBroadcastSink(s.bus, runID, sessionKey),
		agent.EventSinkFunc(func(ev agent.RunnerEvent) {
			if ev.Type == agent.EventThinkingText {
				rs.mu.Lock()
				rs.thinking.WriteString(ev.Text)
				rs.mu.Unlock()
			}
		}),
	}

	result, err := s.runner.Run(ctx, agent.RunContext{
		RunID:         runID,
		SessionKey:    sessionKey,
		SystemPrompt:  s.systemPromptBase,
		History:       prior,
		UserText:      text,
		Client:        s.client,
		ToolMode:      s.toolMode,
		Tools:         s.tools,
		MaxIterations: s.maxIterations,
	}, sink)
	if err != nil {
		return agent.RunResult{}, err
	}

	assistantMsg := &model.Message{
		Role:  model.ConversationRoleAssistant,
		Parts: []model.Part{model.TextPart{Text: result.Text}},
		Meta: map[string]any{
			"inputTokens":  result.Usage.InputTokens,
			"outputTokens": result.Usage.OutputTokens,
		},
	}
	if err := s.store.Append(ctx, sessionKey, assistantMsg); err != nil {
		return agent.RunResult{}, fmt.Errorf("append assistant message: %w", err)
	}
	return result, nil
}

type sessionKeyParams struct {
	SessionKey string `json:"sessionKey"`
}

func (s *ChatService) Abort(ctx context.Context, params any) (any, error) {
	var p sessionKeyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "chat: invalid request: %v", err)
	}
	s.mu.Lock()
	rs, ok := s.active[p.SessionKey]
	s.mu.Unlock()
	if !ok {
		return map[string]any{}, nil
	}
	rs.cancel()
	return map[string]any{}, nil
}

func (s *ChatService) CancelQueued(ctx context.Context, params any) (any, error) {
	return map[string]any{"cleared": 0}, nil
}

func (s *ChatService) History(ctx context.Context, params any) (any, error) {
	var p sessionKeyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "chat: invalid request: %v", err)
	}
	msgs, err := s.store.Read(ctx, p.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("chat: history: %w", err)
	}
	return msgs, nil
}

type injectParams struct {
	SessionKey string `json:"sessionKey"`
	Role       string `json:"role"`
	Text       string `json:"text"`
}

func (s *ChatService) Inject(ctx context.Context, params any) (any, error) {
	var p injectParams
	if err := decodeParams(params, &p); err != nil || p.SessionKey == "" {
		return nil, services.NewError(services.CodeInvalid, "chat: sessionKey is required")
	}
	role := model.ConversationRole(p.Role)
	if role == "" {
		role = model.ConversationRoleSystem
	}
	msg := &model.Message{Role: role, Parts: []model.Part{model.TextPart{Text: p.Text}}}
	if err := s.store.Append(ctx, p.SessionKey, msg); err != nil {
		return nil, fmt.Errorf("chat: inject: %w", err)
	}
	return map[string]any{"ok": true}, nil
}

func (s *ChatService) Clear(ctx context.Context, params any) (any, error) {
	var p sessionKeyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "chat: invalid request: %v", err)
	}
	if err := s.store.Clear(ctx, p.SessionKey); err != nil {
		return nil, fmt.Errorf("chat: clear: %w", err)
	}
	return map[string]any{"ok": true}, nil
}

// Compact replaces a session's history with a single summarizing message,
// produced by asking the model client directly for a summary of the
// existing transcript.
func (s *ChatService) Compact(ctx context.Context, params any) (any, error) {
	var p sessionKeyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "chat: invalid request: %v", err)
	}
	msgs, err := s.store.Read(ctx, p.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("chat: compact: read history: %w", err)
	}
	if len(msgs) == 0 {
		return map[string]any{"ok": true, "messageCount": 0}, nil
	}

	summaryPrompt := "Summarize the conversation so far in a few sentences, preserving any decisions and open questions."
	req := &model.Request{
		Messages: append(append([]*model.Message{}, msgs...), &model.Message{
			Role:  model.ConversationRoleUser,
			Parts: []model.Part{model.TextPart{Text: summaryPrompt}},
		}),
	}
	resp, err := s.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat: compact: summarize: %w", err)
	}
	var summary string
	for _, m := range resp.Content {
		for _, part := range m.Parts {
			if tp, ok := part.(model.TextPart); ok {
				summary += tp.Text
			}
		}
	}

	summaryMsg := &model.Message{Role: model.ConversationRoleAssistant, Parts: []model.Part{model.TextPart{Text: summary}}}
	if err := s.store.ReplaceHistory(ctx, p.SessionKey, []*model.Message{summaryMsg}); err != nil {
		return nil, fmt.Errorf("chat: compact: replace history: %w", err)
	}
	return map[string]any{"ok": true, "messageCount": 1}, nil
}

func (s *ChatService) Context(ctx context.Context, params any) (any, error) {
	var p sessionKeyParams
	_ = decodeParams(params, &p)
	count, _ := s.store.Count(ctx, p.SessionKey)
	return map[string]any{
		"session":   map[string]any{"key": p.SessionKey, "messageCount": count},
		"project":   nil,
		"tools":     s.tools.Definitions(),
		"providers": []any{},
	}, nil
}

func (s *ChatService) RawPrompt(ctx context.Context, params any) (any, error) {
	systemPrompt := s.systemPromptBase
	if s.toolMode == agent.ToolModePrompt && s.tools != nil {
		systemPrompt += "\n\n" + s.tools.RenderCatalog()
	}
	return map[string]any{"prompt": systemPrompt}, nil
}

func (s *ChatService) FullContext(ctx context.Context, params any) (any, error) {
	var p sessionKeyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "chat: invalid request: %v", err)
	}
	msgs, err := s.store.Read(ctx, p.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("chat: full context: %w", err)
	}
	out := make([]map[string]any, 0, len(msgs)+1)
	if s.systemPromptBase != "" {
		out = append(out, map[string]any{"role": "system", "content": s.systemPromptBase})
	}
	for _, m := range msgs {
		out = append(out, map[string]any{"role": string(m.Role), "content": textFromMessageParts(m)})
	}
	return out, nil
}

func textFromMessageParts(m *model.Message) string {
	var out string
	for _, p := range m.Parts {
		if tp, ok := p.(model.TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

func (s *ChatService) Active(ctx context.Context, params any) (any, error) {
	var p sessionKeyParams
	_ = decodeParams(params, &p)
	s.mu.Lock()
	_, active := s.active[p.SessionKey]
	s.mu.Unlock()
	return map[string]any{"active": active}, nil
}

func (s *ChatService) ActiveSessionKeys(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.active))
	for k := range s.active {
		keys = append(keys, k)
	}
	return keys
}

func (s *ChatService) ActiveThinkingText(ctx context.Context, sessionKey string) (string, bool) {
	s.mu.Lock()
	rs, ok := s.active[sessionKey]
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.thinking.String(), true
}

func (s *ChatService) ActiveVoicePending(ctx context.Context, sessionKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.active[sessionKey]
	return ok && rs.voice
}

var _ services.ChatService = (*ChatService)(nil)
