package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/moltis-ai/moltis/internal/mcpauth"
	"github.com/moltis-ai/moltis/internal/services"
)

// mcpServer is one configured MCP server entry: its connection details and
// the OAuth provider that authenticates outbound requests to it.
type mcpServer struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Enabled  bool   `json:"enabled"`
	provider mcpauth.Provider
}

// McpService adapts a set of configured MCP servers, each backed by its own
// internal/mcpauth.Provider, to the generic params/result shape
// services.McpService speaks.
type McpService struct {
	tokenStore        mcpauth.TokenStore
	registrationStore mcpauth.RegistrationStore

	mu      sync.Mutex
	servers map[string]*mcpServer
}

// NewMcpService builds an McpService backed by shared token and registration
// stores; every server added via Add gets its own OAuthProvider scoped by
// server name.
func NewMcpService(tokenStore mcpauth.TokenStore, registrationStore mcpauth.RegistrationStore) *McpService {
	return &McpService{
		tokenStore:        tokenStore,
		registrationStore: registrationStore,
		servers:           make(map[string]*mcpServer),
	}
}

// RegisterServer seeds a configured server at construction time (e.g. from
// config file entries), bypassing the Add params path.
func (s *McpService) RegisterServer(name, url string, enabled bool, provider mcpauth.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[name] = &mcpServer{Name: name, URL: url, Enabled: enabled, provider: provider}
}

func (s *McpService) List(ctx context.Context) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.servers))
	for _, srv := range s.servers {
		out = append(out, map[string]any{
			"name":      srv.Name,
			"url":       srv.URL,
			"enabled":   srv.Enabled,
			"authState": string(srv.provider.AuthState()),
		})
	}
	return map[string]any{"servers": out}, nil
}

type mcpAddParams struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *McpService) Add(ctx context.Context, params any) (any, error) {
	var p mcpAddParams
	if err := decodeParams(params, &p); err != nil || p.Name == "" || p.URL == "" {
		return nil, services.NewError(services.CodeInvalid, "mcp: name and url are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.servers[p.Name]; exists {
		return nil, services.NewError(services.CodeInvalid, "mcp: server %q already configured", p.Name)
	}
	provider := mcpauth.NewOAuthProvider(p.Name, p.URL, s.tokenStore, s.registrationStore)
	s.servers[p.Name] = &mcpServer{Name: p.Name, URL: p.URL, Enabled: true, provider: provider}
	return map[string]any{"ok": true}, nil
}

func (s *McpService) lookup(name string) (*mcpServer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[name]
	if !ok {
		return nil, services.NewError(services.CodeNotFound, "mcp: server %q not configured", name)
	}
	return srv, nil
}

func (s *McpService) Remove(ctx context.Context, params any) (any, error) {
	var p mcpNameParams
	if err := decodeParams(params, &p); err != nil || p.Name == "" {
		return nil, services.NewError(services.CodeInvalid, "mcp: name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[p.Name]; !ok {
		return nil, services.NewError(services.CodeNotFound, "mcp: server %q not configured", p.Name)
	}
	delete(s.servers, p.Name)
	return map[string]any{"ok": true}, nil
}

type mcpNameParams struct {
	Name string `json:"name"`
}

func (s *McpService) Enable(ctx context.Context, params any) (any, error) {
	var p mcpNameParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "mcp: invalid request: %v", err)
	}
	srv, err := s.lookup(p.Name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	srv.Enabled = true
	s.mu.Unlock()
	return map[string]any{"ok": true}, nil
}

func (s *McpService) Disable(ctx context.Context, params any) (any, error) {
	var p mcpNameParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "mcp: invalid request: %v", err)
	}
	srv, err := s.lookup(p.Name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	srv.Enabled = false
	s.mu.Unlock()
	return map[string]any{"ok": true}, nil
}

func (s *McpService) Status(ctx context.Context, params any) (any, error) {
	var p mcpNameParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "mcp: invalid request: %v", err)
	}
	srv, err := s.lookup(p.Name)
	if err != nil {
		return nil, err
	}
	authURL, pending := srv.provider.PendingAuthURL()
	return map[string]any{
		"name":      srv.Name,
		"enabled":   srv.Enabled,
		"authState": string(srv.provider.AuthState()),
		"authURL":   authURL,
		"pending":   pending,
	}, nil
}

// Tools requires an active MCP session to list a server's tool catalog,
// which this build does not establish; callers get a clear unavailable
// error rather than a stub tool list.
func (s *McpService) Tools(ctx context.Context, params any) (any, error) {
	var p mcpNameParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "mcp: invalid request: %v", err)
	}
	if _, err := s.lookup(p.Name); err != nil {
		return nil, err
	}
	return nil, services.Unavailable("mcp: tool listing requires a live session, not established for %q", p.Name)
}

func (s *McpService) Restart(ctx context.Context, params any) (any, error) {
	var p mcpNameParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "mcp: invalid request: %v", err)
	}
	if _, err := s.lookup(p.Name); err != nil {
		return nil, err
	}
	return nil, services.Unavailable("mcp: restart requires a live session, not established for %q", p.Name)
}

type mcpUpdateParams struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *McpService) Update(ctx context.Context, params any) (any, error) {
	var p mcpUpdateParams
	if err := decodeParams(params, &p); err != nil || p.Name == "" {
		return nil, services.NewError(services.CodeInvalid, "mcp: name is required")
	}
	srv, err := s.lookup(p.Name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if p.URL != "" {
		srv.URL = p.URL
		srv.provider = mcpauth.NewOAuthProvider(p.Name, p.URL, s.tokenStore, s.registrationStore)
	}
	s.mu.Unlock()
	return map[string]any{"ok": true}, nil
}

func (s *McpService) Reauth(ctx context.Context, params any) (any, error) {
	var p mcpNameParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "mcp: invalid request: %v", err)
	}
	srv, err := s.lookup(p.Name)
	if err != nil {
		return nil, err
	}
	if _, err := srv.provider.HandleUnauthorized(ctx, ""); err != nil {
		return nil, fmt.Errorf("mcp: reauth: %w", err)
	}
	return map[string]any{"ok": true}, nil
}

type mcpOauthStartParams struct {
	Name        string `json:"name"`
	RedirectURI string `json:"redirectUri"`
}

func (s *McpService) OauthStart(ctx context.Context, params any) (any, error) {
	var p mcpOauthStartParams
	if err := decodeParams(params, &p); err != nil || p.Name == "" || p.RedirectURI == "" {
		return nil, services.NewError(services.CodeInvalid, "mcp: name and redirectUri are required")
	}
	srv, err := s.lookup(p.Name)
	if err != nil {
		return nil, err
	}
	authURL, err := srv.provider.StartOAuth(ctx, p.RedirectURI, "")
	if err != nil {
		return nil, fmt.Errorf("mcp: oauth start: %w", err)
	}
	return map[string]any{"authUrl": authURL}, nil
}

type mcpOauthCompleteParams struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Code  string `json:"code"`
}

func (s *McpService) OauthComplete(ctx context.Context, params any) (any, error) {
	var p mcpOauthCompleteParams
	if err := decodeParams(params, &p); err != nil || p.Name == "" {
		return nil, services.NewError(services.CodeInvalid, "mcp: name is required")
	}
	srv, err := s.lookup(p.Name)
	if err != nil {
		return nil, err
	}
	matched, err := srv.provider.CompleteOAuth(ctx, p.State, p.Code)
	if err != nil {
		return nil, fmt.Errorf("mcp: oauth complete: %w", err)
	}
	return map[string]any{"matched": matched}, nil
}

var _ services.McpService = (*McpService)(nil)
