package mcpauth

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/moltis-ai/moltis/internal/telemetry"
)

// Option configures an OAuthProvider at construction.
type Option func(*OAuthProvider)

// WithOverride installs a manual OAuth override, skipping discovery and
// dynamic registration entirely.
func WithOverride(ov McpOAuthOverride) Option {
	return func(p *OAuthProvider) { p.override = &ov }
}

// WithLogger overrides the provider's logger. Defaults to a no-op logger.
func WithLogger(log telemetry.Logger) Option {
	return func(p *OAuthProvider) { p.log = log }
}

// WithHTTPClient overrides the HTTP client used for discovery, exchange,
// and refresh requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *OAuthProvider) { p.httpClient = client }
}

// OAuthProvider is the OAuth 2.1 + PKCE Provider for a single MCP server.
type OAuthProvider struct {
	serverName        string
	serverURL         string
	httpClient        *http.Client
	tokenStore        TokenStore
	registrationStore RegistrationStore
	log               telemetry.Logger
	override          *McpOAuthOverride

	// discoveryWarnGuard caps how often a repeatedly-failing discovery
	// attempt against this server logs a warning, so a misconfigured or
	// down MCP server doesn't spam logs on every chat turn that triggers
	// StartOAuth.
	discoveryWarnGuard rate.Sometimes

	mu                  sync.RWMutex
	state               State
	cachedToken         *OAuthTokens
	pending             *pendingFlow
	lastWWWAuthenticate string
}

// NewOAuthProvider constructs an OAuthProvider bound to one MCP server.
func NewOAuthProvider(serverName, serverURL string, tokenStore TokenStore, registrationStore RegistrationStore, opts ...Option) *OAuthProvider {
	p := &OAuthProvider{
		serverName:         serverName,
		serverURL:          serverURL,
		httpClient:         newDiscoveryClient(),
		tokenStore:         tokenStore,
		registrationStore:  registrationStore,
		log:                telemetry.NewNoopLogger(),
		state:              StateNotRequired,
		discoveryWarnGuard: rate.Sometimes{Interval: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OAuthProvider) storeKey() string {
	return "mcp:" + p.serverName
}

func (p *OAuthProvider) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// AuthState returns the current state without blocking on an in-flight
// mutation; falls back to StateNotRequired if the lock is currently held.
func (p *OAuthProvider) AuthState() State {
	if !p.mu.TryRLock() {
		return StateNotRequired
	}
	defer p.mu.RUnlock()
	return p.state
}

func (p *OAuthProvider) PendingAuthURL() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.pending == nil {
		return "", false
	}
	return p.pending.authURL, true
}

func (p *OAuthProvider) AccessToken(ctx context.Context) (string, bool, error) {
	p.mu.RLock()
	cached := p.cachedToken
	p.mu.RUnlock()

	now := time.Now()
	if cached != nil {
		if !cached.expired(now) {
			p.setState(StateAuthenticated)
			return cached.AccessToken, true, nil
		}
		// fall through to refresh path below using the stored copy
	}

	tokens, ok := p.tokenStore.Load(p.storeKey())
	if !ok {
		return "", false, nil
	}

	if tokens.expired(now) {
		refreshed, err := p.tryRefresh(ctx, tokens)
		if err != nil {
			return "", false, err
		}
		if refreshed == nil {
			return "", false, nil
		}
		p.mu.Lock()
		p.cachedToken = refreshed
		p.mu.Unlock()
		p.setState(StateAuthenticated)
		return refreshed.AccessToken, true, nil
	}

	p.mu.Lock()
	p.cachedToken = &tokens
	p.mu.Unlock()
	p.setState(StateAuthenticated)
	return tokens.AccessToken, true, nil
}

func (p *OAuthProvider) tryRefresh(ctx context.Context, tokens OAuthTokens) (*OAuthTokens, error) {
	if tokens.RefreshToken == nil {
		return nil, nil
	}

	clientID, tokenURL, resource, ok := p.refreshEndpoint()
	if !ok {
		return nil, nil
	}

	p.log.Debug(ctx, "refreshing MCP OAuth token", "server", p.serverName)

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {*tokens.RefreshToken},
		"client_id":     {clientID},
	}
	if resource != "" {
		form.Set("resource", resource)
	}

	newTokens, err := postTokenForm(ctx, p.httpClient, tokenURL, form)
	if err != nil {
		p.log.Warn(ctx, "MCP OAuth token refresh failed", "server", p.serverName, "error", err)
		return nil, nil
	}

	if err := p.tokenStore.Save(p.storeKey(), newTokens); err != nil {
		return nil, fmt.Errorf("mcpauth: save refreshed token: %w", err)
	}
	p.log.Info(ctx, "MCP OAuth token refreshed", "server", p.serverName)
	return &newTokens, nil
}

func (p *OAuthProvider) refreshEndpoint() (clientID, tokenURL, resource string, ok bool) {
	if p.override != nil {
		return p.override.ClientID, p.override.TokenURL, p.serverURL, true
	}
	reg, found := p.registrationStore.Load(p.serverURL)
	if !found {
		return "", "", "", false
	}
	return reg.ClientID, reg.TokenEndpoint, reg.Resource, true
}

func (p *OAuthProvider) HandleUnauthorized(ctx context.Context, wwwAuthenticate string) (bool, error) {
	p.mu.Lock()
	p.cachedToken = nil
	if wwwAuthenticate != "" {
		p.lastWWWAuthenticate = wwwAuthenticate
	}
	p.state = StateFailed
	p.mu.Unlock()
	return false, nil
}

func (p *OAuthProvider) StartOAuth(ctx context.Context, redirectURI, wwwAuthenticate string) (string, error) {
	if wwwAuthenticate != "" {
		p.mu.Lock()
		p.lastWWWAuthenticate = wwwAuthenticate
		p.mu.Unlock()
	}
	authURL, err := p.startWebOAuthFlow(ctx, redirectURI, wwwAuthenticate)
	if err != nil {
		return "", err
	}
	return authURL, nil
}

func (p *OAuthProvider) startWebOAuthFlow(ctx context.Context, redirectURI, wwwAuthenticate string) (string, error) {
	var (
		clientID, authEndpoint, tokenEndpoint, resource string
		scopes                                          []string
	)

	if p.override != nil {
		clientID = p.override.ClientID
		authEndpoint = p.override.AuthURL
		tokenEndpoint = p.override.TokenURL
		scopes = p.override.Scopes
		resource = p.serverURL
	} else {
		// Re-register for each interactive flow so the redirect URI always
		// matches the current callback origin.
		p.registrationStore.Delete(p.serverURL)

		header := wwwAuthenticate
		if header == "" {
			p.mu.RLock()
			header = p.lastWWWAuthenticate
			p.mu.RUnlock()
		}

		var err error
		clientID, authEndpoint, tokenEndpoint, scopes, resource, err = p.discoverAndRegister(ctx, header, redirectURI)
		if err != nil {
			return "", err
		}
	}

	config := oauthFlowConfig{
		clientID:    clientID,
		authURL:     authEndpoint,
		tokenURL:    tokenEndpoint,
		redirectURI: redirectURI,
		resource:    resource,
		scopes:      scopes,
	}

	p.log.Info(ctx, "starting MCP OAuth authorization flow", "server", p.serverName, "resource", resource)

	verifier := oauth2.GenerateVerifier()
	state, err := generateStateToken()
	if err != nil {
		return "", fmt.Errorf("mcpauth: generate state token: %w", err)
	}
	challenge := oauth2.S256ChallengeFromVerifier(verifier)

	values := url.Values{
		"response_type":         {"code"},
		"client_id":             {config.clientID},
		"redirect_uri":          {config.redirectURI},
		"state":                 {state},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	}
	if len(config.scopes) > 0 {
		values.Set("scope", strings.Join(config.scopes, " "))
	}
	if config.resource != "" {
		values.Set("resource", config.resource)
	}

	authReqURL := config.authURL
	if strings.Contains(authReqURL, "?") {
		authReqURL += "&" + values.Encode()
	} else {
		authReqURL += "?" + values.Encode()
	}

	p.mu.Lock()
	p.pending = &pendingFlow{state: state, verifier: verifier, config: config, authURL: authReqURL}
	p.state = StateAwaitingBrowser
	p.mu.Unlock()

	p.log.Info(ctx, "MCP OAuth authorization URL prepared", "server", p.serverName, "authUrl", authReqURL)
	return authReqURL, nil
}

func (p *OAuthProvider) CompleteOAuth(ctx context.Context, state, code string) (bool, error) {
	p.mu.Lock()
	if p.pending == nil || p.pending.state != state {
		p.mu.Unlock()
		return false, nil
	}
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {pending.config.redirectURI},
		"client_id":     {pending.config.clientID},
		"code_verifier": {pending.verifier},
	}
	if pending.config.resource != "" {
		form.Set("resource", pending.config.resource)
	}

	tokens, err := postTokenForm(ctx, p.httpClient, pending.config.tokenURL, form)
	if err != nil {
		p.setState(StateFailed)
		p.log.Warn(ctx, "MCP OAuth callback completion failed", "server", p.serverName, "error", err)
		return false, fmt.Errorf("mcpauth: OAuth token exchange failed: %w", err)
	}

	if err := p.tokenStore.Save(p.storeKey(), tokens); err != nil {
		p.setState(StateFailed)
		return false, fmt.Errorf("mcpauth: save token: %w", err)
	}

	p.mu.Lock()
	p.cachedToken = &tokens
	p.state = StateAuthenticated
	p.mu.Unlock()

	p.log.Info(ctx, "MCP OAuth authentication complete", "server", p.serverName)
	return true, nil
}

// originURL strips the path, query, and fragment from u, leaving scheme and
// authority.
func originURL(u *url.URL) *url.URL {
	origin := *u
	origin.Path = "/"
	origin.RawQuery = ""
	origin.Fragment = ""
	return &origin
}

// originResource builds an RFC 8707 resource indicator from a server URL's
// origin: scheme + host (+ explicit port), no path/query/fragment.
func originResource(u *url.URL) string {
	if u.Port() != "" {
		return fmt.Sprintf("%s://%s:%s", u.Scheme, u.Hostname(), u.Port())
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Hostname())
}

// discoverAndRegister resolves the OAuth endpoints for this server, trying
// the server's full URL first (path-aware) and falling back to its origin,
// then performs (or reuses) dynamic client registration.
func (p *OAuthProvider) discoverAndRegister(ctx context.Context, wwwAuthenticate, redirectURI string) (clientID, authEndpoint, tokenEndpoint string, scopes []string, resource string, err error) {
	serverURL, err := url.Parse(p.serverURL)
	if err != nil {
		return "", "", "", nil, "", fmt.Errorf("mcpauth: invalid MCP server URL %q: %w", p.serverURL, err)
	}
	origin := originURL(serverURL)
	hasPath := serverURL.Path != "/" && serverURL.Path != ""

	var resMeta protectedResourceMetadata
	var resMetaErr error
	if metaURLStr, ok := parseWWWAuthenticate(wwwAuthenticate); ok {
		metaURL, perr := url.Parse(metaURLStr)
		if perr != nil {
			return "", "", "", nil, "", fmt.Errorf("mcpauth: invalid resource_metadata URL in WWW-Authenticate header: %w", perr)
		}
		resMeta, resMetaErr = fetchResourceMetadataAt(p.httpClient, metaURL)
	} else {
		resMeta, resMetaErr = fetchResourceMetadata(p.httpClient, serverURL)
		if resMetaErr != nil && hasPath {
			p.log.Debug(ctx, "resource metadata unavailable at path-aware URL, trying origin", "server", p.serverName)
			if fallback, ferr := fetchResourceMetadata(p.httpClient, origin); ferr == nil {
				resMeta, resMetaErr = fallback, nil
			}
		}
	}

	var asMeta authServerMetadata
	if resMetaErr == nil {
		resource = resMeta.Resource
		asURL, perr := url.Parse(resMeta.AuthorizationServers[0])
		if perr != nil {
			return "", "", "", nil, "", fmt.Errorf("mcpauth: invalid authorization server URL %q: %w", resMeta.AuthorizationServers[0], perr)
		}
		asMeta, err = fetchASMetadata(p.httpClient, asURL)
		if err != nil {
			return "", "", "", nil, "", err
		}
	} else {
		p.log.Debug(ctx, "RFC 9728 resource metadata unavailable, trying RFC 8414", "server", p.serverName, "error", resMetaErr)
		asMeta, err = fetchASMetadata(p.httpClient, serverURL)
		if err != nil && hasPath {
			p.log.Debug(ctx, "AS metadata unavailable at path-aware URL, trying origin", "server", p.serverName)
			asMeta, err = fetchASMetadata(p.httpClient, origin)
			if err != nil {
				p.discoveryWarnGuard.Do(func() {
					p.log.Warn(ctx, "OAuth discovery failing repeatedly", "server", p.serverName, "error", err)
				})
				return "", "", "", nil, "", fmt.Errorf("mcpauth: AS metadata unavailable at both %s and %s: %w", serverURL, origin, err)
			}
		} else if err != nil {
			p.discoveryWarnGuard.Do(func() {
				p.log.Warn(ctx, "OAuth discovery failing repeatedly", "server", p.serverName, "error", err)
			})
			return "", "", "", nil, "", err
		}
		// Resource metadata unavailable: fall back to origin as the
		// resource indicator to avoid path-scoped audience mismatches.
		resource = originResource(serverURL)
	}

	if reg, ok := p.registrationStore.Load(p.serverURL); ok {
		p.log.Debug(ctx, "reusing cached dynamic registration", "server", p.serverName, "clientId", reg.ClientID)
		return reg.ClientID, asMeta.AuthorizationEndpoint, asMeta.TokenEndpoint, asMeta.ScopesSupported, resource, nil
	}

	if asMeta.RegistrationEndpoint == nil {
		return "", "", "", nil, "", fmt.Errorf("mcpauth: AS does not support dynamic client registration and no client_id configured")
	}

	reg, err := registerClient(p.httpClient, *asMeta.RegistrationEndpoint, []string{redirectURI}, fmt.Sprintf("moltis (%s)", p.serverName))
	if err != nil {
		return "", "", "", nil, "", err
	}

	stored := StoredRegistration{
		ClientID:              reg.ClientID,
		ClientSecret:          reg.ClientSecret,
		AuthorizationEndpoint: asMeta.AuthorizationEndpoint,
		TokenEndpoint:         asMeta.TokenEndpoint,
		Resource:              resource,
		RegisteredAt:          time.Now().Unix(),
	}
	if err := p.registrationStore.Save(p.serverURL, stored); err != nil {
		return "", "", "", nil, "", fmt.Errorf("mcpauth: save registration: %w", err)
	}

	return reg.ClientID, asMeta.AuthorizationEndpoint, asMeta.TokenEndpoint, asMeta.ScopesSupported, resource, nil
}

func generateStateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

func postTokenForm(ctx context.Context, client *http.Client, tokenURL string, form url.Values) (OAuthTokens, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return OAuthTokens{}, fmt.Errorf("mcpauth: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return OAuthTokens{}, fmt.Errorf("mcpauth: token request to %s: %w", tokenURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return OAuthTokens{}, fmt.Errorf("mcpauth: token endpoint %s returned status %d", tokenURL, resp.StatusCode)
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return OAuthTokens{}, fmt.Errorf("mcpauth: decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return OAuthTokens{}, fmt.Errorf("mcpauth: token response missing access_token")
	}

	tokens := OAuthTokens{AccessToken: parsed.AccessToken}
	if parsed.RefreshToken != "" {
		tokens.RefreshToken = &parsed.RefreshToken
	}
	if parsed.IDToken != "" {
		tokens.IDToken = &parsed.IDToken
	}
	if parsed.ExpiresIn > 0 {
		exp := time.Now().Unix() + parsed.ExpiresIn
		tokens.ExpiresAt = &exp
	}
	return tokens, nil
}
