package mcpauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestOriginURLStripsPath(t *testing.T) {
	u := originURL(mustParse(t, "https://example.com/a/b/c?x=1#frag"))
	assert.Equal(t, "https://example.com/", u.String())
}

func TestOriginURLPreservesPort(t *testing.T) {
	u := originURL(mustParse(t, "https://example.com:8443/a/b"))
	assert.Equal(t, "https://example.com:8443/", u.String())
}

func TestOriginURLRootUnchanged(t *testing.T) {
	u := originURL(mustParse(t, "https://example.com/"))
	assert.Equal(t, "https://example.com/", u.String())
}

func TestOriginURLStripsQueryAndFragment(t *testing.T) {
	u := originURL(mustParse(t, "https://example.com?x=1#frag"))
	assert.Empty(t, u.RawQuery)
	assert.Empty(t, u.Fragment)
}

func TestOriginResourceStripsPathAndTrailingSlash(t *testing.T) {
	r := originResource(mustParse(t, "https://example.com/mcp/server"))
	assert.Equal(t, "https://example.com", r)
}

func TestOriginResourcePreservesExplicitPort(t *testing.T) {
	r := originResource(mustParse(t, "https://example.com:9000/mcp"))
	assert.Equal(t, "https://example.com:9000", r)
}

func TestAuthStateSerialization(t *testing.T) {
	cases := map[State]string{
		StateNotRequired:     `"not_required"`,
		StateAwaitingBrowser: `"awaiting_browser"`,
		StateAuthenticated:   `"authenticated"`,
		StateFailed:          `"failed"`,
	}
	for state, want := range cases {
		data, err := json.Marshal(state)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestNoAuthProviderReturnsNone(t *testing.T) {
	p := NoAuthProvider{}
	ctx := context.Background()

	token, ok, err := p.AccessToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)

	retry, err := p.HandleUnauthorized(ctx, "")
	require.NoError(t, err)
	assert.False(t, retry)

	authURL, err := p.StartOAuth(ctx, "http://localhost/callback", "")
	require.NoError(t, err)
	assert.Empty(t, authURL)

	ok, err = p.CompleteOAuth(ctx, "state", "code")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok = p.PendingAuthURL()
	assert.False(t, ok)

	assert.Equal(t, StateNotRequired, p.AuthState())
}

func TestTokenExpiryCheck(t *testing.T) {
	now := time.Now()

	expired := int64(now.Add(-time.Hour).Unix())
	nearExpiry := int64(now.Add(30 * time.Second).Unix())
	farFromExpiry := int64(now.Add(time.Hour).Unix())

	assert.True(t, OAuthTokens{ExpiresAt: &expired}.expired(now))
	assert.True(t, OAuthTokens{ExpiresAt: &nearExpiry}.expired(now), "within the 60s buffer should count as expired")
	assert.False(t, OAuthTokens{ExpiresAt: &farFromExpiry}.expired(now))
	assert.False(t, OAuthTokens{}.expired(now), "no expiry information means never expired")
}

func TestStoreKeyFormat(t *testing.T) {
	p := NewOAuthProvider("my-server", "https://example.com/mcp", NewMemoryTokenStore(), NewMemoryRegistrationStore())
	assert.Equal(t, "mcp:my-server", p.storeKey())
}

func TestProviderLoadsFromStore(t *testing.T) {
	tokenStore := NewMemoryTokenStore()
	regStore := NewMemoryRegistrationStore()
	p := NewOAuthProvider("my-server", "https://example.com/mcp", tokenStore, regStore)

	future := time.Now().Add(time.Hour).Unix()
	require.NoError(t, tokenStore.Save(p.storeKey(), OAuthTokens{AccessToken: "abc123", ExpiresAt: &future}))

	token, ok, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)
	assert.Equal(t, StateAuthenticated, p.AuthState())
}

func TestProviderReturnsNoneForEmptyStore(t *testing.T) {
	p := NewOAuthProvider("my-server", "https://example.com/mcp", NewMemoryTokenStore(), NewMemoryRegistrationStore())

	token, ok, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestProviderReturnsNoneForExpiredTokenNoRefresh(t *testing.T) {
	tokenStore := NewMemoryTokenStore()
	regStore := NewMemoryRegistrationStore()
	p := NewOAuthProvider("my-server", "https://example.com/mcp", tokenStore, regStore)

	past := time.Now().Add(-time.Hour).Unix()
	require.NoError(t, tokenStore.Save(p.storeKey(), OAuthTokens{AccessToken: "stale", ExpiresAt: &past}))

	token, ok, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)
}

// discoveryFixture wires a resource-metadata + AS-metadata + registration +
// token endpoint behind one httptest.Server, mirroring the mocked Rust
// discovery tests.
type discoveryFixture struct {
	server           *httptest.Server
	resourceAttempts int
	registerCalls    []map[string]any
}

func newDiscoveryFixture(t *testing.T, resourcePath string) *discoveryFixture {
	t.Helper()
	f := &discoveryFixture{}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/oauth-protected-resource"+resourcePath, func(w http.ResponseWriter, r *http.Request) {
		f.resourceAttempts++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(protectedResourceMetadata{
			Resource:             "https://example.com" + resourcePath,
			AuthorizationServers: []string{f.server.URL},
		})
	})
	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		reg := f.server.URL + "/register"
		_ = json.NewEncoder(w).Encode(authServerMetadata{
			Issuer:                f.server.URL,
			AuthorizationEndpoint: f.server.URL + "/authorize",
			TokenEndpoint:         f.server.URL + "/token",
			RegistrationEndpoint:  &reg,
			ScopesSupported:       []string{"mcp"},
		})
	})
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.registerCalls = append(f.registerCalls, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(registeredClient{
			ClientID:     "dynamic-client-id",
			RedirectURIs: []string{"http://127.0.0.1:4000/callback"},
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.FormValue("grant_type") {
		case "authorization_code":
			require.NotEmpty(t, r.FormValue("code_verifier"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "fresh-access-token",
				"refresh_token": "fresh-refresh-token",
				"expires_in":    3600,
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func TestDiscoveryFallsBackToOriginASMetadataForPathURL(t *testing.T) {
	// Resource metadata is served only under an unrelated path, so both the
	// path-aware and the origin protected-resource lookups 404 and discovery
	// has to fall back to AS metadata at the origin.
	f := newDiscoveryFixture(t, "/unrelated")

	tokenStore := NewMemoryTokenStore()
	regStore := NewMemoryRegistrationStore()
	serverURL := f.server.URL + "/mcp/deep/path"
	p := NewOAuthProvider("path-server", serverURL, tokenStore, regStore)

	clientID, authEndpoint, tokenEndpoint, _, resource, err := p.discoverAndRegister(context.Background(), "", "http://127.0.0.1:4000/callback")
	require.NoError(t, err)
	assert.Equal(t, "dynamic-client-id", clientID)
	assert.Equal(t, f.server.URL+"/authorize", authEndpoint)
	assert.Equal(t, f.server.URL+"/token", tokenEndpoint)
	assert.Equal(t, f.server.URL, resource)
}

func TestDynamicRegistrationUsesExactRedirectURI(t *testing.T) {
	f := newDiscoveryFixture(t, "/mcp")

	tokenStore := NewMemoryTokenStore()
	regStore := NewMemoryRegistrationStore()
	serverURL := f.server.URL + "/mcp"
	p := NewOAuthProvider("exact-redirect-server", serverURL, tokenStore, regStore)

	const redirectURI = "http://127.0.0.1:53214/callback"
	_, _, _, _, _, err := p.discoverAndRegister(context.Background(), "", redirectURI)
	require.NoError(t, err)

	require.Len(t, f.registerCalls, 1)
	uris, ok := f.registerCalls[0]["redirect_uris"].([]any)
	require.True(t, ok)
	require.Len(t, uris, 1)
	assert.Equal(t, redirectURI, uris[0])

	reg, found := regStore.Load(serverURL)
	require.True(t, found)
	assert.Equal(t, "dynamic-client-id", reg.ClientID)
}

func TestStartAndCompleteOAuthFlow(t *testing.T) {
	f := newDiscoveryFixture(t, "")

	tokenStore := NewMemoryTokenStore()
	regStore := NewMemoryRegistrationStore()
	p := NewOAuthProvider("flow-server", f.server.URL, tokenStore, regStore)

	authURL, err := p.StartOAuth(context.Background(), "http://127.0.0.1:9999/callback", "")
	require.NoError(t, err)
	require.NotEmpty(t, authURL)
	assert.Equal(t, StateAwaitingBrowser, p.AuthState())

	pendingURL, ok := p.PendingAuthURL()
	require.True(t, ok)
	assert.Equal(t, authURL, pendingURL)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	ok, err = p.CompleteOAuth(context.Background(), "wrong-state", "code")
	require.NoError(t, err)
	assert.False(t, ok, "mismatched state must not consume the pending flow")

	_, stillPending := p.PendingAuthURL()
	assert.True(t, stillPending)

	ok, err = p.CompleteOAuth(context.Background(), state, "good-code")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StateAuthenticated, p.AuthState())

	token, hasToken, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.True(t, hasToken)
	assert.Equal(t, "fresh-access-token", token)
}

func TestHandleUnauthorizedClearsTokenAndRecordsHeader(t *testing.T) {
	tokenStore := NewMemoryTokenStore()
	regStore := NewMemoryRegistrationStore()
	p := NewOAuthProvider("unauth-server", "https://example.com/mcp", tokenStore, regStore)

	future := time.Now().Add(time.Hour).Unix()
	require.NoError(t, tokenStore.Save(p.storeKey(), OAuthTokens{AccessToken: "will-be-cleared", ExpiresAt: &future}))
	_, _, err := p.AccessToken(context.Background())
	require.NoError(t, err)

	retry, err := p.HandleUnauthorized(context.Background(), `Bearer resource_metadata="https://example.com/.well-known/oauth-protected-resource"`)
	require.NoError(t, err)
	assert.False(t, retry)
	assert.Equal(t, StateFailed, p.AuthState())

	p.mu.RLock()
	cached := p.cachedToken
	header := p.lastWWWAuthenticate
	p.mu.RUnlock()
	assert.Nil(t, cached)
	assert.Contains(t, header, "resource_metadata")
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := fmt.Sprintf("%s/tokens.json", t.TempDir())
	store := NewFileTokenStore(path)

	_, ok := store.Load("mcp:server")
	assert.False(t, ok)

	exp := time.Now().Add(time.Hour).Unix()
	require.NoError(t, store.Save("mcp:server", OAuthTokens{AccessToken: "tok", ExpiresAt: &exp}))

	loaded, ok := store.Load("mcp:server")
	require.True(t, ok)
	assert.Equal(t, "tok", loaded.AccessToken)
}

func TestFileRegistrationStoreDeleteForcesReregistration(t *testing.T) {
	path := fmt.Sprintf("%s/registrations.json", t.TempDir())
	store := NewFileRegistrationStore(path)

	require.NoError(t, store.Save("https://example.com/mcp", StoredRegistration{ClientID: "abc"}))
	_, ok := store.Load("https://example.com/mcp")
	require.True(t, ok)

	store.Delete("https://example.com/mcp")
	_, ok = store.Load("https://example.com/mcp")
	assert.False(t, ok)
}
