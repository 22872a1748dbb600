package mcpauth

import "time"

// OAuthTokens is a server's cached or persisted token set.
type OAuthTokens struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken *string `json:"refreshToken,omitempty"`
	IDToken      *string `json:"idToken,omitempty"`
	AccountID    *string `json:"accountId,omitempty"`
	// ExpiresAt is epoch seconds; nil means the token never expires.
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}

// expired reports whether tokens should be treated as expired, applying a
// 60-second safety buffer so a token doesn't go stale mid-request.
func (t OAuthTokens) expired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return now.Unix()+60 >= *t.ExpiresAt
}

// StoredRegistration is a persisted dynamic client registration.
type StoredRegistration struct {
	ClientID              string  `json:"clientId"`
	ClientSecret          *string `json:"clientSecret,omitempty"`
	AuthorizationEndpoint string  `json:"authorizationEndpoint"`
	TokenEndpoint         string  `json:"tokenEndpoint"`
	Resource              string  `json:"resource"`
	RegisteredAt          int64   `json:"registeredAt"`
}

// McpOAuthOverride is a manually configured OAuth client that skips
// discovery and dynamic registration entirely (e.g. supplied via a config
// file for a server whose operator has already registered a static client).
type McpOAuthOverride struct {
	ClientID string
	AuthURL  string
	TokenURL string
	Scopes   []string
}

// pendingFlow tracks an in-flight authorization-code request awaiting its
// callback.
type pendingFlow struct {
	state    string
	verifier string
	config   oauthFlowConfig
	authURL  string
}

// oauthFlowConfig is the resolved set of endpoints and client identity used
// to run one authorization-code exchange.
type oauthFlowConfig struct {
	clientID     string
	clientSecret string
	authURL      string
	tokenURL     string
	redirectURI  string
	resource     string
	scopes       []string
}

// protectedResourceMetadata is the RFC 9728 well-known document.
type protectedResourceMetadata struct {
	Resource              string   `json:"resource"`
	AuthorizationServers  []string `json:"authorization_servers"`
}

// authServerMetadata is the RFC 8414 well-known document.
type authServerMetadata struct {
	Issuer                string   `json:"issuer"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	RegistrationEndpoint  *string  `json:"registration_endpoint,omitempty"`
	ScopesSupported       []string `json:"scopes_supported"`
}

// registeredClient is the RFC 7591 dynamic client registration response.
type registeredClient struct {
	ClientID     string   `json:"client_id"`
	ClientSecret *string  `json:"client_secret,omitempty"`
	RedirectURIs []string `json:"redirect_uris"`
}
