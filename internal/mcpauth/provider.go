package mcpauth

import "context"

// Provider supplies OAuth tokens for authenticating MCP HTTP requests and
// drives the browser-callback-completed authorization flow.
type Provider interface {
	// AccessToken returns a valid access token, refreshing if necessary.
	// Returns ("", false, nil) if no token is available and auth hasn't
	// been initiated.
	AccessToken(ctx context.Context) (string, bool, error)

	// HandleUnauthorized reacts to a 401 response, clearing cached state
	// and recording the WWW-Authenticate header (if any) for the next
	// StartOAuth call. Returns whether the request should be retried
	// (always false: the server process never launches a browser itself).
	HandleUnauthorized(ctx context.Context, wwwAuthenticate string) (bool, error)

	// StartOAuth begins an authorization flow for redirectURI and returns
	// the URL the caller should open in a browser, or ("", nil) if this
	// provider needs no authentication.
	StartOAuth(ctx context.Context, redirectURI, wwwAuthenticate string) (string, error)

	// CompleteOAuth finishes a pending flow matching state with the given
	// authorization code. Returns false if no pending flow matches state
	// (the pending flow is left untouched so a retry with the correct
	// state can still succeed).
	CompleteOAuth(ctx context.Context, state, code string) (bool, error)

	// PendingAuthURL returns the in-flight authorization URL, if any.
	PendingAuthURL() (string, bool)

	// AuthState returns the current authentication state.
	AuthState() State
}

// NoAuthProvider is a Provider for MCP servers that need no authentication.
type NoAuthProvider struct{}

func (NoAuthProvider) AccessToken(ctx context.Context) (string, bool, error) { return "", false, nil }

func (NoAuthProvider) HandleUnauthorized(ctx context.Context, wwwAuthenticate string) (bool, error) {
	return false, nil
}

func (NoAuthProvider) StartOAuth(ctx context.Context, redirectURI, wwwAuthenticate string) (string, error) {
	return "", nil
}

func (NoAuthProvider) CompleteOAuth(ctx context.Context, state, code string) (bool, error) {
	return false, nil
}

func (NoAuthProvider) PendingAuthURL() (string, bool) { return "", false }

func (NoAuthProvider) AuthState() State { return StateNotRequired }
