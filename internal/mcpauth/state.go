// Package mcpauth implements the OAuth 2.1 + PKCE client used to
// authenticate outbound requests to MCP servers: RFC 9728 protected-resource
// discovery, RFC 8414 authorization-server discovery, RFC 7591 dynamic
// client registration, and RFC 8707 resource indicators.
package mcpauth

// State is the observable authentication state of one MCP server's
// Provider.
type State string

const (
	// StateNotRequired means no authentication required, or not yet
	// attempted.
	StateNotRequired State = "not_required"
	// StateAwaitingBrowser means a browser auth URL was prepared and the
	// caller is waiting for the OAuth callback to complete.
	StateAwaitingBrowser State = "awaiting_browser"
	// StateAuthenticated means a valid access token is available.
	StateAuthenticated State = "authenticated"
	// StateFailed means the last authentication attempt failed.
	StateFailed State = "failed"
)
