package mcpauth

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genHost() gopter.Gen {
	return gen.OneConstOf("example.com", "mcp.internal", "localhost", "a.b.example.org")
}

func genPath() gopter.Gen {
	return gen.OneConstOf("", "/", "/mcp", "/mcp/server", "/a/b/c")
}

// TestOriginURLAndResourceProperty generalizes the table tests in
// oauth_provider_test.go: for any https host/port/path combination,
// originURL always strips to a bare "/" path with no query or fragment, and
// originResource is stable under re-parsing and never carries a query,
// fragment, or trailing slash.
func TestOriginURLAndResourceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("originURL always reduces to scheme://host[:port]/", prop.ForAll(
		func(host string, port int, path string) bool {
			raw := fmt.Sprintf("https://%s:%d%s?x=1#frag", host, port, path)
			u, err := url.Parse(raw)
			if err != nil {
				return true
			}
			origin := originURL(u)
			return origin.Path == "/" && origin.RawQuery == "" && origin.Fragment == "" &&
				origin.Scheme == u.Scheme && origin.Host == u.Host
		},
		genHost(),
		gen.IntRange(1, 65535),
		genPath(),
	))

	properties.Property("originResource is idempotent under re-parsing", prop.ForAll(
		func(host string, port int, path string) bool {
			raw := fmt.Sprintf("https://%s:%d%s", host, port, path)
			u, err := url.Parse(raw)
			if err != nil {
				return true
			}
			resource := originResource(u)
			reparsed, err := url.Parse(resource)
			if err != nil {
				return false
			}
			return originResource(reparsed) == resource
		},
		genHost(),
		gen.IntRange(1, 65535),
		genPath(),
	))

	properties.Property("originResource never carries a query, fragment, or trailing slash", prop.ForAll(
		func(host string, port int, path string) bool {
			raw := fmt.Sprintf("https://%s:%d%s?x=1#frag", host, port, path)
			u, err := url.Parse(raw)
			if err != nil {
				return true
			}
			resource := originResource(u)
			return !containsAny(resource, "?", "#") && resource[len(resource)-1] != '/'
		},
		genHost(),
		gen.IntRange(1, 65535),
		genPath(),
	))

	properties.TestingRun(t)
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if sub == "" {
			continue
		}
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
	}
	return false
}
