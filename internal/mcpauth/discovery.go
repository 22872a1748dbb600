package mcpauth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var wwwAuthenticateResourceMetadata = regexp.MustCompile(`resource_metadata="([^"]+)"`)

// parseWWWAuthenticate extracts the resource_metadata URL parameter from a
// WWW-Authenticate header, if present.
func parseWWWAuthenticate(header string) (string, bool) {
	m := wwwAuthenticateResourceMetadata.FindStringSubmatch(header)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func newDiscoveryClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// fetchResourceMetadata fetches RFC 9728 protected-resource metadata from
// base's /.well-known/oauth-protected-resource endpoint (preserving base's
// path per the spec's path-aware discovery rule).
func fetchResourceMetadata(client *http.Client, base *url.URL) (protectedResourceMetadata, error) {
	wellKnown := wellKnownURL(base, "oauth-protected-resource")
	var meta protectedResourceMetadata
	if err := getJSON(client, wellKnown, &meta); err != nil {
		return protectedResourceMetadata{}, err
	}
	if len(meta.AuthorizationServers) == 0 {
		return protectedResourceMetadata{}, fmt.Errorf("mcpauth: no authorization_servers in protected resource metadata from %s", wellKnown)
	}
	return meta, nil
}

// fetchResourceMetadataAt fetches protected-resource metadata from an
// explicit URL taken from a WWW-Authenticate header.
func fetchResourceMetadataAt(client *http.Client, metaURL *url.URL) (protectedResourceMetadata, error) {
	var meta protectedResourceMetadata
	if err := getJSON(client, metaURL.String(), &meta); err != nil {
		return protectedResourceMetadata{}, err
	}
	if len(meta.AuthorizationServers) == 0 {
		return protectedResourceMetadata{}, fmt.Errorf("mcpauth: no authorization_servers in protected resource metadata from %s", metaURL)
	}
	return meta, nil
}

// fetchASMetadata fetches RFC 8414 authorization-server metadata from
// base's /.well-known/oauth-authorization-server endpoint.
func fetchASMetadata(client *http.Client, base *url.URL) (authServerMetadata, error) {
	wellKnown := wellKnownURL(base, "oauth-authorization-server")
	var meta authServerMetadata
	if err := getJSON(client, wellKnown, &meta); err != nil {
		return authServerMetadata{}, err
	}
	return meta, nil
}

func wellKnownURL(base *url.URL, name string) string {
	trimmedPath := strings.TrimSuffix(base.Path, "/")
	u := *base
	u.Path = "/.well-known/" + name + trimmedPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func getJSON(client *http.Client, target string, out any) error {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("mcpauth: build request for %s: %w", target, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("mcpauth: fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mcpauth: %s returned status %d", target, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mcpauth: decode response from %s: %w", target, err)
	}
	return nil
}

// registerClient performs RFC 7591 dynamic client registration, requesting
// exactly redirectURIs so providers that reject port-agnostic loopback
// registrations still accept this client.
func registerClient(client *http.Client, endpoint string, redirectURIs []string, clientName string) (registeredClient, error) {
	body, err := json.Marshal(map[string]any{
		"redirect_uris":              redirectURIs,
		"client_name":                clientName,
		"token_endpoint_auth_method": "none",
		"grant_types":                []string{"authorization_code", "refresh_token"},
		"response_types":             []string{"code"},
	})
	if err != nil {
		return registeredClient{}, fmt.Errorf("mcpauth: encode registration request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return registeredClient{}, fmt.Errorf("mcpauth: build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return registeredClient{}, fmt.Errorf("mcpauth: dynamic client registration at %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return registeredClient{}, fmt.Errorf("mcpauth: dynamic client registration at %s returned status %d", endpoint, resp.StatusCode)
	}

	var reg registeredClient
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		return registeredClient{}, fmt.Errorf("mcpauth: decode registration response: %w", err)
	}
	return reg, nil
}
