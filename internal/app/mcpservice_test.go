package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltis-ai/moltis/internal/mcpauth"
	"github.com/moltis-ai/moltis/internal/services"
)

func newTestMcpService() *McpService {
	return NewMcpService(mcpauth.NewMemoryTokenStore(), mcpauth.NewMemoryRegistrationStore())
}

func TestMcpAddThenListIncludesServer(t *testing.T) {
	svc := newTestMcpService()
	_, err := svc.Add(context.Background(), map[string]any{"name": "demo", "url": "https://mcp.example.com"})
	require.NoError(t, err)

	res, err := svc.List(context.Background())
	require.NoError(t, err)
	servers := res.(map[string]any)["servers"].([]map[string]any)
	require.Len(t, servers, 1)
	assert.Equal(t, "demo", servers[0]["name"])
}

func TestMcpAddDuplicateNameFails(t *testing.T) {
	svc := newTestMcpService()
	_, err := svc.Add(context.Background(), map[string]any{"name": "demo", "url": "https://mcp.example.com"})
	require.NoError(t, err)

	_, err = svc.Add(context.Background(), map[string]any{"name": "demo", "url": "https://other.example.com"})
	require.Error(t, err)
	var svcErr *services.Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, services.CodeInvalid, svcErr.Code)
}

func TestMcpRemoveUnknownServerFails(t *testing.T) {
	svc := newTestMcpService()
	_, err := svc.Remove(context.Background(), map[string]any{"name": "missing"})
	require.Error(t, err)
	var svcErr *services.Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, services.CodeNotFound, svcErr.Code)
}

func TestMcpEnableDisableTogglesServer(t *testing.T) {
	svc := newTestMcpService()
	_, err := svc.Add(context.Background(), map[string]any{"name": "demo", "url": "https://mcp.example.com"})
	require.NoError(t, err)

	_, err = svc.Disable(context.Background(), map[string]any{"name": "demo"})
	require.NoError(t, err)
	assert.False(t, svc.servers["demo"].Enabled)

	_, err = svc.Enable(context.Background(), map[string]any{"name": "demo"})
	require.NoError(t, err)
	assert.True(t, svc.servers["demo"].Enabled)
}

func TestMcpToolsReturnsUnavailable(t *testing.T) {
	svc := newTestMcpService()
	_, err := svc.Add(context.Background(), map[string]any{"name": "demo", "url": "https://mcp.example.com"})
	require.NoError(t, err)

	_, err = svc.Tools(context.Background(), map[string]any{"name": "demo"})
	require.Error(t, err)
	var svcErr *services.Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, services.CodeUnavailable, svcErr.Code)
}

func TestMcpStatusReportsAuthState(t *testing.T) {
	svc := newTestMcpService()
	_, err := svc.Add(context.Background(), map[string]any{"name": "demo", "url": "https://mcp.example.com"})
	require.NoError(t, err)

	res, err := svc.Status(context.Background(), map[string]any{"name": "demo"})
	require.NoError(t, err)
	status := res.(map[string]any)
	assert.Equal(t, "demo", status["name"])
	assert.Equal(t, string(mcpauth.StateNotRequired), status["authState"])
}

func TestMcpUpdateRebuildsProviderOnURLChange(t *testing.T) {
	svc := newTestMcpService()
	_, err := svc.Add(context.Background(), map[string]any{"name": "demo", "url": "https://mcp.example.com"})
	require.NoError(t, err)
	original := svc.servers["demo"].provider

	_, err = svc.Update(context.Background(), map[string]any{"name": "demo", "url": "https://new.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://new.example.com", svc.servers["demo"].URL)
	assert.NotSame(t, original, svc.servers["demo"].provider)
}
