package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/models"
)

func TestNewManager(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Servers: []*ServerConfig{
			{ID: "server1", Name: "Server 1", Transport: TransportStdio, Command: "echo"},
		},
	}

	mgr := NewManager(cfg, nil)
	require.NotNil(t, mgr)
}

func TestNewManagerNilConfig(t *testing.T) {
	mgr := NewManager(nil, nil)
	require.NotNil(t, mgr)
}

func TestNewManagerNilLogger(t *testing.T) {
	cfg := &Config{Enabled: true}
	mgr := NewManager(cfg, nil)
	require.NotNil(t, mgr)
}

func TestManagerStartDisabled(t *testing.T) {
	cfg := &Config{Enabled: false}
	mgr := NewManager(cfg, slog.Default())

	require.NoError(t, mgr.Start(context.Background()))
}

func TestManagerStop(t *testing.T) {
	cfg := &Config{Enabled: true}
	mgr := NewManager(cfg, slog.Default())

	require.NoError(t, mgr.Stop())
}

func TestManagerConnectServerNotFound(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Servers: []*ServerConfig{},
	}
	mgr := NewManager(cfg, slog.Default())

	err := mgr.Connect(context.Background(), "nonexistent")
	require.Error(t, err)
}

func TestManagerDisconnectNotConnected(t *testing.T) {
	cfg := &Config{Enabled: true}
	mgr := NewManager(cfg, slog.Default())

	require.NoError(t, mgr.Disconnect("server1"))
}

func TestManagerClientNotFound(t *testing.T) {
	cfg := &Config{Enabled: true}
	mgr := NewManager(cfg, slog.Default())

	client, exists := mgr.Client("nonexistent")
	require.False(t, exists)
	require.Nil(t, client)
}

func TestManagerClients(t *testing.T) {
	cfg := &Config{Enabled: true}
	mgr := NewManager(cfg, slog.Default())

	clients := mgr.Clients()
	require.NotNil(t, clients)
	require.Empty(t, clients)
}

func TestManagerAllToolSpecsEmpty(t *testing.T) {
	cfg := &Config{Enabled: true}
	mgr := NewManager(cfg, slog.Default())

	require.Empty(t, mgr.AllToolSpecs())
}

func TestManagerAllPromptSpecsEmpty(t *testing.T) {
	cfg := &Config{Enabled: true}
	mgr := NewManager(cfg, slog.Default())

	require.Empty(t, mgr.AllPromptSpecs())
}

func TestManagerLaunchMetadataEmpty(t *testing.T) {
	cfg := &Config{Enabled: true}
	mgr := NewManager(cfg, slog.Default())

	require.Empty(t, mgr.LaunchMetadata())
}

func TestManagerCallToolUnqualifiedName(t *testing.T) {
	cfg := &Config{Enabled: true}
	mgr := NewManager(cfg, slog.Default())

	_, err := mgr.CallTool(context.Background(), "search", nil)
	require.Error(t, err)
}

func TestManagerCallToolServerNotConnected(t *testing.T) {
	cfg := &Config{Enabled: true}
	mgr := NewManager(cfg, slog.Default())

	_, err := mgr.CallTool(context.Background(), "server1___tool1", nil)
	require.Error(t, err)
}

func TestManagerGetPromptServerNotConnected(t *testing.T) {
	cfg := &Config{Enabled: true}
	mgr := NewManager(cfg, slog.Default())

	_, err := mgr.GetPrompt(context.Background(), "server1", "prompt1", nil)
	require.Error(t, err)
}

func TestManagerStatus(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Servers: []*ServerConfig{
			{ID: "server1", Name: "Server 1"},
			{ID: "server2", Name: "Server 2"},
		},
	}
	mgr := NewManager(cfg, slog.Default())

	statuses := mgr.Status()
	require.Len(t, statuses, 2)

	for _, status := range statuses {
		require.False(t, status.Connected)
	}
}

func TestSplitQualifiedName(t *testing.T) {
	serverID, tool := splitQualifiedName("fs___read_file")
	require.Equal(t, "fs", serverID)
	require.Equal(t, "read_file", tool)

	serverID, tool = splitQualifiedName("read_file")
	require.Equal(t, "", serverID)
	require.Equal(t, "read_file", tool)
}

func TestServerStatusJSONRoundTrip(t *testing.T) {
	launch := models.LaunchMetadata{ServerID: "server1", LaunchDurationMS: 12}
	status := ServerStatus{
		ID:        "server1",
		Name:      "Server 1",
		Connected: true,
		Server:    ServerInfo{Name: "MCP Server", Version: "1.0.0"},
		Tools:     5,
		Prompts:   2,
		Launch:    &launch,
	}

	data, err := json.Marshal(status)
	require.NoError(t, err)

	var decoded ServerStatus
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, status.ID, decoded.ID)
	require.Equal(t, status.Connected, decoded.Connected)
	require.Equal(t, status.Tools, decoded.Tools)
	require.Equal(t, status.Launch.ServerID, decoded.Launch.ServerID)
}
