package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/agentcore/runtime/pkg/models"
)

// Manager launches and supervises one Client per configured server and
// exposes a consolidated, qualified-name tool/prompt registry (spec.md
// §4.4, §3).
type Manager struct {
	config  *Config
	logger  *slog.Logger
	clients map[string]*Client
	mu      sync.RWMutex
}

// Config holds the MCP manager configuration.
type Config struct {
	Enabled bool            `yaml:"enabled"`
	Servers []*ServerConfig `yaml:"servers"`
}

// NewManager creates a new MCP manager.
func NewManager(cfg *Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		config:  cfg,
		logger:  logger.With("component", "mcp"),
		clients: make(map[string]*Client),
	}
}

// Start connects to all configured MCP servers with auto_start enabled.
// A server whose launch fails is logged and skipped; it does not fail
// the session (spec.md §4.4).
func (m *Manager) Start(ctx context.Context) error {
	if m.config == nil || !m.config.Enabled {
		m.logger.Debug("MCP disabled")
		return nil
	}

	for _, serverCfg := range m.config.Servers {
		if !serverCfg.AutoStart {
			continue
		}
		if err := m.Connect(ctx, serverCfg.ID); err != nil {
			m.logger.Error("failed to connect to MCP server", "server", serverCfg.ID, "error", err)
		}
	}

	return nil
}

// Stop disconnects from all MCP servers.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, client := range m.clients {
		if err := client.Close(); err != nil {
			m.logger.Error("failed to close MCP client", "server", id, "error", err)
		}
		delete(m.clients, id)
	}
	return nil
}

// expandEnv applies ${VAR} substitution against the process environment
// to a server's command, args, and env block (spec.md §6).
func expandEnv(cfg *ServerConfig) *ServerConfig {
	expanded := *cfg
	expanded.Command = os.Expand(cfg.Command, envLookup)
	if len(cfg.Args) > 0 {
		expanded.Args = make([]string, len(cfg.Args))
		for i, a := range cfg.Args {
			expanded.Args[i] = os.Expand(a, envLookup)
		}
	}
	if len(cfg.Env) > 0 {
		expanded.Env = make(map[string]string, len(cfg.Env))
		for k, v := range cfg.Env {
			expanded.Env[k] = os.Expand(v, envLookup)
		}
	}
	if len(cfg.Headers) > 0 {
		expanded.Headers = make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			expanded.Headers[k] = os.Expand(v, envLookup)
		}
	}
	return &expanded
}

func envLookup(key string) string {
	return os.Getenv(key)
}

// Connect connects to a specific MCP server by ID.
func (m *Manager) Connect(ctx context.Context, serverID string) error {
	var serverCfg *ServerConfig
	for _, cfg := range m.config.Servers {
		if cfg.ID == serverID {
			serverCfg = cfg
			break
		}
	}
	if serverCfg == nil {
		return fmt.Errorf("server %q not found in config", serverID)
	}

	m.mu.RLock()
	_, exists := m.clients[serverID]
	m.mu.RUnlock()
	if exists {
		return nil
	}

	if err := serverCfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	client := NewClient(expandEnv(serverCfg), m.logger)
	if err := client.Connect(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.clients[serverID] = client
	m.mu.Unlock()

	m.logger.Info("connected to MCP server", "server", serverID, "name", client.ServerInfo().Name)
	return nil
}

// Disconnect disconnects from a specific MCP server.
func (m *Manager) Disconnect(serverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, exists := m.clients[serverID]
	if !exists {
		return nil
	}
	if err := client.Close(); err != nil {
		return err
	}
	delete(m.clients, serverID)
	m.logger.Info("disconnected from MCP server", "server", serverID)
	return nil
}

// Client returns a client for a specific server.
func (m *Manager) Client(serverID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, exists := m.clients[serverID]
	return client, exists
}

// Clients returns all connected clients.
func (m *Manager) Clients() map[string]*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]*Client, len(m.clients))
	for id, client := range m.clients {
		result[id] = client
	}
	return result
}

// AllToolSpecs returns every discovered tool across all connected
// servers, namespaced by QualifiedName for the tool registry (spec.md
// §3, §4.3).
func (m *Manager) AllToolSpecs() []models.ToolSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var specs []models.ToolSpec
	for _, client := range m.clients {
		specs = append(specs, client.ToolSpecs()...)
	}
	return specs
}

// AllPromptSpecs returns every discovered prompt across all connected
// servers.
func (m *Manager) AllPromptSpecs() []models.PromptSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var specs []models.PromptSpec
	for _, client := range m.clients {
		specs = append(specs, client.PromptSpecs()...)
	}
	return specs
}

// LaunchMetadata returns the per-server launch accounting recorded during
// Connect (spec.md §3).
func (m *Manager) LaunchMetadata() []models.LaunchMetadata {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.LaunchMetadata
	for _, client := range m.clients {
		out = append(out, client.LaunchMetadata())
	}
	return out
}

// splitQualifiedName reverses ToolSpec.QualifiedName()'s "server___tool"
// convention.
func splitQualifiedName(qualified string) (serverID, toolName string) {
	if idx := strings.Index(qualified, "___"); idx >= 0 {
		return qualified[:idx], qualified[idx+3:]
	}
	return "", qualified
}

// CallTool calls a tool by its qualified name, routing to the owning
// server.
func (m *Manager) CallTool(ctx context.Context, qualifiedName string, arguments json.RawMessage) (*ToolCallResult, error) {
	serverID, toolName := splitQualifiedName(qualifiedName)
	if serverID == "" {
		return nil, fmt.Errorf("mcp: %q is not a qualified MCP tool name", qualifiedName)
	}

	client, exists := m.Client(serverID)
	if !exists {
		return nil, fmt.Errorf("server %q not connected", serverID)
	}
	return client.CallTool(ctx, toolName, arguments)
}

// GetPrompt gets a prompt from a specific server.
func (m *Manager) GetPrompt(ctx context.Context, serverID, name string, arguments map[string]string) ([]PromptMessage, error) {
	client, exists := m.Client(serverID)
	if !exists {
		return nil, fmt.Errorf("server %q not connected", serverID)
	}
	return client.GetPrompt(ctx, name, arguments)
}

// ServerStatus represents the status of an MCP server, surfaced by the
// `mcp status` CLI subcommand (spec.md §6).
type ServerStatus struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Connected bool                  `json:"connected"`
	Server    ServerInfo            `json:"server"`
	Tools     int                   `json:"tools"`
	Prompts   int                   `json:"prompts"`
	Launch    *models.LaunchMetadata `json:"launch,omitempty"`
}

// Status returns the status of all configured servers.
func (m *Manager) Status() []ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var statuses []ServerStatus
	for _, cfg := range m.config.Servers {
		status := ServerStatus{ID: cfg.ID, Name: cfg.Name}

		if client, exists := m.clients[cfg.ID]; exists {
			status.Connected = client.Connected()
			status.Server = client.ServerInfo()
			status.Tools = len(client.Tools())
			status.Prompts = len(client.Prompts())
			launch := client.LaunchMetadata()
			status.Launch = &launch
		}

		statuses = append(statuses, status)
	}

	return statuses
}
