package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agentcore/runtime/pkg/models"
)

// ClientName and ClientVersion are what the core announces in its MCP
// handshake (spec.md §6).
const (
	ClientName    = "agentrun"
	ClientVersion = "1.0.0"
)

// Client is an MCP client that owns a single server's transport,
// capability cache, and background notification/request dispatch loops
// (spec.md §4.4).
type Client struct {
	config    *ServerConfig
	transport Transport
	logger    *slog.Logger

	mu      sync.RWMutex
	tools   []*MCPTool
	prompts []*MCPPrompt

	serverInfo ServerInfo
	launch     models.LaunchMetadata

	stopDispatch chan struct{}
	dispatchWG   sync.WaitGroup
}

// NewClient creates a new MCP client.
func NewClient(cfg *ServerConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:       cfg,
		transport:    NewTransport(cfg),
		logger:       logger.With("mcp_server", cfg.ID),
		stopDispatch: make(chan struct{}),
	}
}

// Connect performs the full launch protocol from spec.md §4.4: transport
// connect, initialize handshake, capability discovery with per-call
// timing recorded into LaunchMetadata, and starts the background
// notification/request dispatch loops.
func (c *Client) Connect(ctx context.Context) error {
	start := time.Now()

	if err := c.transport.Connect(ctx); err != nil {
		return fmt.Errorf("transport connect: %w", err)
	}

	result, err := c.transport.Call(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    Capabilities{}, // empty: client-only, no server-to-client surface.
		"clientInfo":      ClientInfo{Name: ClientName, Version: ClientVersion},
	})
	if err != nil {
		c.transport.Close()
		c.launch.Error = err.Error()
		return fmt.Errorf("initialize: %w", err)
	}

	var initResult InitializeResult
	if err := json.Unmarshal(result, &initResult); err != nil {
		c.transport.Close()
		c.launch.Error = err.Error()
		return fmt.Errorf("parse initialize result: %w", err)
	}

	c.serverInfo = initResult.ServerInfo
	c.logger.Info("connected to MCP server",
		"name", c.serverInfo.Name,
		"version", c.serverInfo.Version,
		"protocol", initResult.ProtocolVersion)

	if err := c.transport.Notify(ctx, "notifications/initialized", nil); err != nil {
		c.logger.Warn("failed to send initialized notification", "error", err)
	}

	if initResult.Capabilities.Tools != nil {
		if err := c.refreshTools(ctx); err != nil {
			c.logger.Warn("failed to list tools", "error", err)
		}
	}
	if initResult.Capabilities.Prompts != nil {
		if err := c.refreshPrompts(ctx); err != nil {
			c.logger.Warn("failed to list prompts", "error", err)
		}
	}

	c.launch.ServerID = c.config.ID
	c.launch.LaunchDurationMS = time.Since(start).Milliseconds()
	c.launch.Tools = c.ToolSpecs()
	c.launch.Prompts = c.PromptSpecs()

	c.dispatchWG.Add(2)
	go c.dispatchNotifications()
	go c.dispatchRequests()

	return nil
}

// Close closes the connection and stops the dispatch loops.
func (c *Client) Close() error {
	close(c.stopDispatch)
	err := c.transport.Close()
	c.dispatchWG.Wait()
	return err
}

// Config returns the server configuration.
func (c *Client) Config() *ServerConfig { return c.config }

// ServerInfo returns information about the connected server.
func (c *Client) ServerInfo() ServerInfo { return c.serverInfo }

// Connected returns whether the client is connected.
func (c *Client) Connected() bool { return c.transport.Connected() }

// LaunchMetadata returns the recorded launch accounting for this server.
func (c *Client) LaunchMetadata() models.LaunchMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.launch
}

func (c *Client) refreshTools(ctx context.Context) error {
	start := time.Now()
	result, err := c.transport.Call(ctx, "tools/list", nil)
	if err != nil {
		return err
	}
	var resp ListToolsResult
	if err := json.Unmarshal(result, &resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.tools = resp.Tools
	c.launch.ListToolsMS = time.Since(start).Milliseconds()
	c.mu.Unlock()
	c.logger.Debug("refreshed tools", "count", len(resp.Tools))
	return nil
}

func (c *Client) refreshPrompts(ctx context.Context) error {
	start := time.Now()
	result, err := c.transport.Call(ctx, "prompts/list", nil)
	if err != nil {
		return err
	}
	var resp ListPromptsResult
	if err := json.Unmarshal(result, &resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.prompts = resp.Prompts
	c.launch.ListPromptsMS = time.Since(start).Milliseconds()
	c.mu.Unlock()
	c.logger.Debug("refreshed prompts", "count", len(resp.Prompts))
	return nil
}

// Tools returns the cached wire tools.
func (c *Client) Tools() []*MCPTool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tools
}

// Prompts returns the cached wire prompts.
func (c *Client) Prompts() []*MCPPrompt {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prompts
}

// ToolSpecs returns the cached tools converted to the registry's ToolSpec,
// namespaced under this server's ID.
func (c *Client) ToolSpecs() []models.ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	specs := make([]models.ToolSpec, 0, len(c.tools))
	for _, t := range c.tools {
		specs = append(specs, t.ToSpec(c.config.ID))
	}
	return specs
}

// PromptSpecs returns the cached prompts converted to the registry's
// PromptSpec.
func (c *Client) PromptSpecs() []models.PromptSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	specs := make([]models.PromptSpec, 0, len(c.prompts))
	for _, p := range c.prompts {
		specs = append(specs, p.ToSpec(c.config.ID))
	}
	return specs
}

// CallTool calls a tool on the MCP server.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*ToolCallResult, error) {
	params := CallToolParams{Name: name, Arguments: arguments}

	result, err := c.transport.Call(ctx, "tools/call", params)
	if err != nil {
		return nil, err
	}

	var callResult ToolCallResult
	if err := json.Unmarshal(result, &callResult); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	return &callResult, nil
}

// GetPrompt gets a prompt from the MCP server.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) ([]PromptMessage, error) {
	result, err := c.transport.Call(ctx, "prompts/get", map[string]any{
		"name":      name,
		"arguments": arguments,
	})
	if err != nil {
		return nil, err
	}

	var promptResult struct {
		Messages []PromptMessage `json:"messages"`
	}
	if err := json.Unmarshal(result, &promptResult); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	return promptResult.Messages, nil
}

// ToolsChanged carries a server's re-listed tools. Nothing in this package
// produces ToolsChanged values: a tools/list_changed notification only
// refreshes the client's cached tool list, which ToolSpecs reads.
type ToolsChanged struct {
	ServerID string
	Tools    []models.ToolSpec
}

// PromptsChanged mirrors ToolsChanged for prompts/list_changed and is
// likewise not produced: that notification only refreshes the client's
// cached prompt list, which PromptSpecs reads.
type PromptsChanged struct {
	ServerID string
	Prompts  []models.PromptSpec
}

// dispatchNotifications implements the notification table from spec.md
// §4.4: tools/list_changed and prompts/list_changed trigger a re-list,
// logging/message is forwarded to the process logger at the mapped
// level, and cancelled/resource/progress notifications are accepted but
// ignored.
func (c *Client) dispatchNotifications() {
	defer c.dispatchWG.Done()
	ctx := context.Background()

	for {
		select {
		case <-c.stopDispatch:
			return
		case notif, ok := <-c.transport.Events():
			if !ok {
				return
			}
			c.handleNotification(ctx, notif)
		}
	}
}

func (c *Client) handleNotification(ctx context.Context, notif *JSONRPCNotification) {
	switch notif.Method {
	case NotifyToolsListChanged:
		if err := c.refreshTools(ctx); err != nil {
			c.logger.Warn("failed to refresh tools after list_changed", "error", err)
		}
	case NotifyPromptsListChanged:
		if err := c.refreshPrompts(ctx); err != nil {
			c.logger.Warn("failed to refresh prompts after list_changed", "error", err)
		}
	case NotifyLoggingMessage:
		c.forwardLogMessage(notif.Params)
	default:
		if !isIgnoredNotification(notif.Method) {
			c.logger.Debug("unhandled mcp notification", "method", notif.Method)
		}
	}
}

func (c *Client) forwardLogMessage(params json.RawMessage) {
	var msg struct {
		Level  string          `json:"level"`
		Logger string          `json:"logger,omitempty"`
		Data   json.RawMessage `json:"data,omitempty"`
	}
	if err := json.Unmarshal(params, &msg); err != nil {
		return
	}
	attrs := []any{"mcp_server", c.config.ID}
	if msg.Logger != "" {
		attrs = append(attrs, "logger", msg.Logger)
	}
	if len(msg.Data) > 0 {
		attrs = append(attrs, "data", string(msg.Data))
	}
	switch lspSeverityToLevel(msg.Level) {
	case "error":
		c.logger.Error("mcp server log", attrs...)
	case "warn":
		c.logger.Warn("mcp server log", attrs...)
	case "debug":
		c.logger.Debug("mcp server log", attrs...)
	default:
		c.logger.Info("mcp server log", attrs...)
	}
}

// dispatchRequests answers peer-initiated requests per spec.md §4.4:
// ping succeeds with an empty result; everything else the core never
// advertises support for (sampling, roots, elicitation) gets
// MethodNotFound.
func (c *Client) dispatchRequests() {
	defer c.dispatchWG.Done()
	ctx := context.Background()

	for {
		select {
		case <-c.stopDispatch:
			return
		case req, ok := <-c.transport.Requests():
			if !ok {
				return
			}
			c.handlePeerRequest(ctx, req)
		}
	}
}

func (c *Client) handlePeerRequest(ctx context.Context, req *JSONRPCRequest) {
	var err error
	switch req.Method {
	case RequestPing:
		err = c.transport.Respond(ctx, req.ID, struct{}{}, nil)
	default:
		err = c.transport.Respond(ctx, req.ID, nil, &JSONRPCError{
			Code:    ErrCodeMethodNotFound,
			Message: fmt.Sprintf("method %q not supported by this client", req.Method),
		})
	}
	if err != nil {
		c.logger.Warn("failed to respond to peer request", "method", req.Method, "error", err)
	}
}
