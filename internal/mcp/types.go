// Package mcp implements the core's Model Context Protocol client
// subsystem (spec.md §4.4): one long-lived service per configured server,
// reached over a stdio child process or an HTTP endpoint, speaking
// JSON-RPC 2.0.
package mcp

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentcore/runtime/pkg/models"
)

// TransportType specifies the MCP transport protocol.
type TransportType string

const (
	TransportStdio TransportType = "stdio"
	TransportHTTP  TransportType = "http"
)

// OAuthGrant selects the bearer-acquisition flow for an HTTP server
// (spec.md §4.4).
type OAuthGrant string

const (
	OAuthGrantNone              OAuthGrant = ""
	OAuthGrantClientCredentials OAuthGrant = "client_credentials"
	OAuthGrantAuthorizationCode OAuthGrant = "authorization_code"
)

// OAuthConfig configures bearer-token acquisition for the HTTP transport.
type OAuthConfig struct {
	Grant        OAuthGrant `yaml:"grant" json:"grant,omitempty"`
	TokenURL     string     `yaml:"token_url" json:"token_url,omitempty"`
	AuthURL      string     `yaml:"auth_url" json:"auth_url,omitempty"`
	ClientID     string     `yaml:"client_id" json:"client_id,omitempty"`
	ClientSecret string     `yaml:"client_secret" json:"client_secret,omitempty"`
	Scopes       []string   `yaml:"scopes" json:"scopes,omitempty"`
	RedirectURL  string     `yaml:"redirect_url" json:"redirect_url,omitempty"`
}

// ServerConfig holds configuration for an MCP server.
type ServerConfig struct {
	ID        string        `yaml:"id" json:"id"`
	Name      string        `yaml:"name" json:"name"`
	Transport TransportType `yaml:"transport" json:"transport"`

	// Stdio transport options.
	Command string            `yaml:"command" json:"command,omitempty"`
	Args    []string          `yaml:"args" json:"args,omitempty"`
	Env     map[string]string `yaml:"env" json:"env,omitempty"`
	WorkDir string            `yaml:"workdir" json:"workdir,omitempty"`

	// HTTP transport options.
	URL     string            `yaml:"url" json:"url,omitempty"`
	Headers map[string]string `yaml:"headers" json:"headers,omitempty"`
	OAuth   *OAuthConfig      `yaml:"oauth,omitempty" json:"oauth,omitempty"`

	// Common options.
	Timeout   time.Duration `yaml:"timeout" json:"timeout,omitempty"`
	AutoStart bool          `yaml:"auto_start" json:"auto_start,omitempty"`
}

// Validate checks the server configuration for obvious misconfiguration
// before launch (spec.md §7, Configuration error class: disable the
// affected server with a warning, don't fail the whole session).
func (c *ServerConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("server ID is required")
	}

	switch c.Transport {
	case TransportStdio:
		if err := c.validateStdioConfig(); err != nil {
			return fmt.Errorf("stdio config for %s: %w", c.ID, err)
		}
	case TransportHTTP:
		if err := c.validateHTTPConfig(); err != nil {
			return fmt.Errorf("http config for %s: %w", c.ID, err)
		}
	default:
		return fmt.Errorf("server %s: unknown transport %q", c.ID, c.Transport)
	}

	return nil
}

func (c *ServerConfig) validateStdioConfig() error {
	if c.Command == "" {
		return fmt.Errorf("command is required")
	}
	if err := validatePath(c.Command, "command"); err != nil {
		return err
	}
	if c.WorkDir != "" {
		if err := validatePath(c.WorkDir, "workdir"); err != nil {
			return err
		}
	}
	return nil
}

func (c *ServerConfig) validateHTTPConfig() error {
	if c.URL == "" {
		return fmt.Errorf("URL is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	return nil
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return nil
	}
	if strings.Contains(filepath.Clean(path), "..") {
		return fmt.Errorf("%s contains path traversal: %q", fieldName, path)
	}
	return nil
}

// MCPTool is the wire representation of a tool as advertised by a server's
// tools/list response.
type MCPTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToSpec converts a wire tool into the registry's ToolSpec, namespaced
// under serverID (spec.md §3's "server___tool" qualification).
func (t *MCPTool) ToSpec(serverID string) models.ToolSpec {
	return models.ToolSpec{
		Name:         t.Name,
		Description:  t.Description,
		InputSchema:  t.InputSchema,
		ServerOrigin: serverID,
		Trust:        models.TrustUntrusted,
	}
}

// MCPPrompt represents a prompt template exposed by an MCP server.
type MCPPrompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes a parameter for an MCP prompt.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// ToSpec converts a wire prompt into the registry's PromptSpec.
func (p *MCPPrompt) ToSpec(serverID string) models.PromptSpec {
	args := make([]string, 0, len(p.Arguments))
	for _, a := range p.Arguments {
		args = append(args, a.Name)
	}
	return models.PromptSpec{
		Name:         p.Name,
		Description:  p.Description,
		Arguments:    args,
		ServerOrigin: serverID,
	}
}

// PromptMessage represents a message in a prompt response.
type PromptMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent holds the content of a prompt message or tool result.
type MessageContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// ToolCallResult holds the result of calling an MCP tool.
type ToolCallResult struct {
	Content []ToolResultContent `json:"content"`
	IsError bool                `json:"isError,omitempty"`
}

// ToolResultContent holds a piece of content from a tool result.
type ToolResultContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Text concatenates the text portions of a tool call result, the form the
// agent loop appends to history as a ToolResult entry.
func (r *ToolCallResult) Text() string {
	var b strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// JSON-RPC 2.0 envelope types.

// JSONRPCRequest is a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCNotification is a JSON-RPC 2.0 notification (no ID).
type JSONRPCNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCError is a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Peer-to-client notification methods handled per spec.md §4.4's table.
const (
	NotifyToolsListChanged   = "notifications/tools/list_changed"
	NotifyPromptsListChanged = "notifications/prompts/list_changed"
	NotifyLoggingMessage     = "notifications/message"
	NotifyCancelled          = "notifications/cancelled"
	NotifyProgress           = "notifications/progress"
)

// isIgnoredNotification reports whether method is accepted but not acted
// upon, per spec.md §4.4 ("cancelled, resource/*, progress").
func isIgnoredNotification(method string) bool {
	return method == NotifyCancelled || method == NotifyProgress || strings.HasPrefix(method, "notifications/resources/")
}

// Peer-initiated request methods (server → client). Only ping is answered
// with success; the rest are MethodNotFound because the core never
// advertises sampling, roots, or elicitation capabilities.
const (
	RequestPing              = "ping"
	RequestCreateMessage     = "sampling/createMessage"
	RequestListRoots         = "roots/list"
	RequestCreateElicitation = "elicitation/create"
)

// ServerInfo holds information about an MCP server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientInfo holds information about the MCP client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities holds the capabilities of an MCP client or server. The
// core always advertises an empty client Capabilities{} (spec.md §6: "no
// server-to-client tools, roots, or elicitation").
type Capabilities struct {
	Tools     *ToolsCapability     `json:"tools,omitempty"`
	Prompts   *PromptsCapability   `json:"prompts,omitempty"`
	Resources *ResourcesCapability `json:"resources,omitempty"`
}

// ToolsCapability describes tool-related capabilities.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// PromptsCapability describes prompt-related capabilities.
type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability describes resource-related capabilities.
type ResourcesCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// InitializeResult holds the result of the initialize method.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

// ListToolsResult holds the result of tools/list.
type ListToolsResult struct {
	Tools []*MCPTool `json:"tools"`
}

// ListPromptsResult holds the result of prompts/list.
type ListPromptsResult struct {
	Prompts []*MCPPrompt `json:"prompts"`
}

// CallToolParams holds parameters for tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// lspSeverityToLevel maps the LSP-style severity MCP's logging/message
// notification carries to a slog level name (spec.md §4.4 notification
// table).
func lspSeverityToLevel(severity string) string {
	switch strings.ToLower(severity) {
	case "error":
		return "error"
	case "warn", "warning":
		return "warn"
	case "debug":
		return "debug"
	case "trace":
		return "debug" // slog has no Trace; folded into Debug.
	default:
		return "info"
	}
}
