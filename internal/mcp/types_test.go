package mcp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/models"
)

func TestServerConfigTransportTypes(t *testing.T) {
	tests := []struct {
		name      string
		transport TransportType
	}{
		{"stdio", TransportStdio},
		{"http", TransportHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ServerConfig{ID: "test", Name: "Test Server", Transport: tt.transport}
			require.Equal(t, tt.transport, cfg.Transport)
		})
	}
}

func TestServerConfigJSONRoundTrip(t *testing.T) {
	cfg := &ServerConfig{
		ID:        "test-server",
		Name:      "Test Server",
		Transport: TransportStdio,
		Command:   "/usr/bin/mcp-server",
		Args:      []string{"--config", "test.yaml"},
		Env:       map[string]string{"DEBUG": "true"},
		WorkDir:   "/tmp",
		Timeout:   30 * time.Second,
		AutoStart: true,
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var decoded ServerConfig
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Empty(t, cmp.Diff(*cfg, decoded))
}

func TestHTTPServerConfigWithOAuthJSONRoundTrip(t *testing.T) {
	cfg := &ServerConfig{
		ID:        "http-server",
		Name:      "HTTP Server",
		Transport: TransportHTTP,
		URL:       "https://mcp.example.com/api",
		Headers:   map[string]string{"X-Team": "infra"},
		Timeout:   60 * time.Second,
		OAuth: &OAuthConfig{
			Grant:        OAuthGrantClientCredentials,
			TokenURL:     "https://auth.example.com/token",
			ClientID:     "abc",
			ClientSecret: "secret",
			Scopes:       []string{"mcp.read"},
		},
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var decoded ServerConfig
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, cfg.URL, decoded.URL)
	require.Equal(t, cfg.Headers["X-Team"], decoded.Headers["X-Team"])
	require.NotNil(t, decoded.OAuth)
	require.Equal(t, OAuthGrantClientCredentials, decoded.OAuth.Grant)
}

func TestServerConfigValidateRejectsPathTraversal(t *testing.T) {
	cfg := &ServerConfig{ID: "s", Transport: TransportStdio, Command: "../../etc/passwd"}
	require.Error(t, cfg.Validate())
}

func TestServerConfigValidateRejectsUnknownTransport(t *testing.T) {
	cfg := &ServerConfig{ID: "s", Transport: "carrier-pigeon"}
	require.Error(t, cfg.Validate())
}

func TestServerConfigValidateRejectsNonHTTPURL(t *testing.T) {
	cfg := &ServerConfig{ID: "s", Transport: TransportHTTP, URL: "ftp://example.com"}
	require.Error(t, cfg.Validate())
}

func TestMCPToolToSpec(t *testing.T) {
	tool := &MCPTool{
		Name:        "search",
		Description: "Search for files",
		InputSchema: json.RawMessage(`{"type":"object"}`),
	}

	spec := tool.ToSpec("fs")
	require.Equal(t, "search", spec.Name)
	require.Equal(t, "fs", spec.ServerOrigin)
	require.Equal(t, models.TrustUntrusted, spec.Trust)
	require.Equal(t, "fs___search", spec.QualifiedName())
}

func TestMCPPromptToSpec(t *testing.T) {
	prompt := &MCPPrompt{
		Name:        "code-review",
		Description: "Review code changes",
		Arguments: []PromptArgument{
			{Name: "file", Required: true},
			{Name: "language", Required: false},
		},
	}

	spec := prompt.ToSpec("review-server")
	require.Equal(t, "code-review", spec.Name)
	require.Equal(t, []string{"file", "language"}, spec.Arguments)
	require.Equal(t, "review-server", spec.ServerOrigin)
}

func TestPromptMessageJSON(t *testing.T) {
	msg := &PromptMessage{
		Role:    "assistant",
		Content: MessageContent{Type: "text", Text: "Here is the response"},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded PromptMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Empty(t, cmp.Diff(*msg, decoded))
}

func TestToolCallResultText(t *testing.T) {
	result := &ToolCallResult{
		Content: []ToolResultContent{
			{Type: "text", Text: "first "},
			{Type: "image", Data: "base64blob"},
			{Type: "text", Text: "second"},
		},
	}

	require.Equal(t, "first second", result.Text())
}

func TestToolCallResultError(t *testing.T) {
	result := &ToolCallResult{
		Content: []ToolResultContent{{Type: "text", Text: "Error: something went wrong"}},
		IsError: true,
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded ToolCallResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, decoded.IsError)
}

func TestJSONRPCRequestJSON(t *testing.T) {
	req := &JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      float64(1),
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"search","arguments":{"query":"test"}}`),
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded JSONRPCRequest
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "2.0", decoded.JSONRPC)
	require.Equal(t, req.Method, decoded.Method)
}

func TestJSONRPCResponseWithError(t *testing.T) {
	resp := &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      float64(1),
		Error:   &JSONRPCError{Code: ErrCodeMethodNotFound, Message: "Method not found"},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded JSONRPCResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.Error)
	require.Equal(t, ErrCodeMethodNotFound, decoded.Error.Code)
}

func TestJSONRPCNotificationJSON(t *testing.T) {
	notif := &JSONRPCNotification{JSONRPC: "2.0", Method: NotifyToolsListChanged}

	data, err := json.Marshal(notif)
	require.NoError(t, err)

	var decoded JSONRPCNotification
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, notif.Method, decoded.Method)
}

func TestIsIgnoredNotification(t *testing.T) {
	require.True(t, isIgnoredNotification(NotifyCancelled))
	require.True(t, isIgnoredNotification(NotifyProgress))
	require.True(t, isIgnoredNotification("notifications/resources/updated"))
	require.False(t, isIgnoredNotification(NotifyToolsListChanged))
	require.False(t, isIgnoredNotification(NotifyLoggingMessage))
}

func TestLSPSeverityToLevel(t *testing.T) {
	tests := map[string]string{
		"error":   "error",
		"warning": "warn",
		"warn":    "warn",
		"debug":   "debug",
		"trace":   "debug",
		"info":    "info",
		"":        "info",
		"weird":   "info",
	}
	for severity, want := range tests {
		require.Equal(t, want, lspSeverityToLevel(severity), severity)
	}
}

func TestInitializeResultJSON(t *testing.T) {
	result := &InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: Capabilities{
			Tools:   &ToolsCapability{ListChanged: true},
			Prompts: &PromptsCapability{ListChanged: true},
		},
		ServerInfo: ServerInfo{Name: "Test Server", Version: "1.0.0"},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded InitializeResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, result.ProtocolVersion, decoded.ProtocolVersion)
	require.Equal(t, result.ServerInfo.Name, decoded.ServerInfo.Name)
}

func TestEmptyCapabilitiesMarshalsToEmptyObject(t *testing.T) {
	data, err := json.Marshal(Capabilities{})
	require.NoError(t, err)
	require.JSONEq(t, "{}", string(data))
}

func TestCallToolParamsJSON(t *testing.T) {
	params := &CallToolParams{Name: "search", Arguments: json.RawMessage(`{"query":"test"}`)}

	data, err := json.Marshal(params)
	require.NoError(t, err)

	var decoded CallToolParams
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, params.Name, decoded.Name)
}
