package models

import "encoding/json"

// TrustLevel classifies a tool invocation's pre-authorization level
// (spec.md §4.3).
type TrustLevel string

const (
	TrustTrusted   TrustLevel = "trusted"
	TrustReadOnly  TrustLevel = "read_only"
	TrustUntrusted TrustLevel = "untrusted"
)

// ToolSpec describes a tool's name, purpose, and input schema as
// discovered from a built-in handler or an MCP server (spec.md §3).
//
// Two tools collide if they share a name within one server; across servers
// they are disambiguated with the "server___tool" namespacing convention.
type ToolSpec struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	ServerOrigin string          `json:"server_origin,omitempty"`
	Trust        TrustLevel      `json:"trust,omitempty"`
}

// QualifiedName returns the registry key for this spec: "server___tool"
// when it originates from an MCP server, or the bare name for built-ins.
func (t ToolSpec) QualifiedName() string {
	if t.ServerOrigin == "" {
		return t.Name
	}
	return t.ServerOrigin + "___" + t.Name
}

// PromptSpec describes a reusable prompt template discovered from an MCP
// server's prompts/list response.
type PromptSpec struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Arguments    []string `json:"arguments,omitempty"`
	ServerOrigin string   `json:"server_origin,omitempty"`
}

// LaunchMetadata records per-server MCP launch accounting (spec.md §3).
type LaunchMetadata struct {
	ServerID         string          `json:"server_id"`
	LaunchDurationMS int64           `json:"launch_duration_ms"`
	Tools            []ToolSpec      `json:"tools,omitempty"`
	Prompts          []PromptSpec    `json:"prompts,omitempty"`
	ListToolsMS      int64           `json:"list_tools_ms,omitempty"`
	ListPromptsMS    int64           `json:"list_prompts_ms,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// ApprovalResponse is a UI's answer to a ToolApprovalRequested chunk
// (spec.md §4.3).
type ApprovalResponse string

const (
	ApprovalAllow               ApprovalResponse = "allow"
	ApprovalAllowAlwaysSession  ApprovalResponse = "allow_always_for_session"
	ApprovalDeny                ApprovalResponse = "deny"
)
