package models

import "encoding/json"

// ToolResultStatus discriminates a tool result's outcome.
type ToolResultStatus string

const (
	ToolResultSuccess ToolResultStatus = "success"
	ToolResultError   ToolResultStatus = "error"
)

// UserMessageKind discriminates the UserMessage sum type.
type UserMessageKind string

const (
	UserMessagePrompt              UserMessageKind = "prompt"
	UserMessageToolResult          UserMessageKind = "tool_result"
	UserMessageCancelledToolUses   UserMessageKind = "cancelled_tool_uses"
)

// UserMessage is the sum type described in spec.md §3: a free-text prompt,
// a tool result keyed by tool-use id, or a synthetic resolution of tool
// uses that were never answered before the conversation advanced.
type UserMessage struct {
	Kind UserMessageKind `json:"kind"`

	// Prompt fields.
	Text   string   `json:"text,omitempty"`
	Images []string `json:"images,omitempty"`

	// ToolResult fields.
	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   string           `json:"content,omitempty"`
	Status    ToolResultStatus `json:"status,omitempty"`

	// CancelledToolUses fields.
	CancelledIDs []string `json:"cancelled_ids,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// Prompt builds a UserMessage carrying free text and optional images.
func Prompt(text string, images ...string) UserMessage {
	return UserMessage{Kind: UserMessagePrompt, Text: text, Images: images}
}

// NewToolResult builds a UserMessage carrying a tool execution result.
func NewToolResult(toolUseID, content string, status ToolResultStatus) UserMessage {
	return UserMessage{
		Kind:      UserMessageToolResult,
		ToolUseID: toolUseID,
		Content:   content,
		Status:    status,
	}
}

// NewCancelledToolUses builds the synthetic resolution entry inserted when
// tool-use ids are orphaned across a send boundary (invariant b).
func NewCancelledToolUses(ids []string, reason string) UserMessage {
	return UserMessage{Kind: UserMessageCancelledToolUses, CancelledIDs: ids, Reason: reason}
}

// AssistantMessageKind discriminates the AssistantMessage sum type.
type AssistantMessageKind string

const (
	AssistantMessageResponse AssistantMessageKind = "response"
	AssistantMessageToolUse  AssistantMessageKind = "tool_use"
)

// AssistantToolUse is a single structured tool invocation requested by the
// model within an AssistantMessage of kind ToolUse.
type AssistantToolUse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// AssistantMessage is the sum type described in spec.md §3.
type AssistantMessage struct {
	Kind AssistantMessageKind `json:"kind"`

	// Response fields.
	Text string `json:"text,omitempty"`

	// ToolUse fields. Text may also carry any text emitted alongside the
	// tool-use request.
	ToolUses []AssistantToolUse `json:"tool_uses,omitempty"`
}

// Response builds a plain-text AssistantMessage.
func Response(text string) AssistantMessage {
	return AssistantMessage{Kind: AssistantMessageResponse, Text: text}
}

// NewToolUse builds a tool-use AssistantMessage.
func NewToolUse(text string, uses []AssistantToolUse) AssistantMessage {
	return AssistantMessage{Kind: AssistantMessageToolUse, Text: text, ToolUses: uses}
}

// HasToolUses reports whether this assistant turn requested any tool calls.
func (a AssistantMessage) HasToolUses() bool {
	return a.Kind == AssistantMessageToolUse && len(a.ToolUses) > 0
}

// RequestMetadata carries provider-reported accounting for a completed
// assistant turn: token usage, wall time, and the model actually used.
type RequestMetadata struct {
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	DurationMS   int64  `json:"duration_ms,omitempty"`
}

// Entry is one turn pair in the conversation history: a user message and,
// once the model has responded, the matching assistant message.
//
// An Entry whose Assistant carries the zero Kind is "pending" — the turn has
// not yet been completed by push_assistant. Invariant (a) in spec.md §3
// forbids pushing a new user input while the head entry is pending.
type Entry struct {
	User      UserMessage      `json:"user"`
	Assistant AssistantMessage `json:"assistant"`
	Metadata  *RequestMetadata `json:"metadata,omitempty"`
}

// Pending reports whether this entry is awaiting push_assistant.
func (e Entry) Pending() bool {
	return e.Assistant.Kind == ""
}

// NewPendingEntry creates an entry holding only a user message, awaiting
// its assistant completion.
func NewPendingEntry(user UserMessage) Entry {
	return Entry{User: user}
}

// Complete attaches the assistant response and metadata, clearing the
// pending flag.
func (e *Entry) Complete(assistant AssistantMessage, metadata *RequestMetadata) {
	e.Assistant = assistant
	e.Metadata = metadata
}

// SummaryEntry synthesizes the single entry that replaces all history
// before a summarization checkpoint (invariant c).
func SummaryEntry(summaryText string, metadata *RequestMetadata) Entry {
	return Entry{
		User:      Prompt("[Summary]"),
		Assistant: Response(summaryText),
		Metadata:  metadata,
	}
}

// TangentSummaryEntry synthesizes the entry appended to the main line when
// a tangent is exited via exit_tangent_with_compact.
func TangentSummaryEntry(summaryText string, metadata *RequestMetadata) Entry {
	return Entry{
		User:      Prompt("[Tangent conversation]"),
		Assistant: Response(summaryText),
		Metadata:  metadata,
	}
}
