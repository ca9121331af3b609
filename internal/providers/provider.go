// Package providers implements the Model Provider Adapter (spec.md §4.5):
// a common streaming request/response contract in front of concrete
// Anthropic, OpenAI, and Bedrock clients, grounded on the teacher's
// internal/agent/providers package and generalized to the spec's precise
// partition/prepend/cancel contract.
package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentcore/runtime/pkg/models"
)

// ConversationMessage is one message in a ModelRequest's history, carrying
// either free text, a tool-use request, or a tool result.
type ConversationMessage struct {
	Role        string             `json:"role"` // "user", "assistant", or "tool"
	Content     string             `json:"content,omitempty"`
	ToolUses    []models.AssistantToolUse `json:"tool_uses,omitempty"`
	ToolResults []ToolResultMessage       `json:"tool_results,omitempty"`
}

// ToolResultMessage carries a tool result keyed by tool-use id.
type ToolResultMessage struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ModelRequest is the adapter's input contract (spec.md §4.5).
type ModelRequest struct {
	Model          string
	Messages       []ConversationMessage
	SystemPrompt   string
	Context        string
	ConversationID models.ConversationId
	Tools          []models.ToolSpec
	MaxTokens      int
}

// lastUser returns the trailing user message and the preceding history,
// rejecting a request whose last message is not from the user (step 1 of
// spec.md §4.5).
func (r *ModelRequest) lastUser() (history []ConversationMessage, last ConversationMessage, err error) {
	if len(r.Messages) == 0 {
		return nil, ConversationMessage{}, fmt.Errorf("providers: request has no messages")
	}
	last = r.Messages[len(r.Messages)-1]
	if last.Role != "user" {
		return nil, ConversationMessage{}, fmt.Errorf("providers: last message must be from the user, got %q", last.Role)
	}
	return r.Messages[:len(r.Messages)-1], last, nil
}

// prependContext builds the content actually sent for the last user turn,
// prepending req.Context (if present) before the last user content,
// separated by a blank line (step 2 of spec.md §4.5). SystemPrompt travels
// as each backend's native system field rather than being concatenated
// here.
func prependContext(contextText, userContent string) string {
	if contextText == "" {
		return userContent
	}
	return contextText + "\n\n" + userContent
}

// ChunkKind discriminates a streamed AssistantChunk.
type ChunkKind string

const (
	ChunkText    ChunkKind = "text"
	ChunkToolUse ChunkKind = "tool_use"
)

// AssistantChunk is one streamed unit handed to on_chunk (spec.md §4.5
// step 4).
type AssistantChunk struct {
	Kind ChunkKind

	// Text field.
	Text string

	// ToolUse fields.
	ToolUseID  string
	ToolName   string
	Parameters json.RawMessage
}

// ResponseStatus discriminates the ModelResponse sum type.
type ResponseStatus string

const (
	ResponseSuccess   ResponseStatus = "success"
	ResponseCancelled ResponseStatus = "cancelled"
	ResponseFailed    ResponseStatus = "failed"
)

// ModelResponse is the adapter's terminal result.
type ModelResponse struct {
	Status   ResponseStatus
	Text     string
	ToolUses []models.AssistantToolUse
	Usage    models.RequestMetadata
	Error    string
}

// OnBegin is invoked exactly once when the first byte of the stream body
// arrives (spec.md §4.5 step 3).
type OnBegin func()

// OnChunk is invoked once per streamed unit (spec.md §4.5 step 4).
type OnChunk func(AssistantChunk)

// Provider is the adapter contract every concrete backend implements.
type Provider interface {
	// Name identifies the provider for routing/logging ("anthropic",
	// "openai", "bedrock").
	Name() string

	// Request streams a completion for req, invoking onBegin once and
	// onChunk per streamed unit. cancel is polled at every suspension
	// point (pre-send, mid-send, mid-stream); firing it aborts the
	// request with ResponseCancelled (spec.md §4.5 step 5).
	Request(ctx context.Context, req ModelRequest, onBegin OnBegin, onChunk OnChunk, cancel <-chan struct{}) ModelResponse
}

// Registry resolves a provider by name, the form the session holds its
// configured list of model providers (spec.md §4.8).
type Registry struct {
	providers map[string]Provider
	def       string
}

// NewRegistry builds a registry from a set of providers, defaulting
// lookups with an empty name to defaultName.
func NewRegistry(defaultName string, all ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(all)), def: defaultName}
	for _, p := range all {
		r.providers[p.Name()] = p
	}
	return r
}

// Get resolves name to a Provider, falling back to the registry's default
// when name is empty.
func (r *Registry) Get(name string) (Provider, bool) {
	if name == "" {
		name = r.def
	}
	p, ok := r.providers[name]
	return p, ok
}

// Names lists every registered provider name.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	return out
}
