package models

import "time"

// EventType discriminates the event families published on the event bus
// (spec.md §4.1). Families are nested conceptually (Worker.Created,
// Job.OutputChunk, ...) but flattened to a single string for JSON framing,
// matching the WebSocket UI protocol's discriminated "type" field (§6).
type EventType string

const (
	EventWorkerCreated              EventType = "worker.created"
	EventWorkerDeleted               EventType = "worker.deleted"
	EventWorkerLifecycleStateChanged EventType = "worker.lifecycle_state_changed"

	EventJobStarted     EventType = "job.started"
	EventJobCompleted   EventType = "job.completed"
	EventJobOutputChunk EventType = "job.output_chunk"

	EventAgentLoopResponseReceived     EventType = "agent_loop.response_received"
	EventAgentLoopToolUseRequestReceived EventType = "agent_loop.tool_use_request_received"
	EventAgentLoopToolApprovalRequested  EventType = "agent_loop.tool_approval_requested"

	EventSystemShutdownInitiated EventType = "system.shutdown_initiated"

	EventUIPromptReceived     EventType = "ui.prompt_received"
	EventUIServerStarted      EventType = "ui.server_started"
	EventUIWebSocketConnected EventType = "ui.websocket_connected"
)

// OutputChunkKind discriminates the OutputChunk sum type (spec.md §4.1).
type OutputChunkKind string

const (
	ChunkAssistantResponse OutputChunkKind = "assistant_response"
	ChunkToolUse           OutputChunkKind = "tool_use"
	ChunkToolResult        OutputChunkKind = "tool_result"
)

// OutputChunk carries one streamed fragment of a job's output.
type OutputChunk struct {
	Kind OutputChunkKind `json:"kind"`

	// AssistantResponse field.
	Text string `json:"text,omitempty"`

	// ToolUse / ToolResult fields.
	Name   string          `json:"name,omitempty"`
	Input  any             `json:"input,omitempty"`
	Result any             `json:"result,omitempty"`
}

// AssistantResponseChunk builds a text OutputChunk.
func AssistantResponseChunk(text string) OutputChunk {
	return OutputChunk{Kind: ChunkAssistantResponse, Text: text}
}

// ToolUseChunk builds a tool-use OutputChunk.
func ToolUseChunk(name string, input any) OutputChunk {
	return OutputChunk{Kind: ChunkToolUse, Name: name, Input: input}
}

// ToolResultChunk builds a tool-result OutputChunk.
func ToolResultChunk(name string, result any) OutputChunk {
	return OutputChunk{Kind: ChunkToolResult, Name: name, Result: result}
}

// Event is the single envelope published on the event bus and forwarded to
// every subscribed UI. Exactly one of the typed payload fields is set,
// selected by Type. Event ordering for a given (WorkerID, JobID) pair is
// preserved for non-lagged subscribers (spec.md §5).
type Event struct {
	Type      EventType `json:"type"`
	Timestamp float64   `json:"timestamp"`
	WorkerID  *WorkerId `json:"worker_id,omitempty"`
	JobID     *JobId    `json:"job_id,omitempty"`

	WorkerCreated              *WorkerCreatedPayload              `json:"worker_created,omitempty"`
	WorkerDeleted               *WorkerDeletedPayload              `json:"worker_deleted,omitempty"`
	WorkerLifecycleStateChanged *WorkerLifecycleStateChangedPayload `json:"worker_lifecycle_state_changed,omitempty"`

	JobStarted   *JobStartedPayload   `json:"job_started,omitempty"`
	JobCompleted *JobCompletedPayload `json:"job_completed,omitempty"`
	OutputChunk  *OutputChunk         `json:"output_chunk,omitempty"`

	ToolUseRequestReceived *ToolUseRequestReceivedPayload `json:"tool_use_request_received,omitempty"`
	ToolApprovalRequested  *ToolApprovalRequestedPayload   `json:"tool_approval_requested,omitempty"`

	Prompt           *PromptReceivedPayload `json:"prompt_received,omitempty"`
	ServerAddr       string                 `json:"server_addr,omitempty"`
}

// NewEvent stamps an event with the current wall-clock time as a
// floating-point Unix timestamp (spec.md §6: "all timestamps are
// floating-point Unix seconds").
func NewEvent(t EventType, now time.Time) Event {
	return Event{Type: t, Timestamp: float64(now.UnixNano()) / 1e9}
}

// WorkerCreatedPayload accompanies EventWorkerCreated.
type WorkerCreatedPayload struct {
	Name string `json:"name"`
}

// WorkerDeletedPayload accompanies EventWorkerDeleted.
type WorkerDeletedPayload struct{}

// WorkerLifecycleStateChangedPayload accompanies
// EventWorkerLifecycleStateChanged.
type WorkerLifecycleStateChangedPayload struct {
	Old WorkerState `json:"old"`
	New WorkerState `json:"new"`
}

// JobStartedPayload accompanies EventJobStarted.
type JobStartedPayload struct {
	TaskType string `json:"task_type"`
}

// JobCompletedPayload accompanies EventJobCompleted.
type JobCompletedPayload struct {
	Result JobCompletionResult `json:"result"`
}

// ToolUseRequestReceivedPayload accompanies
// EventAgentLoopToolUseRequestReceived.
type ToolUseRequestReceivedPayload struct {
	ToolUseID string          `json:"tool_use_id"`
	Name      string          `json:"name"`
	Arguments any             `json:"arguments"`
}

// ToolApprovalRequestedPayload accompanies
// EventAgentLoopToolApprovalRequested.
type ToolApprovalRequestedPayload struct {
	ToolUseID string `json:"tool_use_id"`
	Name      string `json:"name"`
}

// PromptReceivedPayload accompanies EventUIPromptReceived.
type PromptReceivedPayload struct {
	Text string `json:"text"`
}
