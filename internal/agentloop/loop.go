// Package agentloop implements the Agent Loop Task (spec.md §4.6): a
// bounded iterative state machine — AwaitingModelResponse →
// ProcessingChunks → (HasToolUses? ExecutingTools : Terminal), looping
// back to AwaitingModelResponse — grounded on the teacher's
// internal/agent.AgenticLoop, generalized to the spec's precise 5-step
// turn and 25-iteration ceiling.
package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentcore/runtime/internal/agenterrors"
	"github.com/agentcore/runtime/internal/eventbus"
	"github.com/agentcore/runtime/internal/history"
	"github.com/agentcore/runtime/internal/providers"
	"github.com/agentcore/runtime/internal/toolpolicy"
	"github.com/agentcore/runtime/internal/toolregistry"
	"github.com/agentcore/runtime/pkg/models"
)

// DefaultMaxIterations is the per-turn safety ceiling (spec.md §4.6 step 5).
const DefaultMaxIterations = 25

// Phase names the state machine's current position.
type Phase string

const (
	PhaseAwaitingModelResponse Phase = "awaiting_model_response"
	PhaseProcessingChunks      Phase = "processing_chunks"
	PhaseExecutingTools        Phase = "executing_tools"
	PhaseTerminal              Phase = "terminal"
)

// ApprovalGate requests a human decision for a tool use that requires
// approval (spec.md §4.3 step 2), blocking until a UI responds or cancel
// fires.
type ApprovalGate interface {
	RequestApproval(ctx context.Context, toolUseID, toolName string, cancel <-chan struct{}) (models.ApprovalResponse, bool)
}

// Task runs one agent-loop job against a single worker's history.
type Task struct {
	WorkerID  models.WorkerId
	JobID     models.JobId
	Provider  providers.Provider
	Model     string
	System    string
	Context   string
	History   *history.History
	Registry  *toolregistry.Registry
	AllowList *toolpolicy.SessionAllowList
	Bus       *eventbus.Bus
	Approval  ApprovalGate

	MaxIterations int
}

func (t *Task) maxIterations() int {
	if t.MaxIterations > 0 {
		return t.MaxIterations
	}
	return DefaultMaxIterations
}

func (t *Task) publish(evType models.EventType, fn func(*models.Event)) {
	if t.Bus == nil {
		return
	}
	e := models.NewEvent(evType, time.Now())
	e.WorkerID = &t.WorkerID
	e.JobID = &t.JobID
	if fn != nil {
		fn(&e)
	}
	t.Bus.Publish(e)
}

// Run executes the state machine to completion: a JobCompletionResult is
// always returned, never an error — every failure mode is represented in
// the result per spec.md §7's propagation policy.
func (t *Task) Run(ctx context.Context, cancel <-chan struct{}) models.JobCompletionResult {
	pendingApproval := false

	for iteration := 0; iteration < t.maxIterations(); iteration++ {
		select {
		case <-cancel:
			return models.Cancelled()
		default:
		}

		// Step 1: snapshot history, build ModelRequest.
		req := t.buildRequest()

		// Step 2: call provider, forwarding chunks to the event bus.
		resp := t.streamTurn(ctx, req, cancel)
		if resp.Status == providers.ResponseCancelled {
			t.appendPartialAssistant(resp)
			return models.Cancelled()
		}
		if resp.Status == providers.ResponseFailed {
			return models.Failed(fmt.Sprintf("%s%s", agenterrors.OperatorHint(fmt.Errorf("%s", resp.Error)), resp.Error))
		}

		// Step 3: append the aggregated assistant message.
		assistant := t.toAssistantMessage(resp)
		if err := t.History.PushAssistant(assistant, &resp.Usage); err != nil {
			return models.Failed(fmt.Sprintf("history invariant violation: %v", err))
		}
		t.publish(models.EventAgentLoopResponseReceived, nil)

		if !assistant.HasToolUses() {
			return models.Success(nil, models.InteractionNone)
		}

		// Step 4: resolve/execute each tool use in model-provided order.
		anyPending := false
		for _, tu := range assistant.ToolUses {
			select {
			case <-cancel:
				return models.Cancelled()
			default:
			}
			resolved, stillPending := t.resolveAndExecute(ctx, tu, cancel)
			if stillPending {
				anyPending = true
				continue
			}
			if err := t.History.PushInput(resolved); err != nil {
				return models.Failed(fmt.Sprintf("history invariant violation: %v", err))
			}
		}
		if anyPending {
			pendingApproval = true
			return models.Success(nil, interactionFor(pendingApproval))
		}

		// Step 5: loop to step 1.
	}

	return models.Failed(fmt.Sprintf("agent loop exceeded safety ceiling of %d iterations", t.maxIterations()))
}

func interactionFor(pending bool) models.UserInteractionRequired {
	if pending {
		return models.InteractionToolApproval
	}
	return models.InteractionNone
}

// buildRequest snapshots history via as_sendable() and builds a
// ModelRequest (spec.md §4.6 step 1).
func (t *Task) buildRequest() providers.ModelRequest {
	entries := t.History.AsSendable()
	messages := make([]providers.ConversationMessage, 0, len(entries)*2)
	for _, e := range entries {
		messages = append(messages, userMessageToConversation(e.User))
		if !e.Pending() {
			messages = append(messages, assistantMessageToConversation(e.Assistant))
		}
	}
	return providers.ModelRequest{
		Model:        t.Model,
		Messages:     messages,
		SystemPrompt: t.System,
		Context:      t.Context,
		Tools:        t.Registry.Specs(),
	}
}

func userMessageToConversation(u models.UserMessage) providers.ConversationMessage {
	switch u.Kind {
	case models.UserMessageToolResult:
		return providers.ConversationMessage{
			Role: "tool",
			ToolResults: []providers.ToolResultMessage{{
				ToolUseID: u.ToolUseID,
				Content:   u.Content,
				IsError:   u.Status == models.ToolResultError,
			}},
		}
	case models.UserMessageCancelledToolUses:
		results := make([]providers.ToolResultMessage, 0, len(u.CancelledIDs))
		for _, id := range u.CancelledIDs {
			results = append(results, providers.ToolResultMessage{ToolUseID: id, Content: u.Reason, IsError: true})
		}
		return providers.ConversationMessage{Role: "tool", ToolResults: results}
	default:
		return providers.ConversationMessage{Role: "user", Content: u.Text}
	}
}

func assistantMessageToConversation(a models.AssistantMessage) providers.ConversationMessage {
	return providers.ConversationMessage{Role: "assistant", Content: a.Text, ToolUses: a.ToolUses}
}

// streamTurn calls provider.Request, forwarding each chunk to the event
// bus (spec.md §4.6 step 2).
func (t *Task) streamTurn(ctx context.Context, req providers.ModelRequest, cancel <-chan struct{}) providers.ModelResponse {
	onBegin := func() {}
	onChunk := func(c providers.AssistantChunk) {
		switch c.Kind {
		case providers.ChunkText:
			t.publish(models.EventJobOutputChunk, func(e *models.Event) {
				chunk := models.AssistantResponseChunk(c.Text)
				e.OutputChunk = &chunk
			})
		case providers.ChunkToolUse:
			var input any
			_ = json.Unmarshal(c.Parameters, &input)
			t.publish(models.EventAgentLoopToolUseRequestReceived, func(e *models.Event) {
				e.ToolUseRequestReceived = &models.ToolUseRequestReceivedPayload{
					ToolUseID: c.ToolUseID,
					Name:      c.ToolName,
					Arguments: input,
				}
			})
		}
	}
	return t.Provider.Request(ctx, req, onBegin, onChunk, cancel)
}

func (t *Task) toAssistantMessage(resp providers.ModelResponse) models.AssistantMessage {
	if len(resp.ToolUses) == 0 {
		return models.Response(resp.Text)
	}
	return models.NewToolUse(resp.Text, resp.ToolUses)
}

// appendPartialAssistant records whatever text was accumulated before
// cancellation fired (spec.md §8 scenario 4: partial text survives in
// history as a Response entry).
func (t *Task) appendPartialAssistant(resp providers.ModelResponse) {
	_ = t.History.PushAssistant(models.Response(resp.Text), &resp.Usage)
}

// resolveAndExecute resolves trust for one tool use, requests approval if
// required, executes it, and returns the UserMessage to append. If the
// tool use required approval that remains unanswered (approval gate
// declined to wait, typically because cancel fired), stillPending is true
// and the caller must not append a result for this tool use — it becomes
// an orphaned id resolved via synthetic CancelledToolUses on the next send.
func (t *Task) resolveAndExecute(ctx context.Context, tu models.AssistantToolUse, cancel <-chan struct{}) (resolved models.UserMessage, stillPending bool) {
	spec, ok := t.Registry.Lookup(tu.Name)
	if !ok {
		return models.NewToolResult(tu.ID, fmt.Sprintf("unknown tool %q", tu.Name), models.ToolResultError), false
	}

	var commandText string
	if spec.Name == "execute_bash" {
		var args struct {
			Command string `json:"command"`
		}
		_ = json.Unmarshal(tu.Arguments, &args)
		commandText = args.Command
	}

	decision := t.AllowList.Resolve(spec, commandText)
	if decision.RequiresApproval {
		t.publish(models.EventAgentLoopToolApprovalRequested, func(e *models.Event) {
			e.ToolApprovalRequested = &models.ToolApprovalRequestedPayload{ToolUseID: tu.ID, Name: tu.Name}
		})
		response, ok := t.Approval.RequestApproval(ctx, tu.ID, tu.Name, cancel)
		if !ok {
			return models.UserMessage{}, true
		}
		proceed, err := t.AllowList.ApplyApproval(spec, response)
		if err != nil || !proceed {
			return toolpolicy.DeniedResult(tu.ID), false
		}
	}

	content, isError, err := t.Registry.Execute(ctx, tu.Name, tu.Arguments)
	if err != nil {
		return models.NewToolResult(tu.ID, err.Error(), models.ToolResultError), false
	}
	status := models.ToolResultSuccess
	if isError {
		status = models.ToolResultError
	}
	return models.NewToolResult(tu.ID, content, status), false
}
