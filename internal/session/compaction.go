package session

import (
	"context"
	"strings"

	"github.com/agentcore/runtime/internal/providers"
	"github.com/agentcore/runtime/internal/worker"
	"github.com/agentcore/runtime/pkg/models"
)

const defaultSummaryPrompt = `Summarize the conversation below concisely, preserving key decisions, outcomes, user preferences, and any pending tasks.`

// compactConversation issues a one-shot summarize request against w's
// current history and installs the result as a checkpoint, replacing the
// raw entries (spec.md §4.2 SetSummary, §4.8 run_task__compact_conversation).
func compactConversation(ctx context.Context, w *worker.Worker, provider providers.Provider, model, instruction string, cancel <-chan struct{}) models.JobCompletionResult {
	entries := w.History.MainLine()
	if len(entries) == 0 {
		return models.Success(nil, models.InteractionNone)
	}

	prompt := instruction
	if prompt == "" {
		prompt = defaultSummaryPrompt
	}

	req := providers.ModelRequest{
		Model:        model,
		SystemPrompt: prompt,
		Messages: append(
			entriesToTranscript(entries),
			providers.ConversationMessage{Role: "user", Content: "Summarize the conversation above."},
		),
	}

	resp := provider.Request(ctx, req, func() {}, func(providers.AssistantChunk) {}, cancel)
	switch resp.Status {
	case providers.ResponseCancelled:
		return models.Cancelled()
	case providers.ResponseFailed:
		return models.Failed(resp.Error)
	}

	w.History.SetSummary(resp.Text, &resp.Usage)
	return models.Success(nil, models.InteractionNone)
}

// entriesToTranscript flattens history entries into a single readable
// transcript the summarization request's history can reference: user
// prompts, tool results and assistant text become plain text lines, while
// assistant tool-use requests and cancelled-tool-use entries are left out
// rather than reconstructed as tool_use wire messages, since the summary
// request never needs to resume them.
func entriesToTranscript(entries []models.Entry) []providers.ConversationMessage {
	var b strings.Builder
	for _, e := range entries {
		writeUserLine(&b, e.User)
		if !e.Pending() {
			if e.Assistant.Text != "" {
				b.WriteString("Assistant: ")
				b.WriteString(e.Assistant.Text)
				b.WriteString("\n")
			}
		}
	}
	return []providers.ConversationMessage{{Role: "user", Content: b.String()}}
}

func writeUserLine(b *strings.Builder, u models.UserMessage) {
	switch u.Kind {
	case models.UserMessagePrompt:
		b.WriteString("User: ")
		b.WriteString(u.Text)
		b.WriteString("\n")
	case models.UserMessageToolResult:
		b.WriteString("Tool result (")
		b.WriteString(u.ToolUseID)
		b.WriteString("): ")
		b.WriteString(u.Content)
		b.WriteString("\n")
	}
}
