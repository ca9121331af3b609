package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentcore/runtime/internal/agenterrors"
	"github.com/agentcore/runtime/pkg/models"
)

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// OpenAIProvider adapts OpenAI's chat completion streaming API to the
// Provider contract, grounded on the teacher's
// internal/agent/providers.OpenAIProvider.
type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAIProvider builds a provider from cfg.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("providers: openai API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientCfg), defaultModel: cfg.DefaultModel}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Request(ctx context.Context, req ModelRequest, onBegin OnBegin, onChunk OnChunk, cancel <-chan struct{}) ModelResponse {
	select {
	case <-cancel:
		return ModelResponse{Status: ResponseCancelled}
	default:
	}

	history, last, err := req.lastUser()
	if err != nil {
		return ModelResponse{Status: ResponseFailed, Error: err.Error()}
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range history {
		messages = append(messages, openaiMessages(m)...)
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prependContext(req.Context, last.Content),
	})

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
		Stream:    true,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = openaiTools(req.Tools)
	}

	select {
	case <-cancel:
		return ModelResponse{Status: ResponseCancelled}
	default:
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return ModelResponse{Status: ResponseFailed, Error: fmt.Sprintf("%s%v", hintPrefix(agenterrors.OperatorHint(err)), err)}
	}
	defer stream.Close()

	var text string
	toolCalls := make(map[int]*models.AssistantToolUse)
	var order []int
	usage := models.RequestMetadata{Model: model}
	began := false

	for {
		select {
		case <-cancel:
			return ModelResponse{Status: ResponseCancelled, Text: text, ToolUses: orderedToolUses(toolCalls, order), Usage: usage}
		default:
		}

		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ModelResponse{Status: ResponseFailed, Error: fmt.Sprintf("%s%v", hintPrefix(agenterrors.OperatorHint(err)), err), Usage: usage}
		}
		if !began {
			began = true
			if onBegin != nil {
				onBegin()
			}
		}
		if resp.Usage != nil {
			usage.InputTokens = resp.Usage.PromptTokens
			usage.OutputTokens = resp.Usage.CompletionTokens
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			text += delta.Content
			if onChunk != nil {
				onChunk(AssistantChunk{Kind: ChunkText, Text: delta.Content})
			}
		}
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			cur, ok := toolCalls[idx]
			if !ok {
				cur = &models.AssistantToolUse{Arguments: json.RawMessage("")}
				toolCalls[idx] = cur
				order = append(order, idx)
			}
			if tc.ID != "" {
				cur.ID = tc.ID
			}
			if tc.Function.Name != "" {
				cur.Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				cur.Arguments = append(cur.Arguments, []byte(tc.Function.Arguments)...)
			}
		}
		if resp.Choices[0].FinishReason == openai.FinishReasonToolCalls && onChunk != nil {
			for _, idx := range order {
				tc := toolCalls[idx]
				onChunk(AssistantChunk{Kind: ChunkToolUse, ToolUseID: tc.ID, ToolName: tc.Name, Parameters: tc.Arguments})
			}
		}
	}

	return ModelResponse{Status: ResponseSuccess, Text: text, ToolUses: orderedToolUses(toolCalls, order), Usage: usage}
}

func orderedToolUses(toolCalls map[int]*models.AssistantToolUse, order []int) []models.AssistantToolUse {
	out := make([]models.AssistantToolUse, 0, len(order))
	for _, idx := range order {
		tc := toolCalls[idx]
		if len(tc.Arguments) == 0 {
			tc.Arguments = json.RawMessage("{}")
		}
		out = append(out, *tc)
	}
	return out
}

// openaiMessages expands one ConversationMessage into the one-or-more
// wire messages OpenAI's API requires: an assistant turn carries all its
// tool calls in a single message, but each tool result needs its own
// dedicated "tool"-role message.
func openaiMessages(m ConversationMessage) []openai.ChatCompletionMessage {
	switch m.Role {
	case "assistant":
		msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
		for _, tu := range m.ToolUses {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tu.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tu.Name,
					Arguments: string(tu.Arguments),
				},
			})
		}
		return []openai.ChatCompletionMessage{msg}
	case "tool":
		out := make([]openai.ChatCompletionMessage, 0, len(m.ToolResults))
		for _, tr := range m.ToolResults {
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleTool, Content: tr.Content, ToolCallID: tr.ToolUseID})
		}
		return out
	default:
		return []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: m.Content}}
	}
}

func openaiTools(specs []models.ToolSpec) []openai.Tool {
	out := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		var params any
		if len(s.InputSchema) > 0 {
			_ = json.Unmarshal(s.InputSchema, &params)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.QualifiedName(),
				Description: s.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
