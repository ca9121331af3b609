package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentcore/runtime/internal/agenterrors"
	"github.com/agentcore/runtime/pkg/models"
)

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// AnthropicProvider adapts Anthropic's Messages streaming API to the
// Provider contract, grounded on the teacher's
// internal/agent/providers.AnthropicProvider.
type AnthropicProvider struct {
	client       anthropic.Client
	defaultModel string
}

// NewAnthropicProvider builds a provider from cfg.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("providers: anthropic API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{client: anthropic.NewClient(opts...), defaultModel: cfg.DefaultModel}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Request(ctx context.Context, req ModelRequest, onBegin OnBegin, onChunk OnChunk, cancel <-chan struct{}) ModelResponse {
	select {
	case <-cancel:
		return ModelResponse{Status: ResponseCancelled}
	default:
	}

	history, last, err := req.lastUser()
	if err != nil {
		return ModelResponse{Status: ResponseFailed, Error: err.Error()}
	}

	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, anthropicMessage(m))
	}
	userContent := prependContext(req.Context, last.Content)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(userContent)))

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.SystemPrompt}}
	}
	if len(req.Tools) > 0 {
		params.Tools = anthropicTools(req.Tools)
	}

	select {
	case <-cancel:
		return ModelResponse{Status: ResponseCancelled}
	default:
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	var text strings.Builder
	var toolUses []models.AssistantToolUse
	var currentToolID, currentToolName string
	var currentToolInput strings.Builder
	var usage models.RequestMetadata
	usage.Model = model
	began := false

	for stream.Next() {
		select {
		case <-cancel:
			return ModelResponse{Status: ResponseCancelled, Text: text.String(), ToolUses: toolUses, Usage: usage}
		default:
		}

		if !began {
			began = true
			if onBegin != nil {
				onBegin()
			}
		}

		event := stream.Current()
		switch event.Type {
		case "message_start":
			ms := event.AsMessageStart()
			usage.InputTokens = int(ms.Message.Usage.InputTokens)
		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				tu := block.AsToolUse()
				currentToolID, currentToolName = tu.ID, tu.Name
				currentToolInput.Reset()
			}
		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					text.WriteString(delta.Text)
					if onChunk != nil {
						onChunk(AssistantChunk{Kind: ChunkText, Text: delta.Text})
					}
				}
			case "input_json_delta":
				currentToolInput.WriteString(delta.PartialJSON)
			}
		case "content_block_stop":
			if currentToolID != "" {
				args := json.RawMessage(currentToolInput.String())
				if len(args) == 0 {
					args = json.RawMessage("{}")
				}
				toolUses = append(toolUses, models.AssistantToolUse{ID: currentToolID, Name: currentToolName, Arguments: args})
				if onChunk != nil {
					onChunk(AssistantChunk{Kind: ChunkToolUse, ToolUseID: currentToolID, ToolName: currentToolName, Parameters: args})
				}
				currentToolID, currentToolName = "", ""
			}
		case "message_delta":
			md := event.AsMessageDelta()
			usage.OutputTokens = int(md.Usage.OutputTokens)
		}
	}
	if err := stream.Err(); err != nil {
		hint := agenterrors.OperatorHint(err)
		return ModelResponse{Status: ResponseFailed, Error: fmt.Sprintf("%s%v", hintPrefix(hint), err), Usage: usage}
	}

	return ModelResponse{Status: ResponseSuccess, Text: text.String(), ToolUses: toolUses, Usage: usage}
}

func hintPrefix(hint string) string {
	if hint == "" {
		return ""
	}
	return hint + ": "
}

func anthropicMessage(m ConversationMessage) anthropic.MessageParam {
	switch m.Role {
	case "assistant":
		blocks := []anthropic.ContentBlockParamUnion{}
		if m.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(m.Content))
		}
		for _, tu := range m.ToolUses {
			var input any
			_ = json.Unmarshal(tu.Arguments, &input)
			blocks = append(blocks, anthropic.NewToolUseBlock(tu.ID, input, tu.Name))
		}
		return anthropic.NewAssistantMessage(blocks...)
	case "tool":
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolResults))
		for _, tr := range m.ToolResults {
			blocks = append(blocks, anthropic.NewToolResultBlock(tr.ToolUseID, tr.Content, tr.IsError))
		}
		return anthropic.NewUserMessage(blocks...)
	default:
		return anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content))
	}
}

func anthropicTools(specs []models.ToolSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, s := range specs {
		var schema anthropic.ToolInputSchemaParam
		if len(s.InputSchema) > 0 {
			var props map[string]any
			_ = json.Unmarshal(s.InputSchema, &props)
			schema.Properties = props
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        s.QualifiedName(),
				Description: anthropic.String(s.Description),
				InputSchema: schema,
			},
		})
	}
	return out
}
