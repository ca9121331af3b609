package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go/document"

	"github.com/agentcore/runtime/internal/agenterrors"
	"github.com/agentcore/runtime/pkg/models"
)

// BedrockConfig configures a BedrockProvider, exercising the AWS SigV4
// auth path named in SPEC_FULL.md's domain stack table.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	DefaultModel    string
}

// BedrockProvider adapts AWS Bedrock's Converse streaming API to the
// Provider contract.
type BedrockProvider struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// NewBedrockProvider builds a provider from cfg, loading the default AWS
// config chain and overriding credentials when cfg supplies a static key
// pair.
func NewBedrockProvider(ctx context.Context, cfg BedrockConfig) (*BedrockProvider, error) {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("providers: loading AWS config: %w", err)
	}
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(awsCfg), defaultModel: cfg.DefaultModel}, nil
}

func (p *BedrockProvider) Name() string { return "bedrock" }

func (p *BedrockProvider) Request(ctx context.Context, req ModelRequest, onBegin OnBegin, onChunk OnChunk, cancel <-chan struct{}) ModelResponse {
	select {
	case <-cancel:
		return ModelResponse{Status: ResponseCancelled}
	default:
	}

	history, last, err := req.lastUser()
	if err != nil {
		return ModelResponse{Status: ResponseFailed, Error: err.Error()}
	}

	messages := make([]types.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, bedrockMessage(m))
	}
	messages = append(messages, types.Message{
		Role:    types.ConversationRoleUser,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prependContext(req.Context, last.Content)}},
	})

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := int32(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	input := &bedrockruntime.ConverseStreamInput{
		ModelId:        aws.String(model),
		Messages:       messages,
		InferenceConfig: &types.InferenceConfiguration{MaxTokens: aws.Int32(maxTokens)},
	}
	if req.SystemPrompt != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: req.SystemPrompt}}
	}
	if len(req.Tools) > 0 {
		input.ToolConfig = &types.ToolConfiguration{Tools: bedrockTools(req.Tools)}
	}

	select {
	case <-cancel:
		return ModelResponse{Status: ResponseCancelled}
	default:
	}

	out, err := p.client.ConverseStream(ctx, input)
	if err != nil {
		return ModelResponse{Status: ResponseFailed, Error: fmt.Sprintf("%s%v", hintPrefix(agenterrors.OperatorHint(err)), err)}
	}
	stream := out.GetStream()
	defer stream.Close()

	var text string
	var toolUses []models.AssistantToolUse
	var currentToolID, currentToolName, currentToolInput string
	usage := models.RequestMetadata{Model: model}
	began := false

	for event := range stream.Events() {
		select {
		case <-cancel:
			return ModelResponse{Status: ResponseCancelled, Text: text, ToolUses: toolUses, Usage: usage}
		default:
		}
		if !began {
			began = true
			if onBegin != nil {
				onBegin()
			}
		}
		switch v := event.(type) {
		case *types.ConverseStreamOutputMemberContentBlockStart:
			if tu, ok := v.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
				currentToolID = aws.ToString(tu.Value.ToolUseId)
				currentToolName = aws.ToString(tu.Value.Name)
				currentToolInput = ""
			}
		case *types.ConverseStreamOutputMemberContentBlockDelta:
			switch d := v.Value.Delta.(type) {
			case *types.ContentBlockDeltaMemberText:
				text += d.Value
				if onChunk != nil {
					onChunk(AssistantChunk{Kind: ChunkText, Text: d.Value})
				}
			case *types.ContentBlockDeltaMemberToolUse:
				currentToolInput += aws.ToString(d.Value.Input)
			}
		case *types.ConverseStreamOutputMemberContentBlockStop:
			if currentToolID != "" {
				args := json.RawMessage(currentToolInput)
				if len(args) == 0 {
					args = json.RawMessage("{}")
				}
				toolUses = append(toolUses, models.AssistantToolUse{ID: currentToolID, Name: currentToolName, Arguments: args})
				if onChunk != nil {
					onChunk(AssistantChunk{Kind: ChunkToolUse, ToolUseID: currentToolID, ToolName: currentToolName, Parameters: args})
				}
				currentToolID = ""
			}
		case *types.ConverseStreamOutputMemberMetadata:
			if v.Value.Usage != nil {
				usage.InputTokens = int(aws.ToInt32(v.Value.Usage.InputTokens))
				usage.OutputTokens = int(aws.ToInt32(v.Value.Usage.OutputTokens))
			}
		}
	}
	if err := stream.Err(); err != nil {
		return ModelResponse{Status: ResponseFailed, Error: fmt.Sprintf("%s%v", hintPrefix(agenterrors.OperatorHint(err)), err), Usage: usage}
	}

	return ModelResponse{Status: ResponseSuccess, Text: text, ToolUses: toolUses, Usage: usage}
}

func bedrockMessage(m ConversationMessage) types.Message {
	switch m.Role {
	case "assistant":
		blocks := []types.ContentBlock{}
		if m.Content != "" {
			blocks = append(blocks, &types.ContentBlockMemberText{Value: m.Content})
		}
		for _, tu := range m.ToolUses {
			var input document.Interface
			_ = json.Unmarshal(tu.Arguments, &input)
			blocks = append(blocks, &types.ContentBlockMemberToolUse{
				Value: types.ToolUseBlock{ToolUseId: aws.String(tu.ID), Name: aws.String(tu.Name), Input: input},
			})
		}
		return types.Message{Role: types.ConversationRoleAssistant, Content: blocks}
	case "tool":
		blocks := make([]types.ContentBlock, 0, len(m.ToolResults))
		for _, tr := range m.ToolResults {
			status := types.ToolResultStatusSuccess
			if tr.IsError {
				status = types.ToolResultStatusError
			}
			blocks = append(blocks, &types.ContentBlockMemberToolResult{
				Value: types.ToolResultBlock{
					ToolUseId: aws.String(tr.ToolUseID),
					Status:    status,
					Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: tr.Content}},
				},
			})
		}
		return types.Message{Role: types.ConversationRoleUser, Content: blocks}
	default:
		return types.Message{Role: types.ConversationRoleUser, Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}}}
	}
}

func bedrockTools(specs []models.ToolSpec) []types.Tool {
	out := make([]types.Tool, 0, len(specs))
	for _, s := range specs {
		var schemaDoc document.Interface
		if len(s.InputSchema) > 0 {
			_ = json.Unmarshal(s.InputSchema, &schemaDoc)
		}
		out = append(out, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(s.QualifiedName()),
				Description: aws.String(s.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: schemaDoc},
			},
		})
	}
	return out
}
