package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentcore/runtime/internal/agentrunconfig"
	"github.com/agentcore/runtime/internal/eventbus"
	"github.com/agentcore/runtime/internal/mcp"
	"github.com/agentcore/runtime/internal/providers"
	"github.com/agentcore/runtime/internal/toolpolicy"
	"github.com/agentcore/runtime/internal/toolregistry"
)

// runtime bundles the components a CLI command wires together to build a
// session: the event bus, the configured provider registry, the tool
// registry (built-ins plus whatever the MCP manager discovered), and the
// shell trust policy. Grounded on the teacher's buildServeCmd-style
// "load config, construct dependencies, run" idiom.
type runtime struct {
	cfg       agentrunconfig.Config
	bus       *eventbus.Bus
	providers *providers.Registry
	registry  *toolregistry.Registry
	shell     *toolpolicy.ShellPolicy
	mcp       *mcp.Manager
}

func buildRuntime(ctx context.Context, configPath, trustedCommandsPath string) (*runtime, error) {
	cfg, err := agentrunconfig.Load(configPath)
	if err != nil {
		return nil, err
	}

	var provs []providers.Provider
	if cfg.Anthropic.APIKey != "" {
		p, err := providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey: cfg.Anthropic.APIKey, BaseURL: cfg.Anthropic.BaseURL, DefaultModel: cfg.Anthropic.DefaultModel,
		})
		if err != nil {
			return nil, fmt.Errorf("agentrun: anthropic provider: %w", err)
		}
		provs = append(provs, p)
	}
	if cfg.OpenAI.APIKey != "" {
		p, err := providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey: cfg.OpenAI.APIKey, BaseURL: cfg.OpenAI.BaseURL, DefaultModel: cfg.OpenAI.DefaultModel,
		})
		if err != nil {
			return nil, fmt.Errorf("agentrun: openai provider: %w", err)
		}
		provs = append(provs, p)
	}
	if cfg.Bedrock.Region != "" {
		p, err := providers.NewBedrockProvider(ctx, providers.BedrockConfig{
			Region: cfg.Bedrock.Region, AccessKeyID: cfg.Bedrock.AccessKeyID,
			SecretAccessKey: cfg.Bedrock.SecretAccessKey, SessionToken: cfg.Bedrock.SessionToken,
			DefaultModel: cfg.Bedrock.DefaultModel,
		})
		if err != nil {
			return nil, fmt.Errorf("agentrun: bedrock provider: %w", err)
		}
		provs = append(provs, p)
	}
	if len(provs) == 0 {
		return nil, fmt.Errorf("agentrun: no provider configured; set an API key in %s or the environment", configPath)
	}
	reg := providers.NewRegistry(cfg.DefaultProvider, provs...)

	if trustedCommandsPath == "" {
		trustedCommandsPath = cfg.TrustedCommands.Path
	}
	shell := toolpolicy.NewShellPolicy(trustedCommandsPath, slog.Default())

	toolsReg := toolregistry.New(shell)
	if err := toolsReg.RegisterBuiltins(); err != nil {
		return nil, fmt.Errorf("agentrun: registering built-in tools: %w", err)
	}

	mgr := mcp.NewManager(&cfg.MCP, slog.Default())
	if err := mgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("agentrun: starting MCP manager: %w", err)
	}
	for _, spec := range mgr.AllToolSpecs() {
		qualified := spec.QualifiedName()
		if err := toolsReg.Register(spec, func(ctx context.Context, arguments []byte) (string, bool, error) {
			res, err := mgr.CallTool(ctx, qualified, arguments)
			if err != nil {
				return "", true, err
			}
			return res.Text(), res.IsError, nil
		}); err != nil {
			slog.Warn("skipping MCP tool with an invalid input schema", "tool", qualified, "error", err)
		}
	}

	return &runtime{
		cfg:       cfg,
		bus:       eventbus.New(0),
		providers: reg,
		registry:  toolsReg,
		shell:     shell,
		mcp:       mgr,
	}, nil
}
