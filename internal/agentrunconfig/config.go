// Package agentrunconfig loads the `agentrun.toml` process configuration:
// default provider credentials, the MCP server list, and the trusted-shell
// document path (spec.md §6). Grounded on the teacher pack's
// config.Load(path) defaults→TOML→env idiom (nevindra-oasis's
// internal/config.Load).
package agentrunconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/agentcore/runtime/internal/mcp"
)

// Config is the top-level shape of agentrun.toml.
type Config struct {
	DefaultProvider string                 `toml:"default_provider"`
	DefaultModel    string                 `toml:"default_model"`
	Anthropic       AnthropicConfig        `toml:"anthropic"`
	OpenAI          OpenAIConfig           `toml:"openai"`
	Bedrock         BedrockConfig          `toml:"bedrock"`
	MCP             mcp.Config             `toml:"mcp"`
	TrustedCommands TrustedCommandsConfig  `toml:"trusted_commands"`
}

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	DefaultModel string `toml:"default_model"`
}

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	DefaultModel string `toml:"default_model"`
}

// BedrockConfig configures the Bedrock provider.
type BedrockConfig struct {
	Region          string `toml:"region"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	SessionToken    string `toml:"session_token"`
	DefaultModel    string `toml:"default_model"`
}

// TrustedCommandsConfig names the document ShellPolicy loads its rules
// from.
type TrustedCommandsConfig struct {
	Path string `toml:"path"`
}

// Default returns a Config with the conventional defaults applied before
// any file or environment override.
func Default() Config {
	return Config{
		DefaultProvider: "anthropic",
		DefaultModel:    "claude-sonnet-4-20250514",
	}
}

// DefaultPath returns the conventional location for agentrun.toml under
// the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("agentrunconfig: resolving config dir: %w", err)
	}
	return filepath.Join(dir, "agentrun", "agentrun.toml"), nil
}

// Load reads config as defaults -> TOML file -> environment variables,
// with environment variables taking precedence. A missing file at path is
// not an error: it just leaves the defaults (and any env overrides) in
// place.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("agentrunconfig: parsing %s: %w", path, err)
		}
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Bedrock.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Bedrock.SecretAccessKey = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Bedrock.Region = v
	}

	return cfg, nil
}
