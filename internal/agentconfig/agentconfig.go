// Package agentconfig implements the persisted agent configuration store
// described in spec.md §6: named JSON documents under a user config
// directory, addressed by name, holding the per-agent provider/model/tool
// defaults the CLI's `agent` subcommands manage.
package agentconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Config is one named agent's persisted configuration.
type Config struct {
	Name         string            `json:"name"`
	Provider     string            `json:"provider"`
	Model        string            `json:"model"`
	SystemPrompt string            `json:"system_prompt,omitempty"`
	MaxTokens    int               `json:"max_tokens,omitempty"`
	Tools        []string          `json:"tools,omitempty"`
	MCPServers   []string          `json:"mcp_servers,omitempty"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
}

// Store manages agent configs as individual JSON files under dir, plus a
// "default" marker file naming the default agent.
type Store struct {
	dir string
}

// NewStore opens a store rooted at dir, creating it if absent.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("agentconfig: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// DefaultDir returns the conventional location for agent configs under
// the user's config directory.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("agentconfig: resolving config dir: %w", err)
	}
	return filepath.Join(dir, "agentrun", "agents"), nil
}

func (s *Store) pathFor(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Create writes a new named config, failing if one already exists.
func (s *Store) Create(cfg Config) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("agentconfig: name is required")
	}
	path := s.pathFor(cfg.Name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("agentconfig: %q already exists", cfg.Name)
	}
	return s.write(cfg)
}

func (s *Store) write(cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("agentconfig: encoding %q: %w", cfg.Name, err)
	}
	return os.WriteFile(s.pathFor(cfg.Name), data, 0o644)
}

// Get loads a named config.
func (s *Store) Get(name string) (Config, error) {
	data, err := os.ReadFile(s.pathFor(name))
	if err != nil {
		return Config{}, fmt.Errorf("agentconfig: reading %q: %w", name, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("agentconfig: parsing %q: %w", name, err)
	}
	return cfg, nil
}

// List returns every stored config's name, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("agentconfig: reading %s: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") && e.Name() != "default.json" {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// SetDefault records name as the default agent.
func (s *Store) SetDefault(name string) error {
	if _, err := s.Get(name); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, "default.json"), []byte(fmt.Sprintf(`{"default":%q}`, name)), 0o644)
}

// GetDefault returns the default agent's name, or "" if none is set.
func (s *Store) GetDefault() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "default.json"))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("agentconfig: reading default marker: %w", err)
	}
	var marker struct {
		Default string `json:"default"`
	}
	if err := json.Unmarshal(data, &marker); err != nil {
		return "", fmt.Errorf("agentconfig: parsing default marker: %w", err)
	}
	return marker.Default, nil
}

// FieldSchema describes one Config field for `agent schema` output.
type FieldSchema struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema decodes a loosely-typed document (e.g. parsed YAML/TOML) into a
// Config via mapstructure, returning the full list of Config fields (the
// same list whatever raw populates) together with the decoded Config — the
// form the CLI's `agent schema` command renders.
func Schema(raw map[string]any) ([]FieldSchema, Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return nil, Config{}, fmt.Errorf("agentconfig: building decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, Config{}, fmt.Errorf("agentconfig: decoding schema: %w", err)
	}

	fields := []FieldSchema{
		{Name: "name", Type: "string"},
		{Name: "provider", Type: "string"},
		{Name: "model", Type: "string"},
		{Name: "system_prompt", Type: "string"},
		{Name: "max_tokens", Type: "int"},
		{Name: "tools", Type: "[]string"},
		{Name: "mcp_servers", Type: "[]string"},
		{Name: "metadata", Type: "map[string]any"},
		{Name: "env", Type: "map[string]string"},
	}
	return fields, cfg, nil
}
