// Package toolregistry implements the tool catalog described in spec.md
// §4.3: a mapping fully_qualified_name → ToolSpec ∪ Handler, combining
// built-in shell/file/search handlers with tools discovered from MCP
// servers, with JSON-Schema validation of tool-call arguments before
// execution.
package toolregistry

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/agentcore/runtime/internal/toolpolicy"
	"github.com/agentcore/runtime/pkg/models"
)

// Handler executes a tool call's arguments and returns its result text.
type Handler func(ctx context.Context, arguments []byte) (content string, isError bool, err error)

// entry pairs a ToolSpec with its handler and, if the input schema was
// parseable, a compiled validator.
type entry struct {
	spec     models.ToolSpec
	handler  Handler
	compiled *jsonschema.Schema
}

// Registry is the tool catalog consulted by the agent loop. Built-in
// handlers and MCP-discovered tools share one namespace keyed by
// ToolSpec.QualifiedName().
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	shell   *toolpolicy.ShellPolicy
}

// New creates an empty registry. shell is stored on the registry, but no
// registry method consults it; per-invocation shell trust for the built-in
// execute_bash tool is evaluated by toolpolicy.SessionAllowList.
func New(shell *toolpolicy.ShellPolicy) *Registry {
	return &Registry{entries: make(map[string]entry), shell: shell}
}

// Register adds or replaces a tool. If spec.InputSchema is present and
// fails to compile, Register returns an error rather than silently
// skipping validation (spec.md §7 Protocol class: malformed schema is a
// configuration problem the caller should surface before launch).
func (r *Registry) Register(spec models.ToolSpec, handler Handler) error {
	var compiled *jsonschema.Schema
	if len(spec.InputSchema) > 0 {
		c, err := compileSchema(spec.QualifiedName(), spec.InputSchema)
		if err != nil {
			return fmt.Errorf("toolregistry: compiling schema for %s: %w", spec.QualifiedName(), err)
		}
		compiled = c
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[spec.QualifiedName()] = entry{spec: spec, handler: handler, compiled: compiled}
	return nil
}

// Unregister removes every entry whose ServerOrigin matches serverID.
// Nothing in this module calls it: a server's tools/list_changed
// notification or disconnect leaves its registered tools in place.
func (r *Registry) Unregister(serverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.entries {
		if e.spec.ServerOrigin == serverID {
			delete(r.entries, k)
		}
	}
}

// Lookup returns the ToolSpec for a qualified name.
func (r *Registry) Lookup(qualifiedName string) (models.ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[qualifiedName]
	return e.spec, ok
}

// Specs returns a snapshot of every registered ToolSpec, the form sent to
// the model provider as available tools.
func (r *Registry) Specs() []models.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolSpec, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.spec)
	}
	return out
}

// Execute validates arguments against the tool's compiled schema (if any)
// and invokes its handler. A schema-invalid call is a Protocol-class
// error (spec.md §7): the job should surface it as Failed, not silently
// coerce the arguments.
func (r *Registry) Execute(ctx context.Context, qualifiedName string, arguments []byte) (content string, isError bool, err error) {
	r.mu.RLock()
	e, ok := r.entries[qualifiedName]
	r.mu.RUnlock()
	if !ok {
		return "", true, fmt.Errorf("toolregistry: unknown tool %q", qualifiedName)
	}
	if e.compiled != nil {
		if verr := validateArguments(e.compiled, arguments); verr != nil {
			return "", true, fmt.Errorf("toolregistry: invalid arguments for %s: %w", qualifiedName, verr)
		}
	}
	return e.handler(ctx, arguments)
}

// RegisterBuiltins installs the spec's built-in tool shapes — shell
// execution, file read/write, workspace search — sufficient to exercise
// the trust-policy engine without implementing sandboxing internals
// (spec.md §1 non-goal: "file-system and web-search tools' internals").
func (r *Registry) RegisterBuiltins() error {
	if err := r.Register(models.ToolSpec{
		Name:        "execute_bash",
		Description: "Execute a shell command and return its stdout/stderr.",
		InputSchema: []byte(`{"type":"object","properties":{"command":{"type":"string"}},"required":["command"]}`),
		Trust:       models.TrustUntrusted,
	}, r.executeBash); err != nil {
		return err
	}
	if err := r.Register(models.ToolSpec{
		Name:        "read_file",
		Description: "Read a file's contents.",
		InputSchema: []byte(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`),
		Trust:       models.TrustReadOnly,
	}, r.readFile); err != nil {
		return err
	}
	if err := r.Register(models.ToolSpec{
		Name:        "write_file",
		Description: "Write content to a file, creating or truncating it.",
		InputSchema: []byte(`{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"}},"required":["path","content"]}`),
		Trust:       models.TrustUntrusted,
	}, r.writeFile); err != nil {
		return err
	}
	return r.Register(models.ToolSpec{
		Name:        "search_workspace",
		Description: "Search the workspace for a literal or regex pattern.",
		InputSchema: []byte(`{"type":"object","properties":{"pattern":{"type":"string"},"path":{"type":"string"}},"required":["pattern"]}`),
		Trust:       models.TrustReadOnly,
	}, r.searchWorkspace)
}

func (r *Registry) executeBash(ctx context.Context, arguments []byte) (string, bool, error) {
	var args struct {
		Command string `json:"command"`
	}
	if err := unmarshalArgs(arguments, &args); err != nil {
		return "", true, err
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", args.Command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out) + "\n" + err.Error(), true, nil
	}
	return string(out), false, nil
}

func (r *Registry) readFile(_ context.Context, arguments []byte) (string, bool, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := unmarshalArgs(arguments, &args); err != nil {
		return "", true, err
	}
	data, err := os.ReadFile(args.Path)
	if err != nil {
		return err.Error(), true, nil
	}
	return string(data), false, nil
}

func (r *Registry) writeFile(_ context.Context, arguments []byte) (string, bool, error) {
	var args struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := unmarshalArgs(arguments, &args); err != nil {
		return "", true, err
	}
	if err := os.WriteFile(args.Path, []byte(args.Content), 0o644); err != nil {
		return err.Error(), true, nil
	}
	return "wrote " + args.Path, false, nil
}

func (r *Registry) searchWorkspace(ctx context.Context, arguments []byte) (string, bool, error) {
	var args struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
	}
	if err := unmarshalArgs(arguments, &args); err != nil {
		return "", true, err
	}
	path := args.Path
	if path == "" {
		path = "."
	}
	cmd := exec.CommandContext(ctx, "grep", "-rn", args.Pattern, path)
	out, err := cmd.CombinedOutput()
	if err != nil && len(out) == 0 {
		return err.Error(), true, nil
	}
	return string(out), false, nil
}
