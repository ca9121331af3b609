package toolpolicy

import (
	"fmt"
	"sync"

	"github.com/agentcore/runtime/pkg/models"
)

// Decision is the outcome of resolving a tool call against the trust
// policy, before any approval round-trip with a UI (spec.md §4.3 steps
// 1-3).
type Decision struct {
	// Trust is the computed trust level for this specific invocation.
	Trust models.TrustLevel
	// RequiresApproval is true when the agent loop must suspend and emit
	// a ToolApprovalRequested chunk before execution.
	RequiresApproval bool
}

// SessionAllowList tracks tools a user has approved for the remainder of
// a session via ApprovalAllowAlwaysSession, keyed by qualified tool name.
// It is safe for concurrent use from the agent loop.
type SessionAllowList struct {
	shell *ShellPolicy
	mu    sync.Mutex
	names map[string]struct{}
}

// NewSessionAllowList creates an empty allow-list backed by shell for
// shell-specific trust evaluation. shell may be nil if the registry has
// no shell-executing tool.
func NewSessionAllowList(shell *ShellPolicy) *SessionAllowList {
	return &SessionAllowList{shell: shell, names: make(map[string]struct{})}
}

// Allow records that qualifiedName is approved for the rest of the
// session.
func (s *SessionAllowList) Allow(qualifiedName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[qualifiedName] = struct{}{}
}

// Resolve decides whether invoking tool with the given arguments requires
// approval. A built-in shell-executing tool (name "execute_bash") is
// special-cased to evaluate the command text rather than the declared
// tool trust level, matching spec.md §4.3's per-invocation shell rule.
func (s *SessionAllowList) Resolve(tool models.ToolSpec, command string) Decision {
	qualified := tool.QualifiedName()
	s.mu.Lock()
	_, allowed := s.names[qualified]
	s.mu.Unlock()
	if allowed {
		return Decision{Trust: models.TrustTrusted, RequiresApproval: false}
	}

	if tool.Name == "execute_bash" && s.shell != nil {
		level := s.shell.TrustLevelFor(command)
		return Decision{Trust: level, RequiresApproval: level != models.TrustTrusted}
	}

	switch tool.Trust {
	case models.TrustTrusted:
		return Decision{Trust: models.TrustTrusted, RequiresApproval: false}
	case models.TrustReadOnly:
		return Decision{Trust: models.TrustReadOnly, RequiresApproval: false}
	default:
		return Decision{Trust: models.TrustUntrusted, RequiresApproval: true}
	}
}

// DeniedResult builds the synthetic ToolResult recorded in history when a
// UI answers a ToolApprovalRequested chunk with ApprovalDeny (spec.md
// §4.3, §4.6).
func DeniedResult(toolUseID string) models.UserMessage {
	return models.NewToolResult(toolUseID, "the user declined to run this tool", models.ToolResultError)
}

// ApplyApproval updates allow-list state for a given response and reports
// whether the call may proceed.
func (s *SessionAllowList) ApplyApproval(tool models.ToolSpec, response models.ApprovalResponse) (proceed bool, err error) {
	switch response {
	case models.ApprovalAllow:
		return true, nil
	case models.ApprovalAllowAlwaysSession:
		s.Allow(tool.QualifiedName())
		return true, nil
	case models.ApprovalDeny:
		return false, nil
	default:
		return false, fmt.Errorf("toolpolicy: unknown approval response %q", response)
	}
}
