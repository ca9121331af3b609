// Package history implements the conversation history described in
// spec.md §3 and §4.2: an append-only log of Entry records with strict
// user/assistant alternation, tool-use/result pairing, tangent (branch)
// mode, and summarization checkpoints.
package history

import (
	"errors"
	"fmt"
	"sync"

	"github.com/agentcore/runtime/pkg/models"
)

// Errors surfaced for invariant violations (spec.md §7, "Invariant" class:
// programmer error, logged, the offending operation rejected).
var (
	ErrPendingAssistantTurn = errors.New("history: previous entry has a pending assistant turn")
	ErrNoPendingEntry       = errors.New("history: no pending entry to complete")
	ErrAlreadyInTangent     = errors.New("history: already in tangent mode")
	ErrNotInTangent         = errors.New("history: not in tangent mode")
)

// History holds the ordered sequence of Entry records for one
// ContextContainer. All operations are guarded by an internal mutex so
// concurrent tasks for the same worker observe a consistent snapshot
// (spec.md §5, ordering guarantee 2).
type History struct {
	mu      sync.Mutex
	entries []models.Entry

	// tangentBranchPoint, when >= 0, is the index in entries at which the
	// current tangent diverged. Entries at and after this index belong to
	// the tangent branch and must never be exposed to a model request
	// directly (spec.md §9).
	tangentBranchPoint int
}

// New creates an empty history.
func New() *History {
	return &History{tangentBranchPoint: -1}
}

// InTangent reports whether the history currently holds an open tangent
// branch.
func (h *History) InTangent() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tangentBranchPoint >= 0
}

// Len returns the number of entries, including any open tangent branch.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Entries returns a defensive copy of the full entry log (main line plus
// any open tangent branch). Callers that need only the main line should
// use MainLine.
func (h *History) Entries() []models.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.Entry(nil), h.entries...)
}

// MainLine returns a defensive copy of the entries preceding any open
// tangent branch.
func (h *History) MainLine() []models.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tangentBranchPoint < 0 {
		return append([]models.Entry(nil), h.entries...)
	}
	return append([]models.Entry(nil), h.entries[:h.tangentBranchPoint]...)
}

// PushInput appends a pending user turn. It fails with ErrPendingAssistantTurn
// if the previous entry has not yet received its assistant completion
// (invariant a in spec.md §3).
func (h *History) PushInput(msg models.UserMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.entries); n > 0 && h.entries[n-1].Pending() {
		return ErrPendingAssistantTurn
	}
	h.entries = append(h.entries, models.NewPendingEntry(msg))
	return nil
}

// PushAssistant completes the current (pending) entry with the model's
// response.
func (h *History) PushAssistant(msg models.AssistantMessage, metadata *models.RequestMetadata) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.entries)
	if n == 0 || !h.entries[n-1].Pending() {
		return ErrNoPendingEntry
	}
	h.entries[n-1].Complete(msg, metadata)
	return nil
}

// SetSummary installs a summarization checkpoint: every prior entry is
// replaced by a single synthesized entry whose assistant content is text
// (invariant c).
func (h *History) SetSummary(text string, metadata *models.RequestMetadata) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = []models.Entry{models.SummaryEntry(text, metadata)}
	h.tangentBranchPoint = -1
}

// EnterTangent snapshots the current head so subsequent pushes land on a
// transient branch that never reaches a model request directly.
func (h *History) EnterTangent() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tangentBranchPoint >= 0 {
		return ErrAlreadyInTangent
	}
	h.tangentBranchPoint = len(h.entries)
	return nil
}

// ExitTangent discards the tangent branch entirely. Calling EnterTangent
// immediately followed by ExitTangent leaves the history byte-identical to
// before (spec.md §8 idempotence property).
func (h *History) ExitTangent() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tangentBranchPoint < 0 {
		return ErrNotInTangent
	}
	h.entries = h.entries[:h.tangentBranchPoint]
	h.tangentBranchPoint = -1
	return nil
}

// ExitTangentWithTail preserves only the last branch entry, appending it to
// the main line.
func (h *History) ExitTangentWithTail() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tangentBranchPoint < 0 {
		return ErrNotInTangent
	}
	branch := h.entries[h.tangentBranchPoint:]
	main := h.entries[:h.tangentBranchPoint]
	if len(branch) > 0 {
		main = append(main, branch[len(branch)-1])
	}
	h.entries = main
	h.tangentBranchPoint = -1
	return nil
}

// ExitTangentWithCompact appends a single synthesized summary entry
// `(Prompt("[Tangent conversation]"), Response(summary))` to the main line
// in place of the whole tangent branch. summary is produced by the caller
// (typically via a synthetic summarization model request).
func (h *History) ExitTangentWithCompact(summary string, metadata *models.RequestMetadata) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tangentBranchPoint < 0 {
		return ErrNotInTangent
	}
	main := h.entries[:h.tangentBranchPoint]
	main = append(main, models.TangentSummaryEntry(summary, metadata))
	h.entries = main
	h.tangentBranchPoint = -1
	return nil
}

// Restore replaces the history wholesale with entries, exiting any open
// tangent branch. Used by `delegate --conversation` and the `tangent` CLI
// commands to resume a conversation read from a conversation file.
func (h *History) Restore(entries []models.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append([]models.Entry(nil), entries...)
	h.tangentBranchPoint = -1
}

// TangentEntries returns a defensive copy of the entries on the open
// tangent branch, or nil if not in tangent mode.
func (h *History) TangentEntries() []models.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tangentBranchPoint < 0 {
		return nil
	}
	return append([]models.Entry(nil), h.entries[h.tangentBranchPoint:]...)
}

// orphanedToolUseIDs returns the tool-use ids in the last entry's assistant
// turn that have no matching ToolResult anywhere after it. Because it is
// the last entry, "anywhere after it" is vacuously true whenever the last
// entry is a completed ToolUse turn: nothing at all follows it.
func orphanedToolUseIDs(entries []models.Entry) []string {
	if len(entries) == 0 {
		return nil
	}
	last := entries[len(entries)-1]
	if last.Pending() || !last.Assistant.HasToolUses() {
		return nil
	}
	ids := make([]string, 0, len(last.Assistant.ToolUses))
	for _, tu := range last.Assistant.ToolUses {
		ids = append(ids, tu.ID)
	}
	return ids
}

// AsSendable produces the transport form of the main-line history for a
// model request. If the last entry left tool-use ids unmatched by any
// ToolResult (e.g. the job that would have executed them was cancelled),
// a synthetic CancelledToolUses entry resolving them is permanently
// recorded before the snapshot is taken (invariant b).
func (h *History) AsSendable() []models.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	mainLen := len(h.entries)
	if h.tangentBranchPoint >= 0 {
		mainLen = h.tangentBranchPoint
	}
	main := h.entries[:mainLen]

	if ids := orphanedToolUseIDs(main); len(ids) > 0 {
		synthetic := models.Entry{
			User:      models.NewCancelledToolUses(ids, "no tool result was recorded before the next send"),
			Assistant: models.Response(""),
		}
		h.entries = append(h.entries[:mainLen], append([]models.Entry{synthetic}, h.entries[mainLen:]...)...)
		mainLen++
		if h.tangentBranchPoint >= 0 {
			h.tangentBranchPoint++
		}
		main = h.entries[:mainLen]
	}

	return append([]models.Entry(nil), main...)
}

// Validate checks the alternation and tool-use/result pairing invariants
// against the main line (spec.md §8). It is intended for tests and
// diagnostics, not the hot path.
func (h *History) Validate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tangentBranchPoint >= 0 {
		return validateAlternation(h.entries[:h.tangentBranchPoint])
	}
	return validateAlternation(h.entries)
}

func validateAlternation(entries []models.Entry) error {
	for i, e := range entries {
		if i < len(entries)-1 && e.Pending() {
			return fmt.Errorf("history: entry %d is pending but is not the last entry", i)
		}
	}
	for i, e := range entries {
		if !e.Assistant.HasToolUses() {
			continue
		}
		for _, tu := range e.Assistant.ToolUses {
			if !toolUseResolved(entries[i+1:], tu.ID) {
				return fmt.Errorf("history: tool use %q at entry %d has no resolution", tu.ID, i)
			}
		}
	}
	return nil
}

func toolUseResolved(rest []models.Entry, id string) bool {
	for _, e := range rest {
		switch e.User.Kind {
		case models.UserMessageToolResult:
			if e.User.ToolUseID == id {
				return true
			}
		case models.UserMessageCancelledToolUses:
			for _, cid := range e.User.CancelledIDs {
				if cid == id {
					return true
				}
			}
		}
	}
	return false
}
