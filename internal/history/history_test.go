package history

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/models"
)

func TestHappyPathSingleEntry(t *testing.T) {
	h := New()
	require.NoError(t, h.PushInput(models.Prompt("hello")))
	require.NoError(t, h.PushAssistant(models.Response("hi there"), nil))

	entries := h.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "hello", entries[0].User.Text)
	require.Equal(t, "hi there", entries[0].Assistant.Text)
	require.NoError(t, h.Validate())
}

func TestPushInputRejectsWhilePending(t *testing.T) {
	h := New()
	require.NoError(t, h.PushInput(models.Prompt("hello")))
	err := h.PushInput(models.Prompt("again"))
	require.ErrorIs(t, err, ErrPendingAssistantTurn)
}

func TestPushAssistantRejectsWithoutPending(t *testing.T) {
	h := New()
	err := h.PushAssistant(models.Response("huh"), nil)
	require.ErrorIs(t, err, ErrNoPendingEntry)
}

func TestToolUseMustBePairedBeforeNextSend(t *testing.T) {
	h := New()
	require.NoError(t, h.PushInput(models.Prompt("list files")))
	require.NoError(t, h.PushAssistant(models.NewToolUse("", []models.AssistantToolUse{
		{ID: "call-1", Name: "execute_bash", Arguments: []byte(`{"command":"ls"}`)},
	}), nil))
	require.Error(t, h.Validate()) // orphaned tool use

	require.NoError(t, h.PushInput(models.NewToolResult("call-1", "file.go", models.ToolResultSuccess)))
	require.NoError(t, h.PushAssistant(models.Response("done"), nil))
	require.NoError(t, h.Validate())

	entries := h.Entries()
	require.Len(t, entries, 2)
}

func TestAsSendableSynthesizesCancelledToolUses(t *testing.T) {
	h := New()
	require.NoError(t, h.PushInput(models.Prompt("do something slow")))
	require.NoError(t, h.PushAssistant(models.NewToolUse("working on it", []models.AssistantToolUse{
		{ID: "call-1", Name: "execute_bash"},
	}), nil))

	sendable := h.AsSendable()
	require.Len(t, sendable, 2)
	require.Equal(t, models.UserMessageCancelledToolUses, sendable[1].User.Kind)
	require.Equal(t, []string{"call-1"}, sendable[1].User.CancelledIDs)

	// The synthesis is permanent: a second AsSendable call is a no-op.
	again := h.AsSendable()
	require.Equal(t, sendable, again)
	require.NoError(t, h.Validate())
}

func TestSetSummaryReplacesHistory(t *testing.T) {
	h := New()
	require.NoError(t, h.PushInput(models.Prompt("one")))
	require.NoError(t, h.PushAssistant(models.Response("1"), nil))
	require.NoError(t, h.PushInput(models.Prompt("two")))
	require.NoError(t, h.PushAssistant(models.Response("2"), nil))

	h.SetSummary("discussed one and two", nil)

	entries := h.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "[Summary]", entries[0].User.Text)
	require.Equal(t, "discussed one and two", entries[0].Assistant.Text)
}

func TestTangentEnterExitIsIdempotent(t *testing.T) {
	h := New()
	require.NoError(t, h.PushInput(models.Prompt("hello")))
	require.NoError(t, h.PushAssistant(models.Response("hi"), nil))

	before := h.Entries()

	require.NoError(t, h.EnterTangent())
	require.NoError(t, h.PushInput(models.Prompt("side quest")))
	require.NoError(t, h.PushAssistant(models.Response("done with side quest"), nil))
	require.NoError(t, h.ExitTangent())

	after := h.Entries()
	require.Equal(t, before, after)
}

func TestTangentExitWithTailKeepsLastEntry(t *testing.T) {
	h := New()
	require.NoError(t, h.PushInput(models.Prompt("hello")))
	require.NoError(t, h.PushAssistant(models.Response("hi"), nil))

	require.NoError(t, h.EnterTangent())
	require.NoError(t, h.PushInput(models.Prompt("step 1")))
	require.NoError(t, h.PushAssistant(models.Response("ok 1"), nil))
	require.NoError(t, h.PushInput(models.Prompt("step 2")))
	require.NoError(t, h.PushAssistant(models.Response("ok 2"), nil))
	require.NoError(t, h.ExitTangentWithTail())

	entries := h.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "step 2", entries[1].User.Text)
}

func TestTangentExitWithCompactAppendsSummary(t *testing.T) {
	h := New()
	require.NoError(t, h.PushInput(models.Prompt("hello")))
	require.NoError(t, h.PushAssistant(models.Response("hi"), nil))

	require.NoError(t, h.EnterTangent())
	require.NoError(t, h.PushInput(models.Prompt("side quest")))
	require.NoError(t, h.PushAssistant(models.Response("did it"), nil))
	require.NoError(t, h.ExitTangentWithCompact("explored a side quest", nil))

	entries := h.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "[Tangent conversation]", entries[1].User.Text)
	require.Equal(t, "explored a side quest", entries[1].Assistant.Text)
	require.False(t, h.InTangent())
}

func TestExitTangentWithoutEnterFails(t *testing.T) {
	h := New()
	require.ErrorIs(t, h.ExitTangent(), ErrNotInTangent)
	require.ErrorIs(t, h.ExitTangentWithTail(), ErrNotInTangent)
	require.ErrorIs(t, h.ExitTangentWithCompact("x", nil), ErrNotInTangent)
}

func TestEnterTangentTwiceFails(t *testing.T) {
	h := New()
	require.NoError(t, h.EnterTangent())
	require.ErrorIs(t, h.EnterTangent(), ErrAlreadyInTangent)
}
