package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// TestEventRoundTrip asserts the testable property from spec.md §8:
// serializing then deserializing an event yields a value equal to the
// original.
func TestEventRoundTrip(t *testing.T) {
	worker := NewWorkerId()
	job := NewJobId()

	events := []Event{
		NewEvent(EventWorkerCreated, time.Unix(100, 0)),
		{
			Type:     EventJobStarted,
			WorkerID: &worker,
			JobID:    &job,
			JobStarted: &JobStartedPayload{
				TaskType: "agent_loop",
			},
		},
		{
			Type:     EventJobOutputChunk,
			WorkerID: &worker,
			JobID:    &job,
			OutputChunk: &OutputChunk{
				Kind: ChunkToolUse,
				Name: "execute_bash",
				Input: map[string]any{
					"command": "ls",
				},
			},
		},
		{
			Type:     EventJobCompleted,
			WorkerID: &worker,
			JobID:    &job,
			JobCompleted: &JobCompletedPayload{
				Result: Success(map[string]any{"turns": float64(1)}, InteractionNone),
			},
		},
	}

	for _, want := range events {
		data, err := json.Marshal(want)
		require.NoError(t, err)

		var got Event
		require.NoError(t, json.Unmarshal(data, &got))

		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestOutputChunkConstructors(t *testing.T) {
	c := AssistantResponseChunk("hi there")
	require.Equal(t, ChunkAssistantResponse, c.Kind)
	require.Equal(t, "hi there", c.Text)

	tu := ToolUseChunk("execute_bash", map[string]any{"command": "ls"})
	require.Equal(t, ChunkToolUse, tu.Kind)
	require.Equal(t, "execute_bash", tu.Name)

	tr := ToolResultChunk("execute_bash", "done")
	require.Equal(t, ChunkToolResult, tr.Kind)
	require.Equal(t, "done", tr.Result)
}
