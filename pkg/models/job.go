package models

// UserInteractionRequired flags whether a job's successful completion
// still has a loose end that needs a human (spec.md §3).
type UserInteractionRequired string

const (
	InteractionNone         UserInteractionRequired = "none"
	InteractionToolApproval UserInteractionRequired = "tool_approval"
)

// JobCompletionResultKind discriminates the JobCompletionResult sum type.
type JobCompletionResultKind string

const (
	JobResultSuccess   JobCompletionResultKind = "success"
	JobResultCancelled JobCompletionResultKind = "cancelled"
	JobResultFailed    JobCompletionResultKind = "failed"
)

// JobCompletionResult is the sum type published alongside JobCompleted
// (spec.md §3).
type JobCompletionResult struct {
	Kind JobCompletionResultKind `json:"kind"`

	// Success fields.
	TaskMetadata           map[string]any          `json:"task_metadata,omitempty"`
	UserInteractionRequired UserInteractionRequired `json:"user_interaction_required,omitempty"`

	// Failed fields.
	Error string `json:"error,omitempty"`
}

// Success builds a successful JobCompletionResult.
func Success(taskMetadata map[string]any, interaction UserInteractionRequired) JobCompletionResult {
	return JobCompletionResult{
		Kind:                    JobResultSuccess,
		TaskMetadata:            taskMetadata,
		UserInteractionRequired: interaction,
	}
}

// Cancelled builds a cancelled JobCompletionResult.
func Cancelled() JobCompletionResult {
	return JobCompletionResult{Kind: JobResultCancelled}
}

// Failed builds a failed JobCompletionResult.
func Failed(err string) JobCompletionResult {
	return JobCompletionResult{Kind: JobResultFailed, Error: err}
}

// WorkerState is a Worker's lifecycle state (spec.md §3).
type WorkerState string

const (
	WorkerIdle       WorkerState = "idle"
	WorkerBusy       WorkerState = "busy"
	WorkerIdleFailed WorkerState = "idle_failed"
)
