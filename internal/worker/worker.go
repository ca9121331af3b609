// Package worker implements the Worker (spec.md §4.7): an owner of one
// ContextContainer (history + tool policy) and the set of job ids
// currently running against it. State derives the lifecycle state
// (Idle/Busy/IdleFailed) from that active-job set and the last job's
// outcome; the set changes only through the owning Session's
// BeginJob/EndJob calls, and the Session publishes the resulting
// transitions.
package worker

import (
	"sync"

	"github.com/agentcore/runtime/internal/history"
	"github.com/agentcore/runtime/internal/toolpolicy"
	"github.com/agentcore/runtime/pkg/models"
)

// Worker owns one conversation's history, shell/approval policy, and the
// set of job ids currently executing against it.
type Worker struct {
	ID      models.WorkerId
	Name    string
	History *history.History
	Allow   *toolpolicy.SessionAllowList

	mu         sync.Mutex
	activeJobs map[models.JobId]struct{}
	lastFailed bool
}

// New creates an idle worker with its own history and allow-list.
func New(id models.WorkerId, name string, shell *toolpolicy.ShellPolicy) *Worker {
	return &Worker{
		ID:         id,
		Name:       name,
		History:    history.New(),
		Allow:      toolpolicy.NewSessionAllowList(shell),
		activeJobs: make(map[models.JobId]struct{}),
	}
}

// PushInput appends a free-text prompt to this worker's history, the
// entry point for Session.run_task__agent_loop (spec.md §4.7).
func (w *Worker) PushInput(text string, images ...string) error {
	return w.History.PushInput(models.Prompt(text, images...))
}

// BeginJob records jobID as active. Returns the worker's active-job count
// after the transition so the caller can detect an Idle→Busy edge.
func (w *Worker) BeginJob(jobID models.JobId) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.activeJobs[jobID] = struct{}{}
	return len(w.activeJobs)
}

// EndJob removes jobID from the active set and records whether the job
// failed, which determines IdleFailed vs Idle once the active set empties.
// Returns the remaining active-job count.
func (w *Worker) EndJob(jobID models.JobId, failed bool) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.activeJobs, jobID)
	if failed {
		w.lastFailed = true
	} else if len(w.activeJobs) == 0 {
		w.lastFailed = false
	}
	return len(w.activeJobs)
}

// HasActiveJobs reports whether any job is currently running against this
// worker.
func (w *Worker) HasActiveJobs() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.activeJobs) > 0
}

// ActiveJobIDs returns a snapshot of this worker's currently active job
// ids.
func (w *Worker) ActiveJobIDs() []models.JobId {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]models.JobId, 0, len(w.activeJobs))
	for id := range w.activeJobs {
		ids = append(ids, id)
	}
	return ids
}

// State derives the worker's lifecycle state from its active-job set and
// last completion outcome (spec.md §3: Idle/Busy/IdleFailed).
func (w *Worker) State() models.WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.activeJobs) > 0 {
		return models.WorkerBusy
	}
	if w.lastFailed {
		return models.WorkerIdleFailed
	}
	return models.WorkerIdle
}
