// Package session implements the Session & Scheduler (spec.md §4.8): the
// process-scoped registry of workers, jobs, and providers. Grounded on
// the teacher's internal/sessions.DBLocker (per-key mutex/cancel-map
// bookkeeping) and internal/infra.WorkerPool (spawn-and-track job
// lifecycle), generalized to the spec's worker/job/provider model.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentcore/runtime/internal/agentloop"
	"github.com/agentcore/runtime/internal/eventbus"
	"github.com/agentcore/runtime/internal/providers"
	"github.com/agentcore/runtime/internal/toolpolicy"
	"github.com/agentcore/runtime/internal/toolregistry"
	"github.com/agentcore/runtime/internal/worker"
	"github.com/agentcore/runtime/pkg/models"
)

// jobHandle is the session's weak reference map entry: which worker a job
// belongs to and the token that cancels it.
type jobHandle struct {
	workerID models.WorkerId
	cancel   chan struct{}
	once     sync.Once
}

func (h *jobHandle) fire() {
	h.once.Do(func() { close(h.cancel) })
}

// Session is the registry of workers, jobs, and providers described in
// spec.md §4.8. Zero value is not usable; construct with New.
type Session struct {
	Bus       *eventbus.Bus
	Providers *providers.Registry
	Registry  *toolregistry.Registry
	Shell     *toolpolicy.ShellPolicy
	Approval  agentloop.ApprovalGate

	mu      sync.Mutex
	workers map[models.WorkerId]*worker.Worker
	jobs    map[models.JobId]*jobHandle

	wg sync.WaitGroup
}

// New creates an empty session wired to bus, the configured providers,
// and the shared tool registry/shell policy.
func New(bus *eventbus.Bus, provs *providers.Registry, registry *toolregistry.Registry, shell *toolpolicy.ShellPolicy, approval agentloop.ApprovalGate) *Session {
	return &Session{
		Bus:       bus,
		Providers: provs,
		Registry:  registry,
		Shell:     shell,
		Approval:  approval,
		workers:   make(map[models.WorkerId]*worker.Worker),
		jobs:      make(map[models.JobId]*jobHandle),
	}
}

// BuildWorker creates and registers a new worker, publishing WorkerCreated.
func (s *Session) BuildWorker(name string) models.WorkerId {
	id := models.NewWorkerId()
	w := worker.New(id, name, s.Shell)

	s.mu.Lock()
	s.workers[id] = w
	s.mu.Unlock()

	s.publish(models.EventWorkerCreated, &id, nil, func(e *models.Event) {
		e.WorkerCreated = &models.WorkerCreatedPayload{Name: name}
	})
	return id
}

// GetWorker is an O(1) lookup by id.
func (s *Session) GetWorker(id models.WorkerId) (*worker.Worker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[id]
	return w, ok
}

// GetWorkers returns a snapshot of every registered worker, the form sent
// to UIs as a WorkersSnapshot.
func (s *Session) GetWorkers() []*worker.Worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*worker.Worker, 0, len(s.workers))
	for _, w := range s.workers {
		out = append(out, w)
	}
	return out
}

// HasActiveJobs reports whether any worker currently has a running job,
// consulted by the non-interactive completion monitor (spec.md §4.9).
func (s *Session) HasActiveJobs() bool {
	for _, w := range s.GetWorkers() {
		if w.HasActiveJobs() {
			return true
		}
	}
	return false
}

// RunTaskAgentLoop registers a job against worker, spawns the agent-loop
// task, and arranges deregistration and JobCompleted on completion.
// Provider name selects among the session's configured providers; empty
// uses the registry's default.
func (s *Session) RunTaskAgentLoop(ctx context.Context, workerID models.WorkerId, providerName, model, systemPrompt string, input string) (models.JobId, error) {
	w, ok := s.GetWorker(workerID)
	if !ok {
		return models.JobId{}, fmt.Errorf("session: unknown worker %v", workerID)
	}
	provider, ok := s.Providers.Get(providerName)
	if !ok {
		return models.JobId{}, fmt.Errorf("session: unknown provider %q", providerName)
	}
	if err := w.PushInput(input); err != nil {
		return models.JobId{}, fmt.Errorf("session: %w", err)
	}

	jobID := models.NewJobId()
	handle := &jobHandle{workerID: workerID, cancel: make(chan struct{})}
	s.registerJob(jobID, handle)

	task := &agentloop.Task{
		WorkerID:  workerID,
		JobID:     jobID,
		Provider:  provider,
		Model:     model,
		System:    systemPrompt,
		History:   w.History,
		Registry:  s.Registry,
		AllowList: w.Allow,
		Bus:       s.Bus,
		Approval:  s.Approval,
	}

	s.startJob(ctx, w, jobID, handle, "agent_loop", task.Run)
	return jobID, nil
}

// RunTaskCompactConversation spawns a job that summarizes worker's history
// and installs a checkpoint in place of the raw entries (spec.md §4.8,
// §4.2).
func (s *Session) RunTaskCompactConversation(ctx context.Context, workerID models.WorkerId, providerName, model, instruction string) (models.JobId, error) {
	w, ok := s.GetWorker(workerID)
	if !ok {
		return models.JobId{}, fmt.Errorf("session: unknown worker %v", workerID)
	}
	provider, ok := s.Providers.Get(providerName)
	if !ok {
		return models.JobId{}, fmt.Errorf("session: unknown provider %q", providerName)
	}

	jobID := models.NewJobId()
	handle := &jobHandle{workerID: workerID, cancel: make(chan struct{})}
	s.registerJob(jobID, handle)

	run := func(ctx context.Context, cancel <-chan struct{}) models.JobCompletionResult {
		return compactConversation(ctx, w, provider, model, instruction, cancel)
	}
	s.startJob(ctx, w, jobID, handle, "compact_conversation", run)
	return jobID, nil
}

func (s *Session) registerJob(jobID models.JobId, handle *jobHandle) {
	s.mu.Lock()
	s.jobs[jobID] = handle
	s.mu.Unlock()
}

func (s *Session) lookupJob(jobID models.JobId) (*jobHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.jobs[jobID]
	return h, ok
}

func (s *Session) deregisterJob(jobID models.JobId) {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
}

// startJob spawns run as a tracked background task, never holding the
// session lock while the worker's own lock-protected operations run
// (spec.md §4.8 concurrency rule).
func (s *Session) startJob(ctx context.Context, w *worker.Worker, jobID models.JobId, handle *jobHandle, taskType string, run func(context.Context, <-chan struct{}) models.JobCompletionResult) {
	before := w.State()
	w.BeginJob(jobID)
	s.emitStateChange(w, before, w.State())
	s.publish(models.EventJobStarted, &w.ID, &jobID, func(e *models.Event) {
		e.JobStarted = &models.JobStartedPayload{TaskType: taskType}
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result := run(ctx, handle.cancel)

		failed := result.Kind == models.JobResultFailed
		before := w.State()
		w.EndJob(jobID, failed)
		s.emitStateChange(w, before, w.State())
		s.deregisterJob(jobID)

		s.publish(models.EventJobCompleted, &w.ID, &jobID, func(e *models.Event) {
			e.JobCompleted = &models.JobCompletedPayload{Result: result}
		})
	}()
}

// emitStateChange publishes WorkerLifecycleStateChanged when a BeginJob or
// EndJob call actually moved w's derived state (spec.md §4.7: "State
// transitions emit WorkerLifecycleStateChanged{old, new}").
func (s *Session) emitStateChange(w *worker.Worker, old, new_ models.WorkerState) {
	if old == new_ {
		return
	}
	s.publish(models.EventWorkerLifecycleStateChanged, &w.ID, nil, func(e *models.Event) {
		e.WorkerLifecycleStateChanged = &models.WorkerLifecycleStateChangedPayload{Old: old, New: new_}
	})
}

// CancelWorkerJobs fires the cancellation token for every job currently
// running against workerID.
func (s *Session) CancelWorkerJobs(workerID models.WorkerId) {
	for _, h := range s.handlesForWorker(workerID) {
		h.fire()
	}
}

// CancelAllJobs fires every live job's cancellation token.
func (s *Session) CancelAllJobs() {
	s.mu.Lock()
	handles := make([]*jobHandle, 0, len(s.jobs))
	for _, h := range s.jobs {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.fire()
	}
}

func (s *Session) handlesForWorker(workerID models.WorkerId) []*jobHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*jobHandle
	for _, h := range s.jobs {
		if h.workerID == workerID {
			out = append(out, h)
		}
	}
	return out
}

// Wait blocks until every spawned job task has returned, used by the
// environment's shutdown sequence (spec.md §4.9).
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) publish(evType models.EventType, workerID *models.WorkerId, jobID *models.JobId, fn func(*models.Event)) {
	if s.Bus == nil {
		return
	}
	e := models.NewEvent(evType, time.Now())
	e.WorkerID = workerID
	e.JobID = jobID
	if fn != nil {
		fn(&e)
	}
	s.Bus.Publish(e)
}
