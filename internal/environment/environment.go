// Package environment implements the Agent Environment (spec.md §4.9):
// the top-level composition of a Session with one optional main
// interactive UI and zero-or-more headless UIs, grounded on the
// teacher's cmd/nexus main's signal.NotifyContext + slog shutdown
// sequence, generalized to the spec's multicast/command-dispatch model.
package environment

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/agentcore/runtime/internal/session"
	"github.com/agentcore/runtime/pkg/models"
)

// UI is the contract every interactive or headless frontend implements.
// Start spawns the UI's own input loop and returns immediately, handing
// back the channel the environment drains for commands.
type UI interface {
	Start(ctx context.Context) (<-chan Command, error)
	HandleEvent(e models.Event)
}

// CommandKind discriminates a Command sent by a UI.
type CommandKind string

const (
	CommandPrompt  CommandKind = "prompt"
	CommandCompact CommandKind = "compact"
	CommandQuit    CommandKind = "quit"
)

// Command is one instruction a UI sends to the environment (spec.md §4.9).
type Command struct {
	Kind        CommandKind
	WorkerID    models.WorkerId
	Text        string
	System      string
	Instruction string
	Provider    string
	Model       string
}

// Environment composes a Session with UIs and owns the process's
// lifecycle: signal handling, event multicast, and command dispatch.
type Environment struct {
	Session      *session.Session
	MainUI       UI
	HeadlessUIs  []UI
	NonInteractive bool

	log *slog.Logger
}

// New builds an environment. mainUI may be nil for a fully headless
// process.
func New(sess *session.Session, mainUI UI, headless []UI, nonInteractive bool) *Environment {
	return &Environment{
		Session:        sess,
		MainUI:         mainUI,
		HeadlessUIs:    headless,
		NonInteractive: nonInteractive,
		log:            slog.Default(),
	}
}

// Run executes the environment's full lifecycle to completion: installs
// the signal handler, starts the multicast and completion-monitor tasks,
// starts the main UI (if any), dispatches its commands, and performs the
// shutdown sequence once asked to stop (spec.md §4.9).
func (e *Environment) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.multicast(ctx)
	}()

	if e.NonInteractive {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.completionMonitor(ctx, stop)
		}()
	}

	for _, ui := range e.HeadlessUIs {
		if _, err := ui.Start(ctx); err != nil {
			e.log.Error("headless UI failed to start", "error", err)
		}
	}

	var commands <-chan Command
	if e.MainUI != nil {
		cmds, err := e.MainUI.Start(ctx)
		if err != nil {
			return err
		}
		commands = cmds
	}

	e.dispatch(ctx, commands, stop)

	e.log.Info("shutdown signal received, cancelling all jobs")
	e.Session.CancelAllJobs()
	e.Session.Wait()
	e.Session.Bus.Close()
	wg.Wait()
	e.log.Info("environment stopped")
	return nil
}

// dispatch consumes commands until ctx is cancelled (by a signal or a
// Quit command firing stop).
func (e *Environment) dispatch(ctx context.Context, commands <-chan Command, stop context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-commands:
			if !ok {
				// A closed command channel does not stop the environment;
				// keep waiting for a signal, Quit, or the completion monitor.
				commands = nil
				continue
			}
			e.handleCommand(ctx, cmd, stop)
		}
	}
}

func (e *Environment) handleCommand(ctx context.Context, cmd Command, stop context.CancelFunc) {
	switch cmd.Kind {
	case CommandPrompt:
		if _, err := e.Session.RunTaskAgentLoop(ctx, cmd.WorkerID, cmd.Provider, cmd.Model, cmd.System, cmd.Text); err != nil {
			e.log.Error("prompt dispatch failed", "worker", cmd.WorkerID.String(), "error", err)
		}
	case CommandCompact:
		if _, err := e.Session.RunTaskCompactConversation(ctx, cmd.WorkerID, cmd.Provider, cmd.Model, cmd.Instruction); err != nil {
			e.log.Error("compact dispatch failed", "worker", cmd.WorkerID.String(), "error", err)
		}
	case CommandQuit:
		stop()
	}
}

// multicast forwards every event on the bus to each registered UI's
// HandleEvent, the subscription the environment installs at startup
// (spec.md §4.9 step 1).
func (e *Environment) multicast(ctx context.Context) {
	sub := e.Session.Bus.Subscribe()
	defer e.Session.Bus.Unsubscribe(sub)

	for {
		result, err := sub.Recv(ctx)
		if err != nil {
			return
		}
		if result.Closed {
			return
		}
		if result.Lagged > 0 {
			e.log.Warn("UI subscription lagged", "dropped", result.Lagged)
			continue
		}
		e.fanOut(result.Event)
	}
}

func (e *Environment) fanOut(ev models.Event) {
	if e.MainUI != nil {
		e.MainUI.HandleEvent(ev)
	}
	for _, ui := range e.HeadlessUIs {
		ui.HandleEvent(ev)
	}
}

// completionMonitor shuts the environment down once a JobCompleted event
// leaves no worker with active jobs, the non-interactive exit condition
// (spec.md §4.9 step 3).
func (e *Environment) completionMonitor(ctx context.Context, stop context.CancelFunc) {
	sub := e.Session.Bus.Subscribe()
	defer e.Session.Bus.Unsubscribe(sub)

	for {
		result, err := sub.Recv(ctx)
		if err != nil {
			return
		}
		if result.Closed {
			return
		}
		if result.Event.Type != models.EventJobCompleted {
			continue
		}
		// The session deregisters a job and updates its worker's active
		// set before publishing JobCompleted, so this observes the
		// post-completion state directly.
		if !e.Session.HasActiveJobs() {
			stop()
			return
		}
	}
}
