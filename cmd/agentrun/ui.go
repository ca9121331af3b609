package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/agentcore/runtime/internal/environment"
	"github.com/agentcore/runtime/pkg/models"
)

// oneShotUI implements environment.UI for a single routed CLI command
// (delegate): it hands the environment exactly one Command, then
// prints every streamed chunk for that command's worker until the
// environment's completion monitor stops the process (spec.md §4.9,
// §6 "CLI surface (minimal)").
type oneShotUI struct {
	cmd environment.Command
	out *bufio.Writer
}

func newOneShotUI(cmd environment.Command, out *bufio.Writer) *oneShotUI {
	return &oneShotUI{cmd: cmd, out: out}
}

func (u *oneShotUI) Start(ctx context.Context) (<-chan environment.Command, error) {
	ch := make(chan environment.Command, 1)
	ch <- u.cmd
	close(ch)
	return ch, nil
}

func (u *oneShotUI) HandleEvent(e models.Event) {
	defer u.out.Flush()
	switch e.Type {
	case models.EventJobOutputChunk:
		if e.OutputChunk == nil {
			return
		}
		switch e.OutputChunk.Kind {
		case models.ChunkAssistantResponse:
			fmt.Fprint(u.out, e.OutputChunk.Text)
		case models.ChunkToolUse:
			fmt.Fprintf(u.out, "\n[tool_use %s]\n", e.OutputChunk.Name)
		case models.ChunkToolResult:
			fmt.Fprintf(u.out, "[tool_result %s]\n", e.OutputChunk.Name)
		}
	case models.EventAgentLoopToolApprovalRequested:
		if e.ToolApprovalRequested != nil {
			fmt.Fprintf(u.out, "\n[awaiting approval for %s]\n", e.ToolApprovalRequested.Name)
		}
	case models.EventJobCompleted:
		fmt.Fprintln(u.out)
		if e.JobCompleted != nil && e.JobCompleted.Result.Kind == models.JobResultFailed {
			fmt.Fprintf(u.out, "job failed: %s\n", e.JobCompleted.Result.Error)
		}
	}
}
