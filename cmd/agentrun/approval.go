package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/agentcore/runtime/pkg/models"
)

// terminalApproval implements agentloop.ApprovalGate by prompting on stdin,
// grounded on the teacher's buildPromptCmd-style direct stdio interaction
// (cmd/nexus/main.go's bufio-driven prompt helpers).
type terminalApproval struct {
	in  *bufio.Reader
	out *bufio.Writer
}

func newTerminalApproval(in *bufio.Reader, out *bufio.Writer) *terminalApproval {
	return &terminalApproval{in: in, out: out}
}

// RequestApproval implements agentloop.ApprovalGate. It blocks on stdin, but
// still observes cancel: a cancellation fires while a read is in flight is
// only checked once the read returns, since os.Stdin has no natural way to
// be interrupted mid-read.
func (t *terminalApproval) RequestApproval(ctx context.Context, toolUseID, toolName string, cancel <-chan struct{}) (models.ApprovalResponse, bool) {
	fmt.Fprintf(t.out, "tool %q (%s) requires approval — allow once [y], allow for session [a], deny [n]? ", toolName, toolUseID)
	t.out.Flush()

	line, err := t.in.ReadString('\n')
	select {
	case <-cancel:
		return "", false
	default:
	}
	if err != nil {
		return models.ApprovalDeny, true
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return models.ApprovalAllow, true
	case "a", "always":
		return models.ApprovalAllowAlwaysSession, true
	default:
		return models.ApprovalDeny, true
	}
}

// autoApproval implements agentloop.ApprovalGate for non-interactive runs
// (spec.md §6's --yes style flag): every request is either allowed or
// denied without a round-trip.
type autoApproval struct {
	allow bool
}

func (a autoApproval) RequestApproval(ctx context.Context, toolUseID, toolName string, cancel <-chan struct{}) (models.ApprovalResponse, bool) {
	if a.allow {
		return models.ApprovalAllow, true
	}
	return models.ApprovalDeny, true
}
