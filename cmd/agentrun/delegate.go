package main

import (
	"bufio"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentcore/runtime/internal/agentloop"
	"github.com/agentcore/runtime/internal/environment"
	"github.com/agentcore/runtime/internal/session"
)

// buildDelegateCmd builds the `delegate` command: one prompt, routed
// through a single agent-loop job to completion, with the assistant's
// streamed text printed to stdout (spec.md §6 CLI surface).
func buildDelegateCmd(resolveConfig func() string) *cobra.Command {
	var (
		provider     string
		model        string
		systemPrompt string
		conversation string
		trusted      string
		autoApprove  bool
	)

	cmd := &cobra.Command{
		Use:   "delegate [prompt...]",
		Short: "Run a single prompt through the agent loop to completion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, resolveConfig(), trusted)
			if err != nil {
				return err
			}

			var approval agentloop.ApprovalGate = autoApproval{allow: autoApprove}
			if !autoApprove {
				approval = newTerminalApproval(bufio.NewReader(os.Stdin), bufio.NewWriter(os.Stdout))
			}

			sess := session.New(rt.bus, rt.providers, rt.registry, rt.shell, approval)
			workerID := sess.BuildWorker("main")
			w, _ := sess.GetWorker(workerID)

			if conversation != "" {
				if cf, err := loadConversation(conversation); err == nil {
					w.History.Restore(cf.Entries)
				}
			}

			text := strings.Join(args, " ")
			out := bufio.NewWriter(os.Stdout)
			ui := newOneShotUI(environment.Command{
				Kind: environment.CommandPrompt, WorkerID: workerID,
				Text: text, Provider: provider, Model: model, System: systemPrompt,
			}, out)

			env := environment.New(sess, ui, nil, true)
			if err := env.Run(ctx); err != nil {
				return err
			}
			out.Flush()

			if conversation != "" {
				return saveConversation(conversation, w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Model provider to use (default: the configured default)")
	cmd.Flags().StringVar(&model, "model", "", "Model name to use")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "System prompt override")
	cmd.Flags().StringVar(&conversation, "conversation", "", "Conversation file to load before and save after running")
	cmd.Flags().StringVar(&trusted, "trusted-commands", "", "Path to the trusted-commands document")
	cmd.Flags().BoolVar(&autoApprove, "yes", false, "Auto-approve every tool call without prompting")

	return cmd
}
