package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentcore/runtime/pkg/models"
)

// buildSaveCmd builds the `save` command: initializes an empty named
// conversation file, the counterpart `delegate --conversation` then
// appends to (spec.md §6).
func buildSaveCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Create a new empty conversation file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = "main"
			}
			data, err := json.MarshalIndent(conversationFile{Name: name}, "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(args[0], data, 0o644)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name recorded in the conversation file")
	return cmd
}

// buildLoadCmd builds the `load` command: renders a conversation file's
// transcript to stdout for inspection (spec.md §6).
func buildLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Print a conversation file's transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf, err := loadConversation(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "conversation %q (%d entries)\n", cf.Name, len(cf.Entries))
			for i, e := range cf.Entries {
				printEntry(out, i, e)
			}
			return nil
		},
	}
	return cmd
}

func printEntry(out interface{ Write([]byte) (int, error) }, i int, e models.Entry) {
	switch e.User.Kind {
	case models.UserMessagePrompt:
		fmt.Fprintf(out, "[%d] user: %s\n", i, e.User.Text)
	case models.UserMessageToolResult:
		fmt.Fprintf(out, "[%d] tool_result(%s): %s\n", i, e.User.ToolUseID, e.User.Content)
	case models.UserMessageCancelledToolUses:
		fmt.Fprintf(out, "[%d] cancelled_tool_uses: %v\n", i, e.User.CancelledIDs)
	}
	if e.Pending() {
		fmt.Fprintf(out, "    (pending)\n")
		return
	}
	switch e.Assistant.Kind {
	case models.AssistantMessageResponse:
		fmt.Fprintf(out, "    assistant: %s\n", e.Assistant.Text)
	case models.AssistantMessageToolUse:
		fmt.Fprintf(out, "    assistant requested %d tool use(s)\n", len(e.Assistant.ToolUses))
	}
}
