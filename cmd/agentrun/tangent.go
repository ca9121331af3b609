package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentcore/runtime/internal/history"
)

// buildTangentCmd builds the `tangent` command group, which mutates a
// conversation file's tangent branch without running any model request
// (spec.md §4.2, §6).
func buildTangentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tangent",
		Short: "Manage a conversation file's tangent branch",
	}
	cmd.AddCommand(buildTangentEnterCmd(), buildTangentExitCmd())
	return cmd
}

func loadIntoHistory(path string) (*history.History, conversationFile, error) {
	cf, err := loadConversation(path)
	if err != nil {
		return nil, conversationFile{}, err
	}
	h := history.New()
	h.Restore(cf.Entries)
	return h, cf, nil
}

func saveFromHistory(path string, cf conversationFile, h *history.History) error {
	cf.Entries = h.Entries()
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func buildTangentEnterCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "enter",
		Short: "Snapshot the current head and start a tangent branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, cf, err := loadIntoHistory(file)
			if err != nil {
				return err
			}
			if err := h.EnterTangent(); err != nil {
				return err
			}
			return saveFromHistory(file, cf, h)
		},
	}
	cmd.Flags().StringVar(&file, "conversation", "", "Conversation file to operate on")
	_ = cmd.MarkFlagRequired("conversation")
	return cmd
}

func buildTangentExitCmd() *cobra.Command {
	var (
		file    string
		tail    bool
		compact string
	)
	cmd := &cobra.Command{
		Use:   "exit",
		Short: "Exit the current tangent branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, cf, err := loadIntoHistory(file)
			if err != nil {
				return err
			}
			switch {
			case compact != "":
				if err := h.ExitTangentWithCompact(compact, nil); err != nil {
					return err
				}
			case tail:
				if err := h.ExitTangentWithTail(); err != nil {
					return err
				}
			default:
				if err := h.ExitTangent(); err != nil {
					return err
				}
			}
			return saveFromHistory(file, cf, h)
		},
	}
	cmd.Flags().StringVar(&file, "conversation", "", "Conversation file to operate on")
	cmd.Flags().BoolVar(&tail, "tail", false, "Preserve only the last branch entry")
	cmd.Flags().StringVar(&compact, "compact", "", "Replace the branch with a summary entry carrying this text")
	_ = cmd.MarkFlagRequired("conversation")
	return cmd
}
