package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentcore/runtime/internal/agentconfig"
)

func openAgentStore() (*agentconfig.Store, error) {
	dir, err := agentconfig.DefaultDir()
	if err != nil {
		return nil, err
	}
	return agentconfig.NewStore(dir)
}

// buildAgentCmd builds the `agent` command group: list, create, schema,
// set-default (spec.md §6).
func buildAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage named agent configurations",
	}
	cmd.AddCommand(
		buildAgentListCmd(),
		buildAgentCreateCmd(),
		buildAgentSchemaCmd(),
		buildAgentSetDefaultCmd(),
	)
	return cmd
}

func buildAgentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every named agent configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAgentStore()
			if err != nil {
				return err
			}
			names, err := store.List()
			if err != nil {
				return err
			}
			def, _ := store.GetDefault()
			out := cmd.OutOrStdout()
			for _, n := range names {
				marker := ""
				if n == def {
					marker = " (default)"
				}
				fmt.Fprintf(out, "%s%s\n", n, marker)
			}
			return nil
		},
	}
}

func buildAgentCreateCmd() *cobra.Command {
	var (
		provider, model, systemPrompt string
		maxTokens                     int
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a named agent configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAgentStore()
			if err != nil {
				return err
			}
			return store.Create(agentconfig.Config{
				Name: args[0], Provider: provider, Model: model,
				SystemPrompt: systemPrompt, MaxTokens: maxTokens,
			})
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Model provider")
	cmd.Flags().StringVar(&model, "model", "", "Model name")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "System prompt")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Max response tokens")
	return cmd
}

// buildAgentSchemaCmd decodes the stored agent named by --name (or an empty
// document when --name is not given) into agentconfig.Config via
// mapstructure and reports its field shape (spec.md §6 `agent schema`).
func buildAgentSchemaCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Validate and describe an agent configuration document",
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw map[string]any
			if file != "" {
				store, err := openAgentStore()
				if err != nil {
					return err
				}
				cfg, err := store.Get(file)
				if err != nil {
					return err
				}
				data, err := json.Marshal(cfg)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(data, &raw); err != nil {
					return err
				}
			} else {
				raw = map[string]any{}
			}
			fields, cfg, err := agentconfig.Schema(raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range fields {
				fmt.Fprintf(out, "%s\t%s\n", f.Name, f.Type)
			}
			fmt.Fprintf(out, "resolved: %+v\n", cfg)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "name", "", "Existing agent name to describe (default: print the empty schema)")
	return cmd
}

func buildAgentSetDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <name>",
		Short: "Mark an agent configuration as the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAgentStore()
			if err != nil {
				return err
			}
			return store.SetDefault(args[0])
		},
	}
}
