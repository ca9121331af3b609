package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agentcore/runtime/internal/toolpolicy"
	"github.com/agentcore/runtime/internal/toolregistry"
)

func trustedCommandsPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return dir + "/agentrun/trusted_commands.yaml", nil
}

func loadTrustedCommands(path string) (toolpolicy.TrustedCommandsDocument, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return toolpolicy.TrustedCommandsDocument{}, nil
	}
	if err != nil {
		return toolpolicy.TrustedCommandsDocument{}, err
	}
	var doc toolpolicy.TrustedCommandsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return toolpolicy.TrustedCommandsDocument{}, fmt.Errorf("agentrun: parsing %s: %w", path, err)
	}
	return doc, nil
}

func saveTrustedCommands(path string, doc toolpolicy.TrustedCommandsDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// buildToolsCmd builds the `tools` command group that manages the
// trusted-commands document ShellPolicy reads (spec.md §4.3, §6).
func buildToolsCmd(resolveConfig func() string) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Manage the shell trust policy",
	}
	cmd.PersistentFlags().StringVar(&path, "trusted-commands", "", "Path to the trusted-commands document")

	cmd.AddCommand(
		buildToolsTrustCmd(&path),
		buildToolsUntrustCmd(&path),
		buildToolsTrustAllCmd(&path),
		buildToolsResetCmd(&path),
		buildToolsSchemaCmd(),
	)
	return cmd
}

func buildToolsTrustCmd(path *string) *cobra.Command {
	var (
		kind        string
		description string
	)
	cmd := &cobra.Command{
		Use:   "trust <pattern>",
		Short: "Add a trusted-command rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := trustedCommandsPath(*path)
			if err != nil {
				return err
			}
			doc, err := loadTrustedCommands(p)
			if err != nil {
				return err
			}
			doc.TrustedCommands = append(doc.TrustedCommands, toolpolicy.TrustedCommandRule{
				Type: toolpolicy.TrustedCommandKind(kind), Command: args[0], Description: description,
			})
			return saveTrustedCommands(p, doc)
		},
	}
	cmd.Flags().StringVar(&kind, "type", "match", "Rule type: match (glob) or regex")
	cmd.Flags().StringVar(&description, "description", "", "Human-readable note for this rule")
	return cmd
}

func buildToolsUntrustCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "untrust <pattern>",
		Short: "Remove a trusted-command rule by its exact pattern text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := trustedCommandsPath(*path)
			if err != nil {
				return err
			}
			doc, err := loadTrustedCommands(p)
			if err != nil {
				return err
			}
			kept := doc.TrustedCommands[:0]
			for _, r := range doc.TrustedCommands {
				if r.Command != args[0] {
					kept = append(kept, r)
				}
			}
			doc.TrustedCommands = kept
			return saveTrustedCommands(p, doc)
		},
	}
}

// buildToolsTrustAllCmd adds a catch-all glob rule. Every dangerous-pattern
// command still requires approval regardless of this rule (spec.md §4.3);
// it only widens auto-trust for otherwise-safe commands.
func buildToolsTrustAllCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "trust-all",
		Short: "Trust every command that does not contain a dangerous pattern",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := trustedCommandsPath(*path)
			if err != nil {
				return err
			}
			doc, err := loadTrustedCommands(p)
			if err != nil {
				return err
			}
			doc.TrustedCommands = append(doc.TrustedCommands, toolpolicy.TrustedCommandRule{
				Type: toolpolicy.TrustedCommandGlob, Command: "*", Description: "trust-all",
			})
			return saveTrustedCommands(p, doc)
		},
	}
}

func buildToolsResetCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear every trusted-command rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := trustedCommandsPath(*path)
			if err != nil {
				return err
			}
			return saveTrustedCommands(p, toolpolicy.TrustedCommandsDocument{})
		},
	}
}

// buildToolsSchemaCmd prints a built-in tool's input JSON-Schema, the form
// a user writing an MCP client config or approval rule needs to see.
func buildToolsSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <tool-name>",
		Short: "Print a built-in tool's input schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := toolregistry.New(nil)
			if err := reg.RegisterBuiltins(); err != nil {
				return err
			}
			spec, ok := reg.Lookup(args[0])
			if !ok {
				return fmt.Errorf("agentrun: unknown built-in tool %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(spec.InputSchema))
			return nil
		},
	}
}
