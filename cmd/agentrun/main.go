// Package main provides the CLI entry point for agentrun, the runtime's
// minimal CLI surface: commands are routed to the agent environment rather
// than implementing their own domain logic (spec.md §6 "CLI surface
// (minimal)").
//
// # Basic usage
//
//	agentrun delegate "fix the failing test in pkg/foo"
//	agentrun tangent enter --conversation session.json
//	agentrun mcp status
//	agentrun serve --addr :8080
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentcore/runtime/internal/agentrunconfig"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached,
// separated from main for testability (grounded on the teacher's
// buildRootCmd/buildXCmd cobra idiom).
func buildRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "agentrun",
		Short:        "agentrun - concurrent agent runtime CLI",
		Version:      fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to agentrun.toml (default: $XDG_CONFIG_HOME/agentrun/agentrun.toml)")

	resolveConfig := func() string {
		if configPath != "" {
			return configPath
		}
		if p, err := agentrunconfig.DefaultPath(); err == nil {
			return p
		}
		return ""
	}

	rootCmd.AddCommand(
		buildDelegateCmd(resolveConfig),
		buildTangentCmd(),
		buildSaveCmd(),
		buildLoadCmd(),
		buildMcpCmd(resolveConfig),
		buildToolsCmd(resolveConfig),
		buildAgentCmd(),
		buildServeCmd(resolveConfig),
	)
	return rootCmd
}
