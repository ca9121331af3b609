package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentcore/runtime/internal/mcp"
)

// mcpConfigPath returns the conventional location for the MCP server list,
// kept separate from agentrun.toml since it is mutated in place by `mcp
// add`/`mcp remove`/`mcp import` rather than hand-edited (spec.md §6).
func mcpConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "agentrun", "mcp.json"), nil
}

func loadMCPConfig(path string) (*mcp.Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &mcp.Config{Enabled: true}, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg mcp.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("agentrun: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func saveMCPConfig(path string, cfg *mcp.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// buildMcpCmd builds the `mcp` command group: add, remove, list, import,
// status (spec.md §6, §4.4).
func buildMcpCmd(resolveConfig func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Manage MCP servers",
	}
	cmd.AddCommand(
		buildMcpAddCmd(),
		buildMcpRemoveCmd(),
		buildMcpListCmd(),
		buildMcpImportCmd(),
		buildMcpStatusCmd(),
	)
	return cmd
}

func buildMcpAddCmd() *cobra.Command {
	var (
		id, name, command, url string
		args                   []string
		autoStart              bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an MCP server",
		RunE: func(cmd *cobra.Command, cargs []string) error {
			path, err := mcpConfigPath()
			if err != nil {
				return err
			}
			cfg, err := loadMCPConfig(path)
			if err != nil {
				return err
			}
			server := &mcp.ServerConfig{ID: id, Name: name, AutoStart: autoStart}
			if url != "" {
				server.Transport = mcp.TransportHTTP
				server.URL = url
			} else {
				server.Transport = mcp.TransportStdio
				server.Command = command
				server.Args = args
			}
			if err := server.Validate(); err != nil {
				return err
			}
			for i, s := range cfg.Servers {
				if s.ID == id {
					cfg.Servers[i] = server
					return saveMCPConfig(path, cfg)
				}
			}
			cfg.Servers = append(cfg.Servers, server)
			return saveMCPConfig(path, cfg)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Server id")
	cmd.Flags().StringVar(&name, "name", "", "Server display name")
	cmd.Flags().StringVar(&command, "command", "", "Stdio launch command")
	cmd.Flags().StringSliceVar(&args, "arg", nil, "Stdio launch argument (repeatable)")
	cmd.Flags().StringVar(&url, "url", "", "HTTP server URL (selects the HTTP transport)")
	cmd.Flags().BoolVar(&autoStart, "auto-start", true, "Connect automatically when the runtime starts")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func buildMcpRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpConfigPath()
			if err != nil {
				return err
			}
			cfg, err := loadMCPConfig(path)
			if err != nil {
				return err
			}
			kept := cfg.Servers[:0]
			for _, s := range cfg.Servers {
				if s.ID != args[0] {
					kept = append(kept, s)
				}
			}
			cfg.Servers = kept
			return saveMCPConfig(path, cfg)
		},
	}
}

func buildMcpListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured MCP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpConfigPath()
			if err != nil {
				return err
			}
			cfg, err := loadMCPConfig(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range cfg.Servers {
				fmt.Fprintf(out, "%s\t%s\t%s\tauto_start=%v\n", s.ID, s.Name, s.Transport, s.AutoStart)
			}
			return nil
		},
	}
}

// buildMcpImportCmd imports a server list from an external JSON document
// shaped like mcp.Config, merging by ID (spec.md §6 `mcp import`).
func buildMcpImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import MCP servers from a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var imported mcp.Config
			if err := json.Unmarshal(data, &imported); err != nil {
				return fmt.Errorf("agentrun: parsing %s: %w", args[0], err)
			}

			path, err := mcpConfigPath()
			if err != nil {
				return err
			}
			cfg, err := loadMCPConfig(path)
			if err != nil {
				return err
			}
			byID := make(map[string]*mcp.ServerConfig, len(cfg.Servers))
			for _, s := range cfg.Servers {
				byID[s.ID] = s
			}
			for _, s := range imported.Servers {
				byID[s.ID] = s
			}
			cfg.Servers = cfg.Servers[:0]
			for _, s := range byID {
				cfg.Servers = append(cfg.Servers, s)
			}
			return saveMCPConfig(path, cfg)
		},
	}
}

func buildMcpStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Connect to every auto-start server and report status",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := mcpConfigPath()
			if err != nil {
				return err
			}
			cfg, err := loadMCPConfig(path)
			if err != nil {
				return err
			}
			mgr := mcp.NewManager(cfg, slog.Default())
			ctx := context.Background()
			if err := mgr.Start(ctx); err != nil {
				return err
			}
			defer mgr.Stop()

			out := cmd.OutOrStdout()
			for _, st := range mgr.Status() {
				fmt.Fprintf(out, "%s\tconnected=%v\ttools=%d\tprompts=%d\n", st.ID, st.Connected, st.Tools, st.Prompts)
			}
			return nil
		},
	}
}
