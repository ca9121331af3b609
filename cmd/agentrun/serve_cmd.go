package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentcore/runtime/internal/agentloop"
	"github.com/agentcore/runtime/internal/environment"
	"github.com/agentcore/runtime/internal/session"
	wsui "github.com/agentcore/runtime/internal/ui/websocket"
)

const shutdownTimeout = 5 * time.Second

// agentloopApproval resolves serve's approval gate. A WebSocket client has
// no dedicated channel to answer a tool-approval round-trip in this
// protocol version, so serve is either fully auto-approving or fully
// auto-denying; an operator who needs interactive approval runs `delegate`
// instead.
func agentloopApproval(allow bool) agentloop.ApprovalGate {
	return autoApproval{allow: allow}
}

// buildServeCmd builds the `serve` command: a long-running process hosting
// the WebSocket UI protocol over the full session/environment stack
// (spec.md §4.9, §6).
func buildServeCmd(resolveConfig func() string) *cobra.Command {
	var (
		addr        string
		provider    string
		model       string
		trusted     string
		autoApprove bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the WebSocket UI protocol over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, resolveConfig(), trusted)
			if err != nil {
				return err
			}

			approval := agentloopApproval(autoApprove)
			sess := session.New(rt.bus, rt.providers, rt.registry, rt.shell, approval)
			sess.BuildWorker("main")

			server := wsui.New(sess, provider, model)
			httpServer := &http.Server{Addr: addr, Handler: server}

			go func() {
				slog.Info("websocket UI listening", "addr", addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("websocket server failed", "error", err)
				}
			}()

			env := environment.New(sess, server, nil, false)
			err = env.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&provider, "provider", "", "Default model provider for prompt commands")
	cmd.Flags().StringVar(&model, "model", "", "Default model for prompt commands")
	cmd.Flags().StringVar(&trusted, "trusted-commands", "", "Path to the trusted-commands document")
	cmd.Flags().BoolVar(&autoApprove, "yes", false, "Auto-approve every tool call without prompting")
	return cmd
}
