package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Desarso/advisorchat/devserver"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr        string
		pushReplies bool
		cronSpec    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local development backend",
		Long: `Run the development backend: chat, history, task and settings endpoints,
the WebSocket push channel and optional scheduled proactive updates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Server
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("push-replies") {
				cfg.PushReplies = pushReplies
			}
			if flags.Changed("proactive-cron") {
				cfg.ProactiveCron = cronSpec
			}

			store, err := cfg.OpenStore()
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := devserver.New(cfg, store, devserver.WithLogger(a.logger))
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :3001)")
	cmd.Flags().BoolVar(&pushReplies, "push-replies", false, "Also push every reply as a chat_message event")
	cmd.Flags().StringVar(&cronSpec, "proactive-cron", "", "Cron spec for proactive updates, e.g. \"@every 1m\"")
	return cmd
}
