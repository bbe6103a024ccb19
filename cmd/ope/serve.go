package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/srdjan/ope/internal/server"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.Info("starting",
				zap.Bool("mock_mode", a.cfg.IsMockMode()),
				zap.Bool("cloud", a.cfg.HasCloud()),
				zap.Bool("local_http", a.cfg.HasLocalHTTP()),
				zap.Strings("contexts", a.overlays.List()),
			)
			return serve(ctx, a, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func serve(ctx context.Context, a *app, addr string) error {
	srv := server.New(server.Config{
		Service:      a.svc,
		Overlays:     a.overlays,
		Capabilities: a.cfg,
		Logger:       a.logger,
	})
	return srv.ListenAndServe(ctx, addr)
}
