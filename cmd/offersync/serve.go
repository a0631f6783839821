package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/rebately/offersync/internal/web"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and operator HTTP server",
		Long: `Run offersync as a long-lived service:
- a per-minute scheduler tick that starts or resumes the daily sync
- an hourly sweep of the deferred enrichment queue
- an HTTP server exposing /healthz, /api/status and /api/trigger`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := cron.New()
			if _, err := c.AddFunc("* * * * *", func() {
				if res, err := a.pipeline.Tick(ctx); err != nil {
					a.logger.Error("tick failed", "error", err)
				} else if res.Err != nil {
					a.logger.Error("sync run failed", "error", res.Err)
				}
			}); err != nil {
				return err
			}
			if _, err := c.AddFunc("@hourly", func() {
				if n, err := a.sweeper.Sweep(ctx); err != nil {
					a.logger.Error("retry sweep failed", "error", err)
				} else if n > 0 {
					a.logger.Info("retry sweep done", "attempted", n)
				}
			}); err != nil {
				return err
			}
			c.Start()
			defer c.Stop()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := web.NewServer(a.ops)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Run(addr) }()

			a.logger.Info("offersync serving", "addr", addr, "market", a.cfg.Market)
			select {
			case <-ctx.Done():
				return nil
			case err := <-errCh:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")

	return cmd
}
