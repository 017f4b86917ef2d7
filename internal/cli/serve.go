package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	appLog "dayplan/internal/log"
	"dayplan/internal/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner HTTP API",
		Long: `Serve the planner over HTTP. Today's events are loaded at startup and
refreshed on the configured cron schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				a.cfg.Listen = listen
			}

			appLog.Info("dayplan starting", "version", version, "listen", a.cfg.Listen)

			if _, err := a.loadEvents(ctx); err != nil {
				appLog.Error("initial event load failed", err)
			}

			sched, err := startRefresh(ctx, a)
			if err != nil {
				return err
			}
			defer func() {
				<-sched.Stop().Done()
			}()

			if err := web.NewServer(a.store, a.cfg.BasicAuth).Run(ctx, a.cfg.Listen); err != nil {
				return goerr.Wrap(err, "http server failed", goerr.V("listen", a.cfg.Listen))
			}
			appLog.Info("dayplan exiting")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

// startRefresh schedules LoadEvents on the configured cron expression.
func startRefresh(ctx context.Context, a *app) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(a.loc))
	_, err := c.AddFunc(a.cfg.RefreshCron, func() {
		appLog.Debug("scheduled event refresh")
		if _, err := a.loadEvents(ctx); err != nil {
			appLog.Error("scheduled event refresh failed", err)
		}
	})
	if err != nil {
		return nil, goerr.Wrap(err, "invalid refresh schedule", goerr.V("refresh", a.cfg.RefreshCron))
	}
	c.Start()
	return c, nil
}
