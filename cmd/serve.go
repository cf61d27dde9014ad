package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"guardian/internal/bootstrap"
	"guardian/internal/bootstrap/logging"
	"guardian/internal/errs"
	"guardian/internal/server"
	"guardian/internal/usecase/pipeline"
)

// serveCmd runs the review HTTP API plus the audit-event TTL purger.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the review API server",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *pipeline.Service) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(app.Config.Server.Addr, svc)

		go func() {
			if err := svc.RunEventPurge(ctx, app.Config.Events.PurgeInterval); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error(ctx, "event purge loop stopped", slog.Any("err", errs.Loggable(err)))
			}
		}()

		serveErr := make(chan error, 1)
		go func() { serveErr <- srv.Start(ctx) }()

		select {
		case err := <-serveErr:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown review api")
		}
		logging.Info(cmd.Context(), "review api stopped")
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
