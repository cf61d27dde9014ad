package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"guardian/internal/bootstrap"
	"guardian/internal/bootstrap/logging"
	"guardian/internal/errs"
	"guardian/internal/ports"
	"guardian/internal/usecase/pipeline"
)

// workerCmd groups the queue-consumer commands.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run pipeline workers",
}

// screenCmd runs the fast-screening consumers on the primary queue.
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Consume the primary queue and run fast screening",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *pipeline.Service) error {
		return runWorkers(cmd.Context(), app.Config.Screening.Workers, ports.QueuePrimary, svc, svc.ProcessScreening)
	}),
}

// analyzeCmd runs a fixed deep-analysis consumer on the escalation queue.
// The autoscale command manages an elastic pool instead.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Consume the escalation queue and run deep analysis",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *pipeline.Service) error {
		return runWorkers(cmd.Context(), 1, ports.QueueEscalation, svc, svc.ProcessAnalysis)
	}),
}

func runWorkers(ctx context.Context, count int, queue string, svc *pipeline.Service, handle pipeline.Handler) error {
	if count < 1 {
		count = 1
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithAttrs(ctx, slog.String("queue", queue))
	logging.Info(ctx, "starting workers", slog.Int("count", count))

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.RunWorker(ctx, queue, handle); err != nil && ctx.Err() == nil {
				logging.Error(ctx, "worker stopped", slog.Any("err", errs.Loggable(err)))
			}
		}()
	}
	wg.Wait()

	logging.Info(ctx, "workers stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(screenCmd)
	workerCmd.AddCommand(analyzeCmd)
}
