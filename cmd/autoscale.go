package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"guardian/internal/bootstrap"
	"guardian/internal/bootstrap/logging"
	"guardian/internal/errs"
	"guardian/internal/ports"
	"guardian/internal/usecase/pipeline"
)

// autoscaleCmd runs deep analysis behind the scaling controller: an
// in-process worker pool sized from the escalation backlog.
var autoscaleCmd = &cobra.Command{
	Use:   "autoscale",
	Short: "Run deep-analysis workers behind the autoscaling controller",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *pipeline.Service) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool := pipeline.NewWorkerPool(ctx, func(workerCtx context.Context) {
			if err := svc.RunWorker(workerCtx, ports.QueueEscalation, svc.ProcessAnalysis); err != nil && workerCtx.Err() == nil {
				logging.Error(workerCtx, "analysis worker stopped", slog.Any("err", errs.Loggable(err)))
			}
		})
		defer pool.Close()

		controller, err := pipeline.NewAutoscaler(app.Queue, pool, pipeline.AutoscalerConfig{
			Queue:             ports.QueueEscalation,
			Interval:          app.Config.Autoscale.Interval,
			MaxReplicas:       app.Config.Autoscale.MaxReplicas,
			BacklogPerReplica: app.Config.Autoscale.BacklogPerReplica,
			ScaleDownIdle:     app.Config.Autoscale.ScaleDownIdle,
		})
		if err != nil {
			return errs.Wrap(err, "build autoscaler")
		}

		logging.Info(ctx, "autoscaling controller started",
			slog.Int("max_replicas", app.Config.Autoscale.MaxReplicas))
		if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return errs.Wrap(err, "run autoscaler")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(autoscaleCmd)
}
