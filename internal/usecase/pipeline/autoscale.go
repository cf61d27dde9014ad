package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// AutoscalerConfig tunes the deep-analysis scaling controller.
type AutoscalerConfig struct {
	Queue             string
	Interval          time.Duration
	MaxReplicas       int
	BacklogPerReplica int

	// ScaleDownIdle is how long the queue must stay empty before the pool
	// drops to zero. It dampens flapping around an intermittent trickle.
	ScaleDownIdle time.Duration
}

func (c AutoscalerConfig) withDefaults() AutoscalerConfig {
	if c.Queue == "" {
		c.Queue = ports.QueueEscalation
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.MaxReplicas <= 0 {
		c.MaxReplicas = 4
	}
	if c.BacklogPerReplica <= 0 {
		c.BacklogPerReplica = 5
	}
	if c.ScaleDownIdle <= 0 {
		c.ScaleDownIdle = 3 * time.Minute
	}
	return c
}

// Autoscaler sizes a worker pool from queue backlog. It is advisory only:
// it observes depth and resizes the pool, and the pipeline stays correct at
// any replica count it picks, including zero.
type Autoscaler struct {
	queue ports.WorkQueue
	pool  ports.ReplicaPool
	cfg   AutoscalerConfig

	now        func() time.Time
	emptySince time.Time
}

func NewAutoscaler(queue ports.WorkQueue, pool ports.ReplicaPool, cfg AutoscalerConfig) (*Autoscaler, error) {
	if queue == nil {
		return nil, errors.New("work queue is required")
	}
	if pool == nil {
		return nil, errors.New("replica pool is required")
	}
	return &Autoscaler{
		queue: queue,
		pool:  pool,
		cfg:   cfg.withDefaults(),
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run samples and reconciles until the context is canceled.
func (a *Autoscaler) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	ctx = logging.WithAttrs(ctx,
		slog.String("component", "pipeline.autoscaler"),
		slog.String("queue", a.cfg.Queue))

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.Reconcile(ctx); err != nil {
				logging.Warn(ctx, "reconcile failed",
					slog.Any("err", errs.Loggable(err)))
			}
		}
	}
}

// Reconcile performs one observe-and-resize step.
func (a *Autoscaler) Reconcile(ctx context.Context) error {
	depth, err := a.queue.Depth(ctx, a.cfg.Queue)
	if err != nil {
		return errs.Wrap(err, "sample queue depth")
	}
	queueDepthGauge.WithLabelValues(a.cfg.Queue).Set(float64(depth))

	desired := a.desired(depth)
	if desired == a.pool.Replicas() {
		return nil
	}
	return a.pool.Resize(ctx, desired)
}

// desired maps backlog to replicas: one replica per backlog slice, at least
// one while any work waits, zero only after a sustained idle window.
func (a *Autoscaler) desired(depth int) int {
	if depth > 0 {
		a.emptySince = time.Time{}

		desired := (depth + a.cfg.BacklogPerReplica - 1) / a.cfg.BacklogPerReplica
		if desired > a.cfg.MaxReplicas {
			desired = a.cfg.MaxReplicas
		}
		if desired < 1 {
			desired = 1
		}
		return desired
	}

	now := a.now()
	if a.emptySince.IsZero() {
		a.emptySince = now
	}
	if now.Sub(a.emptySince) >= a.cfg.ScaleDownIdle {
		return 0
	}

	// Idle but inside the grace window: hold at one replica so a trickle
	// of escalations does not pay cold-start latency.
	current := a.pool.Replicas()
	if current < 1 {
		return 0
	}
	return 1
}
