package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/ports"
)

// WorkerPool runs N copies of one worker loop and lets the autoscaling
// controller change N at runtime. Shrinking cancels contexts and waits;
// the worker loop settles its in-flight message before exiting, so no
// lease is abandoned mid-message.
type WorkerPool struct {
	run func(ctx context.Context)

	mu      sync.Mutex
	base    context.Context
	cancels []context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

var _ ports.ReplicaPool = (*WorkerPool)(nil)

// NewWorkerPool creates an empty pool. Workers derive from base and stop
// when it is canceled.
func NewWorkerPool(base context.Context, run func(ctx context.Context)) *WorkerPool {
	if base == nil {
		base = context.Background()
	}
	return &WorkerPool{run: run, base: base}
}

func (p *WorkerPool) Replicas() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cancels)
}

func (p *WorkerPool) Resize(ctx context.Context, replicas int) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if replicas < 0 {
		replicas = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("worker pool is closed")
	}

	current := len(p.cancels)
	switch {
	case replicas > current:
		for i := current; i < replicas; i++ {
			workerCtx, cancel := context.WithCancel(p.base)
			p.cancels = append(p.cancels, cancel)
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.run(workerCtx)
			}()
		}
	case replicas < current:
		for _, cancel := range p.cancels[replicas:] {
			cancel()
		}
		p.cancels = p.cancels[:replicas]
	}

	if replicas != current {
		poolReplicasGauge.Set(float64(replicas))
		logging.Info(ctx, "worker pool resized",
			slog.Int("from", current),
			slog.Int("to", replicas))
	}
	return nil
}

// Close stops every worker and waits for in-flight messages to settle.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	for _, cancel := range p.cancels {
		cancel()
	}
	p.cancels = nil
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	poolReplicasGauge.Set(0)
}
