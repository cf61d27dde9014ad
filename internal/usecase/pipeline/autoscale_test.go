package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"guardian/internal/infrastructure/queue"
	"guardian/internal/ports"
)

// fakePool tracks Resize calls without running workers.
type fakePool struct {
	mu       sync.Mutex
	replicas int
}

func (p *fakePool) Resize(_ context.Context, replicas int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replicas = replicas
	return nil
}

func (p *fakePool) Replicas() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.replicas
}

func newTestAutoscaler(t *testing.T, pool ports.ReplicaPool) (*Autoscaler, *queue.MemoryQueue) {
	t.Helper()
	q := queue.NewMemoryQueue(time.Second, 10*time.Millisecond)
	a, err := NewAutoscaler(q, pool, AutoscalerConfig{
		Queue:             ports.QueueEscalation,
		MaxReplicas:       4,
		BacklogPerReplica: 5,
		ScaleDownIdle:     3 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewAutoscaler() error = %v", err)
	}
	return a, q
}

func publishN(t *testing.T, q *queue.MemoryQueue, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := q.Publish(context.Background(), ports.QueueEscalation, []byte(fmt.Sprintf(`{"video_id":"v%d"}`, i))); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
}

func TestAutoscalerScalesWithBacklog(t *testing.T) {
	pool := &fakePool{}
	a, q := newTestAutoscaler(t, pool)

	tests := []struct {
		backlog int
		want    int
	}{
		{backlog: 1, want: 1},
		{backlog: 5, want: 1},
		{backlog: 6, want: 2},
		{backlog: 17, want: 4},
		{backlog: 100, want: 4}, // clamped at max
	}
	for _, tt := range tests {
		if got := a.desired(tt.backlog); got != tt.want {
			t.Errorf("desired(%d) = %d, want %d", tt.backlog, got, tt.want)
		}
	}

	publishN(t, q, 6)
	if err := a.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if pool.Replicas() != 2 {
		t.Fatalf("replicas = %d, want 2 for backlog 6", pool.Replicas())
	}
}

func TestAutoscalerScalesToZeroAfterIdleWindow(t *testing.T) {
	pool := &fakePool{replicas: 3}
	a, _ := newTestAutoscaler(t, pool)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	now := base
	a.now = func() time.Time { return now }

	// First empty sample inside the grace window holds one replica.
	if err := a.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if pool.Replicas() != 1 {
		t.Fatalf("replicas = %d, want 1 during the idle grace window", pool.Replicas())
	}

	// Still idle past the window: drop to zero.
	now = base.Add(4 * time.Minute)
	if err := a.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if pool.Replicas() != 0 {
		t.Fatalf("replicas = %d, want 0 after the idle window", pool.Replicas())
	}
}

func TestAutoscalerBacklogResetsIdleClock(t *testing.T) {
	pool := &fakePool{replicas: 1}
	a, q := newTestAutoscaler(t, pool)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	now := base
	a.now = func() time.Time { return now }

	if err := a.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	// Work arrives before the idle window elapses.
	now = base.Add(2 * time.Minute)
	publishN(t, q, 1)
	if err := a.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if pool.Replicas() != 1 {
		t.Fatalf("replicas = %d, want 1 with backlog", pool.Replicas())
	}

	// Empty again: the idle clock starts over, so no scale to zero yet.
	drainQueue(t, q)
	now = base.Add(4 * time.Minute)
	if err := a.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if pool.Replicas() != 1 {
		t.Fatalf("replicas = %d, want 1 inside the restarted idle window", pool.Replicas())
	}
}

func drainQueue(t *testing.T, q *queue.MemoryQueue) {
	t.Helper()
	for {
		delivery, err := q.Receive(context.Background(), ports.QueueEscalation)
		if err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
		if delivery == nil {
			return
		}
		if err := delivery.Ack(context.Background()); err != nil {
			t.Fatalf("Ack() error = %v", err)
		}
	}
}

func TestWorkerPoolResize(t *testing.T) {
	started := make(chan struct{}, 16)
	pool := NewWorkerPool(context.Background(), func(ctx context.Context) {
		started <- struct{}{}
		<-ctx.Done()
	})
	defer pool.Close()

	if err := pool.Resize(context.Background(), 3); err != nil {
		t.Fatalf("Resize(3) error = %v", err)
	}
	if pool.Replicas() != 3 {
		t.Fatalf("Replicas() = %d, want 3", pool.Replicas())
	}
	for i := 0; i < 3; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("worker did not start")
		}
	}

	if err := pool.Resize(context.Background(), 1); err != nil {
		t.Fatalf("Resize(1) error = %v", err)
	}
	if pool.Replicas() != 1 {
		t.Fatalf("Replicas() = %d, want 1", pool.Replicas())
	}
}
