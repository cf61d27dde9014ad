package ports

import "context"

// ReplicaPool is the worker fleet the autoscaling controller drives. The
// controller is advisory: pipeline correctness holds at zero replicas
// (messages wait) through N replicas (messages processed in parallel,
// each idempotently).
type ReplicaPool interface {
	// Resize sets the desired replica count. Adapters start or stop workers
	// to converge; shrinking never interrupts a message mid-lease.
	Resize(ctx context.Context, replicas int) error
	Replicas() int
}
