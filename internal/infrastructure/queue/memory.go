package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"guardian/internal/ports"
)

// MemoryQueue is an in-process ports.WorkQueue with at-least-once
// semantics: every received message holds a lease, and a message neither
// acked nor nacked before the lease expires returns to the queue for
// redelivery. Used by tests and the single-binary local deployment.
type MemoryQueue struct {
	mu         sync.Mutex
	visibility time.Duration
	pollWait   time.Duration
	queues     map[string]*memQueue
	nextToken  uint64
}

type memQueue struct {
	pending  []*memMessage
	inflight map[uint64]*memMessage
}

type memMessage struct {
	body     []byte
	deadline time.Time
	attempts int
}

func NewMemoryQueue(visibility, pollWait time.Duration) *MemoryQueue {
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	if pollWait <= 0 {
		pollWait = 100 * time.Millisecond
	}
	return &MemoryQueue{
		visibility: visibility,
		pollWait:   pollWait,
		queues:     make(map[string]*memQueue),
	}
}

var _ ports.WorkQueue = (*MemoryQueue)(nil)

func (q *MemoryQueue) Publish(_ context.Context, queue string, body []byte) error {
	if queue == "" {
		return errors.New("queue name is required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	cloned := make([]byte, len(body))
	copy(cloned, body)
	q.state(queue).pending = append(q.state(queue).pending, &memMessage{body: cloned})
	return nil
}

func (q *MemoryQueue) Receive(ctx context.Context, queue string) (ports.Delivery, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	deadline := time.Now().Add(q.pollWait)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if delivery := q.tryReceive(queue); delivery != nil {
			return delivery, nil
		}

		if time.Now().After(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (q *MemoryQueue) tryReceive(queue string) ports.Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()

	state := q.state(queue)
	q.reclaimExpired(state)

	if len(state.pending) == 0 {
		return nil
	}

	msg := state.pending[0]
	state.pending = state.pending[1:]
	msg.deadline = time.Now().Add(q.visibility)
	msg.attempts++

	q.nextToken++
	token := q.nextToken
	state.inflight[token] = msg

	return &memDelivery{owner: q, queue: queue, token: token, body: msg.body}
}

// reclaimExpired returns lease-expired in-flight messages to the head of
// the queue. Callers hold q.mu.
func (q *MemoryQueue) reclaimExpired(state *memQueue) {
	now := time.Now()
	for token, msg := range state.inflight {
		if now.After(msg.deadline) {
			delete(state.inflight, token)
			state.pending = append([]*memMessage{msg}, state.pending...)
		}
	}
}

func (q *MemoryQueue) Depth(_ context.Context, queue string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state := q.state(queue)
	q.reclaimExpired(state)
	return len(state.pending) + len(state.inflight), nil
}

func (q *MemoryQueue) state(queue string) *memQueue {
	state, ok := q.queues[queue]
	if !ok {
		state = &memQueue{inflight: make(map[uint64]*memMessage)}
		q.queues[queue] = state
	}
	return state
}

func (q *MemoryQueue) ack(queue string, token uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.state(queue).inflight, token)
}

func (q *MemoryQueue) nack(queue string, token uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state := q.state(queue)
	msg, ok := state.inflight[token]
	if !ok {
		// Lease already expired and the message was reclaimed.
		return
	}
	delete(state.inflight, token)
	state.pending = append(state.pending, msg)
}

type memDelivery struct {
	owner *MemoryQueue
	queue string
	token uint64
	body  []byte
}

func (d *memDelivery) Body() []byte { return d.body }

func (d *memDelivery) Ack(_ context.Context) error {
	d.owner.ack(d.queue, d.token)
	return nil
}

func (d *memDelivery) Nack(_ context.Context) error {
	d.owner.nack(d.queue, d.token)
	return nil
}
