package ports

import "context"

// Queue names used by the pipeline. The primary queue feeds fast screening;
// the escalation queue feeds deep analysis.
const (
	QueuePrimary    = "moderation.primary"
	QueueEscalation = "moderation.escalation"
)

// Delivery is one leased queue message. The lease (visibility timeout) is
// owned by the adapter: a worker that neither acks nor nacks before the
// lease expires must assume the message is redelivered to another worker.
type Delivery interface {
	Body() []byte

	// Ack removes the message permanently.
	Ack(ctx context.Context) error

	// Nack releases the lease so the message is redelivered after backoff.
	Nack(ctx context.Context) error
}

// WorkQueue is an at-least-once delivery queue. Receive blocks up to the
// adapter's poll window and returns (nil, nil) when no message arrived,
// so worker loops stay cancellable through ctx.
type WorkQueue interface {
	Publish(ctx context.Context, queue string, body []byte) error
	Receive(ctx context.Context, queue string) (Delivery, error)

	// Depth reports the number of waiting messages. Advisory: consumed by
	// the autoscaling controller, never by pipeline correctness logic.
	Depth(ctx context.Context, queue string) (int, error)
}
