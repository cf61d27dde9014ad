package queue

import (
	"context"
	"testing"
	"time"

	"guardian/internal/ports"
)

func TestMemoryQueuePublishReceiveAck(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Second, 50*time.Millisecond)

	if err := q.Publish(ctx, ports.QueuePrimary, []byte(`{"video_id":"v1"}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	delivery, err := q.Receive(ctx, ports.QueuePrimary)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if delivery == nil {
		t.Fatalf("Receive() = nil, want delivery")
	}
	if string(delivery.Body()) != `{"video_id":"v1"}` {
		t.Fatalf("Body() = %q", delivery.Body())
	}

	if err := delivery.Ack(ctx); err != nil {
		t.Fatalf("Ack() error = %v", err)
	}

	depth, err := q.Depth(ctx, ports.QueuePrimary)
	if err != nil {
		t.Fatalf("Depth() error = %v", err)
	}
	if depth != 0 {
		t.Fatalf("Depth() = %d after ack, want 0", depth)
	}
}

func TestMemoryQueueReceiveEmptyReturnsNil(t *testing.T) {
	q := NewMemoryQueue(time.Second, 20*time.Millisecond)

	delivery, err := q.Receive(context.Background(), ports.QueueEscalation)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if delivery != nil {
		t.Fatalf("Receive() = %v, want nil on empty queue", delivery)
	}
}

func TestMemoryQueueNackRedelivers(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Second, 50*time.Millisecond)

	if err := q.Publish(ctx, ports.QueuePrimary, []byte("m1")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	first, err := q.Receive(ctx, ports.QueuePrimary)
	if err != nil || first == nil {
		t.Fatalf("Receive() = %v, %v", first, err)
	}
	if err := first.Nack(ctx); err != nil {
		t.Fatalf("Nack() error = %v", err)
	}

	second, err := q.Receive(ctx, ports.QueuePrimary)
	if err != nil || second == nil {
		t.Fatalf("Receive() after nack = %v, %v", second, err)
	}
	if string(second.Body()) != "m1" {
		t.Fatalf("redelivered body = %q", second.Body())
	}
}

func TestMemoryQueueLeaseExpiryRedelivers(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(10*time.Millisecond, 200*time.Millisecond)

	if err := q.Publish(ctx, ports.QueuePrimary, []byte("m1")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	first, err := q.Receive(ctx, ports.QueuePrimary)
	if err != nil || first == nil {
		t.Fatalf("Receive() = %v, %v", first, err)
	}

	// Hold the lease past its visibility timeout without acking.
	time.Sleep(30 * time.Millisecond)

	second, err := q.Receive(ctx, ports.QueuePrimary)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if second == nil {
		t.Fatalf("Receive() = nil, want redelivery after lease expiry")
	}

	// The late ack from the first worker must not lose the redelivered
	// message.
	if err := first.Ack(ctx); err != nil {
		t.Fatalf("late Ack() error = %v", err)
	}
	if err := second.Ack(ctx); err != nil {
		t.Fatalf("Ack() error = %v", err)
	}

	depth, err := q.Depth(ctx, ports.QueuePrimary)
	if err != nil {
		t.Fatalf("Depth() error = %v", err)
	}
	if depth != 0 {
		t.Fatalf("Depth() = %d, want 0", depth)
	}
}

func TestMemoryQueueDepthCountsPendingAndInflight(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Second, 50*time.Millisecond)

	for range 3 {
		if err := q.Publish(ctx, ports.QueueEscalation, []byte("m")); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	if _, err := q.Receive(ctx, ports.QueueEscalation); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	depth, err := q.Depth(ctx, ports.QueueEscalation)
	if err != nil {
		t.Fatalf("Depth() error = %v", err)
	}
	if depth != 3 {
		t.Fatalf("Depth() = %d, want 3 (2 pending + 1 leased)", depth)
	}
}
