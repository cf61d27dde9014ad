package queue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"guardian/internal/bootstrap/config"
	"guardian/internal/errs"
	"guardian/internal/ports"
)

// NATSQueue implements ports.WorkQueue on JetStream work-queue streams.
// AckWait is the message lease: a worker that neither acks nor naks within
// it loses exclusivity and the server redelivers.
type NATSQueue struct {
	nc           *nats.Conn
	js           jetstream.JetStream
	streamPrefix string
	visibility   time.Duration
	pollWait     time.Duration

	mu        sync.Mutex
	streams   map[string]jetstream.Stream
	consumers map[string]jetstream.Consumer
}

var _ ports.WorkQueue = (*NATSQueue)(nil)

func NewNATSQueue(ctx context.Context, cfg config.QueueConfig) (*NATSQueue, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("guardian"))
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, errs.Wrap(err, "create jetstream context")
	}

	visibility := cfg.VisibilityTimeout
	if visibility <= 0 {
		visibility = 5 * time.Minute
	}
	pollWait := cfg.ReceiveWait
	if pollWait <= 0 {
		pollWait = 5 * time.Second
	}

	prefix := strings.TrimSpace(cfg.StreamPrefix)
	if prefix == "" {
		prefix = "GUARDIAN"
	}

	return &NATSQueue{
		nc:           nc,
		js:           js,
		streamPrefix: prefix,
		visibility:   visibility,
		pollWait:     pollWait,
		streams:      make(map[string]jetstream.Stream),
		consumers:    make(map[string]jetstream.Consumer),
	}, nil
}

func (q *NATSQueue) Close() error {
	return q.nc.Drain()
}

func (q *NATSQueue) Publish(ctx context.Context, queue string, body []byte) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	if _, err := q.stream(ctx, queue); err != nil {
		return err
	}
	if _, err := q.js.Publish(ctx, queue, body); err != nil {
		return errs.Transient(errs.Wrapf(err, "publish to %s", queue))
	}
	return nil
}

func (q *NATSQueue) Receive(ctx context.Context, queue string) (ports.Delivery, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	consumer, err := q.consumer(ctx, queue)
	if err != nil {
		return nil, err
	}

	batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(q.pollWait))
	if err != nil {
		return nil, errs.Transient(errs.Wrapf(err, "fetch from %s", queue))
	}

	for msg := range batch.Messages() {
		return &natsDelivery{msg: msg}, nil
	}
	if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
		return nil, errs.Transient(errs.Wrapf(err, "fetch from %s", queue))
	}
	return nil, nil
}

func (q *NATSQueue) Depth(ctx context.Context, queue string) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}

	stream, err := q.stream(ctx, queue)
	if err != nil {
		return 0, err
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return 0, errs.Transient(errs.Wrapf(err, "stream info for %s", queue))
	}
	return int(info.State.Msgs), nil
}

func (q *NATSQueue) stream(ctx context.Context, queue string) (jetstream.Stream, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if stream, ok := q.streams[queue]; ok {
		return stream, nil
	}

	stream, err := q.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      q.streamName(queue),
		Subjects:  []string{queue},
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		return nil, errs.Wrapf(err, "ensure stream for %s", queue)
	}

	q.streams[queue] = stream
	return stream, nil
}

func (q *NATSQueue) consumer(ctx context.Context, queue string) (jetstream.Consumer, error) {
	q.mu.Lock()
	if consumer, ok := q.consumers[queue]; ok {
		q.mu.Unlock()
		return consumer, nil
	}
	q.mu.Unlock()

	stream, err := q.stream(ctx, queue)
	if err != nil {
		return nil, err
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:   "workers",
		AckPolicy: jetstream.AckExplicitPolicy,
		AckWait:   q.visibility,
	})
	if err != nil {
		return nil, errs.Wrapf(err, "ensure consumer for %s", queue)
	}

	q.mu.Lock()
	q.consumers[queue] = consumer
	q.mu.Unlock()
	return consumer, nil
}

// Stream names may not contain subject tokens.
func (q *NATSQueue) streamName(queue string) string {
	sanitized := strings.ToUpper(strings.NewReplacer(".", "_", "*", "_", ">", "_").Replace(queue))
	return q.streamPrefix + "_" + sanitized
}

type natsDelivery struct {
	msg jetstream.Msg
}

func (d *natsDelivery) Body() []byte { return d.msg.Data() }

func (d *natsDelivery) Ack(_ context.Context) error {
	if err := d.msg.Ack(); err != nil {
		return errs.Transient(errs.Wrap(err, "ack message"))
	}
	return nil
}

func (d *natsDelivery) Nack(_ context.Context) error {
	if err := d.msg.Nak(); err != nil {
		return errs.Transient(errs.Wrap(err, "nak message"))
	}
	return nil
}
