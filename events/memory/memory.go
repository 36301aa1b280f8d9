package memory

import (
	"context"

	"github.com/Ahmed-Sermani/go-pagerank/events"
	"golang.org/x/xerrors"
)

var (
	_ events.Publisher  = (*InMemoryBus)(nil)
	_ events.Subscriber = (*InMemoryBus)(nil)
)

const defaultCapacity = 64

// InMemoryBus is a single process event bus. Each published event is
// delivered to exactly one receiver; nacked events are delivered again.
type InMemoryBus struct {
	queue chan []byte
}

// NewInMemoryBus creates a bus that buffers up to capacity undelivered
// events. A capacity less than 1 selects the default of 64.
func NewInMemoryBus(capacity int) *InMemoryBus {
	if capacity < 1 {
		capacity = defaultCapacity
	}
	return &InMemoryBus{queue: make(chan []byte, capacity)}
}

// Publish blocks until there is room for e or ctx expires.
func (b *InMemoryBus) Publish(ctx context.Context, e events.BlockedRequest) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	return b.enqueue(ctx, data)
}

func (b *InMemoryBus) enqueue(ctx context.Context, data []byte) error {
	select {
	case b.queue <- data:
		return nil
	case <-ctx.Done():
		return xerrors.Errorf("publish event: %w", ctx.Err())
	}
}

// Receive delivers events to h one at a time until ctx expires. It returns
// nil once ctx is done.
func (b *InMemoryBus) Receive(ctx context.Context, h events.Handler) error {
	for {
		select {
		case data := <-b.queue:
			msg := &message{data: data}
			h(ctx, msg)
			if !msg.acked {
				b.requeue(ctx, data)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Pending returns the number of events waiting to be delivered.
func (b *InMemoryBus) Pending() int {
	return len(b.queue)
}

// requeue puts data back on the queue without blocking the receive loop,
// which is the only consumer.
func (b *InMemoryBus) requeue(ctx context.Context, data []byte) {
	select {
	case b.queue <- data:
	default:
		go func() { _ = b.enqueue(ctx, data) }()
	}
}

type message struct {
	data  []byte
	acked bool
}

func (m *message) Data() []byte { return m.data }

func (m *message) Ack() { m.acked = true }

// Nack leaves the message unacknowledged so it's delivered again.
func (m *message) Nack() { m.acked = false }
