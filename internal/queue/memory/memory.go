// Package memory provides a bounded in-memory message source for local
// development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// Consumer is a channel-backed message source. Publish feeds it; Receive
// fans messages out to a fixed number of workers. Nack re-enqueues the
// message so it is seen again, which mirrors broker redelivery closely
// enough for development.
type Consumer struct {
	ch      chan []byte
	workers int

	closeMu sync.Mutex
	closed  bool
}

// NewConsumer constructs a consumer with the given buffer capacity and
// worker count.
func NewConsumer(capacity, workers int) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		ch:      make(chan []byte, capacity),
		workers: workers,
	}
}

// Publish pushes a raw payload into the queue or returns if the context
// ends first.
func (c *Consumer) Publish(ctx context.Context, payload []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("publish canceled: %w", ctx.Err())
	case c.ch <- payload:
		return nil
	}
}

// Receive runs the worker loop until the context is canceled or the
// consumer is closed. Each worker pulls one message at a time and runs
// the handler to completion before pulling the next.
func (c *Consumer) Receive(ctx context.Context, handle func(context.Context, pusher.Message)) error {
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-c.ch:
					if !ok {
						return
					}
					handle(ctx, &message{
						id:       uuid.NewString(),
						payload:  payload,
						consumer: c,
					})
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

// Close shuts the intake channel. Receive workers drain what is buffered
// and then exit.
func (c *Consumer) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if !c.closed {
		close(c.ch)
		c.closed = true
	}
	return nil
}

// message is one in-flight payload. Settling it twice is a no-op.
type message struct {
	id       string
	payload  []byte
	consumer *Consumer

	settleMu sync.Mutex
	settled  bool
}

func (m *message) ID() string {
	return m.id
}

func (m *message) Data() []byte {
	return m.payload
}

func (m *message) Ack() {
	m.settleMu.Lock()
	defer m.settleMu.Unlock()
	m.settled = true
}

// Nack re-enqueues the payload best-effort; if the queue is full or
// closed the message is dropped, which is acceptable for a dev source.
func (m *message) Nack() {
	m.settleMu.Lock()
	defer m.settleMu.Unlock()
	if m.settled {
		return
	}
	m.settled = true

	m.consumer.closeMu.Lock()
	defer m.consumer.closeMu.Unlock()
	if m.consumer.closed {
		return
	}
	select {
	case m.consumer.ch <- m.payload:
	default:
	}
}
