package pusher

import (
	"context"
	"time"
)

// Transport pushes a built archive record to the downstream system.
// Implementations classify outcomes through the typed errors in this
// package and in internal/delivery.
type Transport interface {
	Push(ctx context.Context, record *ArchiveRecord) error
}

// DeadLetterSink durably stores events that could not be processed or
// delivered. Write must not return until the entry is confirmed received;
// the pipeline acknowledges the source message only afterwards.
type DeadLetterSink interface {
	Write(ctx context.Context, entry DeadLetterEntry) error
}

// Message is one consumed queue message with its acknowledgment handle.
type Message interface {
	ID() string
	Data() []byte
	Ack()
	Nack()
}

// Consumer delivers messages from the source queue to a handler. Receive
// blocks until ctx is canceled; the handler is invoked from a bounded
// pool of goroutines.
type Consumer interface {
	Receive(ctx context.Context, handle func(ctx context.Context, msg Message)) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
