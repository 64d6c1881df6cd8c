// Package memory provides an in-memory dead-letter sink for local
// development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// Sink stores dead-letter entries in memory.
type Sink struct {
	mu      sync.Mutex
	entries []pusher.DeadLetterEntry
}

// NewSink constructs an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Write appends the entry.
func (s *Sink) Write(_ context.Context, entry pusher.DeadLetterEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns a copy of everything written so far.
func (s *Sink) Entries() []pusher.DeadLetterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pusher.DeadLetterEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
