// Package system is the wall-clock implementation of pusher.Clock,
// used everywhere outside tests.
package system

import "time"

// Clock reads the real time source. Timestamps are normalized to UTC so
// dead-letter entries and derived document dates compare cleanly across
// hosts.
type Clock struct{}

// New returns a Clock.
func New() *Clock {
	return &Clock{}
}

// Now reports the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
