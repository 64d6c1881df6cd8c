package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// fakeClock is a manually advanced clock shared with the breaker under
// test.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(threshold int, open time.Duration) (*Breaker, *fakeClock) {
	clk := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewBreaker(threshold, open, clk), clk
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(3, 30*time.Second)

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.Failure()
		require.Equal(t, StateClosed, b.State())
	}

	require.NoError(t, b.Allow())
	b.Failure()
	require.Equal(t, StateOpen, b.State())

	err := b.Allow()
	var open *pusher.CircuitOpenError
	require.ErrorAs(t, err, &open)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(3, 30*time.Second)

	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()
	b.Failure()
	require.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	t.Parallel()

	b, clk := newTestBreaker(1, 30*time.Second)
	b.Failure()
	require.Equal(t, StateOpen, b.State())

	// Still inside the open window.
	clk.Advance(29 * time.Second)
	require.Error(t, b.Allow())

	// Window elapsed: exactly one probe is let through.
	clk.Advance(2 * time.Second)
	require.NoError(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())
	require.Error(t, b.Allow())

	b.Success()
	require.Equal(t, StateClosed, b.State())
	require.NoError(t, b.Allow())
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	t.Parallel()

	b, clk := newTestBreaker(1, 30*time.Second)
	b.Failure()

	clk.Advance(31 * time.Second)
	require.NoError(t, b.Allow())
	b.Failure()
	require.Equal(t, StateOpen, b.State())

	// The open window restarts from the probe failure.
	clk.Advance(29 * time.Second)
	require.Error(t, b.Allow())
	clk.Advance(2 * time.Second)
	require.NoError(t, b.Allow())
}

func TestBreakerReleaseProbeFreesSlot(t *testing.T) {
	t.Parallel()

	b, clk := newTestBreaker(1, 30*time.Second)
	b.Failure()
	clk.Advance(31 * time.Second)

	require.NoError(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())
	require.Error(t, b.Allow())

	// The probe ended without a health verdict; the slot must not stay
	// occupied for the life of the process.
	b.ReleaseProbe()
	require.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Allow())

	b.Success()
	require.Equal(t, StateClosed, b.State())
}

func TestBreakerReleaseProbeOutsideHalfOpenIsNoop(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(2, 30*time.Second)
	b.ReleaseProbe()
	require.Equal(t, StateClosed, b.State())
	require.NoError(t, b.Allow())

	b.Failure()
	b.Failure()
	require.Equal(t, StateOpen, b.State())
	b.ReleaseProbe()
	require.Equal(t, StateOpen, b.State())
	require.Error(t, b.Allow())
}

func TestBreakerStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "closed", StateClosed.String())
	require.Equal(t, "half-open", StateHalfOpen.String())
	require.Equal(t, "open", StateOpen.String())
}
