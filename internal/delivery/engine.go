package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/config"
	"github.com/cnyeig/hydocpusher/internal/metrics"
	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// Engine drives bounded retries with exponential backoff around the
// archive transport, consulting the shared circuit breaker before every
// network call.
type Engine struct {
	transport pusher.Transport
	breaker   *Breaker

	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	logger *zap.Logger

	// wait is swapped out in tests to avoid real sleeps.
	wait func(ctx context.Context, d time.Duration) error
}

// NewEngine constructs an Engine around a transport and a shared breaker.
func NewEngine(transport pusher.Transport, breaker *Breaker, cfg config.ArchiveConfig, logger *zap.Logger) *Engine {
	return &Engine{
		transport:   transport,
		breaker:     breaker,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BackoffBase(),
		maxDelay:    cfg.BackoffMax(),
		logger:      logger,
		wait:        sleepCtx,
	}
}

// Deliver pushes one record, retrying transient failures with
// exponential backoff. Permanent failures surface immediately; an
// exhausted retry budget converts the last transient error into a
// PermanentDeliveryError for dead-lettering.
func (e *Engine) Deliver(ctx context.Context, record *pusher.ArchiveRecord) error {
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := e.breaker.Allow(); err != nil {
			lastErr = err
			metrics.IncDeliveryAttempt("circuit_open")
			e.logger.Warn("delivery suspended by circuit breaker",
				zap.String("did", record.DID),
				zap.Int("attempt", attempt),
			)
		} else {
			err := e.transport.Push(ctx, record)
			if err == nil {
				e.breaker.Success()
				metrics.IncDeliveryAttempt("success")
				return nil
			}
			if permanent, reason := classifyPermanent(err); permanent {
				// A request defect says nothing about downstream
				// availability: no failure is recorded, and a
				// half-open probe slot goes back to the pool.
				e.breaker.ReleaseProbe()
				metrics.IncDeliveryAttempt("permanent")
				return &pusher.PermanentDeliveryError{Reason: reason, Attempts: attempt, Err: err}
			}
			e.breaker.Failure()
			lastErr = err
			metrics.IncDeliveryAttempt("transient")
			e.logger.Warn("archive push failed",
				zap.String("did", record.DID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}

		if attempt < e.maxAttempts {
			if err := e.wait(ctx, e.backoff(attempt)); err != nil {
				return fmt.Errorf("delivery interrupted: %w", err)
			}
		}
	}

	return &pusher.PermanentDeliveryError{
		Reason:   pusher.ReasonRetriesExhausted,
		Attempts: e.maxAttempts,
		Err:      lastErr,
	}
}

// backoff returns baseDelay * 2^(attempt-1) capped at maxDelay.
func (e *Engine) backoff(attempt int) time.Duration {
	d := e.baseDelay << (attempt - 1)
	if d > e.maxDelay || d <= 0 {
		return e.maxDelay
	}
	return d
}

// classifyPermanent distinguishes request defects and application
// rejections from downstream unavailability.
func classifyPermanent(err error) (bool, pusher.DeliveryFailureReason) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Permanent() {
		return true, pusher.ReasonClientError
	}
	var rejection *AppRejectionError
	if errors.As(err, &rejection) {
		return true, pusher.ReasonAppRejection
	}
	return false, ""
}

// sleepCtx is a context-aware sleep; it suspends only the calling
// worker, never the pool.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
