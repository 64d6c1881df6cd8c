// Package pipeline drives consumed messages through build, delivery and
// acknowledgment.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/metrics"
	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// RecordBuilder turns a parsed source event into an archive record.
type RecordBuilder interface {
	Build(ev *pusher.SourceEvent) (*pusher.ArchiveRecord, error)
}

// Deliverer places a built record with the archive system.
type Deliverer interface {
	Deliver(ctx context.Context, record *pusher.ArchiveRecord) error
}

// Coordinator processes one message fully to completion: parse, build,
// deliver, then acknowledge. Modeled failures are dead-lettered and
// acknowledged; unexpected failures are negatively acknowledged so the
// queue's own redelivery policy takes over. Nothing propagates past it.
type Coordinator struct {
	builder     RecordBuilder
	deliverer   Deliverer
	sink        pusher.DeadLetterSink
	sourceTopic string
	clock       pusher.Clock
	logger      *zap.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(
	builder RecordBuilder,
	deliverer Deliverer,
	sink pusher.DeadLetterSink,
	sourceTopic string,
	clock pusher.Clock,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		builder:     builder,
		deliverer:   deliverer,
		sink:        sink,
		sourceTopic: sourceTopic,
		clock:       clock,
		logger:      logger,
	}
}

// Handle processes one consumed message and settles it exactly once.
func (c *Coordinator) Handle(ctx context.Context, msg pusher.Message) {
	start := c.clock.Now()
	defer func() {
		metrics.ObserveProcessing(c.clock.Now().Sub(start).Seconds())
	}()

	err := c.process(ctx, msg)
	switch {
	case err == nil:
		// process settled the message itself.
	case pusher.IsPermanent(err):
		c.deadLetter(ctx, msg, err)
	default:
		c.logger.Error("unexpected processing failure, returning message to queue",
			zap.String("message_id", msg.ID()),
			zap.Error(err),
		)
		metrics.IncEvent("redelivered")
		msg.Nack()
	}
}

// process runs the happy path and returns modeled errors for Handle to
// route. A nil return means the message was acked (delivered or
// deliberately skipped). Panics are converted into errors so a bug in
// one message never takes down a worker.
func (c *Coordinator) process(ctx context.Context, msg pusher.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing message: %v", r)
		}
	}()

	ev, parseErr := pusher.ParseSourceEvent(msg.Data())
	if parseErr != nil {
		// An undecodable payload can never build a record; treat it
		// like any other permanently malformed event.
		return &pusher.RecordBuildError{Err: parseErr}
	}

	if !ev.Publishable() {
		c.logger.Info("skipping non-publish event",
			zap.String("doc_id", ev.DocID()),
			zap.String("oper_type", ev.Data.OperType),
		)
		metrics.IncEvent("skipped")
		msg.Ack()
		return nil
	}

	record, buildErr := c.builder.Build(ev)
	if buildErr != nil {
		return buildErr
	}

	if deliverErr := c.deliverer.Deliver(ctx, record); deliverErr != nil {
		return deliverErr
	}

	c.logger.Info("event archived",
		zap.String("did", record.DID),
		zap.String("message_id", msg.ID()),
	)
	metrics.IncEvent("delivered")
	msg.Ack()
	return nil
}

// deadLetter writes the failed event to the sink, then acknowledges.
// The ordering is strict: the source message is acked only after the
// sink confirms receipt, so a crash between the two steps loses nothing.
func (c *Coordinator) deadLetter(ctx context.Context, msg pusher.Message, cause error) {
	entry := pusher.DeadLetterEntry{
		ID:          uuid.NewString(),
		MessageID:   msg.ID(),
		SourceTopic: c.sourceTopic,
		Payload:     msg.Data(),
		ErrorClass:  errorClass(cause),
		ErrorDetail: cause.Error(),
		Attempts:    attemptCount(cause),
		FailedAt:    c.clock.Now(),
	}

	if err := c.sink.Write(ctx, entry); err != nil {
		c.logger.Error("dead-letter write failed, returning message to queue",
			zap.String("message_id", msg.ID()),
			zap.Error(err),
		)
		metrics.IncEvent("redelivered")
		msg.Nack()
		return
	}

	c.logger.Warn("event dead-lettered",
		zap.String("message_id", msg.ID()),
		zap.String("error_class", entry.ErrorClass),
		zap.String("error_detail", entry.ErrorDetail),
	)
	metrics.IncEvent("dead_lettered")
	metrics.IncDeadLetter()
	msg.Ack()
}

func errorClass(err error) string {
	var pd *pusher.PermanentDeliveryError
	if errors.As(err, &pd) {
		return "delivery_" + string(pd.Reason)
	}
	return "record_build"
}

func attemptCount(err error) int {
	var pd *pusher.PermanentDeliveryError
	if errors.As(err, &pd) {
		return pd.Attempts
	}
	return 0
}
