// Package pubsub implements a Google Cloud Pub/Sub message source.
package pubsub

import (
	"context"
	"fmt"

	gcpubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// Consumer wraps a Pub/Sub subscription. It authenticates with Google
// Cloud's Application Default Credentials.
type Consumer struct {
	client *gcpubsub.Client
	sub    *gcpubsub.Subscription
	logger *zap.Logger
}

// NewConsumer creates a Pub/Sub client and verifies the subscription
// exists before returning. maxOutstanding bounds how many messages are
// processed concurrently; each is handled to completion before its slot
// frees up.
func NewConsumer(ctx context.Context, projectID, subscriptionID string, maxOutstanding int, logger *zap.Logger) (*Consumer, error) {
	client, err := gcpubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	sub := client.Subscription(subscriptionID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close pubsub client after subscription check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check subscription %q: %w", subscriptionID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close pubsub client after subscription check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub subscription %q does not exist in project %q", subscriptionID, projectID)
	}

	sub.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	sub.ReceiveSettings.NumGoroutines = 1

	return &Consumer{
		client: client,
		sub:    sub,
		logger: logger,
	}, nil
}

// Receive blocks pulling messages until the context is canceled. The
// client stops intake on cancellation and waits for in-flight handlers
// to return before Receive does.
func (c *Consumer) Receive(ctx context.Context, handle func(context.Context, pusher.Message)) error {
	return c.sub.Receive(ctx, func(ctx context.Context, m *gcpubsub.Message) {
		handle(ctx, &message{inner: m})
	})
}

// Close releases the underlying client connection.
func (c *Consumer) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

type message struct {
	inner *gcpubsub.Message
}

func (m *message) ID() string {
	return m.inner.ID
}

func (m *message) Data() []byte {
	return m.inner.Data
}

func (m *message) Ack() {
	m.inner.Ack()
}

func (m *message) Nack() {
	m.inner.Nack()
}
