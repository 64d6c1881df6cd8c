// Package pubsub implements a Google Cloud Pub/Sub dead-letter sink.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	gcpubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// Sink publishes dead-letter entries to a Pub/Sub topic. Write blocks
// until the server acknowledges the publish, so callers may safely ack
// the source message once Write returns nil.
type Sink struct {
	client *gcpubsub.Client
	topic  *gcpubsub.Topic
	logger *zap.Logger
}

// NewSink creates a Pub/Sub client and verifies the dead-letter topic
// exists before returning.
func NewSink(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*Sink, error) {
	client, err := gcpubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check topic %q: %w", topicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}

	return &Sink{
		client: client,
		topic:  topic,
		logger: logger,
	}, nil
}

// Write marshals the entry and publishes it, waiting for the server's
// acknowledgment.
func (s *Sink) Write(ctx context.Context, entry pusher.DeadLetterEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dead-letter entry: %w", err)
	}

	result := s.topic.Publish(ctx, &gcpubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"error_class": entry.ErrorClass,
			"message_id":  entry.MessageID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish dead-letter entry: %w", err)
	}

	s.logger.Debug("dead-letter entry published",
		zap.String("entry_id", entry.ID),
		zap.String("message_id", entry.MessageID),
	)
	return nil
}

// Close flushes pending publishes and releases the client.
func (s *Sink) Close() error {
	s.topic.Stop()
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
