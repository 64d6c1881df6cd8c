// Package transform turns parsed source events into archive records.
package transform

import (
	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/config"
	"github.com/cnyeig/hydocpusher/internal/metrics"
	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// Classifier maps a channel id to its archival category pair using a
// static table loaded at startup. Lookups never fail: unknown channels
// resolve to the default entry.
type Classifier struct {
	rules  map[string]pusher.Classification
	def    pusher.Classification
	logger *zap.Logger
}

// NewClassifier builds a Classifier from validated configuration. The
// config layer guarantees the default entry exists.
func NewClassifier(cfg config.ClassificationConfig, logger *zap.Logger) *Classifier {
	rules := make(map[string]pusher.Classification, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules[r.ChannelID] = pusher.Classification{Name: r.ClassifyName, Code: r.Classify}
	}
	return &Classifier{
		rules:  rules,
		def:    pusher.Classification{Name: cfg.Default.ClassifyName, Code: cfg.Default.Classify},
		logger: logger,
	}
}

// Classify resolves a channel id to its category pair. An unknown id is
// an expected condition and resolves to the default entry with a warning.
func (c *Classifier) Classify(channelID string) pusher.Classification {
	if cls, ok := c.rules[channelID]; ok {
		return cls
	}
	c.logger.Warn("unknown channel id, using default classification",
		zap.String("channel_id", channelID),
		zap.String("classfy", c.def.Code),
	)
	metrics.IncUnknownChannel()
	return c.def
}

// Default returns the fallback category pair.
func (c *Classifier) Default() pusher.Classification {
	return c.def
}
