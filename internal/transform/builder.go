package transform

import (
	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/config"
	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// Builder composes field resolution, classification and attachment
// normalization into one archive record. It is the only transform unit
// that can fail.
type Builder struct {
	classifier *Classifier
	normalizer *Normalizer
	archive    config.ArchiveConfig
	clock      pusher.Clock
	logger     *zap.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(
	classifier *Classifier,
	normalizer *Normalizer,
	archive config.ArchiveConfig,
	clock pusher.Clock,
	logger *zap.Logger,
) *Builder {
	return &Builder{
		classifier: classifier,
		normalizer: normalizer,
		archive:    archive,
		clock:      clock,
		logger:     logger,
	}
}

// Build turns a source event into an archive record. Field resolution
// errors are wrapped in RecordBuildError; classification and attachment
// normalization are total and cannot fail the build.
func (b *Builder) Build(ev *pusher.SourceEvent) (*pusher.ArchiveRecord, error) {
	fields, err := resolveFields(ev, b.clock, b.logger)
	if err != nil {
		return nil, &pusher.RecordBuildError{Err: err}
	}

	cls := b.classifier.Classify(fields.channelID)
	attachments := b.normalizer.Normalize(ev)

	// The portal name can be pinned in config; the event's SITENAME is
	// the fallback for multi-site deployments.
	site := b.archive.SiteName
	if site == "" {
		site = fields.siteName
	}

	record := &pusher.ArchiveRecord{
		DID:              fields.did,
		SiteName:         site,
		Domain:           b.archive.Domain,
		Classification:   cls,
		Title:            fields.title,
		Author:           fields.author,
		DocDate:          fields.docDate,
		Year:             fields.year,
		RetentionPeriod:  b.archive.RetentionPeriod,
		FilingDepartment: fields.department,
		Operator:         fields.operator,
		Attachments:      attachments,
	}

	b.logger.Info("archive record built",
		zap.String("did", record.DID),
		zap.Int("attachments", len(record.Attachments)),
		zap.String("classfy", cls.Code),
	)
	return record, nil
}
