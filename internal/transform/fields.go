package transform

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// flatFields is the intermediate result of field resolution, consumed
// only by the record builder.
type flatFields struct {
	did        string
	siteName   string
	title      string
	author     string
	operator   string
	department string
	docDate    string
	year       string
	pubURL     string
	channelID  string
}

// dateFormats lists the layouts the upstream CMS is known to emit, most
// common first.
var dateFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

var datePartPattern = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)

// resolveFields maps the source event tree to flat archival fields. It
// fails only on missing required fields; date parsing is best-effort
// with a fallback to the processing time.
func resolveFields(ev *pusher.SourceEvent, clock pusher.Clock, logger *zap.Logger) (flatFields, error) {
	doc := ev.Data.Payload

	required := []struct {
		name  string
		value string
	}{
		{"RECID", doc.RecID},
		{"DOCTITLE", doc.Title},
		{"SITENAME", siteName(ev)},
		{"CRDEPT", ev.Data.Channel.Department},
		{"DOCRELTIME", doc.RelTime},
		{"DOCPUBURL", doc.PubURL},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return flatFields{}, &pusher.MissingRequiredFieldError{Field: f.name}
		}
	}

	docDate := normalizeDate(doc.RelTime, clock, logger)

	return flatFields{
		did:        strings.TrimSpace(doc.RecID),
		siteName:   strings.TrimSpace(siteName(ev)),
		title:      strings.TrimSpace(doc.Title),
		author:     strings.TrimSpace(doc.Author),
		operator:   operator(ev),
		department: strings.TrimSpace(ev.Data.Channel.Department),
		docDate:    docDate,
		year:       docDate[:4],
		pubURL:     strings.TrimSpace(doc.PubURL),
		channelID:  channelID(ev),
	}, nil
}

func siteName(ev *pusher.SourceEvent) string {
	if ev.Data.Payload.SiteName != "" {
		return ev.Data.Payload.SiteName
	}
	return ev.Data.SiteName
}

func channelID(ev *pusher.SourceEvent) string {
	if ev.Data.Payload.ChannelID != "" {
		return ev.Data.Payload.ChannelID
	}
	return ev.Data.ChannelID
}

func operator(ev *pusher.SourceEvent) string {
	if op := strings.TrimSpace(ev.Data.Channel.Operator); op != "" {
		return op
	}
	return strings.TrimSpace(ev.Data.Payload.Creator)
}

// normalizeDate parses the source timestamp into YYYY-MM-DD. Unparseable
// values fall back to the current processing time; date correctness is
// best-effort, not safety-critical.
func normalizeDate(raw string, clock pusher.Clock, logger *zap.Logger) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if m := datePartPattern.FindStringSubmatch(raw); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], pad2(m[2]), pad2(m[3]))
	}
	fallback := clock.Now().Format("2006-01-02")
	logger.Warn("unparseable document date, falling back to processing time",
		zap.String("raw_value", raw),
		zap.String("fallback", fallback),
	)
	return fallback
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
