// Package pusher defines core types shared across subsystems.
package pusher

import "time"

// Category classifies a normalized attachment by media kind.
type Category string

// Attachment categories carried on the archive wire format.
const (
	CategoryImage    Category = "Image"
	CategoryVideo    Category = "Video"
	CategoryAudio    Category = "Audio"
	CategoryDocument Category = "Document"
	CategoryBody     Category = "Body"
	CategoryGeneric  Category = "Generic"
)

// RefSource identifies which part of the source event produced an
// attachment reference.
type RefSource string

// Attachment reference sources, in the order the normalizer visits them.
const (
	SourceHTMLLink       RefSource = "html_link"
	SourceHTMLImage      RefSource = "html_image"
	SourceHTMLIframe     RefSource = "html_iframe"
	SourceJSONVideo      RefSource = "json_video"
	SourceJSONPicture    RefSource = "json_picture"
	SourceLegacyAppendix RefSource = "legacy_appendix"
)

// AttachmentRef is the intermediate, pre-normalization form of an
// attachment reference. Many refs may collapse into one Attachment.
type AttachmentRef struct {
	RawLocator string
	Source     RefSource
	Hint       string
	LegacyFlag string
}

// Attachment is one file or media reference resolved to an absolute URL.
type Attachment struct {
	Name     string
	Ext      string
	FileURL  string
	Category Category
}

// Classification is the (name, code) pair identifying the archival
// category a document belongs to.
type Classification struct {
	Name string
	Code string
}

// ArchiveRecord is the canonical output of the record builder and the
// unit of work for the delivery engine.
type ArchiveRecord struct {
	DID              string
	SiteName         string
	Domain           string
	Classification   Classification
	Title            string
	Author           string
	DocDate          string
	Year             string
	RetentionPeriod  int
	FilingDepartment string
	Operator         string
	Attachments      []Attachment
}

// DeadLetterEntry carries a failed event to the dead-letter sink with
// enough context to replay it manually.
type DeadLetterEntry struct {
	ID          string    `json:"id"`
	MessageID   string    `json:"message_id"`
	SourceTopic string    `json:"source_topic"`
	Payload     []byte    `json:"payload"`
	ErrorClass  string    `json:"error_class"`
	ErrorDetail string    `json:"error_detail"`
	Attempts    int       `json:"attempts"`
	FailedAt    time.Time `json:"failed_at"`
}
