package pusher

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AppendixEntry is one element of the legacy flat APPENDIX array.
type AppendixEntry struct {
	File string `json:"APPFILE"`
	Flag string `json:"APPFLAG"`
}

// DocumentPayload holds the document fields of the inner DATA.DATA object.
// Only the fields the pipeline consumes are declared; the rest of the
// payload is ignored on decode.
type DocumentPayload struct {
	RecID           string `json:"RECID"`
	Title           string `json:"DOCTITLE"`
	Author          string `json:"TXY"`
	Creator         string `json:"CRUSER"`
	ChannelID       string `json:"CHANNELID"`
	ChannelName     string `json:"CHNLNAME"`
	SiteName        string `json:"SITENAME"`
	PubURL          string `json:"DOCPUBURL"`
	WebRoot         string `json:"WEBHTTP"`
	HTMLContent     string `json:"DOCHTMLCON"`
	RelatedVideoRaw string `json:"DOCUMENT_RELATED_VIDEO"`
	ContentVideoRaw string `json:"DOCUMENT_CONTENT_VIDEO"`
	RelatedPicRaw   string `json:"DOCUMENT_RELATED_PIC"`
	RelTime         string `json:"DOCRELTIME"`
}

// ChannelDoc holds the routing and department metadata of DATA.CHNLDOC.
type ChannelDoc struct {
	FirstPubTime string `json:"DOCFIRSTPUBTIME"`
	Department   string `json:"CRDEPT"`
	Operator     string `json:"OPERUSER"`
}

// EventData is the middle envelope layer of an inbound message.
type EventData struct {
	ID        string          `json:"ID"`
	SiteName  string          `json:"SITENAME"`
	CreatedAt string          `json:"CRTIME"`
	ChannelID string          `json:"CHANNELID"`
	DocID     string          `json:"DOCID"`
	OperType  string          `json:"OPERTYPE"`
	Payload   DocumentPayload `json:"DATA"`
	Channel   ChannelDoc      `json:"CHNLDOC"`
	Appendix  []AppendixEntry `json:"APPENDIX"`
}

// SourceEvent is a parsed content-publication event. It is immutable
// once parsed; one is created per consumed message and discarded when the
// pipeline finishes with it.
type SourceEvent struct {
	Message   string    `json:"MSG"`
	IsSuccess string    `json:"ISSUCCESS"`
	Data      EventData `json:"DATA"`
}

// ParseSourceEvent decodes a raw queue payload into a SourceEvent.
func ParseSourceEvent(raw []byte) (*SourceEvent, error) {
	var ev SourceEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode source event: %w", err)
	}
	return &ev, nil
}

// DocID returns the best identifier available for logging, preferring the
// document record id over the envelope id.
func (e *SourceEvent) DocID() string {
	if e.Data.Payload.RecID != "" {
		return e.Data.Payload.RecID
	}
	if e.Data.DocID != "" {
		return e.Data.DocID
	}
	return e.Data.ID
}

// Publishable reports whether the event represents a successful publish
// action that should be archived. The upstream success flag must be
// affirmative ("true" or "1", case-insensitive); anything else, including
// an absent flag, means the source operation failed and the event is
// acknowledged without archiving, as are non-publish operations.
func (e *SourceEvent) Publishable() bool {
	switch strings.ToLower(e.IsSuccess) {
	case "true", "1":
	default:
		return false
	}
	switch e.Data.OperType {
	case "", "1", "publish", "PUBLISH":
		return true
	default:
		return false
	}
}
