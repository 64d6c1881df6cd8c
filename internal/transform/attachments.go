package transform

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// fileExtAllowList filters anchor hrefs in the HTML scan down to
// file-like locators. Image and iframe targets bypass this filter.
var fileExtAllowList = map[string]struct{}{
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "ppt": {}, "pptx": {},
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "bmp": {}, "webp": {},
	"mp4": {}, "avi": {}, "mov": {}, "wmv": {}, "flv": {}, "mkv": {},
	"mp3": {}, "wav": {}, "aac": {}, "flac": {}, "ogg": {},
	"zip": {}, "rar": {},
}

var categoryByExt = map[string]pusher.Category{
	"jpg": pusher.CategoryImage, "jpeg": pusher.CategoryImage, "png": pusher.CategoryImage,
	"gif": pusher.CategoryImage, "bmp": pusher.CategoryImage, "webp": pusher.CategoryImage,
	"mp4": pusher.CategoryVideo, "avi": pusher.CategoryVideo, "mov": pusher.CategoryVideo,
	"wmv": pusher.CategoryVideo, "flv": pusher.CategoryVideo, "mkv": pusher.CategoryVideo,
	"mp3": pusher.CategoryAudio, "wav": pusher.CategoryAudio, "aac": pusher.CategoryAudio,
	"flac": pusher.CategoryAudio, "ogg": pusher.CategoryAudio,
	"pdf": pusher.CategoryDocument, "doc": pusher.CategoryDocument, "docx": pusher.CategoryDocument,
	"xls": pusher.CategoryDocument, "xlsx": pusher.CategoryDocument,
	"ppt": pusher.CategoryDocument, "pptx": pusher.CategoryDocument,
}

// contentImagePattern matches the vendor's content-addressed image names
// (the letter W, digits, a known image extension). These pass through
// URL resolution unchanged apart from scheme/host prefixing; kept as a
// separate branch because they originate from a different subsystem and
// their resolution rules may diverge from the general case.
var contentImagePattern = regexp.MustCompile(`(?i)W\d+\.(jpg|jpeg|png|gif|bmp|webp)$`)

// legacyFlagNames maps the CMS appendix type codes onto attachment name
// stems for entries whose URL yields no usable filename.
var legacyFlagNames = map[string]string{
	"20":  "image",
	"30":  "audio",
	"40":  "document",
	"50":  "video",
	"60":  "archive",
	"140": "video page",
}

// jsonAttachmentItem is one element of the JSON-encoded attachment
// fields (DOCUMENT_RELATED_VIDEO and friends).
type jsonAttachmentItem struct {
	URL  string `json:"APPURL"`
	Desc string `json:"APPDESC"`
}

// Normalizer extracts every attachment reference from a source event and
// normalizes them into canonical attachment records. It never fails:
// malformed sub-structures are skipped with a warning.
type Normalizer struct {
	domain string
	logger *zap.Logger
}

// NewNormalizer creates a Normalizer resolving relative locators against
// the given archive domain.
func NewNormalizer(domain string, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		domain: strings.TrimSuffix(domain, "/"),
		logger: logger,
	}
}

// Normalize returns the ordered, deduplicated attachment list for an
// event, always ending with the synthesized body attachment.
func (n *Normalizer) Normalize(ev *pusher.SourceEvent) []pusher.Attachment {
	refs := n.collectRefs(ev)

	attachments := make([]pusher.Attachment, 0, len(refs)+1)
	seen := make(map[string]struct{}, len(refs)+1)
	for _, ref := range refs {
		a := n.buildAttachment(ref)
		if _, dup := seen[a.FileURL]; dup {
			continue
		}
		seen[a.FileURL] = struct{}{}
		attachments = append(attachments, a)
	}

	return append(attachments, n.bodyAttachment(ev))
}

// collectRefs gathers refs in the fixed source order: HTML scan, JSON
// fields, legacy appendix. Step ordering decides dedup priority.
func (n *Normalizer) collectRefs(ev *pusher.SourceEvent) []pusher.AttachmentRef {
	doc := ev.Data.Payload
	var refs []pusher.AttachmentRef

	if doc.HTMLContent != "" {
		refs = append(refs, n.scanHTML(doc.HTMLContent)...)
	}

	jsonFields := []struct {
		name   string
		raw    string
		source pusher.RefSource
	}{
		{"DOCUMENT_RELATED_VIDEO", doc.RelatedVideoRaw, pusher.SourceJSONVideo},
		{"DOCUMENT_CONTENT_VIDEO", doc.ContentVideoRaw, pusher.SourceJSONVideo},
		{"DOCUMENT_RELATED_PIC", doc.RelatedPicRaw, pusher.SourceJSONPicture},
	}
	for _, f := range jsonFields {
		refs = append(refs, n.parseJSONField(f.name, f.raw, f.source)...)
	}

	for _, entry := range ev.Data.Appendix {
		if strings.TrimSpace(entry.File) == "" {
			n.logger.Warn("empty APPFILE in appendix entry, skipping")
			continue
		}
		refs = append(refs, pusher.AttachmentRef{
			RawLocator: entry.File,
			Source:     pusher.SourceLegacyAppendix,
			LegacyFlag: entry.Flag,
		})
	}

	return refs
}

// scanHTML collects anchor, image and iframe targets in document order.
// Anchors are filtered to file-like locators; images and iframes are
// always accepted.
func (n *Normalizer) scanHTML(html string) []pusher.AttachmentRef {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		n.logger.Warn("unparseable document HTML, skipping attachment scan", zap.Error(err))
		return nil
	}

	var refs []pusher.AttachmentRef
	doc.Find("a[href], img[src], iframe[src]").Each(func(_ int, sel *goquery.Selection) {
		switch goquery.NodeName(sel) {
		case "a":
			href, _ := sel.Attr("href")
			if href == "" || !isFileLocator(href) {
				return
			}
			refs = append(refs, pusher.AttachmentRef{
				RawLocator: href,
				Source:     pusher.SourceHTMLLink,
				Hint:       strings.TrimSpace(sel.Text()),
			})
		case "img":
			src, _ := sel.Attr("src")
			if src == "" {
				return
			}
			refs = append(refs, pusher.AttachmentRef{
				RawLocator: src,
				Source:     pusher.SourceHTMLImage,
				Hint:       sel.AttrOr("alt", ""),
			})
		case "iframe":
			src, _ := sel.Attr("src")
			if src == "" {
				return
			}
			refs = append(refs, pusher.AttachmentRef{
				RawLocator: src,
				Source:     pusher.SourceHTMLIframe,
				Hint:       sel.AttrOr("title", ""),
			})
		}
	})
	return refs
}

// parseJSONField decodes one JSON-encoded attachment field. A field that
// fails to parse is skipped with a warning, never a fatal error.
func (n *Normalizer) parseJSONField(name, raw string, source pusher.RefSource) []pusher.AttachmentRef {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil
	}

	var items []jsonAttachmentItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		n.logger.Warn("unparseable JSON attachment field, skipping",
			zap.String("field", name),
			zap.Error(err),
		)
		return nil
	}

	refs := make([]pusher.AttachmentRef, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.URL) == "" {
			continue
		}
		refs = append(refs, pusher.AttachmentRef{
			RawLocator: item.URL,
			Source:     source,
			Hint:       strings.TrimSpace(item.Desc),
		})
	}
	return refs
}

func (n *Normalizer) buildAttachment(ref pusher.AttachmentRef) pusher.Attachment {
	abs := n.resolveURL(ref.RawLocator)
	ext := extensionOf(abs)
	return pusher.Attachment{
		Name:     attachmentName(ref, abs),
		Ext:      ext,
		FileURL:  abs,
		Category: categoryOf(ext),
	}
}

// resolveURL turns a locator into a fully qualified URL. Locators that
// already carry a scheme pass through unchanged.
func (n *Normalizer) resolveURL(locator string) string {
	locator = strings.TrimSpace(locator)
	if u, err := url.Parse(locator); err == nil && u.Scheme != "" {
		return locator
	}
	if contentImagePattern.MatchString(locator) {
		// Content-addressed image names get only the scheme/host prefix.
		if !strings.HasPrefix(locator, "/") {
			locator = "/" + locator
		}
		return "http://" + n.domain + locator
	}
	if !strings.HasPrefix(locator, "/") {
		locator = "/" + locator
	}
	return "http://" + n.domain + locator
}

func (n *Normalizer) bodyAttachment(ev *pusher.SourceEvent) pusher.Attachment {
	title := strings.TrimSpace(ev.Data.Payload.Title)
	name := "(body)"
	if title != "" {
		name = title + "(body)"
	}
	return pusher.Attachment{
		Name:     name,
		Ext:      "html",
		FileURL:  strings.TrimSpace(ev.Data.Payload.PubURL),
		Category: pusher.CategoryBody,
	}
}

// attachmentName prefers the source-provided description, then the
// filename stem, then a per-source default.
func attachmentName(ref pusher.AttachmentRef, abs string) string {
	if ref.Hint != "" {
		return ref.Hint
	}
	if stem := filenameStem(abs); stem != "" {
		return stem
	}
	switch ref.Source {
	case pusher.SourceHTMLImage:
		return "image"
	case pusher.SourceHTMLIframe:
		return "embedded media"
	case pusher.SourceJSONVideo:
		return "video"
	case pusher.SourceJSONPicture:
		return "picture"
	case pusher.SourceLegacyAppendix:
		if name, ok := legacyFlagNames[ref.LegacyFlag]; ok {
			return name
		}
		return "attachment"
	default:
		return "attachment"
	}
}

func isFileLocator(locator string) bool {
	return extensionOf(locator) != "" && hasAllowedExt(locator)
}

func hasAllowedExt(locator string) bool {
	_, ok := fileExtAllowList[extensionOf(locator)]
	return ok
}

// extensionOf derives the lowercase extension from a URL path, ignoring
// any query string. Empty when the path has no dot.
func extensionOf(locator string) string {
	if i := strings.IndexByte(locator, '?'); i >= 0 {
		locator = locator[:i]
	}
	if i := strings.LastIndexByte(locator, '/'); i >= 0 {
		locator = locator[i+1:]
	}
	i := strings.LastIndexByte(locator, '.')
	if i < 0 || i == len(locator)-1 {
		return ""
	}
	return strings.ToLower(locator[i+1:])
}

func filenameStem(locator string) string {
	if i := strings.IndexByte(locator, '?'); i >= 0 {
		locator = locator[:i]
	}
	if i := strings.LastIndexByte(locator, '/'); i >= 0 {
		locator = locator[i+1:]
	}
	if i := strings.LastIndexByte(locator, '.'); i >= 0 {
		locator = locator[:i]
	}
	return locator
}

func categoryOf(ext string) pusher.Category {
	if c, ok := categoryByExt[ext]; ok {
		return c
	}
	return pusher.CategoryGeneric
}
