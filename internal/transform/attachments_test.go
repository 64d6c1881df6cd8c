package transform

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/pusher"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	return NewNormalizer("www.cnyeig.com", zap.NewNop())
}

func eventWithHTML(html string) *pusher.SourceEvent {
	return &pusher.SourceEvent{
		Data: pusher.EventData{
			Payload: pusher.DocumentPayload{
				Title:       "安全生产工作会议",
				PubURL:      "http://www.cnyeig.com/news/detail/12345.html",
				HTMLContent: html,
			},
		},
	}
}

func TestNormalizeResolvesRelativeLocator(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	ev := eventWithHTML(`<p><a href="/a/b/c/aaa.mp4">会议视频</a></p>`)

	atts := n.Normalize(ev)
	require.Len(t, atts, 2)

	require.Equal(t, "会议视频", atts[0].Name)
	require.Equal(t, "mp4", atts[0].Ext)
	require.Equal(t, "http://www.cnyeig.com/a/b/c/aaa.mp4", atts[0].FileURL)
	require.Equal(t, pusher.CategoryVideo, atts[0].Category)
}

func TestNormalizeSchemePassthrough(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	ev := eventWithHTML(`<a href="https://cdn.example.com/files/report.pdf">年度报告</a>`)

	atts := n.Normalize(ev)
	require.Len(t, atts, 2)
	require.Equal(t, "https://cdn.example.com/files/report.pdf", atts[0].FileURL)
	require.Equal(t, pusher.CategoryDocument, atts[0].Category)
}

func TestNormalizeContentImageName(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	ev := eventWithHTML(`<img src="W020230817512345678901.jpg" alt="现场照片">`)

	atts := n.Normalize(ev)
	require.Len(t, atts, 2)
	require.Equal(t, "现场照片", atts[0].Name)
	require.Equal(t, "http://www.cnyeig.com/W020230817512345678901.jpg", atts[0].FileURL)
	require.Equal(t, pusher.CategoryImage, atts[0].Category)
}

func TestNormalizeSkipsNonFileAnchors(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	ev := eventWithHTML(`<a href="/news/list.html">更多</a><a href="/about">关于我们</a>`)

	atts := n.Normalize(ev)
	// Navigation links are not attachments; only the body survives.
	require.Len(t, atts, 1)
	require.Equal(t, pusher.CategoryBody, atts[0].Category)
}

func TestNormalizeIframeAlwaysAccepted(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	ev := eventWithHTML(`<iframe src="/player?vid=99" title="直播回放"></iframe>`)

	atts := n.Normalize(ev)
	require.Len(t, atts, 2)
	require.Equal(t, "直播回放", atts[0].Name)
	require.Equal(t, "http://www.cnyeig.com/player?vid=99", atts[0].FileURL)
	require.Equal(t, pusher.CategoryGeneric, atts[0].Category)
}

func TestNormalizeJSONFields(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	ev := eventWithHTML("")
	ev.Data.Payload.RelatedVideoRaw = `[{"APPURL":"/video/v1.mp4","APPDESC":"宣传片"}]`
	ev.Data.Payload.RelatedPicRaw = `[{"APPURL":"/pic/p1.png"}]`

	atts := n.Normalize(ev)
	require.Len(t, atts, 3)
	require.Equal(t, "宣传片", atts[0].Name)
	require.Equal(t, pusher.CategoryVideo, atts[0].Category)
	require.Equal(t, "p1", atts[1].Name)
	require.Equal(t, pusher.CategoryImage, atts[1].Category)
}

func TestNormalizeMalformedJSONFieldIsIsolated(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	ev := eventWithHTML(`<a href="/doc/notice.pdf">通知</a>`)
	ev.Data.Payload.RelatedVideoRaw = `{"not":"an array"`
	ev.Data.Appendix = []pusher.AppendixEntry{{File: "/legacy/old.doc", Flag: "40"}}

	atts := n.Normalize(ev)
	// The broken field is dropped; HTML and appendix refs survive.
	require.Len(t, atts, 3)
	require.Equal(t, "http://www.cnyeig.com/doc/notice.pdf", atts[0].FileURL)
	require.Equal(t, "http://www.cnyeig.com/legacy/old.doc", atts[1].FileURL)
}

func TestNormalizeLegacyAppendix(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	ev := eventWithHTML("")
	ev.Data.Appendix = []pusher.AppendixEntry{
		{File: "/files/minutes.docx", Flag: "40"},
		{File: "   ", Flag: "20"},
	}

	atts := n.Normalize(ev)
	require.Len(t, atts, 2)
	require.Equal(t, "minutes", atts[0].Name)
	require.Equal(t, pusher.CategoryDocument, atts[0].Category)
}

func TestNormalizeDeduplicatesKeepingFirst(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	ev := eventWithHTML(`<img src="/pic/cover.jpg" alt="封面">`)
	ev.Data.Payload.RelatedPicRaw = `[{"APPURL":"/pic/cover.jpg","APPDESC":"重复引用"}]`

	atts := n.Normalize(ev)
	require.Len(t, atts, 2)
	// The HTML scan comes first, so its name wins.
	require.Equal(t, "封面", atts[0].Name)
}

func TestNormalizeBodyAlwaysLast(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	ev := eventWithHTML(`<a href="/doc/a.pdf">附件A</a>`)

	atts := n.Normalize(ev)
	body := atts[len(atts)-1]
	require.Equal(t, "安全生产工作会议(body)", body.Name)
	require.Equal(t, "html", body.Ext)
	require.Equal(t, "http://www.cnyeig.com/news/detail/12345.html", body.FileURL)
	require.Equal(t, pusher.CategoryBody, body.Category)
}

func TestNormalizeEmptyEventYieldsBodyOnly(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)
	ev := eventWithHTML("")

	atts := n.Normalize(ev)
	require.Len(t, atts, 1)
	require.Equal(t, pusher.CategoryBody, atts[0].Category)
}

func TestExtensionOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, "pdf", extensionOf("/a/b/report.PDF?download=1"))
	require.Equal(t, "", extensionOf("/a/b/plain"))
	require.Equal(t, "", extensionOf("/a/b/trailing."))
}
