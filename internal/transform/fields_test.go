package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// fixedClock pins Now for deterministic date fallbacks.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func publishableEvent() *pusher.SourceEvent {
	return &pusher.SourceEvent{
		IsSuccess: "true",
		Data: pusher.EventData{
			SiteName:  "envelope-site",
			ChannelID: "300",
			Channel: pusher.ChannelDoc{
				Department: "办公室",
				Operator:   "op-user",
			},
			Payload: pusher.DocumentPayload{
				RecID:     "641474",
				Title:     "集团公司召开年度工作会议",
				Author:    "新闻中心",
				Creator:   "cr-user",
				SiteName:  "payload-site",
				ChannelID: "2240",
				PubURL:    "http://www.cnyeig.com/news/641474.html",
				RelTime:   "2023-08-17 10:30:00",
			},
		},
	}
}

func TestResolveFields(t *testing.T) {
	t.Parallel()

	clk := fixedClock{now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	fields, err := resolveFields(publishableEvent(), clk, zap.NewNop())
	require.NoError(t, err)

	require.Equal(t, "641474", fields.did)
	require.Equal(t, "payload-site", fields.siteName)
	require.Equal(t, "集团公司召开年度工作会议", fields.title)
	require.Equal(t, "新闻中心", fields.author)
	require.Equal(t, "op-user", fields.operator)
	require.Equal(t, "办公室", fields.department)
	require.Equal(t, "2023-08-17", fields.docDate)
	require.Equal(t, "2023", fields.year)
	require.Equal(t, "2240", fields.channelID)
}

func TestResolveFieldsMissingRequired(t *testing.T) {
	t.Parallel()

	clk := fixedClock{now: time.Now()}
	ev := publishableEvent()
	ev.Data.Payload.Title = "   "

	_, err := resolveFields(ev, clk, zap.NewNop())
	var missing *pusher.MissingRequiredFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "DOCTITLE", missing.Field)
}

func TestResolveFieldsEnvelopeFallbacks(t *testing.T) {
	t.Parallel()

	clk := fixedClock{now: time.Now()}
	ev := publishableEvent()
	ev.Data.Payload.SiteName = ""
	ev.Data.Payload.ChannelID = ""
	ev.Data.Channel.Operator = ""

	fields, err := resolveFields(ev, clk, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, "envelope-site", fields.siteName)
	require.Equal(t, "300", fields.channelID)
	require.Equal(t, "cr-user", fields.operator)
}

func TestNormalizeDate(t *testing.T) {
	t.Parallel()

	clk := fixedClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	logger := zap.NewNop()

	require.Equal(t, "2023-08-17", normalizeDate("2023-08-17 10:30:00", clk, logger))
	require.Equal(t, "2023-08-17", normalizeDate("2023-08-17", clk, logger))
	require.Equal(t, "2023-08-17", normalizeDate("2023/08/17 10:30:00", clk, logger))
	// Loose digits still recover a date.
	require.Equal(t, "2023-08-07", normalizeDate("发布于2023/8/7上午", clk, logger))
	// Garbage falls back to the processing date.
	require.Equal(t, "2024-06-01", normalizeDate("昨天", clk, logger))
	require.Equal(t, "2024-06-01", normalizeDate("", clk, logger))
}
