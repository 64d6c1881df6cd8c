package pusher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSourceEvent(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"MSG": "操作成功",
		"ISSUCCESS": "true",
		"DATA": {
			"SITENAME": "测试站点",
			"CHANNELID": "2240",
			"OPERTYPE": "1",
			"DATA": {
				"RECID": "641474",
				"DOCTITLE": "测试文档",
				"TXY": "新闻中心",
				"DOCRELTIME": "2023-08-17 10:30:00"
			},
			"CHNLDOC": {"CRDEPT": "办公室", "OPERUSER": "op-user"},
			"APPENDIX": [{"APPFILE": "/files/a.pdf", "APPFLAG": "40"}]
		}
	}`)

	ev, err := ParseSourceEvent(raw)
	require.NoError(t, err)
	require.Equal(t, "true", ev.IsSuccess)
	require.Equal(t, "641474", ev.Data.Payload.RecID)
	require.Equal(t, "新闻中心", ev.Data.Payload.Author)
	require.Equal(t, "办公室", ev.Data.Channel.Department)
	require.Len(t, ev.Data.Appendix, 1)
	require.Equal(t, "40", ev.Data.Appendix[0].Flag)
	require.True(t, ev.Publishable())
	require.Equal(t, "641474", ev.DocID())
}

func TestParseSourceEventRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ParseSourceEvent([]byte("{broken"))
	require.Error(t, err)
}

func TestPublishable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		isSuccess string
		operType  string
		want      bool
	}{
		{"publish op code", "true", "1", true},
		{"empty op defaults to publish", "true", "", true},
		{"named publish op", "true", "publish", true},
		{"numeric success flag", "1", "1", true},
		{"mixed-case success flag", "True", "1", true},
		{"upstream failure", "false", "1", false},
		{"capitalized failure flag", "False", "1", false},
		{"zero failure flag", "0", "1", false},
		{"absent success flag", "", "1", false},
		{"delete op", "true", "2", false},
		{"unknown op", "true", "archive", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ev := &SourceEvent{IsSuccess: tc.isSuccess}
			ev.Data.OperType = tc.operType
			require.Equal(t, tc.want, ev.Publishable())
		})
	}
}

func TestDocIDFallbacks(t *testing.T) {
	t.Parallel()

	ev := &SourceEvent{}
	ev.Data.ID = "envelope-id"
	require.Equal(t, "envelope-id", ev.DocID())

	ev.Data.DocID = "doc-id"
	require.Equal(t, "doc-id", ev.DocID())

	ev.Data.Payload.RecID = "rec-id"
	require.Equal(t, "rec-id", ev.DocID())
}
