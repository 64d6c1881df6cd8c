package pusher

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWireData(t *testing.T) {
	t.Parallel()

	record := &ArchiveRecord{
		DID:              "641474",
		SiteName:         "云南省能源投资集团",
		Domain:           "www.cnyeig.com",
		Classification:   Classification{Name: "公司新闻", Code: "GSXW"},
		Title:            "测试文档",
		Author:           "新闻中心",
		DocDate:          "2023-08-17",
		Year:             "2023",
		RetentionPeriod:  30,
		FilingDepartment: "办公室",
		Operator:         "op-user",
		Attachments: []Attachment{
			{Name: "附件A", Ext: "pdf", FileURL: "http://www.cnyeig.com/doc/a.pdf", Category: CategoryDocument},
			{Name: "测试文档(body)", Ext: "html", FileURL: "http://www.cnyeig.com/news/641474.html", Category: CategoryBody},
		},
	}

	req := WireRequest{
		AppID:       "NWYD",
		AppToken:    "secret",
		CompanyName: "云南省能源投资集团有限公司",
		ArchiveType: "17",
		ArchiveData: record.WireData(),
	}

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	// The downstream contract is key-exact; decode into a loose map and
	// spot-check the renamed fields.
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, "NWYD", got["AppId"])
	require.Equal(t, "17", got["ArchiveType"])

	data, ok := got["ArchiveData"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "641474", data["did"])
	require.Equal(t, "云南省能源投资集团", data["wzmc"])
	require.Equal(t, "www.cnyeig.com", data["dn"])
	require.Equal(t, "公司新闻", data["classfyname"])
	require.Equal(t, "GSXW", data["classfy"])
	require.Equal(t, float64(30), data["retentionperiod"])
	require.Equal(t, "办公室", data["fillingdepartment"])
	require.Equal(t, "op-user", data["bly"])

	atts, ok := data["attachment"].([]any)
	require.True(t, ok)
	require.Len(t, atts, 2)
	first, ok := atts[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "附件A", first["name"])
	require.Equal(t, "pdf", first["ext"])
	require.Equal(t, "http://www.cnyeig.com/doc/a.pdf", first["file"])
	require.Equal(t, "Document", first["type"])
}

func TestWireDataEmptyAttachments(t *testing.T) {
	t.Parallel()

	record := &ArchiveRecord{DID: "641474"}
	data := record.WireData()
	require.NotNil(t, data.Attachments)
	require.Empty(t, data.Attachments)
}
