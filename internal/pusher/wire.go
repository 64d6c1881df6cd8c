package pusher

// WireAttachment is the attachment element of the archive push body.
type WireAttachment struct {
	Name string `json:"name"`
	Ext  string `json:"ext"`
	File string `json:"file"`
	Type string `json:"type"`
}

// WireArchiveData is the ArchiveData object of the archive push body.
type WireArchiveData struct {
	DID              string           `json:"did"`
	SiteName         string           `json:"wzmc"`
	Domain           string           `json:"dn"`
	ClassifyName     string           `json:"classfyname"`
	Classify         string           `json:"classfy"`
	Title            string           `json:"title"`
	Author           string           `json:"author"`
	DocDate          string           `json:"docdate"`
	Year             string           `json:"year"`
	RetentionPeriod  int              `json:"retentionperiod"`
	FilingDepartment string           `json:"fillingdepartment"`
	Operator         string           `json:"bly"`
	Attachments      []WireAttachment `json:"attachment"`
}

// WireRequest is the full JSON body POSTed to the archive API.
type WireRequest struct {
	AppID       string          `json:"AppId"`
	AppToken    string          `json:"AppToken"`
	CompanyName string          `json:"CompanyName"`
	ArchiveType string          `json:"ArchiveType"`
	ArchiveData WireArchiveData `json:"ArchiveData"`
}

// WireResponse is the archive API response body. STATUS zero means the
// record was accepted; any other value is an application-level rejection
// even when the HTTP status is 200.
type WireResponse struct {
	Status int    `json:"STATUS"`
	Desc   string `json:"DESC"`
	DataID string `json:"DATAID"`
}

// WireData converts the record to its outbound representation.
func (r *ArchiveRecord) WireData() WireArchiveData {
	atts := make([]WireAttachment, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		atts = append(atts, WireAttachment{
			Name: a.Name,
			Ext:  a.Ext,
			File: a.FileURL,
			Type: string(a.Category),
		})
	}
	return WireArchiveData{
		DID:              r.DID,
		SiteName:         r.SiteName,
		Domain:           r.Domain,
		ClassifyName:     r.Classification.Name,
		Classify:         r.Classification.Code,
		Title:            r.Title,
		Author:           r.Author,
		DocDate:          r.DocDate,
		Year:             r.Year,
		RetentionPeriod:  r.RetentionPeriod,
		FilingDepartment: r.FilingDepartment,
		Operator:         r.Operator,
		Attachments:      atts,
	}
}
