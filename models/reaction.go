// Package models defines data structures for the scraper.
package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Stub is one entry of a listing page. ID is the detail page's relative
// link and serves as the dedup key.
type Stub struct {
	ID       string
	Name     string
	Place    *string
	DateTime *string
	URL      string
}

// NewStub validates the identifying fields and builds a Stub.
func NewStub(id, name string, place, dateTime *string, detailURL string) (*Stub, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("stub missing identifier")
	}
	parsed, err := url.Parse(detailURL)
	if err != nil {
		return nil, fmt.Errorf("stub %s: invalid detail url: %w", id, err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("stub %s: detail url %q is not absolute", id, detailURL)
	}
	return &Stub{
		ID:       id,
		Name:     name,
		Place:    place,
		DateTime: dateTime,
		URL:      parsed.String(),
	}, nil
}

// QnA is a question with the respondent's answer.
type QnA struct {
	Vraag    string `json:"vraag"`
	Antwoord string `json:"antwoord"`
}

// Detail holds the fields parsed from a detail page.
type Detail struct {
	Naam          *string `json:"naam"`
	Plaats        *string `json:"plaats"`
	Datum         *string `json:"datum"`
	QnA           []QnA   `json:"qna"`
	RawHTMLLength int     `json:"raw_html_length"`
}

// EmptyDetail is the placeholder recorded for a detail page that could not
// be fetched or parsed.
func EmptyDetail() *Detail {
	return &Detail{QnA: []QnA{}}
}

// Row is the flattened output record, written once per stub.
type Row struct {
	ListName      string  `json:"list_name"`
	ListPlace     *string `json:"list_place"`
	ListDateTime  *string `json:"list_date_time"`
	DetailRel     string  `json:"detail_relative"`
	DetailURL     string  `json:"detail_url"`
	DetailNaam    *string `json:"detail_naam"`
	DetailPlaats  *string `json:"detail_plaats"`
	DetailDatum   *string `json:"detail_datum"`
	QnAText       string  `json:"qna_text"`
	QnACount      int     `json:"qna_count"`
	RawHTMLLength int     `json:"raw_html_length"`
	QnA           []QnA   `json:"qna"`
}

// Columns is the fixed CSV schema.
var Columns = []string{
	"list_name",
	"list_place",
	"list_date_time",
	"detail_relative",
	"detail_url",
	"detail_naam",
	"detail_plaats",
	"detail_datum",
	"qna_count",
	"qna_text",
	"raw_html_length",
}

// NewRow merges a stub with its detail. A nil detail is treated as
// EmptyDetail.
func NewRow(stub *Stub, detail *Detail) (*Row, error) {
	if stub == nil {
		return nil, fmt.Errorf("row requires a stub")
	}
	if detail == nil {
		detail = EmptyDetail()
	}
	qna := detail.QnA
	if qna == nil {
		qna = []QnA{}
	}
	return &Row{
		ListName:      stub.Name,
		ListPlace:     stub.Place,
		ListDateTime:  stub.DateTime,
		DetailRel:     stub.ID,
		DetailURL:     stub.URL,
		DetailNaam:    detail.Naam,
		DetailPlaats:  detail.Plaats,
		DetailDatum:   detail.Datum,
		QnAText:       FlattenQnA(qna),
		QnACount:      len(qna),
		RawHTMLLength: detail.RawHTMLLength,
		QnA:           qna,
	}, nil
}

// FlattenQnA renders pairs as "vraag: antwoord" separated by blank lines.
func FlattenQnA(pairs []QnA) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.Vraag+": "+p.Antwoord)
	}
	return strings.Join(parts, "\n\n")
}

// Record returns the row's CSV cells in Columns order.
func (r *Row) Record() []string {
	return []string{
		r.ListName,
		deref(r.ListPlace),
		deref(r.ListDateTime),
		r.DetailRel,
		r.DetailURL,
		deref(r.DetailNaam),
		deref(r.DetailPlaats),
		deref(r.DetailDatum),
		strconv.Itoa(r.QnACount),
		r.QnAText,
		strconv.Itoa(r.RawHTMLLength),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
