// Package parser extracts listing stubs and detail records from consultation
// HTML and validates rows before they are written.
package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-consultations/models"
	"golang.org/x/net/html"
)

// ValidateRow ensures the row carries its identifying fields.
func ValidateRow(r *models.Row) error {
	if r == nil {
		return fmt.Errorf("row is nil")
	}
	if strings.TrimSpace(r.DetailRel) == "" {
		return fmt.Errorf("row missing detail_relative")
	}
	parsed, err := url.Parse(r.DetailURL)
	if err != nil || !parsed.IsAbs() {
		return fmt.Errorf("row %s has invalid detail_url %q", r.DetailRel, r.DetailURL)
	}
	if r.QnACount != len(r.QnA) {
		return fmt.Errorf("row %s qna_count %d does not match %d pairs", r.DetailRel, r.QnACount, len(r.QnA))
	}
	if r.RawHTMLLength < 0 {
		return fmt.Errorf("row %s has negative raw_html_length", r.DetailRel)
	}
	return nil
}

// Text joins the trimmed, non-empty text nodes under sel with sep.
// Script and style contents are ignored.
func Text(sel *goquery.Selection, sep string) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, sep)
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if s := strings.TrimSpace(n.Data); s != "" {
			*parts = append(*parts, s)
		}
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
