package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-consultations/models"
	"golang.org/x/net/html"
)

// ParseDetail extracts the respondent table and the question/answer blocks
// from a detail page.
func ParseDetail(page string) (*models.Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse detail html: %w", err)
	}

	detail := &models.Detail{
		QnA:           []models.QnA{},
		RawHTMLLength: utf8.RuneCountInString(page),
	}

	table := doc.Find("table.table__data-overview").First()
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		th, td := tr.Find("th").First(), tr.Find("td").First()
		if th.Length() == 0 || td.Length() == 0 {
			return
		}
		val := Text(td, " ")
		switch strings.ToLower(Text(th, " ")) {
		case "naam":
			detail.Naam = &val
		case "plaats":
			detail.Plaats = &val
		case "datum":
			detail.Datum = &val
		}
	})

	root := doc.Find(`div.container[role="main"]#content`).First()
	if root.Length() == 0 {
		return detail, nil
	}

	questions := make(map[*html.Node]bool)
	root.Find("h3").Each(func(_ int, h3 *goquery.Selection) {
		questions[h3.Get(0)] = true
	})

	// Each question takes the first blockquote after it in document order,
	// which may lie outside the content root.
	ordered := doc.Find("h3, blockquote")
	for i, n := range ordered.Nodes {
		if !questions[n] {
			continue
		}
		for j := i + 1; j < len(ordered.Nodes); j++ {
			if ordered.Nodes[j].Data != "blockquote" {
				continue
			}
			detail.QnA = append(detail.QnA, models.QnA{
				Vraag:    Text(ordered.Eq(i), " "),
				Antwoord: Text(ordered.Eq(j), "\n"),
			})
			break
		}
	}
	return detail, nil
}
