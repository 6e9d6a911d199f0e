package parser

import (
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-consultations/models"
)

var pageIndexPattern = regexp.MustCompile(`/reacties/(?:datum|naam)/(\d+)`)

// DetectLastPage returns the highest page number linked from the pagination
// control, or 1 when the listing has no pagination.
func DetectLastPage(doc *goquery.Document) int {
	last := 1
	nav := doc.Find("div.pagination div.pagination__index ul").First()
	if nav.Length() == 0 {
		return last
	}
	nav.Find("a").Each(func(_ int, a *goquery.Selection) {
		m := pageIndexPattern.FindStringSubmatch(a.AttrOr("href", ""))
		if m == nil {
			return
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > last {
			last = n
		}
	})
	return last
}

// ParseListing extracts stubs in listing order. Detail links are resolved
// against base. A page without the result list yields no stubs.
func ParseListing(doc *goquery.Document, base *url.URL) []*models.Stub {
	box := doc.Find("div.result--list ul").First()
	if box.Length() == 0 {
		return nil
	}

	var stubs []*models.Stub
	box.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a").First()
		if a.Length() == 0 {
			return
		}
		name := Text(a, "")
		href := strings.TrimSpace(a.AttrOr("href", ""))

		var place, dateTime *string
		if p := li.Find("p").First(); p.Length() > 0 {
			txt := Text(p, " ")
			if before, after, found := strings.Cut(txt, " | "); found {
				place, dateTime = &before, &after
			} else {
				place = &txt
			}
		}

		stub, err := models.NewStub(href, name, place, dateTime, resolve(base, href))
		if err != nil {
			slog.Debug("skipping listing item", slog.String("name", name), slog.Any("error", err))
			return
		}
		stubs = append(stubs, stub)
	})
	return stubs
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
