package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-scrape-consultations/models"
	"github.com/aluiziolira/go-scrape-consultations/parser"
)

// DetailOutcome is the result of fetching one stub's detail page. Err is
// nil on success; on failure Detail holds the empty placeholder.
type DetailOutcome struct {
	Stub   *models.Stub
	Detail *models.Detail
	Err    error
}

// OK reports whether the detail page was fetched and parsed.
func (o DetailOutcome) OK() bool {
	return o.Err == nil
}

// Row merges the outcome into an output row.
func (o DetailOutcome) Row() (*models.Row, error) {
	return models.NewRow(o.Stub, o.Detail)
}

// FetchDetail fetches and parses one detail page under the gate. It never
// returns an error to the caller: failures come back as a placeholder
// outcome and are logged.
func (s *Scraper) FetchDetail(ctx context.Context, stub *models.Stub) (out DetailOutcome) {
	out.Stub = stub
	defer func() {
		if r := recover(); r != nil {
			out.Detail = models.EmptyDetail()
			out.Err = fmt.Errorf("detail task panicked: %v", r)
		}
		s.recordOutcome(out)
	}()

	detail, err := s.fetchDetail(ctx, stub.URL)
	if err != nil {
		out.Detail = models.EmptyDetail()
		out.Err = err
		return out
	}
	out.Detail = detail
	return out
}

// FetchDetails runs FetchDetail for every stub concurrently and waits for
// all of them. outcomes[i] belongs to stubs[i].
func (s *Scraper) FetchDetails(ctx context.Context, stubs []*models.Stub) []DetailOutcome {
	outcomes := make([]DetailOutcome, len(stubs))

	var wg sync.WaitGroup
	for i, stub := range stubs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = s.FetchDetail(ctx, stub)
		}()
	}
	wg.Wait()

	return outcomes
}

// Probe fetches and parses a single detail page without touching state or
// outputs.
func (s *Scraper) Probe(ctx context.Context, detailURL string) (*models.Detail, error) {
	return s.fetchDetail(ctx, detailURL)
}

func (s *Scraper) fetchDetail(ctx context.Context, detailURL string) (*models.Detail, error) {
	var body []byte
	err := s.gate.Do(ctx, func() error {
		var err error
		body, err = s.fetcher.Get(ctx, detailURL, phaseDetail)
		return err
	})
	if err != nil {
		return nil, err
	}

	detail, err := parser.ParseDetail(string(body))
	if err != nil {
		return nil, ErrParse{Err: err}
	}
	return detail, nil
}

func (s *Scraper) recordOutcome(out DetailOutcome) {
	if out.OK() {
		s.Metrics.IncDetail("ok")
		return
	}

	category := errorTypeLabel(out.Err)
	s.Metrics.IncDetail("failed")
	s.Metrics.IncError(category)
	slog.Error("detail fetch failed",
		slog.String("url", out.Stub.URL),
		slog.String("error_type", category),
		slog.Any("error", out.Err),
	)
}
