// Package scraper crawls the consultation listing, fetches new detail pages
// under a concurrency gate, and appends them to the outputs.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-consultations/config"
	"github.com/aluiziolira/go-scrape-consultations/models"
	"github.com/aluiziolira/go-scrape-consultations/parser"
	"github.com/aluiziolira/go-scrape-consultations/pipeline"
	"github.com/aluiziolira/go-scrape-consultations/state"
)

// Phase names a step of a run. A run moves through the phases in order and
// never returns to an earlier one.
type Phase string

const (
	// PhaseInit loads the seen set.
	PhaseInit Phase = "INIT"
	// PhaseDetectPages reads page 1 and finds the last page number.
	PhaseDetectPages Phase = "DETECT_PAGES"
	// PhaseListCrawl collects stubs from every listing page.
	PhaseListCrawl Phase = "LIST_CRAWL"
	// PhaseDedupFilter drops stubs already seen.
	PhaseDedupFilter Phase = "DEDUP_FILTER"
	// PhaseDetailFetch fetches detail pages under the gate.
	PhaseDetailFetch Phase = "DETAIL_FETCH"
	// PhaseWrite appends rows to the outputs.
	PhaseWrite Phase = "WRITE"
	// PhasePersistState saves the updated seen set.
	PhasePersistState Phase = "PERSIST_STATE"
	// PhaseDone ends the run.
	PhaseDone Phase = "DONE"
)

// StateStore loads and saves the seen set.
type StateStore interface {
	Load() (*state.SeenSet, error)
	Save(*state.SeenSet) error
}

// WriterFactory opens the outputs. It is called only when a run has rows to
// write.
type WriterFactory func() (pipeline.OutputWriter, error)

// Option customises a Scraper.
type Option func(*Scraper)

// WithStateStore replaces the file-backed store.
func WithStateStore(store StateStore) Option {
	return func(s *Scraper) {
		s.store = store
	}
}

// WithWriterFactory replaces the CSV+JSONL writer.
func WithWriterFactory(factory WriterFactory) Option {
	return func(s *Scraper) {
		s.openWriter = factory
	}
}

// Scraper runs incremental passes: listing pages, then new detail pages,
// then the outputs.
type Scraper struct {
	cfg        *config.Config
	base       *url.URL
	fetcher    *Fetcher
	gate       *Gate
	store      StateStore
	openWriter WriterFactory
	Metrics    *Metrics

	onPhase func(Phase)
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config, opts ...Option) (*Scraper, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}

	s := &Scraper{
		cfg:     cfg,
		base:    base,
		fetcher: fetcher,
		gate:    NewGate(cfg.MaxConcurrency, cfg.RequestDelay, metrics.gateGauge()),
		store:   state.NewStore(cfg.StateFile),
		openWriter: func() (pipeline.OutputWriter, error) {
			return pipeline.NewDualWriter(cfg.CSVFile, cfg.JSONLFile)
		},
		Metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Gate exposes the detail concurrency gate.
func (s *Scraper) Gate() *Gate {
	return s.gate
}

// Run performs one incremental run. A listing failure aborts the run before
// anything is written; detail failures never do.
func (s *Scraper) Run(ctx context.Context) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.RunResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	requestsBefore := s.fetcher.Requests()
	defer func() {
		result.EndTime = time.Now()
		result.RequestCount = int(s.fetcher.Requests() - requestsBefore)
	}()

	s.enter(PhaseInit)
	s.fetcher.ResetPageCache()
	seen, err := s.store.Load()
	if err != nil {
		return result, fmt.Errorf("load state: %w", err)
	}
	slog.Info("loaded seen identifiers", slog.Int("count", seen.Len()))

	s.enter(PhaseDetectPages)
	first, err := s.FetchListPage(ctx, 1)
	if err != nil {
		return result, fmt.Errorf("list page 1: %w", err)
	}
	lastPage := parser.DetectLastPage(first)
	if s.cfg.MaxPages > 0 && lastPage > s.cfg.MaxPages {
		slog.Info("capping pages", slog.Int("detected", lastPage), slog.Int("max_pages", s.cfg.MaxPages))
		lastPage = s.cfg.MaxPages
	}
	result.PageCount = lastPage
	slog.Info("detected pages", slog.Int("pages", lastPage))

	s.enter(PhaseListCrawl)
	stubs, err := s.ListStubs(ctx, lastPage)
	if err != nil {
		return result, err
	}
	result.ListedCount = len(stubs)
	s.Metrics.AddListed(len(stubs))

	s.enter(PhaseDedupFilter)
	fresh := FilterNew(stubs, seen)
	result.NewCount = len(fresh)
	slog.Info("listing complete",
		slog.Int("listed", len(stubs)),
		slog.Int("new", len(fresh)),
		slog.Int("previously_seen", seen.Len()),
	)
	if len(fresh) == 0 {
		result.NoOp = true
		result.SeenCount = seen.Len()
		s.enter(PhaseDone)
		slog.Info("no new items to process")
		return result, nil
	}

	s.enter(PhaseDetailFetch)
	outcomes := s.FetchDetails(ctx, fresh)
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("detail fetch interrupted: %w", err)
	}

	rows := make([]*models.Row, 0, len(outcomes))
	for _, out := range outcomes {
		if out.OK() {
			result.DetailOK++
		} else {
			result.DetailFailed++
			result.ErrorsByType[errorTypeLabel(out.Err)]++
			result.FailedURLs = append(result.FailedURLs, out.Stub.URL)
			if s.cfg.RetryFailed {
				continue
			}
		}
		row, err := out.Row()
		if err != nil {
			return result, fmt.Errorf("build row for %s: %w", out.Stub.ID, err)
		}
		rows = append(rows, row)
	}
	slog.Info("detail fetch complete",
		slog.Int("successful", result.DetailOK),
		slog.Int("failed", result.DetailFailed),
	)

	s.enter(PhaseWrite)
	written, err := s.writeRows(ctx, rows)
	result.RowsWritten = written
	if err != nil {
		return result, err
	}
	slog.Info("appended rows",
		slog.Int("rows", written),
		slog.String("csv", s.cfg.CSVFile),
		slog.String("jsonl", s.cfg.JSONLFile),
	)

	s.enter(PhasePersistState)
	for _, out := range outcomes {
		if out.OK() || !s.cfg.RetryFailed {
			seen.Add(out.Stub.ID)
		}
	}
	if err := s.store.Save(seen); err != nil {
		return result, fmt.Errorf("save state: %w", err)
	}
	result.StatePersisted = true
	result.SeenCount = seen.Len()
	s.Metrics.SetSeen(seen.Len())
	slog.Info("updated state", slog.Int("seen", seen.Len()))

	s.enter(PhaseDone)
	return result, nil
}

// FetchListPage fetches and parses one listing page.
func (s *Scraper) FetchListPage(ctx context.Context, page int) (*goquery.Document, error) {
	body, err := s.fetcher.GetPage(ctx, s.cfg.ListURL(page))
	if err != nil {
		s.Metrics.IncError(errorTypeLabel(err))
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, ErrParse{Err: err}
	}
	return doc, nil
}

// ListStubs walks pages 1..lastPage in order and returns their stubs in
// listing order. The first failing page aborts the walk.
func (s *Scraper) ListStubs(ctx context.Context, lastPage int) ([]*models.Stub, error) {
	var stubs []*models.Stub
	for page := 1; page <= lastPage; page++ {
		slog.Debug("listing", slog.String("url", s.cfg.ListURL(page)))
		doc, err := s.FetchListPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", page, err)
		}
		stubs = append(stubs, parser.ParseListing(doc, s.base)...)
	}
	return stubs, nil
}

// FilterNew drops stubs already in seen and repeats within stubs, keeping
// listing order.
func FilterNew(stubs []*models.Stub, seen *state.SeenSet) []*models.Stub {
	fresh := make([]*models.Stub, 0, len(stubs))
	batch := make(map[string]struct{}, len(stubs))
	for _, stub := range stubs {
		if seen.Has(stub.ID) {
			continue
		}
		if _, dup := batch[stub.ID]; dup {
			continue
		}
		batch[stub.ID] = struct{}{}
		fresh = append(fresh, stub)
	}
	return fresh
}

func (s *Scraper) writeRows(ctx context.Context, rows []*models.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	writer, err := s.openWriter()
	if err != nil {
		return 0, fmt.Errorf("open outputs: %w", err)
	}

	p := pipeline.NewPipeline(ctx, writer, s.cfg)
	p.Start(1)
	if err := p.Process(rows...); err != nil {
		p.Close()
		writer.Close()
		return p.Written(), fmt.Errorf("queue rows: %w", err)
	}
	if err := p.Close(); err != nil {
		if errors.Is(err, pipeline.ErrPipelineCloseTimeout) {
			go func() {
				<-p.Done()
				writer.Close()
			}()
		} else {
			writer.Close()
		}
		return p.Written(), fmt.Errorf("write rows: %w", err)
	}
	if p.Written() > 0 {
		if err := writer.Validate(); err != nil {
			writer.Close()
			return p.Written(), fmt.Errorf("validate outputs: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return p.Written(), fmt.Errorf("close outputs: %w", err)
	}
	if valErrors, ok := p.GetMetrics()["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		slog.Warn("rows dropped before write", slog.Any("validation_errors", valErrors))
	}
	return p.Written(), nil
}

func (s *Scraper) enter(phase Phase) {
	slog.Info("phase", slog.String("phase", string(phase)))
	if s.onPhase != nil {
		s.onPhase(phase)
	}
}
