package scraper

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-consultations/config"
	"github.com/aluiziolira/go-scrape-consultations/models"
	"github.com/aluiziolira/go-scrape-consultations/pipeline"
	"github.com/aluiziolira/go-scrape-consultations/state"
	"github.com/jarcoal/httpmock"
)

const testBase = "http://example.test"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBase
	cfg.Slug = "consultatie"
	cfg.PageSize = 10
	cfg.MaxConcurrency = 3
	cfg.RequestDelay = 0
	cfg.Timeout = 2 * time.Second
	cfg.StateFile = filepath.Join(dir, "seen.json")
	cfg.CSVFile = filepath.Join(dir, "reacties.csv")
	cfg.JSONLFile = filepath.Join(dir, "reacties.jsonl")
	return cfg
}

// site is a fake consultation: pages of item ids plus their detail pages.
type site struct {
	cfg       *config.Config
	transport *httpmock.MockTransport

	mu      sync.Mutex
	details map[string]int
}

func newSite(cfg *config.Config, pages [][]string) *site {
	st := &site{
		cfg:       cfg,
		transport: httpmock.NewMockTransport(),
		details:   make(map[string]int),
	}
	for i, ids := range pages {
		st.transport.RegisterResponder("GET", cfg.ListURL(i+1), htmlResponder(buildListingPage(cfg, ids, len(pages))))
		for _, id := range ids {
			st.serveDetail(id, htmlResponder(buildDetailPage(id)))
		}
	}
	return st
}

func (st *site) serveDetail(id string, responder httpmock.Responder) {
	st.transport.RegisterResponder("GET", detailURL(id), func(req *http.Request) (*http.Response, error) {
		st.mu.Lock()
		st.details[id]++
		st.mu.Unlock()
		return responder(req)
	})
}

func (st *site) detailCalls(id string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.details[id]
}

func (st *site) scraper(t *testing.T) *Scraper {
	t.Helper()
	s, err := NewScraper(st.cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.fetcher.collector.WithTransport(st.transport)
	return s
}

func detailPath(id string) string {
	return "/consultatie/reactie/" + id
}

func detailURL(id string) string {
	return testBase + detailPath(id)
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	return httpmock.ResponderFromResponse(resp)
}

func buildListingPage(cfg *config.Config, ids []string, lastPage int) string {
	var builder strings.Builder
	builder.WriteString(`<html><body><div class="result--list"><ul>`)
	for _, id := range ids {
		fmt.Fprintf(&builder, `<li><a href="%s">Inzender %s</a><p>Plaats %s | 1 oktober 2025 10:00</p></li>`, detailPath(id), id, id)
	}
	builder.WriteString(`</ul></div>`)
	if lastPage > 1 {
		builder.WriteString(`<div class="pagination"><div class="pagination__index"><ul>`)
		for p := 2; p <= lastPage; p++ {
			fmt.Fprintf(&builder, `<li><a href="/%s/reacties/%s/%d/%d">%d</a></li>`, cfg.Slug, cfg.SortOrder, p, cfg.PageSize, p)
		}
		builder.WriteString(`</ul></div></div>`)
	}
	builder.WriteString(`</body></html>`)
	return builder.String()
}

func buildDetailPage(id string) string {
	return fmt.Sprintf(`<html><body>
<table class="table__data-overview">
<tr><th>Naam</th><td>Inzender %[1]s</td></tr>
<tr><th>Plaats</th><td>Plaats %[1]s</td></tr>
<tr><th>Datum</th><td>1 oktober 2025</td></tr>
</table>
<div class="container" role="main" id="content">
<h3>Wat vindt u van het voorstel?</h3><blockquote>Antwoord van %[1]s</blockquote>
</div></body></html>`, id)
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return records
}

func rowsByID(t *testing.T, path string) map[string][]string {
	t.Helper()
	out := make(map[string][]string)
	for i, record := range readRows(t, path)[1:] {
		id := record[3]
		if _, dup := out[id]; dup {
			t.Fatalf("duplicate detail_relative %q at row %d", id, i+1)
		}
		out[id] = record
	}
	return out
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: errors.New("bad gateway"), statusCode: http.StatusBadGateway, expected: "http_status"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: ErrTimeout{Err: errors.New("x")}, want: true},
		{err: ErrRateLimited{Err: errors.New("x")}, want: true},
		{err: ErrHTTPStatus{StatusCode: 503, Err: errors.New("x")}, want: true},
		{err: ErrHTTPStatus{StatusCode: 410, Err: errors.New("x")}, want: false},
		{err: ErrNotFound{Err: errors.New("x")}, want: false},
		{err: ErrParse{Err: errors.New("x")}, want: false},
	}
	for _, tt := range tests {
		if got := retryable(tt.err); got != tt.want {
			t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestFetcherBackoffCapped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	cfg.RetryBackoffMax = 500 * time.Millisecond

	f, err := NewFetcher(cfg, nil)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	if delay := f.backoff(4); delay > cfg.RetryBackoffMax {
		t.Fatalf("delay %v exceeds max %v", delay, cfg.RetryBackoffMax)
	}
	if delay := f.backoff(2); delay != 400*time.Millisecond {
		t.Fatalf("backoff(2) = %v, want 400ms", delay)
	}
}

func TestFetcherRetriesTransientFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 2 * time.Millisecond

	f, err := NewFetcher(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	transport := httpmock.NewMockTransport()
	var calls atomic.Int32
	transport.RegisterResponder("GET", detailURL("flaky"), func(req *http.Request) (*http.Response, error) {
		if calls.Add(1) < 3 {
			return httpmock.NewStringResponse(http.StatusServiceUnavailable, ""), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})
	f.collector.WithTransport(transport)

	body, err := f.Get(context.Background(), detailURL("flaky"), phaseDetail)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("body = %q", body)
	}
	if calls.Load() != 3 || f.Retries() != 2 {
		t.Fatalf("calls=%d retries=%d, want 3/2", calls.Load(), f.Retries())
	}
}

func TestFetcherDoesNotRetryNotFound(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRetries = 3
	cfg.RetryBackoff = time.Millisecond

	f, err := NewFetcher(cfg, nil)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", detailURL("gone"), httpmock.NewStringResponder(http.StatusNotFound, ""))
	f.collector.WithTransport(transport)

	_, err = f.Get(context.Background(), detailURL("gone"), phaseDetail)
	var notFound ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.Requests() != 1 {
		t.Fatalf("requests = %d, want 1", f.Requests())
	}
}

func TestRunWritesNewItemsAndPersistsState(t *testing.T) {
	cfg := testConfig(t)
	st := newSite(cfg, [][]string{{"a", "b", "c"}, {"d", "e"}})
	s := st.scraper(t)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.PageCount != 2 || result.ListedCount != 5 || result.NewCount != 5 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.RowsWritten != 5 || !result.StatePersisted {
		t.Fatalf("rows=%d persisted=%v", result.RowsWritten, result.StatePersisted)
	}

	rows := rowsByID(t, cfg.CSVFile)
	if len(rows) != 5 {
		t.Fatalf("csv rows = %d, want 5", len(rows))
	}
	row := rows[detailPath("d")]
	if row[1] != "Plaats d" || row[2] != "1 oktober 2025 10:00" {
		t.Fatalf("listing fields = %v", row[:3])
	}
	if row[5] != "Inzender d" || row[8] != "1" || row[9] != "Wat vindt u van het voorstel?: Antwoord van d" {
		t.Fatalf("detail fields = %v", row)
	}

	seen, err := state.NewStore(cfg.StateFile).Load()
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if seen.Len() != 5 {
		t.Fatalf("seen = %d, want 5", seen.Len())
	}

	// Page 1 is read once for pagination and served from cache for the crawl.
	if got := st.transport.GetCallCountInfo()["GET "+cfg.ListURL(1)]; got != 1 {
		t.Fatalf("page 1 requested %d times, want 1", got)
	}
}

func TestRunTwiceIsNoOp(t *testing.T) {
	cfg := testConfig(t)
	st := newSite(cfg, [][]string{{"a", "b"}})
	s := st.scraper(t)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	csvBefore, _ := os.ReadFile(cfg.CSVFile)
	jsonBefore, _ := os.ReadFile(cfg.JSONLFile)
	stateBefore, _ := os.ReadFile(cfg.StateFile)

	var phases []Phase
	s.onPhase = func(p Phase) { phases = append(phases, p) }

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !result.NoOp || result.RowsWritten != 0 || result.StatePersisted {
		t.Fatalf("second run should be a no-op: %+v", result)
	}

	csvAfter, _ := os.ReadFile(cfg.CSVFile)
	jsonAfter, _ := os.ReadFile(cfg.JSONLFile)
	stateAfter, _ := os.ReadFile(cfg.StateFile)
	if string(csvBefore) != string(csvAfter) || string(jsonBefore) != string(jsonAfter) || string(stateBefore) != string(stateAfter) {
		t.Fatalf("no-op run modified outputs or state")
	}
	if st.detailCalls("a") != 1 || st.detailCalls("b") != 1 {
		t.Fatalf("detail pages fetched again on the second run")
	}

	want := []Phase{PhaseInit, PhaseDetectPages, PhaseListCrawl, PhaseDedupFilter, PhaseDone}
	if fmt.Sprint(phases) != fmt.Sprint(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
}

func TestRunFetchesOnlyUnseen(t *testing.T) {
	cfg := testConfig(t)
	if err := state.NewStore(cfg.StateFile).Save(state.NewSeenSet(detailPath("a"), detailPath("b"))); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	st := newSite(cfg, [][]string{{"a", "b", "c", "d"}})
	s := st.scraper(t)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.NewCount != 2 {
		t.Fatalf("new = %d, want 2", result.NewCount)
	}
	for id, want := range map[string]int{"a": 0, "b": 0, "c": 1, "d": 1} {
		if got := st.detailCalls(id); got != want {
			t.Fatalf("detail %s fetched %d times, want %d", id, got, want)
		}
	}
	rows := rowsByID(t, cfg.CSVFile)
	if len(rows) != 2 {
		t.Fatalf("csv rows = %d, want 2", len(rows))
	}
}

func TestRunIsolatesDetailFailures(t *testing.T) {
	cfg := testConfig(t)
	st := newSite(cfg, [][]string{{"x", "y", "z"}})
	st.serveDetail("x", httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))
	s := st.scraper(t)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.DetailOK != 2 || result.DetailFailed != 1 {
		t.Fatalf("ok=%d failed=%d, want 2/1", result.DetailOK, result.DetailFailed)
	}
	if result.ErrorsByType["http_status"] != 1 {
		t.Fatalf("errors by type = %v", result.ErrorsByType)
	}

	rows := rowsByID(t, cfg.CSVFile)
	if len(rows) != 3 {
		t.Fatalf("csv rows = %d, want 3", len(rows))
	}
	failed := rows[detailPath("x")]
	if failed[5] != "" || failed[6] != "" || failed[7] != "" || failed[8] != "0" || failed[10] != "0" {
		t.Fatalf("failed row should carry empty detail fields: %v", failed)
	}
	if failed[0] != "Inzender x" {
		t.Fatalf("failed row lost listing fields: %v", failed)
	}
	for _, id := range []string{"y", "z"} {
		row := rows[detailPath(id)]
		if row[5] != "Inzender "+id || row[10] == "0" {
			t.Fatalf("row %s affected by sibling failure: %v", id, row)
		}
	}

	seen, _ := state.NewStore(cfg.StateFile).Load()
	if !seen.Has(detailPath("x")) {
		t.Fatalf("failed item should be marked seen by default")
	}
}

func TestRunRetryFailedLeavesItemUnseen(t *testing.T) {
	cfg := testConfig(t)
	cfg.RetryFailed = true
	st := newSite(cfg, [][]string{{"x", "y"}})
	st.serveDetail("x", httpmock.NewErrorResponder(errors.New("connection reset")))
	s := st.scraper(t)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if result.RowsWritten != 1 {
		t.Fatalf("rows = %d, want 1", result.RowsWritten)
	}
	seen, _ := state.NewStore(cfg.StateFile).Load()
	if seen.Has(detailPath("x")) || !seen.Has(detailPath("y")) {
		t.Fatalf("unexpected seen set: %v", seen.Sorted())
	}

	st.serveDetail("x", htmlResponder(buildDetailPage("x")))
	result, err = s.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.NewCount != 1 || result.RowsWritten != 1 {
		t.Fatalf("second run should fetch only x: %+v", result)
	}
	rows := rowsByID(t, cfg.CSVFile)
	if len(rows) != 2 || rows[detailPath("x")][5] != "Inzender x" {
		t.Fatalf("unexpected rows after retry: %v", rows)
	}
}

func TestRunListingFailureAbortsWithoutState(t *testing.T) {
	cfg := testConfig(t)
	st := newSite(cfg, [][]string{{"a"}, {"b"}, {"c"}})
	st.transport.RegisterResponder("GET", cfg.ListURL(2), httpmock.NewStringResponder(http.StatusBadGateway, ""))
	s := st.scraper(t)

	_, err := s.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "list page 2") {
		t.Fatalf("expected list page 2 error, got %v", err)
	}
	for _, path := range []string{cfg.StateFile, cfg.CSVFile, cfg.JSONLFile} {
		if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
			t.Fatalf("%s should not exist after an aborted run", path)
		}
	}
	if st.detailCalls("a") != 0 {
		t.Fatalf("detail fetched before listing completed")
	}
}

func TestRunSinglePageWithoutPagination(t *testing.T) {
	cfg := testConfig(t)
	st := newSite(cfg, [][]string{{"solo"}})
	s := st.scraper(t)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.PageCount != 1 || result.RowsWritten != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunMaxPagesCap(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPages = 1
	st := newSite(cfg, [][]string{{"a"}, {"b"}})
	s := st.scraper(t)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.PageCount != 1 || result.ListedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunRespectsConcurrencyBound(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConcurrency = 3
	cfg.RequestDelay = time.Millisecond

	ids := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		ids = append(ids, fmt.Sprintf("item-%02d", i))
	}
	st := newSite(cfg, [][]string{ids})

	var inFlight, peak atomic.Int32
	for _, id := range ids {
		page := buildDetailPage(id)
		st.serveDetail(id, func(req *http.Request) (*http.Response, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return httpmock.NewStringResponse(http.StatusOK, page), nil
		})
	}
	s := st.scraper(t)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.DetailOK != 30 {
		t.Fatalf("ok = %d, want 30", result.DetailOK)
	}
	if got := peak.Load(); got > int32(cfg.MaxConcurrency) {
		t.Fatalf("observed %d concurrent detail requests, limit %d", got, cfg.MaxConcurrency)
	}
	if got := s.Gate().Peak(); got > cfg.MaxConcurrency {
		t.Fatalf("gate peak %d exceeds limit %d", got, cfg.MaxConcurrency)
	}
	if s.Gate().InFlight() != 0 {
		t.Fatalf("gate not drained: %d", s.Gate().InFlight())
	}
}

func TestFilterNew(t *testing.T) {
	mk := func(id string) *models.Stub {
		stub, err := models.NewStub(id, id, nil, nil, testBase+id)
		if err != nil {
			t.Fatalf("stub: %v", err)
		}
		return stub
	}
	stubs := []*models.Stub{mk("/A"), mk("/B"), mk("/C"), mk("/C"), mk("/D")}

	fresh := FilterNew(stubs, state.NewSeenSet("/A", "/B"))
	var ids []string
	for _, stub := range fresh {
		ids = append(ids, stub.ID)
	}
	if strings.Join(ids, ",") != "/C,/D" {
		t.Fatalf("fresh = %v, want [/C /D]", ids)
	}
}

func TestProbe(t *testing.T) {
	cfg := testConfig(t)
	st := newSite(cfg, [][]string{{"p"}})
	s := st.scraper(t)

	detail, err := s.Probe(context.Background(), detailURL("p"))
	if err != nil {
		t.Fatalf("fetch single detail: %v", err)
	}
	if detail.Naam == nil || *detail.Naam != "Inzender p" || len(detail.QnA) != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if _, err := os.Stat(cfg.StateFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("single-detail fetch must not write state")
	}
}

type rejectingWriter struct {
	closed bool
}

func (w *rejectingWriter) Write(rows []*models.Row) error { return nil }

func (w *rejectingWriter) Close() error {
	w.closed = true
	return nil
}

func (w *rejectingWriter) Validate() error { return errors.New("output empty") }

func TestRunOutputValidationFailureSkipsState(t *testing.T) {
	cfg := testConfig(t)
	st := newSite(cfg, [][]string{{"a"}})
	writer := &rejectingWriter{}
	s, err := NewScraper(cfg, WithWriterFactory(func() (pipeline.OutputWriter, error) {
		return writer, nil
	}))
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.fetcher.collector.WithTransport(st.transport)

	var phases []Phase
	s.onPhase = func(p Phase) { phases = append(phases, p) }

	result, err := s.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "validate outputs") {
		t.Fatalf("expected validation error, got %v", err)
	}
	if result.StatePersisted || !writer.closed {
		t.Fatalf("persisted=%v closed=%v", result.StatePersisted, writer.closed)
	}
	if _, statErr := os.Stat(cfg.StateFile); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("state must not be saved when outputs fail validation")
	}
	if phases[len(phases)-1] != PhaseWrite {
		t.Fatalf("last phase = %s, want %s", phases[len(phases)-1], PhaseWrite)
	}
}

func TestFetcherAllowsWWWVariant(t *testing.T) {
	cfg := testConfig(t)
	f, err := NewFetcher(cfg, nil)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://www.example.test/consultatie/reactie/w", httpmock.NewStringResponder(http.StatusOK, "ok"))
	transport.RegisterResponder("GET", "http://other.test/consultatie/reactie/w", httpmock.NewStringResponder(http.StatusOK, "ok"))
	f.collector.WithTransport(transport)

	if _, err := f.Get(context.Background(), "http://www.example.test/consultatie/reactie/w", phaseDetail); err != nil {
		t.Fatalf("www host rejected: %v", err)
	}
	if _, err := f.Get(context.Background(), "http://other.test/consultatie/reactie/w", phaseDetail); err == nil {
		t.Fatalf("foreign host should be rejected")
	}
}

func TestAllowedHosts(t *testing.T) {
	if got := strings.Join(allowedHosts("internetconsultatie.nl"), ","); got != "internetconsultatie.nl,www.internetconsultatie.nl" {
		t.Fatalf("allowedHosts(bare) = %s", got)
	}
	if got := strings.Join(allowedHosts("www.internetconsultatie.nl"), ","); got != "www.internetconsultatie.nl,internetconsultatie.nl" {
		t.Fatalf("allowedHosts(www) = %s", got)
	}
}
