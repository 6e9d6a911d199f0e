package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-consultations/config"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	phaseList   = "list"
	phaseDetail = "detail"

	responseKey = "response"
)

// Fetcher issues GET requests through a synchronous colly collector. The
// collector is shared by concurrent callers; each request carries its own
// colly context so responses never cross between goroutines.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	pages     *lru.Cache[string, []byte]
	metrics   *Metrics

	requests atomic.Int64
	retries  atomic.Int64
}

// NewFetcher builds a fetcher restricted to the configured host.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(allowedHosts(parsed.Hostname())...),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.ParseHTTPErrorResponse = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: cfg.MaxConcurrency,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})

	pages, err := lru.New[string, []byte](cfg.PageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}

	return &Fetcher{
		cfg:       cfg,
		collector: collector,
		pages:     pages,
		metrics:   metrics,
	}, nil
}

// Get fetches rawURL and returns the body of a 2xx response. Transient
// failures are retried up to MaxRetries times.
func (f *Fetcher) Get(ctx context.Context, rawURL, phase string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, err := f.get(ctx, rawURL, phase)
		if err == nil {
			return body, nil
		}
		if attempt >= f.cfg.MaxRetries || !retryable(err) {
			return nil, err
		}

		delay := f.backoff(attempt + 1)
		f.retries.Add(1)
		f.metrics.IncRetries()
		slog.Debug("retrying request",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// GetPage is Get for listing pages, served from the page cache when the
// same URL was read recently.
func (f *Fetcher) GetPage(ctx context.Context, rawURL string) ([]byte, error) {
	if body, ok := f.pages.Get(rawURL); ok {
		return body, nil
	}
	body, err := f.Get(ctx, rawURL, phaseList)
	if err != nil {
		return nil, err
	}
	f.pages.Add(rawURL, body)
	return body, nil
}

// ResetPageCache drops cached listing pages so a new run sees fresh content.
func (f *Fetcher) ResetPageCache() {
	f.pages.Purge()
}

// Requests returns the number of HTTP requests issued so far.
func (f *Fetcher) Requests() int64 {
	return f.requests.Load()
}

// Retries returns the number of retry attempts so far.
func (f *Fetcher) Retries() int64 {
	return f.retries.Load()
}

func (f *Fetcher) get(ctx context.Context, rawURL, phase string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reqCtx := colly.NewContext()
	f.requests.Add(1)
	f.metrics.IncRequest(phase)

	start := time.Now()
	err := f.collector.Request(http.MethodGet, rawURL, nil, reqCtx, nil)
	f.metrics.ObserveDuration(phase, time.Since(start))

	resp, _ := reqCtx.GetAny(responseKey).(*colly.Response)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, classifyError(fmt.Errorf("get %s: %w", rawURL, err), status)
	}
	if resp == nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, errors.New("no response"))
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, classifyError(fmt.Errorf("get %s: %s", rawURL, http.StatusText(resp.StatusCode)), resp.StatusCode)
	}
	return resp.Body, nil
}

// allowedHosts returns host and its www. twin.
func allowedHosts(host string) []string {
	if bare, ok := strings.CutPrefix(host, "www."); ok {
		return []string{host, bare}
	}
	return []string{host, "www." + host}
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
		if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
			return ErrHTTPStatus{StatusCode: statusCode, Err: wrapped}
		}
	}

	return err
}
