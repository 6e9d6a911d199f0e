package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-consultations/config"
	"github.com/aluiziolira/go-scrape-consultations/models"
	"github.com/aluiziolira/go-scrape-consultations/pipeline"
	"github.com/aluiziolira/go-scrape-consultations/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// options holds command-line values. Only flags the user actually set are
// applied over the file and environment layers.
type options struct {
	configFile string
	envFile    string
	probeURL   string
	restoreCSV bool

	pages         int
	concurrency   int
	delay         time.Duration
	timeout       time.Duration
	maxRetries    int
	retryFailed   bool
	respectRobots bool
	stateFile     string
	csvFile       string
	jsonlFile     string
	slug          string
	baseURL       string
	verbose       bool
	metricsAddr   string

	set map[string]bool
}

func parseFlags(args []string) (*options, error) {
	defaults := config.DefaultConfig()
	opts := &options{set: make(map[string]bool)}

	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with SCRAPER_* overrides")
	fs.StringVar(&opts.probeURL, "probe", "", "Fetch and print a single detail page, then exit")
	fs.BoolVar(&opts.restoreCSV, "restore-csv", false, "Rebuild the CSV output from the JSONL mirror, then exit")
	fs.IntVar(&opts.pages, "pages", defaults.MaxPages, "Maximum listing pages to crawl (0 = all)")
	fs.IntVar(&opts.concurrency, "concurrency", defaults.MaxConcurrency, "Maximum concurrent detail requests")
	fs.DurationVar(&opts.delay, "delay", defaults.RequestDelay, "Delay before each detail request")
	fs.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	fs.IntVar(&opts.maxRetries, "max-retries", defaults.MaxRetries, "Retry attempts for transient failures")
	fs.BoolVar(&opts.retryFailed, "retry-failed", defaults.RetryFailed, "Leave failed details unseen so the next run retries them")
	fs.BoolVar(&opts.respectRobots, "respect-robots", defaults.RespectRobotsTxt, "Respect robots.txt directives")
	fs.StringVar(&opts.stateFile, "state", defaults.StateFile, "Seen-identifier state file")
	fs.StringVar(&opts.csvFile, "csv", defaults.CSVFile, "CSV output file")
	fs.StringVar(&opts.jsonlFile, "jsonl", defaults.JSONLFile, "JSON Lines output file")
	fs.StringVar(&opts.slug, "slug", defaults.Slug, "Consultation slug")
	fs.StringVar(&opts.baseURL, "base-url", defaults.BaseURL, "Site base URL")
	fs.BoolVar(&opts.verbose, "v", defaults.Verbose, "Enable verbose logging")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})
	return opts, nil
}

// buildConfig layers defaults, the YAML file, the dotenv file, SCRAPER_*
// environment variables and explicit flags, in that order.
func buildConfig(opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configFile != "" {
		loaded, err := config.LoadFile(opts.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	apply := map[string]func(){
		"pages":          func() { cfg.MaxPages = opts.pages },
		"concurrency":    func() { cfg.MaxConcurrency = opts.concurrency },
		"delay":          func() { cfg.RequestDelay = opts.delay },
		"timeout":        func() { cfg.Timeout = opts.timeout },
		"max-retries":    func() { cfg.MaxRetries = opts.maxRetries },
		"retry-failed":   func() { cfg.RetryFailed = opts.retryFailed },
		"respect-robots": func() { cfg.RespectRobotsTxt = opts.respectRobots },
		"state":          func() { cfg.StateFile = opts.stateFile },
		"csv":            func() { cfg.CSVFile = opts.csvFile },
		"jsonl":          func() { cfg.JSONLFile = opts.jsonlFile },
		"slug":           func() { cfg.Slug = opts.slug },
		"base-url":       func() { cfg.BaseURL = opts.baseURL },
		"v":              func() { cfg.Verbose = opts.verbose },
		"metrics-addr":   func() { cfg.MetricsAddr = opts.metricsAddr },
	}
	for name, fn := range apply {
		if opts.set[name] {
			fn()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := buildConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if opts.restoreCSV {
		n, err := pipeline.RestoreCSV(cfg.JSONLFile, cfg.CSVFile)
		if err != nil {
			slog.Error("restore failed", slog.String("jsonl", cfg.JSONLFile), slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("restored csv",
			slog.Int("rows", n),
			slog.String("jsonl", cfg.JSONLFile),
			slog.String("csv", cfg.CSVFile),
		)
		return
	}

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.probeURL != "" {
		if err := probe(ctx, s, opts.probeURL, os.Stdout); err != nil {
			slog.Error("probe failed", slog.String("url", opts.probeURL), slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting run",
		slog.String("listing", cfg.ListURL(1)),
		slog.Int("concurrency", cfg.MaxConcurrency),
		slog.String("state", cfg.StateFile),
	)

	result, runErr := s.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if runErr != nil {
		slog.Error("run failed", slog.Any("error", runErr))
		os.Exit(1)
	}

	printSummary(os.Stdout, result, cfg)
}

func probe(ctx context.Context, s *scraper.Scraper, detailURL string, out io.Writer) error {
	detail, err := s.Probe(ctx, detailURL)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(detail)
}

func printSummary(w io.Writer, result *models.RunResult, cfg *config.Config) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	if result.NoOp {
		fmt.Fprintln(w, "No new reactions")
	} else {
		fmt.Fprintln(w, "Run complete")
	}

	fmt.Fprintf(w, "  Pages:         %d\n", result.PageCount)
	fmt.Fprintf(w, "  Listed:        %d\n", result.ListedCount)
	fmt.Fprintf(w, "  New:           %d\n", result.NewCount)
	fmt.Fprintf(w, "  Details:       %d\n", result.DetailOK)
	fmt.Fprintf(w, "  Failed:        %d\n", result.DetailFailed)
	fmt.Fprintf(w, "  Rows written:  %d\n", result.RowsWritten)
	fmt.Fprintf(w, "  Seen total:    %d\n", result.SeenCount)
	fmt.Fprintf(w, "  Requests:      %d\n", result.RequestCount)
	if len(result.ErrorsByType) > 0 {
		keys := make([]string, 0, len(result.ErrorsByType))
		for k := range result.ErrorsByType {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  Error %-9s %d\n", k+":", result.ErrorsByType[k])
		}
	}
	fmt.Fprintf(w, "  Duration:      %v\n", result.Duration().Round(time.Millisecond))
	if !result.NoOp {
		fmt.Fprintf(w, "  CSV:           %s\n", cfg.CSVFile)
		fmt.Fprintf(w, "  JSONL:         %s\n", cfg.JSONLFile)
	}
	fmt.Fprintln(w, separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
