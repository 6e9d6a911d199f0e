// Package pipeline validates output rows and writes them in batches to the
// CSV and JSONL outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-consultations/config"
	"github.com/aluiziolira/go-scrape-consultations/models"
	"github.com/aluiziolira/go-scrape-consultations/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when workers do not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

var drainTimeout = 30 * time.Second

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(rows []*models.Row) error
	Close() error
	Validate() error
}

// Pipeline coordinates validation, the duplicate guard, and output writing.
type Pipeline struct {
	ctx       context.Context
	writer    OutputWriter
	rowCh     chan *models.Row
	batchSize int

	wg sync.WaitGroup

	seen   map[string]struct{}
	seenMu sync.Mutex

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once

	abort     chan struct{}
	abortOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
}

// NewPipeline builds a pipeline sized from cfg.
func NewPipeline(ctx context.Context, writer OutputWriter, cfg *config.Config) *Pipeline {
	if ctx == nil {
		ctx = context.Background()
	}
	bufferSize, batchSize := 512, 64
	if cfg != nil {
		if cfg.BufferSize > 0 {
			bufferSize = cfg.BufferSize
		}
		if cfg.BatchSize > 0 {
			batchSize = cfg.BatchSize
		}
	}
	return &Pipeline{
		ctx:       ctx,
		writer:    writer,
		rowCh:     make(chan *models.Row, bufferSize),
		batchSize: batchSize,
		seen:      make(map[string]struct{}),
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
		abort:     make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches worker goroutines. A single worker preserves the order in
// which rows were submitted.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues rows for downstream processing.
func (p *Pipeline) Process(rows ...*models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, row := range rows {
		if row == nil {
			continue
		}
		if err := p.enqueue(row); err != nil {
			return err
		}
	}
	return nil
}

// Close stops accepting rows and waits for workers to flush, up to the
// drain timeout. On timeout the workers stop before their next batch; a
// write already in progress finishes, and Done closes once it has.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.rowCh)
	})

	p.doneOnce.Do(func() {
		go func() {
			p.wg.Wait()
			close(p.done)
		}()
	})

	select {
	case <-p.done:
		return p.Err()
	case <-time.After(drainTimeout):
		p.abortOnce.Do(func() {
			close(p.abort)
		})
		return fmt.Errorf("%w after %s", ErrPipelineCloseTimeout, drainTimeout)
	}
}

// Done is closed once every worker has returned. After Close succeeds it is
// already closed.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// Written returns the number of rows handed to the writer.
func (p *Pipeline) Written() int {
	return int(p.metrics.writtenCount())
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.Row, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case <-p.abort:
			return ErrPipelineCloseTimeout
		default:
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		p.metrics.addWritten(len(batch))
		batch = batch[:0]
		return nil
	}

	for row := range p.rowCh {
		prepared := p.prepare(row)
		if prepared == nil {
			continue
		}
		batch = append(batch, prepared)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) prepare(row *models.Row) *models.Row {
	if err := parser.ValidateRow(row); err != nil {
		p.metrics.addValidation("invalid_record")
		slog.Warn("dropping invalid row", slog.Any("error", err))
		return nil
	}

	p.seenMu.Lock()
	if _, ok := p.seen[row.DetailRel]; ok {
		p.seenMu.Unlock()
		p.metrics.addValidation("duplicate_identifier")
		slog.Warn("dropping duplicate row", slog.String("detail_relative", row.DetailRel))
		return nil
	}
	p.seen[row.DetailRel] = struct{}{}
	p.seenMu.Unlock()

	p.metrics.incrementProcessed()
	return row
}

func (p *Pipeline) enqueue(row *models.Row) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.rowCh <- row:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	written    int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addWritten(n int) {
	m.mu.Lock()
	m.written += int64(n)
	m.mu.Unlock()
}

func (m *metrics) writtenCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_rows":    m.processed,
		"written_rows":      m.written,
		"validation_errors": copyValidation,
	}
}
