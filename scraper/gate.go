package scraper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of detail requests in flight. Every holder waits a
// fixed delay after acquiring before its request fires.
type Gate struct {
	sem   *semaphore.Weighted
	limit int64
	delay time.Duration
	gauge prometheus.Gauge

	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewGate returns a gate admitting at most limit holders. gauge may be nil.
func NewGate(limit int, delay time.Duration, gauge prometheus.Gauge) *Gate {
	if limit <= 0 {
		limit = 1
	}
	return &Gate{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
		delay: delay,
		gauge: gauge,
	}
}

// Do runs fn while holding a slot. The slot is released on every return
// path, including a panic in fn.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	g.enter()
	defer g.leave()
	return fn()
}

// Limit returns the configured maximum.
func (g *Gate) Limit() int {
	return int(g.limit)
}

// InFlight returns the number of holders currently running fn.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Peak returns the highest InFlight value observed.
func (g *Gate) Peak() int {
	return int(g.peak.Load())
}

func (g *Gate) enter() {
	n := g.inFlight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if g.gauge != nil {
		g.gauge.Inc()
	}
}

func (g *Gate) leave() {
	g.inFlight.Add(-1)
	if g.gauge != nil {
		g.gauge.Dec()
	}
}
