package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by Acquire after the pool has been shut down.
var ErrClosed = errors.New("browser: pool is closed")

// Defaults applied by New when the corresponding option is zero.
const (
	DefaultMaxWorkers    = 3
	DefaultIdleTimeout   = 60 * time.Second
	DefaultSweepInterval = 30 * time.Second
)

// waitRecheck bounds how long a blocked Acquire waits before rescanning
// the pool, as a fallback for missed release signals.
const waitRecheck = 100 * time.Millisecond

// Options configure a Pool.
type Options struct {
	// MaxWorkers caps the number of concurrent browser processes,
	// counting launches still in flight. Default: 3.
	MaxWorkers int

	// IdleTimeout is how long a worker may sit unused before the sweep
	// evicts it. Default: 60s.
	IdleTimeout time.Duration

	// SweepInterval is how often the idle sweep runs. Default: 30s.
	SweepInterval time.Duration
}

// member is the pool's bookkeeping record for one worker. The pool hands
// out ids itself so records never key on the worker handle.
type member struct {
	id       int64
	w        Worker
	inUse    bool
	lastUsed time.Time // set on acquire and release; drives idle eviction
}

// Pool is a bounded collection of browser workers. It starts empty,
// launches workers on demand up to MaxWorkers, and blocks callers when
// every worker is busy. All methods are safe for concurrent use.
type Pool struct {
	opts    Options
	factory Factory

	mu      sync.Mutex
	members []*member
	nextID  int64
	pending int // launches in flight, counted against capacity
	closed  bool

	freed chan struct{} // wakes one waiter when a worker or slot opens up
	done  chan struct{}
	stop  sync.Once
}

// New creates a Pool and starts its idle-eviction sweep. No workers are
// launched up front; the pool grows lazily as callers acquire.
func New(opts Options, factory Factory) *Pool {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}

	p := &Pool{
		opts:    opts,
		factory: factory,
		freed:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.sweep()
	return p
}

// Acquire returns a worker for the caller's exclusive use. It prefers an
// idle worker over launching a new one, launches when the pool is under
// capacity, and otherwise blocks until a worker is released, the pool
// shuts down, or ctx is cancelled. A cancelled wait leaves no state
// behind. Launch failures are returned as-is.
func (p *Pool) Acquire(ctx context.Context) (Worker, error) {
	for {
		m, slot, err := p.claim()
		if err != nil {
			return nil, err
		}
		if m != nil {
			if m.w.Alive() {
				return m.w, nil
			}
			// Claimed a dead worker: drop it and rescan.
			p.destroy(m.id)
			continue
		}
		if slot {
			return p.launch()
		}

		select {
		case <-p.freed:
		case <-time.After(waitRecheck):
		case <-p.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// claim reserves an idle member, or a launch slot when none exists and
// capacity remains. A reserved member is marked in-use before its
// liveness is checked so that neither another caller nor the sweep can
// touch it in between.
func (p *Pool) claim() (m *member, slot bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, false, ErrClosed
	}
	for _, cand := range p.members {
		if !cand.inUse {
			cand.inUse = true
			cand.lastUsed = time.Now()
			return cand, false, nil
		}
	}
	if len(p.members)+p.pending < p.opts.MaxWorkers {
		p.pending++
		return nil, true, nil
	}
	return nil, false, nil
}

// launch creates a worker against a slot reserved by claim. On failure
// the slot is returned to the pool and the error goes to the caller.
func (p *Pool) launch() (Worker, error) {
	w, err := p.factory()

	p.mu.Lock()
	p.pending--
	if err != nil {
		p.mu.Unlock()
		p.notifyFreed()
		return nil, err
	}
	if p.closed {
		p.mu.Unlock()
		if cerr := w.Close(); cerr != nil {
			slog.Debug("closing worker launched during shutdown", "error", cerr)
		}
		return nil, ErrClosed
	}
	id := p.nextID
	p.nextID++
	p.members = append(p.members, &member{id: id, w: w, inUse: true, lastUsed: time.Now()})
	total := len(p.members)
	p.mu.Unlock()

	slog.Info("browser worker launched", "worker", id, "total", total)
	go p.watch(id, w)
	return w, nil
}

// watch runs the disconnect path for one worker: if the process drops
// its connection on its own, the worker is removed immediately instead
// of lingering until the next liveness check.
func (p *Pool) watch(id int64, w Worker) {
	select {
	case <-w.Disconnected():
		slog.Warn("browser worker disconnected", "worker", id)
		p.destroy(id)
	case <-p.done:
	}
}

// Release returns an acquired worker to the idle set and stamps its idle
// clock. Releasing a worker that is not checked out, or that the pool no
// longer tracks, is a no-op. Extra pages the caller left open are closed
// on a best-effort basis; those failures never surface.
func (p *Pool) Release(w Worker) {
	p.mu.Lock()
	var released *member
	for _, m := range p.members {
		if m.w == w && m.inUse {
			m.inUse = false
			m.lastUsed = time.Now()
			released = m
			break
		}
	}
	p.mu.Unlock()
	if released == nil {
		return
	}

	// Leave only the initial tab so the next caller gets a clean worker.
	if pages, err := w.Pages(); err == nil && len(pages) > 1 {
		for _, pg := range pages[1:] {
			if cerr := pg.Close(); cerr != nil {
				slog.Debug("stray page close failed on release", "worker", released.id, "error", cerr)
			}
		}
	}
	p.notifyFreed()
}

// With acquires a worker, runs fn against it, and releases the worker
// whether or not fn succeeds. The error from fn is the caller's.
func (p *Pool) With(ctx context.Context, fn func(Worker) error) error {
	w, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(w)
	return fn(w)
}

// Run acquires a worker from the pool, applies fn, and releases the
// worker before returning fn's result. It exists because methods cannot
// have type parameters.
func Run[T any](ctx context.Context, pool *Pool, fn func(Worker) (T, error)) (T, error) {
	var zero T
	w, err := pool.Acquire(ctx)
	if err != nil {
		return zero, err
	}
	defer pool.Release(w)
	return fn(w)
}

// destroy removes one worker from the pool and closes it. Idempotent:
// later calls for the same id are no-ops, so the disconnect watcher, the
// sweep, and a failed reuse scan can all race to destroy the same worker
// safely. Close errors are logged, never raised.
func (p *Pool) destroy(id int64) {
	p.mu.Lock()
	m := p.removeLocked(id)
	p.mu.Unlock()
	if m == nil {
		return
	}
	p.notifyFreed()
	if err := m.w.Close(); err != nil {
		slog.Debug("worker close failed during destroy", "worker", id, "error", err)
	}
}

// removeLocked drops the member with the given id from the bookkeeping
// and returns it, or nil when the id is no longer tracked. Caller must
// hold p.mu.
func (p *Pool) removeLocked(id int64) *member {
	for i, m := range p.members {
		if m.id == id {
			p.members = append(p.members[:i], p.members[i+1:]...)
			return m
		}
	}
	return nil
}

// sweep periodically evicts workers that have been idle past IdleTimeout.
func (p *Pool) sweep() {
	ticker := time.NewTicker(p.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.evictIdle()
		}
	}
}

// evictIdle removes every member that is both idle and past IdleTimeout.
// Selection and removal happen under one lock so a member acquired
// mid-sweep can never be evicted out from under its borrower.
func (p *Pool) evictIdle() {
	cutoff := time.Now().Add(-p.opts.IdleTimeout)

	p.mu.Lock()
	var expired []*member
	kept := p.members[:0]
	for _, m := range p.members {
		if !m.inUse && m.lastUsed.Before(cutoff) {
			expired = append(expired, m)
			continue
		}
		kept = append(kept, m)
	}
	p.members = kept
	p.mu.Unlock()

	for _, m := range expired {
		slog.Info("evicting idle browser worker", "worker", m.id)
		if err := m.w.Close(); err != nil {
			slog.Debug("worker close failed during eviction", "worker", m.id, "error", err)
		}
	}
	if len(expired) > 0 {
		p.notifyFreed()
	}
}

// Shutdown stops the sweep and closes every worker concurrently; one
// worker failing to close does not stop the others. Safe to call more
// than once. Acquire fails with ErrClosed afterward; the pool is not
// reusable.
func (p *Pool) Shutdown() {
	p.stop.Do(func() {
		p.mu.Lock()
		p.closed = true
		members := p.members
		p.members = nil
		p.mu.Unlock()
		close(p.done)

		var wg sync.WaitGroup
		for _, m := range members {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := m.w.Close(); err != nil {
					slog.Warn("worker close failed during shutdown", "worker", m.id, "error", err)
				}
			}()
		}
		wg.Wait()
		slog.Info("browser pool shut down", "workers_closed", len(members))
	})
}

// Stats is a point-in-time snapshot of pool state.
type Stats struct {
	Total       int
	InUse       int
	Available   int
	MaxWorkers  int
	IdleTimeout time.Duration
}

// Stats reports the pool's current state. The snapshot is taken under
// the pool lock, so the fields are consistent with each other.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	inUse := 0
	for _, m := range p.members {
		if m.inUse {
			inUse++
		}
	}
	return Stats{
		Total:       len(p.members),
		InUse:       inUse,
		Available:   len(p.members) - inUse,
		MaxWorkers:  p.opts.MaxWorkers,
		IdleTimeout: p.opts.IdleTimeout,
	}
}

// notifyFreed wakes one blocked Acquire without blocking when nobody is
// waiting. Collapsed signals are fine: waiters also rescan on a timer.
func (p *Pool) notifyFreed() {
	select {
	case p.freed <- struct{}{}:
	default:
	}
}
