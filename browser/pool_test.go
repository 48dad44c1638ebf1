package browser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage records whether it was closed.
type fakePage struct {
	mu     sync.Mutex
	closed bool
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// fakeWorker is an in-memory Worker with scriptable liveness.
type fakeWorker struct {
	mu     sync.Mutex
	alive  bool
	closed bool
	pages  []*fakePage

	disc     chan struct{}
	discOnce sync.Once
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{alive: true, disc: make(chan struct{})}
}

func (w *fakeWorker) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alive && !w.closed
}

func (w *fakeWorker) setAlive(alive bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.alive = alive
}

func (w *fakeWorker) Pages() ([]Page, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Page, len(w.pages))
	for i, p := range w.pages {
		out[i] = p
	}
	return out, nil
}

func (w *fakeWorker) addPages(n int) []*fakePage {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 0; i < n; i++ {
		w.pages = append(w.pages, &fakePage{})
	}
	return append([]*fakePage(nil), w.pages...)
}

func (w *fakeWorker) Disconnected() <-chan struct{} {
	return w.disc
}

// disconnect simulates the process dying on its own.
func (w *fakeWorker) disconnect() {
	w.mu.Lock()
	w.alive = false
	w.mu.Unlock()
	w.discOnce.Do(func() { close(w.disc) })
}

func (w *fakeWorker) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.discOnce.Do(func() { close(w.disc) })
	return nil
}

func (w *fakeWorker) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// fakeFactory builds fakeWorkers and records every launch.
type fakeFactory struct {
	mu      sync.Mutex
	workers []*fakeWorker
	err     error
}

func (f *fakeFactory) new() (Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	w := newFakeWorker()
	f.workers = append(f.workers, w)
	return w, nil
}

func (f *fakeFactory) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFactory) launches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.workers)
}

func (f *fakeFactory) all() []*fakeWorker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeWorker(nil), f.workers...)
}

func newTestPool(t *testing.T, opts Options) (*Pool, *fakeFactory) {
	t.Helper()
	f := &fakeFactory{}
	p := New(opts, f.new)
	t.Cleanup(p.Shutdown)
	return p, f
}

func TestNew_AppliesDefaults(t *testing.T) {
	p, _ := newTestPool(t, Options{})

	st := p.Stats()
	assert.Equal(t, DefaultMaxWorkers, st.MaxWorkers)
	assert.Equal(t, DefaultIdleTimeout, st.IdleTimeout)
	assert.Equal(t, 0, st.Total, "the pool must start empty")
}

func TestAcquire_LaunchesOnDemand(t *testing.T) {
	p, f := newTestPool(t, Options{MaxWorkers: 2})

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, 1, f.launches())

	st := p.Stats()
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.InUse)
	assert.Equal(t, 0, st.Available)
}

func TestAcquire_ReusesReleasedWorker(t *testing.T) {
	p, f := newTestPool(t, Options{MaxWorkers: 2})
	ctx := context.Background()

	w1, err := p.Acquire(ctx)
	require.NoError(t, err)
	p.Release(w1)

	w2, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, w1, w2, "an idle worker should be handed out before launching")
	assert.Equal(t, 1, f.launches())
	assert.Equal(t, 1, p.Stats().Total)
}

func TestAcquire_GrowsToCapacityThenBlocks(t *testing.T) {
	p, f := newTestPool(t, Options{MaxWorkers: 2})
	ctx := context.Background()

	w1, err := p.Acquire(ctx)
	require.NoError(t, err)
	w2, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NotSame(t, w1, w2)

	st := p.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 2, st.InUse)
	assert.Equal(t, 0, st.Available)

	got := make(chan Worker, 1)
	errc := make(chan error, 1)
	go func() {
		w, err := p.Acquire(ctx)
		if err != nil {
			errc <- err
			return
		}
		got <- w
	}()

	select {
	case <-got:
		t.Fatal("third acquire should block while the pool is at capacity")
	case err := <-errc:
		t.Fatalf("third acquire failed instead of blocking: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	p.Release(w1)

	var w3 Worker
	select {
	case w3 = <-got:
		assert.Same(t, w1, w3, "the waiter should receive the released worker, not a new one")
	case err := <-errc:
		t.Fatalf("blocked acquire failed: %v", err)
	case <-time.After(time.Second):
		t.Fatal("blocked acquire did not complete after a release")
	}
	assert.Equal(t, 2, f.launches(), "filling the waiter must not launch a new worker")

	p.Release(w3)
	st = p.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.InUse)
	assert.Equal(t, 1, st.Available)
	p.Release(w2)
}

func TestAcquire_MutualExclusion(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxWorkers: 2})
	ctx := context.Background()

	var mu sync.Mutex
	held := make(map[Worker]bool)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				w, err := p.Acquire(ctx)
				if err != nil {
					t.Errorf("acquire failed: %v", err)
					return
				}
				mu.Lock()
				if held[w] {
					mu.Unlock()
					t.Error("two callers hold the same worker at once")
					p.Release(w)
					return
				}
				held[w] = true
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				held[w] = false
				mu.Unlock()
				p.Release(w)
			}
		}()
	}
	wg.Wait()
}

func TestAcquire_CapacityInvariantUnderChurn(t *testing.T) {
	p, f := newTestPool(t, Options{MaxWorkers: 2})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				w, err := p.Acquire(ctx)
				if err != nil {
					t.Errorf("acquire failed: %v", err)
					return
				}
				if st := p.Stats(); st.Total > st.MaxWorkers {
					t.Errorf("capacity exceeded: total=%d max=%d", st.Total, st.MaxWorkers)
				}
				p.Release(w)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, f.launches(), 2, "healthy workers should be reused, not relaunched")
}

func TestAcquire_AllWaitersServed(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxWorkers: 1})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.With(ctx, func(Worker) error {
				time.Sleep(5 * time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiters starved: not every caller obtained the worker")
	}
}

func TestAcquire_ReplacesDeadIdleWorker(t *testing.T) {
	p, f := newTestPool(t, Options{MaxWorkers: 2})
	ctx := context.Background()

	w1, err := p.Acquire(ctx)
	require.NoError(t, err)
	p.Release(w1)

	w1.(*fakeWorker).setAlive(false)

	w2, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NotSame(t, w1, w2, "a dead worker must not be handed out again")
	assert.Equal(t, 2, f.launches())
	assert.True(t, w1.(*fakeWorker).isClosed(), "the dead worker should be closed on eviction")

	st := p.Stats()
	assert.Equal(t, 1, st.Total, "the replacement takes the dead worker's slot")
	assert.Equal(t, 1, st.InUse)
}

func TestAcquire_LaunchFailure(t *testing.T) {
	p, f := newTestPool(t, Options{MaxWorkers: 1})
	launchErr := errors.New("chromium not found")
	f.setErr(launchErr)

	_, err := p.Acquire(context.Background())
	require.ErrorIs(t, err, launchErr)
	assert.Equal(t, 0, p.Stats().Total, "a failed launch must not register a member")

	// The reserved capacity slot is handed back, so the next acquire
	// can launch instead of blocking forever.
	f.setErr(nil)
	w, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, 1, p.Stats().Total)
}

func TestAcquire_ContextCancelledWhileWaiting(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxWorkers: 1})

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned wait leaves no state behind: after a release the
	// worker is available to the next caller as usual.
	p.Release(w)
	w2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, w, w2)

	st := p.Stats()
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.InUse)
}

func TestAcquire_UnblocksWhenHeldWorkerCrashes(t *testing.T) {
	p, f := newTestPool(t, Options{MaxWorkers: 1})
	ctx := context.Background()

	w1, err := p.Acquire(ctx)
	require.NoError(t, err)

	got := make(chan Worker, 1)
	errc := make(chan error, 1)
	go func() {
		w, err := p.Acquire(ctx)
		if err != nil {
			errc <- err
			return
		}
		got <- w
	}()

	time.Sleep(50 * time.Millisecond) // let the waiter block
	w1.(*fakeWorker).disconnect()

	select {
	case w := <-got:
		require.NotSame(t, w1, w)
		assert.Equal(t, 2, f.launches())
	case err := <-errc:
		t.Fatalf("waiter failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter did not unblock after the held worker crashed")
	}
}

func TestDisconnect_RemovesIdleWorker(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxWorkers: 2})

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(w)

	w.(*fakeWorker).disconnect()

	require.Eventually(t, func() bool {
		return p.Stats().Total == 0
	}, time.Second, 10*time.Millisecond, "a disconnected worker should leave the pool")
}

func TestDisconnect_RemovesInUseWorker(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxWorkers: 2})

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)

	// Crash while checked out: the worker is removed without a release.
	w.(*fakeWorker).disconnect()

	require.Eventually(t, func() bool {
		st := p.Stats()
		return st.Total == 0 && st.InUse == 0
	}, time.Second, 10*time.Millisecond)

	// The stale handle coming back later must not resurrect anything.
	p.Release(w)
	assert.Equal(t, 0, p.Stats().InUse)
	assert.Equal(t, 0, p.Stats().Total)
}

func TestSweep_EvictsIdleWorker(t *testing.T) {
	p, _ := newTestPool(t, Options{
		MaxWorkers:    2,
		IdleTimeout:   40 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
	})

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(w)
	require.Equal(t, 1, p.Stats().Total)

	require.Eventually(t, func() bool {
		return p.Stats().Total == 0
	}, time.Second, 10*time.Millisecond, "an idle worker should be evicted after the idle timeout")
	assert.True(t, w.(*fakeWorker).isClosed())
}

func TestSweep_SparesInUseWorker(t *testing.T) {
	p, _ := newTestPool(t, Options{
		MaxWorkers:    2,
		IdleTimeout:   20 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
	})

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)

	// Hold the worker well past the idle timeout.
	time.Sleep(100 * time.Millisecond)

	st := p.Stats()
	assert.Equal(t, 1, st.Total, "a held worker is never swept, however old its stamp")
	assert.Equal(t, 1, st.InUse)
	assert.False(t, w.(*fakeWorker).isClosed())

	p.Release(w)
	require.Eventually(t, func() bool {
		return p.Stats().Total == 0
	}, time.Second, 10*time.Millisecond, "after release the idle clock starts and eviction follows")
}

func TestRelease_Idempotent(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxWorkers: 2})

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)

	p.Release(w)
	p.Release(w) // second release is a no-op

	st := p.Stats()
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 0, st.InUse)
	assert.Equal(t, 1, st.Available)
}

func TestRelease_UnknownWorker(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxWorkers: 2})

	p.Release(newFakeWorker()) // never acquired from this pool

	st := p.Stats()
	assert.Equal(t, 0, st.Total)
	assert.Equal(t, 0, st.InUse)
}

func TestRelease_ClosesStrayPages(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxWorkers: 1})

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)

	pages := w.(*fakeWorker).addPages(3)
	p.Release(w)

	assert.False(t, pages[0].isClosed(), "the initial tab stays open")
	assert.True(t, pages[1].isClosed())
	assert.True(t, pages[2].isClosed())
}

func TestWith_ReleasesOnError(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxWorkers: 1})
	boom := errors.New("boom")

	err := p.With(context.Background(), func(Worker) error { return boom })
	require.ErrorIs(t, err, boom)

	st := p.Stats()
	assert.Equal(t, 0, st.InUse, "the worker must be released even when the work fails")
	assert.Equal(t, 1, st.Available)
}

func TestRun_ReturnsResultAndReleases(t *testing.T) {
	p, _ := newTestPool(t, Options{MaxWorkers: 1})

	n, err := Run(context.Background(), p, func(Worker) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, 0, p.Stats().InUse)
}

func TestShutdown_ClosesEverything(t *testing.T) {
	p, f := newTestPool(t, Options{MaxWorkers: 3})
	ctx := context.Background()

	_, err := p.Acquire(ctx)
	require.NoError(t, err)
	w2, err := p.Acquire(ctx)
	require.NoError(t, err)
	p.Release(w2) // one worker in use, one idle

	p.Shutdown()

	st := p.Stats()
	assert.Equal(t, 0, st.Total)
	assert.Equal(t, 0, st.InUse)
	for _, w := range f.all() {
		assert.True(t, w.isClosed(), "every worker is closed on shutdown")
	}

	_, err = p.Acquire(ctx)
	require.ErrorIs(t, err, ErrClosed)

	p.Shutdown() // second call is a no-op
}

func TestShutdown_StopsSweep(t *testing.T) {
	p, f := newTestPool(t, Options{
		MaxWorkers:    1,
		IdleTimeout:   30 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
	})

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(w)
	p.Shutdown()

	// Wait past the idle timeout: nothing else may happen after
	// shutdown, the worker was closed exactly once by shutdown itself.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, p.Stats().Total)
	assert.Equal(t, 1, f.launches())
	assert.True(t, w.(*fakeWorker).isClosed())
}
