// Package browser maintains a bounded pool of headless browser processes.
//
// Launching a browser costs seconds of CPU and hundreds of megabytes of
// memory, so the pool reuses processes across requests: callers borrow a
// worker, drive it, and hand it back. The pool caps the number of live
// processes, evicts workers that sit idle too long, and discards workers
// that crash or stop responding.
package browser

// Worker is an opaque handle to one externally launched browser process.
// The pool relies only on this contract and never inspects the process
// behind it.
type Worker interface {
	// Alive reports whether the process still responds to commands.
	Alive() bool

	// Pages lists the worker's open pages. The first entry is the
	// initial tab the process was started with.
	Pages() ([]Page, error)

	// Disconnected returns a channel that is closed, at most once, when
	// the process drops its connection outside the pool's control
	// (crash, external kill). The channel also closes on a normal
	// Close.
	Disconnected() <-chan struct{}

	// Close terminates the process. Idempotent; closing an already-dead
	// worker is not an error worth acting on.
	Close() error
}

// Page is one open tab belonging to a Worker.
type Page interface {
	Close() error
}

// Factory launches a new worker process. Launch configuration (binary
// path, flags, proxy) is captured by the factory itself; the pool treats
// worker creation as opaque.
type Factory func() (Worker, error)
