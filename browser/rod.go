package browser

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/nipunrajk/accessiblity-sub002/config"
)

// livenessTimeout bounds the round-trip used by Alive so a wedged
// browser cannot stall its caller.
const livenessTimeout = 3 * time.Second

// RodWorker is a Worker backed by a Chromium process driven over the
// DevTools protocol.
type RodWorker struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	disc     chan struct{}
	once     sync.Once
	closeErr error
}

// NewFactory returns a Factory that launches Chromium with the given
// configuration. Every factory call starts a fresh process.
func NewFactory(cfg config.BrowserConfig) Factory {
	return func() (Worker, error) {
		w, err := launchRod(cfg)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}

func launchRod(cfg config.BrowserConfig) (*RodWorker, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	// Keep headless Chromium stable and quiet in containers, and less
	// obviously automated to the pages it visits.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, err
	}

	w := &RodWorker{browser: b, launcher: l, disc: make(chan struct{})}

	// The event stream ends when the CDP connection drops, whether the
	// process crashed or Close ran. Either way the worker is done.
	go func() {
		for range b.Event() {
		}
		close(w.disc)
	}()

	return w, nil
}

// Browser exposes the underlying rod handle so callers can open pages
// and drive the protocol directly.
func (w *RodWorker) Browser() *rod.Browser {
	return w.browser
}

// Alive reports whether the browser still answers protocol calls.
func (w *RodWorker) Alive() bool {
	ctx, cancel := context.WithTimeout(context.Background(), livenessTimeout)
	defer cancel()
	_, err := w.browser.Context(ctx).Version()
	return err == nil
}

// Pages lists the browser's open tabs.
func (w *RodWorker) Pages() ([]Page, error) {
	pages, err := w.browser.Pages()
	if err != nil {
		return nil, err
	}
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p
	}
	return out, nil
}

// Disconnected reports unsolicited connection loss.
func (w *RodWorker) Disconnected() <-chan struct{} {
	return w.disc
}

// Close shuts the browser down and reaps the process. Only the first
// call does the work; the graceful close is followed by a kill so the
// process dies even when the protocol connection is already gone.
func (w *RodWorker) Close() error {
	w.once.Do(func() {
		w.closeErr = w.browser.Close()
		w.launcher.Kill()
		w.launcher.Cleanup()
	})
	return w.closeErr
}
