package scanner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/nipunrajk/accessiblity-sub002/browser"
	"github.com/nipunrajk/accessiblity-sub002/models"
	"github.com/ysmood/gson"
)

// Render fetches a page on a pooled browser and returns the rendered
// document plus the metadata the audit needs.
//
// Lifecycle (numbered steps match the inline comments in renderOn):
//
//  1. Timeout guard      – hard deadline on the entire operation
//  2. Borrow a worker    – blocks until the pool has capacity
//  3. Open a fresh tab   – one tab per request, closed on the way out
//  4. Stealth injection  – mask navigator.webdriver etc. (before navigation!)
//  5. Extra headers      – custom headers for the navigation request
//  6. Viewport           – fixed desktop metrics so audits are reproducible
//  7. Navigate + settle  – page load bounded by the navigation timeout
//  8. Extract            – status code, rendered HTML, title, lang, final URL
//
// The stealth script only takes effect for navigations that happen after it
// is installed, so step 4 must precede step 7.
func (s *Scanner) Render(ctx context.Context, req *models.ScanRequest) (*RenderResult, error) {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	timeout := time.Duration(req.Timeout) * time.Second
	if timeout > s.scanCfg.MaxTimeout {
		timeout = s.scanCfg.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// ── 2. Borrow a worker from the pool ─────────────────────────────
	result, err := browser.Run(ctx, s.pool, func(w browser.Worker) (*RenderResult, error) {
		return s.renderOn(ctx, w, req)
	})
	if err != nil {
		return nil, mapPoolError(err)
	}
	return result, nil
}

// renderOn runs the per-page part of Render on an already-borrowed worker.
func (s *Scanner) renderOn(ctx context.Context, w browser.Worker, req *models.ScanRequest) (*RenderResult, error) {
	rw, ok := w.(*browser.RodWorker)
	if !ok {
		return nil, models.NewScanError(models.ErrCodeInternal, "pooled worker is not a browser", nil)
	}

	// ── 3. Open a fresh tab ───────────────────────────────────────────
	page, err := rw.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScanError(
			models.ErrCodeBrowserCrash,
			"failed to open page on pooled browser",
			err,
		)
	}
	// The original page reference carries no request context, so the
	// close still succeeds after the deadline has expired.
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to close page", "error", closeErr)
		}
	}()

	// ── 4. Stealth injection ──────────────────────────────────────────
	if req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 5. Extra headers ──────────────────────────────────────────────
	if len(req.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(req.Headers),
		}.Call(page)
	}

	// ── 6. Viewport ───────────────────────────────────────────────────
	if viewErr := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.browserCfg.ViewportWidth,
		Height:            s.browserCfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); viewErr != nil {
		slog.Warn("failed to set viewport", "error", viewErr)
	}

	// ── 7. Navigate and wait for the DOM to settle ────────────────────
	p := page.Context(ctx)
	nav := p.Timeout(s.scanCfg.NavigationTimeout)
	if navErr := nav.Navigate(req.URL); navErr != nil {
		return nil, categorizeError(navErr, models.ErrCodeNavigation, "navigation to target URL failed")
	}
	if stableErr := nav.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("DOM did not stabilise, proceeding with current state",
			"url", req.URL, "error", stableErr,
		)
	}

	// ── 8a. Status code via the Performance API (best-effort) ────────
	// performance.getEntriesByType("navigation") exposes the HTTP status
	// without CDP event listeners, which would have to be registered
	// before navigation and conflict with the Fetch domain on newer
	// Chromium builds.
	statusCode := 0
	if res, evalErr := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); evalErr == nil {
		statusCode = res.Value.Int()
	}

	// ── 8b. Extract the rendered document ────────────────────────────
	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, models.ErrCodeExtraction, "failed to extract rendered HTML")
	}

	// ── 8c. Page metadata (best-effort) ──────────────────────────────
	title := evalStringOrEmpty(p, `() => document.title`)
	language := evalStringOrEmpty(p, `() => document.documentElement.lang`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &RenderResult{
		HTML:       rawHTML,
		Title:      title,
		Language:   language,
		StatusCode: statusCode,
		FinalURL:   finalURL,
	}, nil
}

// Screenshot captures a PNG of the page, either the viewport or the full
// scrollable height. Same borrow/navigate lifecycle as Render.
func (s *Scanner) Screenshot(ctx context.Context, req *models.ScreenshotRequest) (*ScreenshotResult, error) {
	timeout := time.Duration(req.Timeout) * time.Second
	if timeout > s.scanCfg.MaxTimeout {
		timeout = s.scanCfg.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := browser.Run(ctx, s.pool, func(w browser.Worker) (*ScreenshotResult, error) {
		return s.captureOn(ctx, w, req)
	})
	if err != nil {
		return nil, mapPoolError(err)
	}
	return result, nil
}

// captureOn runs the per-page part of Screenshot on a borrowed worker.
func (s *Scanner) captureOn(ctx context.Context, w browser.Worker, req *models.ScreenshotRequest) (*ScreenshotResult, error) {
	rw, ok := w.(*browser.RodWorker)
	if !ok {
		return nil, models.NewScanError(models.ErrCodeInternal, "pooled worker is not a browser", nil)
	}

	page, err := rw.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScanError(
			models.ErrCodeBrowserCrash,
			"failed to open page on pooled browser",
			err,
		)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to close page", "error", closeErr)
		}
	}()

	if viewErr := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.browserCfg.ViewportWidth,
		Height:            s.browserCfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); viewErr != nil {
		slog.Warn("failed to set viewport", "error", viewErr)
	}

	p := page.Context(ctx)
	nav := p.Timeout(s.scanCfg.NavigationTimeout)
	if navErr := nav.Navigate(req.URL); navErr != nil {
		return nil, categorizeError(navErr, models.ErrCodeNavigation, "navigation to target URL failed")
	}
	if stableErr := nav.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("DOM did not stabilise, capturing current state",
			"url", req.URL, "error", stableErr,
		)
	}

	bin, shotErr := p.Screenshot(req.FullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if shotErr != nil {
		return nil, categorizeError(shotErr, models.ErrCodeExtraction, "failed to capture screenshot")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &ScreenshotResult{
		PNG:      bin,
		FinalURL: finalURL,
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScanErrors so the API layer
// can map them to appropriate HTTP status codes. Context expiry always wins
// over the fallback code: a navigation that died because the deadline passed
// is a timeout, not a navigation failure.
func categorizeError(err error, code, msg string) *models.ScanError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScanError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScanError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScanError(code, msg, err)
	}
}

// mapPoolError translates worker acquisition failures into coded errors.
// Errors raised inside the borrow callback are already coded and pass
// through unchanged.
func mapPoolError(err error) *models.ScanError {
	var scanErr *models.ScanError
	if errors.As(err, &scanErr) {
		return scanErr
	}
	if errors.Is(err, browser.ErrClosed) {
		return models.NewScanError(models.ErrCodeBrowserUnavailable, "browser pool is shut down", err)
	}
	return categorizeError(err, models.ErrCodeBrowserUnavailable, "failed to acquire a browser worker")
}
