package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nipunrajk/accessiblity-sub002/audit"
	"github.com/nipunrajk/accessiblity-sub002/cache"
	"github.com/nipunrajk/accessiblity-sub002/content"
	"github.com/nipunrajk/accessiblity-sub002/metrics"
	"github.com/nipunrajk/accessiblity-sub002/models"
	"github.com/nipunrajk/accessiblity-sub002/scanner"
)

// Scan returns a handler for POST /api/v1/scan.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup (keyed on the audit-relevant request fields).
//  3. Scanner.Render → rendered HTML + page metadata  (records navigation_ms)
//  4. Auditor.Run    → issues + per-severity counts   (records audit_ms)
//  5. Optional content summary, fill Timing, cache store, return 200.
func Scan(sc *scanner.Scanner, au *audit.Auditor, ex *content.Extractor, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScanResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		// ── 2. Cache lookup ─────────────────────────────────────────
		cacheKey := cache.Key(&req)
		if cached, hit := cc.Get(cacheKey); hit {
			metrics.ObserveCache("hit")
			cached.CacheStatus = "hit"
			cached.Timing = models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			}
			c.JSON(http.StatusOK, cached)
			return
		}
		metrics.ObserveCache("miss")

		// ── 3. Render ───────────────────────────────────────────────
		navStart := time.Now()
		page, err := sc.Render(c.Request.Context(), &req)
		navigationMs := time.Since(navStart).Milliseconds()

		if err != nil {
			metrics.ObserveScan("scan", "error", time.Since(totalStart))
			respondError(c, err, models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
			})
			return
		}

		// ── 4. Audit ────────────────────────────────────────────────
		auditStart := time.Now()
		issues, err := au.Run(page.HTML, audit.Options{
			Rules:       req.Rules,
			MinSeverity: req.Severity,
			Scope:       req.Scope,
		})
		auditMs := time.Since(auditStart).Milliseconds()

		if err != nil {
			// Bad scope selector or unknown rule id, so this is the caller's input.
			metrics.ObserveScan("scan", "error", time.Since(totalStart))
			respondError(c,
				models.NewScanError(models.ErrCodeInvalidInput, err.Error(), err),
				models.TimingInfo{
					TotalMs:      time.Since(totalStart).Milliseconds(),
					NavigationMs: navigationMs,
					AuditMs:      auditMs,
				})
			return
		}
		counts := audit.Count(issues)

		// ── 5. Assemble response ────────────────────────────────────
		resp := &models.ScanResponse{
			Success:    true,
			StatusCode: page.StatusCode,
			FinalURL:   page.FinalURL,
			Metadata: models.Metadata{
				Title:     page.Title,
				Language:  page.Language,
				SourceURL: req.URL,
			},
			Issues: issues,
			Counts: counts,
			Timing: models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
				AuditMs:      auditMs,
			},
		}
		if req.IncludeSummary {
			resp.Summary = ex.Summarize(page.HTML, page.FinalURL)
		}

		// ── 6. Cache store + metrics ────────────────────────────────
		cc.Set(cacheKey, resp)
		resp.CacheStatus = "miss"

		metrics.ObserveScan("scan", "success", time.Since(totalStart))
		metrics.ObserveIssues(counts.Critical, counts.Serious, counts.Moderate, counts.Minor)

		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a ScanError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	scanErr, ok := err.(*models.ScanError)
	if !ok {
		scanErr = models.NewScanError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scanErr), models.ScanResponse{
		Success: false,
		Error:   scanErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScanError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeExtraction:
		return http.StatusBadGateway // 502
	case models.ErrCodeBrowserCrash, models.ErrCodeBrowserUnavailable:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
