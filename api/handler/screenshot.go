package handler

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nipunrajk/accessiblity-sub002/metrics"
	"github.com/nipunrajk/accessiblity-sub002/models"
	"github.com/nipunrajk/accessiblity-sub002/scanner"
)

// Screenshot returns a handler for POST /api/v1/screenshot.
//
// The captured PNG is returned base64-encoded inside a JSON envelope so the
// response shape matches every other endpoint and survives JSON-only
// transports like the MCP bridge.
func Screenshot(sc *scanner.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ScreenshotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScreenshotResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		result, err := sc.Screenshot(c.Request.Context(), &req)
		if err != nil {
			metrics.ObserveScan("screenshot", "error", time.Since(totalStart))

			scanErr, ok := err.(*models.ScanError)
			if !ok {
				scanErr = models.NewScanError(models.ErrCodeInternal, err.Error(), err)
			}
			c.JSON(mapErrorToStatus(scanErr), models.ScreenshotResponse{
				Success: false,
				Error:   scanErr.ToDetail(),
				Timing: models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				},
			})
			return
		}

		metrics.ObserveScan("screenshot", "success", time.Since(totalStart))

		c.JSON(http.StatusOK, models.ScreenshotResponse{
			Success:  true,
			Data:     base64.StdEncoding.EncodeToString(result.PNG),
			FinalURL: result.FinalURL,
			Timing: models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			},
		})
	}
}
