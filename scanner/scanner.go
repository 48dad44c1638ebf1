// Package scanner drives pooled browser workers through the
// navigate → render → extract pipeline that feeds the accessibility
// audit and the screenshot endpoint.
package scanner

import (
	"github.com/nipunrajk/accessiblity-sub002/browser"
	"github.com/nipunrajk/accessiblity-sub002/config"
	"github.com/nipunrajk/accessiblity-sub002/models"
)

// Scanner renders pages on browsers borrowed from the worker pool.
// It is safe for concurrent use; concurrency is bounded by the pool.
type Scanner struct {
	pool       *browser.Pool
	browserCfg config.BrowserConfig
	scanCfg    config.ScanConfig
}

// New creates a Scanner on top of an already-running worker pool.
func New(pool *browser.Pool, browserCfg config.BrowserConfig, scanCfg config.ScanConfig) *Scanner {
	return &Scanner{
		pool:       pool,
		browserCfg: browserCfg,
		scanCfg:    scanCfg,
	}
}

// Stats returns a snapshot of the worker pool's current state.
func (s *Scanner) Stats() models.PoolStats {
	st := s.pool.Stats()
	return models.PoolStats{
		Total:      st.Total,
		InUse:      st.InUse,
		Idle:       st.Available,
		MaxWorkers: st.MaxWorkers,
	}
}
