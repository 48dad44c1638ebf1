package models

// Severity levels for audit findings, ordered from least to most severe.
const (
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeveritySerious  = "serious"
	SeverityCritical = "critical"
)

// SeverityRank maps a severity name to its ordering weight.
// Unknown severities rank below minor.
func SeverityRank(s string) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeveritySerious:
		return 3
	case SeverityModerate:
		return 2
	case SeverityMinor:
		return 1
	}
	return 0
}

// Issue is a single accessibility finding on the scanned page.
type Issue struct {
	// Rule is the stable identifier of the check that produced the finding.
	Rule string `json:"rule"`

	// Severity is one of "critical", "serious", "moderate", "minor".
	Severity string `json:"severity"`

	// Message describes what is wrong and what the fix looks like.
	Message string `json:"message"`

	// Selector locates the offending element, e.g. "img:nth-of-type(3)".
	Selector string `json:"selector,omitempty"`

	// Snippet is the offending element's outer HTML, truncated.
	Snippet string `json:"snippet,omitempty"`
}

// IssueCounts tallies findings per severity.
type IssueCounts struct {
	Critical int `json:"critical"`
	Serious  int `json:"serious"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
	Total    int `json:"total"`
}

// ScanResponse is the response for POST /api/v1/scan.
type ScanResponse struct {
	// Success indicates whether the scan completed without errors.
	// A page full of accessibility issues is still a successful scan.
	Success bool `json:"success"`

	// StatusCode is the HTTP status code from the scanned page.
	StatusCode int `json:"status_code"`

	// FinalURL is the URL after following all redirects.
	FinalURL string `json:"final_url"`

	// Metadata contains basic page information captured during the scan.
	Metadata Metadata `json:"metadata"`

	// Issues lists the findings, most severe first.
	Issues []Issue `json:"issues"`

	// Counts tallies the findings per severity.
	Counts IssueCounts `json:"counts"`

	// Summary is a readable extract of the page's main content.
	// Populated only when the request set include_summary.
	Summary string `json:"summary,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching disabled).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// Metadata holds page-level information captured during the scan.
type Metadata struct {
	Title     string `json:"title"`
	Language  string `json:"language,omitempty"`
	SourceURL string `json:"source_url"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// NavigationMs is the time spent navigating and rendering the page.
	NavigationMs int64 `json:"navigation_ms"`

	// AuditMs is the time spent running the accessibility checks.
	AuditMs int64 `json:"audit_ms"`
}

// ScreenshotResponse is the response for POST /api/v1/screenshot.
type ScreenshotResponse struct {
	Success bool `json:"success"`

	// Data is the captured PNG, base64-encoded.
	Data string `json:"data,omitempty"`

	// FinalURL is the URL after following all redirects.
	FinalURL string `json:"final_url,omitempty"`

	Timing TimingInfo `json:"timing"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser worker pool.
type PoolStats struct {
	Total      int `json:"total"`
	InUse      int `json:"in_use"`
	Idle       int `json:"idle"`
	MaxWorkers int `json:"max_workers"`
}
