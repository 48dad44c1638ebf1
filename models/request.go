package models

// ScanRequest is the payload for POST /api/v1/scan.
type ScanRequest struct {
	// URL is the target page to audit. Required.
	URL string `json:"url" binding:"required,url"`

	// Timeout is the maximum duration in seconds for the entire
	// scan operation (navigation + rendering + audit).
	// Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// Rules restricts the audit to the named rule IDs.
	// Empty means every registered rule runs.
	Rules []string `json:"rules,omitempty"`

	// Scope is a CSS selector limiting the audit to matching containers,
	// e.g. "main" to skip chrome shared across every page of a site.
	Scope string `json:"scope,omitempty"`

	// Severity drops findings below the given level from the response.
	// Allowed: "minor" (default, keep everything), "moderate", "serious", "critical".
	Severity string `json:"severity,omitempty" binding:"omitempty,oneof=minor moderate serious critical"`

	// Stealth enables anti-bot-detection evasions (e.g. navigator.webdriver masking)
	// for pages that block headless browsers.
	// Default: false.
	Stealth bool `json:"stealth,omitempty"`

	// Headers are extra HTTP headers sent with the navigation request.
	Headers map[string]string `json:"headers,omitempty"`

	// IncludeSummary attaches a readable text summary of the page's main
	// content to the response, useful for reviewing findings in context.
	// Default: false.
	IncludeSummary bool `json:"include_summary,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ScanRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 30
	}
	if r.Severity == "" {
		r.Severity = "minor"
	}
}

// ScreenshotRequest is the payload for POST /api/v1/screenshot.
type ScreenshotRequest struct {
	// URL is the target page to capture. Required.
	URL string `json:"url" binding:"required,url"`

	// FullPage captures the entire scrollable page instead of the viewport.
	// Default: false.
	FullPage bool `json:"full_page,omitempty"`

	// Timeout is the maximum duration in seconds for the capture.
	// Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`
}

// Defaults applies default values to unset fields.
func (r *ScreenshotRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 30
	}
}
