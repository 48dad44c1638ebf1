package scanner

// RenderResult is the outcome of driving a page to a stable rendered state.
type RenderResult struct {
	// HTML is the rendered document, serialized after scripts have run.
	HTML string

	// Title is the evaluated document.title.
	Title string

	// Language is the lang attribute of the root element, if any.
	Language string

	// StatusCode is the HTTP status of the navigation, 0 when unknown.
	StatusCode int

	// FinalURL is the address after following all redirects.
	FinalURL string
}

// ScreenshotResult is a captured page image.
type ScreenshotResult struct {
	// PNG is the raw image data.
	PNG []byte

	// FinalURL is the address after following all redirects.
	FinalURL string
}
