// Package content produces a readable summary of a scanned page's main
// content, so audit findings can be reviewed without opening the page.
package content

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum extracted text length (in characters)
// for readability output to be trusted. Below this threshold we assume
// the algorithm failed to locate the main content and summarize the
// whole document instead.
const minContentLength = 50

// maxSummaryRunes caps the summary attached to a scan response.
const maxSummaryRunes = 1200

// Extractor turns rendered HTML into a short markdown summary. It is
// goroutine-safe; one instance serves all requests.
type Extractor struct {
	conv *converter.Converter
}

// NewExtractor builds an Extractor with a converter tuned for compact,
// readable output: tables keep their structure with minimal padding,
// scripts, styles and other non-content tags are stripped.
func NewExtractor() *Extractor {
	return &Extractor{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Summarize extracts the page's main content and converts it to
// markdown, truncated to a review-friendly length. sourceURL resolves
// relative links. Failures degrade to an empty summary rather than an
// error: a missing summary must never fail a scan.
func (e *Extractor) Summarize(rawHTML, sourceURL string) string {
	md, err := e.conv.ConvertString(mainContent(rawHTML, sourceURL), converter.WithDomain(sourceURL))
	if err != nil {
		slog.Warn("summary conversion failed", "url", sourceURL, "error", err)
		return ""
	}
	return truncate(strings.TrimSpace(md), maxSummaryRunes)
}

// mainContent runs the Mozilla Readability algorithm on rawHTML and
// returns the main body HTML, or the whole document when readability
// fails or finds too little to trust.
func mainContent(rawHTML, sourceURL string) string {
	parsed, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("invalid source URL, summarizing the whole page", "url", sourceURL, "error", err)
		return rawHTML
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsed)
	if err != nil {
		slog.Warn("readability failed, summarizing the whole page", "url", sourceURL, "error", err)
		return rawHTML
	}
	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		return rawHTML
	}
	return article.Content
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
