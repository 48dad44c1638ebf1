package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<!DOCTYPE html>
<html lang="en">
<head><title>Release Notes</title></head>
<body>
<nav><a href="/">Home</a><a href="/docs">Docs</a></nav>
<article>
<h1>Release Notes</h1>
<p>This release focuses on stability. The worker pool now survives browser
crashes without leaking processes, and idle browsers are shut down after a
configurable timeout to keep memory usage flat.</p>
<p>Upgrading requires no configuration changes. Existing deployments pick up
the new defaults automatically on restart.</p>
</article>
<footer>Copyright</footer>
</body>
</html>`

func TestSummarize_ExtractsMainContent(t *testing.T) {
	e := NewExtractor()
	got := e.Summarize(articlePage, "https://example.com/notes")

	require.NotEmpty(t, got)
	assert.Contains(t, got, "Release Notes")
	assert.Contains(t, got, "worker pool")
	assert.NotContains(t, got, "<p>", "summary should be markdown, not HTML")
}

func TestSummarize_ShortPageFallsBackToWholeDocument(t *testing.T) {
	e := NewExtractor()
	got := e.Summarize(`<html lang="en"><head><title>T</title></head><body><p>Tiny.</p></body></html>`,
		"https://example.com/")

	assert.Contains(t, got, "Tiny.")
}

func TestSummarize_TruncatesLongContent(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html lang="en"><head><title>Long</title></head><body><article><h1>Long</h1>`)
	for i := 0; i < 200; i++ {
		b.WriteString("<p>A paragraph with enough words to keep the readability checker satisfied about length.</p>")
	}
	b.WriteString("</article></body></html>")

	e := NewExtractor()
	got := e.Summarize(b.String(), "https://example.com/long")

	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len([]rune(got)), maxSummaryRunes+3, "summary must be truncated")
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "", truncate("", 10))
}
