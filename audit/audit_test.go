package audit

import (
	"fmt"
	"testing"

	"github.com/nipunrajk/accessiblity-sub002/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// page wraps a body fragment in a document that passes the
// document-level rules, so tests see only the rule under test.
func page(body string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html lang="en"><head><title>Fixture</title><meta name="viewport" content="width=device-width, initial-scale=1"></head><body>%s</body></html>`, body)
}

func runRule(t *testing.T, rawHTML, rule string) []models.Issue {
	t.Helper()
	issues, err := New().Run(rawHTML, Options{Rules: []string{rule}})
	require.NoError(t, err)
	return issues
}

func TestRules_Detection(t *testing.T) {
	tests := []struct {
		name string
		rule string
		body string
		hits int
	}{
		{"img without alt", "img-alt", `<img src="a.png">`, 1},
		{"img with alt", "img-alt", `<img src="a.png" alt="logo">`, 0},
		{"img with empty alt is decorative", "img-alt", `<img src="a.png" alt="">`, 0},
		{"img with presentation role", "img-alt", `<img src="a.png" role="presentation">`, 0},
		{"two bare images", "img-alt", `<img src="a.png"><img src="b.png">`, 2},

		{"button without text", "button-name", `<button></button>`, 1},
		{"button with text", "button-name", `<button>Save</button>`, 0},
		{"button with aria-label", "button-name", `<button aria-label="Save"></button>`, 0},
		{"button named by child image", "button-name", `<button><img src="i.png" alt="Save"></button>`, 0},
		{"input button without value", "button-name", `<input type="button">`, 1},
		{"input button with value", "button-name", `<input type="button" value="Go">`, 0},

		{"input without label", "input-label", `<input type="text" name="q">`, 1},
		{"input with matching label", "input-label", `<label for="q">Query</label><input type="text" id="q">`, 0},
		{"input wrapped in label", "input-label", `<label>Query <input type="text"></label>`, 0},
		{"input with aria-label", "input-label", `<input type="text" aria-label="Query">`, 0},
		{"hidden input is exempt", "input-label", `<input type="hidden" name="token">`, 0},
		{"select without label", "input-label", `<select name="c"><option>x</option></select>`, 1},
		{"textarea without label", "input-label", `<textarea name="msg"></textarea>`, 1},

		{"link without text", "link-name", `<a href="/about"></a>`, 1},
		{"link with text", "link-name", `<a href="/about">About</a>`, 0},
		{"link named by child image", "link-name", `<a href="/"><img src="logo.png" alt="Home"></a>`, 0},
		{"anchor without href is exempt", "link-name", `<a name="top"></a>`, 0},

		{"iframe without title", "frame-title", `<iframe src="/embed"></iframe>`, 1},
		{"iframe with title", "frame-title", `<iframe src="/embed" title="Player"></iframe>`, 0},

		{"heading skip", "heading-order", `<h1>A</h1><h3>B</h3>`, 1},
		{"headings in order", "heading-order", `<h1>A</h1><h2>B</h2><h3>C</h3>`, 0},
		{"heading going back up", "heading-order", `<h1>A</h1><h2>B</h2><h1>C</h1>`, 0},

		{"duplicate id", "duplicate-id", `<div id="x"></div><span id="x"></span>`, 1},
		{"triple id flags two", "duplicate-id", `<div id="x"></div><span id="x"></span><p id="x"></p>`, 2},
		{"unique ids", "duplicate-id", `<div id="x"></div><span id="y"></span>`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := runRule(t, page(tt.body), tt.rule)
			assert.Len(t, issues, tt.hits)
		})
	}
}

func TestRules_DocumentLevel(t *testing.T) {
	t.Run("missing lang", func(t *testing.T) {
		issues := runRule(t, `<!DOCTYPE html><html><head><title>T</title></head><body></body></html>`, "html-lang")
		require.Len(t, issues, 1)
		assert.Equal(t, "html-lang", issues[0].Rule)
		assert.Equal(t, models.SeveritySerious, issues[0].Severity)
	})
	t.Run("lang present", func(t *testing.T) {
		assert.Empty(t, runRule(t, page(""), "html-lang"))
	})
	t.Run("missing title", func(t *testing.T) {
		issues := runRule(t, `<html lang="en"><head></head><body></body></html>`, "document-title")
		assert.Len(t, issues, 1)
	})
	t.Run("blank title", func(t *testing.T) {
		issues := runRule(t, `<html lang="en"><head><title>   </title></head><body></body></html>`, "document-title")
		assert.Len(t, issues, 1)
	})
	t.Run("title present", func(t *testing.T) {
		assert.Empty(t, runRule(t, page(""), "document-title"))
	})
	t.Run("zoom-blocking viewport", func(t *testing.T) {
		html := `<html lang="en"><head><title>T</title><meta name="viewport" content="width=device-width, user-scalable=no"></head><body></body></html>`
		issues := runRule(t, html, "meta-viewport")
		assert.Len(t, issues, 1)
	})
}

func TestViewportBlocksZoom(t *testing.T) {
	tests := []struct {
		content string
		blocked bool
	}{
		{"width=device-width, initial-scale=1", false},
		{"width=device-width, user-scalable=no", true},
		{"user-scalable=0", true},
		{"maximum-scale=1", true},
		{"maximum-scale=1.0", true},
		{"maximum-scale=5", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := viewportBlocksZoom(tt.content); got != tt.blocked {
			t.Errorf("viewportBlocksZoom(%q) = %v, want %v", tt.content, got, tt.blocked)
		}
	}
}

func TestRun_IssueDetails(t *testing.T) {
	issues := runRule(t, page(`<div><img src="a.png"><img src="b.png" alt="ok"><img src="c.png"></div>`), "img-alt")
	require.Len(t, issues, 2)

	assert.Equal(t, "img-alt", issues[0].Rule)
	assert.Equal(t, models.SeverityCritical, issues[0].Severity)
	assert.Equal(t, "html > body > div > img:nth-of-type(1)", issues[0].Selector)
	assert.Contains(t, issues[0].Snippet, `src="a.png"`)
	assert.Equal(t, "html > body > div > img:nth-of-type(3)", issues[1].Selector)
}

func TestRun_SortsBySeverity(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>T</title></head><body>` +
		`<div id="d"></div><div id="d"></div><h1>A</h1><h3>B</h3><img src="x.png"></body></html>`

	issues, err := New().Run(html, Options{})
	require.NoError(t, err)
	require.Len(t, issues, 4)
	assert.Equal(t, "img-alt", issues[0].Rule)
	assert.Equal(t, "html-lang", issues[1].Rule)
	assert.Equal(t, "heading-order", issues[2].Rule)
	assert.Equal(t, "duplicate-id", issues[3].Rule)
}

func TestRun_MinSeverity(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>T</title></head><body>` +
		`<div id="d"></div><div id="d"></div><h1>A</h1><h3>B</h3><img src="x.png"></body></html>`

	issues, err := New().Run(html, Options{MinSeverity: models.SeveritySerious})
	require.NoError(t, err)
	require.Len(t, issues, 2)
	for _, is := range issues {
		assert.GreaterOrEqual(t,
			models.SeverityRank(is.Severity), models.SeverityRank(models.SeveritySerious))
	}
}

func TestRun_Scope(t *testing.T) {
	html := page(`<main><img src="in.png"></main><aside><img src="out.png"></aside>`)

	issues, err := New().Run(html, Options{Scope: "main"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Snippet, "in.png")
}

func TestRun_BadScopeSelector(t *testing.T) {
	_, err := New().Run(page(""), Options{Scope: "main >"})
	require.Error(t, err)
}

func TestRun_UnknownRule(t *testing.T) {
	_, err := New().Run(page(""), Options{Rules: []string{"no-such-rule"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-rule")
}

func TestCount(t *testing.T) {
	issues := []models.Issue{
		{Severity: models.SeverityCritical},
		{Severity: models.SeverityCritical},
		{Severity: models.SeveritySerious},
		{Severity: models.SeverityMinor},
	}
	c := Count(issues)
	assert.Equal(t, 2, c.Critical)
	assert.Equal(t, 1, c.Serious)
	assert.Equal(t, 0, c.Moderate)
	assert.Equal(t, 1, c.Minor)
	assert.Equal(t, 4, c.Total)
}
