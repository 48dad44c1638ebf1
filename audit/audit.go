// Package audit runs static accessibility checks against rendered HTML.
//
// The checks are a pragmatic subset of the WCAG-derived rules automated
// scanners agree on: text alternatives, labels, document metadata,
// heading structure, and zoom restrictions. Each finding carries a CSS
// path and an HTML snippet so the offending element can be located in
// the page source.
package audit

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/nipunrajk/accessiblity-sub002/models"
	"golang.org/x/net/html"
)

// maxSnippetLen caps the rendered outer HTML attached to a finding.
const maxSnippetLen = 240

// Options narrow an audit run.
type Options struct {
	// Rules restricts the audit to the named rule IDs. Empty runs all.
	Rules []string

	// MinSeverity drops findings below the given level. Empty keeps all.
	MinSeverity string

	// Scope is a CSS selector. When set, only findings on elements
	// inside a matching container are reported; document-level rules
	// drop out unless the scope covers them.
	Scope string
}

// Auditor applies a fixed rule set to documents. It holds no per-run
// state, so one instance serves all requests concurrently.
type Auditor struct {
	rules []Rule
}

// New returns an Auditor with the built-in rule set.
func New() *Auditor {
	return &Auditor{rules: builtinRules()}
}

// RuleIDs lists the registered rule identifiers in registration order.
func (a *Auditor) RuleIDs() []string {
	ids := make([]string, len(a.rules))
	for i, r := range a.rules {
		ids[i] = r.ID
	}
	return ids
}

// Run parses rendered HTML and returns its findings, most severe first.
// Unknown rule IDs in opts.Rules and unparsable scope selectors are
// reported as errors; a malformed document is not (the HTML5 parser
// always produces a tree).
func (a *Auditor) Run(rawHTML string, opts Options) ([]models.Issue, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	var scope []*html.Node
	if opts.Scope != "" {
		sel, err := cascadia.Parse(opts.Scope)
		if err != nil {
			return nil, fmt.Errorf("invalid scope selector %q: %w", opts.Scope, err)
		}
		scope = cascadia.QueryAll(root, sel)
	}

	var wanted map[string]bool
	if len(opts.Rules) > 0 {
		known := a.RuleIDs()
		wanted = make(map[string]bool, len(opts.Rules))
		for _, id := range opts.Rules {
			if !slices.Contains(known, id) {
				return nil, fmt.Errorf("unknown rule %q", id)
			}
			wanted[id] = true
		}
	}
	minRank := models.SeverityRank(opts.MinSeverity)

	var issues []models.Issue
	for _, r := range a.rules {
		if wanted != nil && !wanted[r.ID] {
			continue
		}
		if models.SeverityRank(r.Severity) < minRank {
			continue
		}
		for _, off := range r.check(doc) {
			if opts.Scope != "" && !within(off.node, scope) {
				continue
			}
			issues = append(issues, models.Issue{
				Rule:     r.ID,
				Severity: r.Severity,
				Message:  off.message,
				Selector: cssPath(off.node),
				Snippet:  snippet(off.node),
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return models.SeverityRank(issues[i].Severity) > models.SeverityRank(issues[j].Severity)
	})
	return issues, nil
}

// Count tallies issues per severity.
func Count(issues []models.Issue) models.IssueCounts {
	var c models.IssueCounts
	for _, is := range issues {
		switch is.Severity {
		case models.SeverityCritical:
			c.Critical++
		case models.SeveritySerious:
			c.Serious++
		case models.SeverityModerate:
			c.Moderate++
		case models.SeverityMinor:
			c.Minor++
		}
		c.Total++
	}
	return c
}

// within reports whether n is one of the scope nodes or nested in one.
func within(n *html.Node, scope []*html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		for _, s := range scope {
			if cur == s {
				return true
			}
		}
	}
	return false
}

// cssPath builds a selector locating n in the document, e.g.
// "html > body > div:nth-of-type(2) > img".
func cssPath(n *html.Node) string {
	var segs []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		seg := cur.Data
		if nth, ambiguous := nthOfType(cur); ambiguous {
			seg = fmt.Sprintf("%s:nth-of-type(%d)", seg, nth)
		}
		segs = append(segs, seg)
	}
	slices.Reverse(segs)
	return strings.Join(segs, " > ")
}

// nthOfType returns n's 1-based position among same-tag siblings and
// whether the position is needed to disambiguate.
func nthOfType(n *html.Node) (int, bool) {
	nth := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			nth++
		}
	}
	if nth > 1 {
		return nth, true
	}
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			return nth, true
		}
	}
	return nth, false
}

// snippet renders the node's outer HTML, truncated for response size.
func snippet(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return truncate(buf.String(), maxSnippetLen)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
