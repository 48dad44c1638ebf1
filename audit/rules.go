package audit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nipunrajk/accessiblity-sub002/models"
	"golang.org/x/net/html"
)

// Rule is one accessibility check applied to a parsed document.
type Rule struct {
	ID       string
	Severity string
	check    func(doc *goquery.Document) []offender
}

// offender is one element a check flagged, with its finding message.
type offender struct {
	node    *html.Node
	message string
}

// builtinRules returns the rule set in severity order. Severities follow
// the common automated-scanner ratings: missing text alternatives and
// labels are critical, missing document metadata is serious, structural
// problems are moderate or minor.
func builtinRules() []Rule {
	return []Rule{
		{ID: "img-alt", Severity: models.SeverityCritical, check: checkImgAlt},
		{ID: "button-name", Severity: models.SeverityCritical, check: checkButtonName},
		{ID: "input-label", Severity: models.SeverityCritical, check: checkInputLabel},
		{ID: "link-name", Severity: models.SeveritySerious, check: checkLinkName},
		{ID: "html-lang", Severity: models.SeveritySerious, check: checkHTMLLang},
		{ID: "document-title", Severity: models.SeveritySerious, check: checkDocumentTitle},
		{ID: "frame-title", Severity: models.SeveritySerious, check: checkFrameTitle},
		{ID: "meta-viewport", Severity: models.SeveritySerious, check: checkMetaViewport},
		{ID: "heading-order", Severity: models.SeverityModerate, check: checkHeadingOrder},
		{ID: "duplicate-id", Severity: models.SeverityMinor, check: checkDuplicateID},
	}
}

func checkImgAlt(doc *goquery.Document) []offender {
	var out []offender
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("alt"); ok {
			return
		}
		// Explicitly decorative images are exempt.
		if role, _ := s.Attr("role"); role == "presentation" || role == "none" {
			return
		}
		out = append(out, offender{
			node:    s.Nodes[0],
			message: `image has no alt attribute; add a text alternative, or alt="" if decorative`,
		})
	})
	return out
}

func checkButtonName(doc *goquery.Document) []offender {
	var out []offender
	doc.Find("button").Each(func(_ int, s *goquery.Selection) {
		if accessibleName(s) != "" {
			return
		}
		out = append(out, offender{node: s.Nodes[0], message: "button has no discernible text"})
	})
	doc.Find(`input[type="button"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("value"); ok && strings.TrimSpace(v) != "" {
			return
		}
		if attrName(s) != "" {
			return
		}
		out = append(out, offender{node: s.Nodes[0], message: "input button has no value or label"})
	})
	return out
}

func checkInputLabel(doc *goquery.Document) []offender {
	labeled := make(map[string]bool)
	doc.Find("label[for]").Each(func(_ int, s *goquery.Selection) {
		if v, _ := s.Attr("for"); v != "" {
			labeled[v] = true
		}
	})

	var out []offender
	doc.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		if s.Is("input") {
			switch t, _ := s.Attr("type"); strings.ToLower(t) {
			// Buttons are covered by button-name; hidden fields need no label.
			case "hidden", "button", "submit", "reset", "image":
				return
			}
		}
		if id, ok := s.Attr("id"); ok && labeled[id] {
			return
		}
		if s.Closest("label").Length() > 0 {
			return
		}
		if attrName(s) != "" {
			return
		}
		out = append(out, offender{node: s.Nodes[0], message: "form field has no associated label"})
	})
	return out
}

func checkLinkName(doc *goquery.Document) []offender {
	var out []offender
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if accessibleName(s) != "" {
			return
		}
		out = append(out, offender{node: s.Nodes[0], message: "link has no discernible text"})
	})
	return out
}

func checkHTMLLang(doc *goquery.Document) []offender {
	var out []offender
	doc.Find("html").First().Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("lang"); ok && strings.TrimSpace(v) != "" {
			return
		}
		out = append(out, offender{
			node:    s.Nodes[0],
			message: "document language is not declared; add a lang attribute to <html>",
		})
	})
	return out
}

func checkDocumentTitle(doc *goquery.Document) []offender {
	if strings.TrimSpace(doc.Find("head title").First().Text()) != "" {
		return nil
	}
	root := doc.Find("html").First()
	if len(root.Nodes) == 0 {
		return nil
	}
	return []offender{{node: root.Nodes[0], message: "document has no <title>"}}
}

func checkFrameTitle(doc *goquery.Document) []offender {
	var out []offender
	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("title"); ok && strings.TrimSpace(v) != "" {
			return
		}
		out = append(out, offender{node: s.Nodes[0], message: "iframe has no title attribute"})
	})
	return out
}

func checkMetaViewport(doc *goquery.Document) []offender {
	var out []offender
	doc.Find(`meta[name="viewport"]`).Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		if viewportBlocksZoom(content) {
			out = append(out, offender{
				node:    s.Nodes[0],
				message: "viewport meta tag prevents users from zooming",
			})
		}
	})
	return out
}

// viewportBlocksZoom reports whether a viewport content value disables
// or cripples pinch zoom (user-scalable=no, or maximum-scale below 2).
func viewportBlocksZoom(content string) bool {
	for _, part := range strings.Split(strings.ToLower(content), ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		switch k {
		case "user-scalable":
			if v == "no" || v == "0" {
				return true
			}
		case "maximum-scale":
			if f, err := strconv.ParseFloat(v, 64); err == nil && f < 2 {
				return true
			}
		}
	}
	return false
}

func checkHeadingOrder(doc *goquery.Document) []offender {
	var out []offender
	last := 0
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level := int(s.Nodes[0].Data[1] - '0')
		if last > 0 && level > last+1 {
			out = append(out, offender{
				node:    s.Nodes[0],
				message: fmt.Sprintf("heading level skips from h%d to h%d", last, level),
			})
		}
		last = level
	})
	return out
}

func checkDuplicateID(doc *goquery.Document) []offender {
	var out []offender
	seen := make(map[string]bool)
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if id == "" {
			return
		}
		if seen[id] {
			out = append(out, offender{
				node:    s.Nodes[0],
				message: fmt.Sprintf("id %q is used by more than one element", id),
			})
			return
		}
		seen[id] = true
	})
	return out
}

// accessibleName approximates an element's computed name: visible text,
// labelling attributes, or the alt text of a child image.
func accessibleName(s *goquery.Selection) string {
	if t := strings.TrimSpace(s.Text()); t != "" {
		return t
	}
	if n := attrName(s); n != "" {
		return n
	}
	name := ""
	s.Find("img[alt]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if v, _ := img.Attr("alt"); strings.TrimSpace(v) != "" {
			name = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return name
}

// attrName checks the labelling attributes alone. For aria-labelledby a
// non-empty reference is taken at face value; resolving the referenced
// element's text is beyond a static check.
func attrName(s *goquery.Selection) string {
	for _, attr := range []string{"aria-label", "aria-labelledby", "title"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
