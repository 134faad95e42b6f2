package extract

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseHTML parses HTML string into a node tree
func parseHTML(htmlContent string) (*html.Node, error) {
	return html.Parse(strings.NewReader(htmlContent))
}

// getAttribute gets an attribute value from a node
func getAttribute(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}

// hasAttribute reports whether the attribute is present, even when empty
func hasAttribute(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return true
		}
	}
	return false
}

// findAll finds all nodes matching a predicate, in document order
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// nodeText returns the collapsed text content of a node
func nodeText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			buf.WriteString(node.Data)
			buf.WriteString(" ")
			return
		}
		if node.Type == html.ElementNode && (node.DataAtom == atom.Script || node.DataAtom == atom.Style) {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return collapse(buf.String())
}

// visibleText extracts text nodes from HTML, skipping scripts/styles
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Template:
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.TrimSpace(buf.String())
}

// textMatch is a regex hit inside one text node
type textMatch struct {
	value   string
	element *html.Node // nearest element ancestor of the text node
}

// findTextMatch returns the first regex hit in visible text nodes
func findTextMatch(doc *html.Node, re *regexp.Regexp) (textMatch, bool) {
	var found textMatch
	var ok bool

	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Title:
				return false
			}
		}
		if n.Type == html.TextNode && n.Parent != nil {
			if m := re.FindString(n.Data); m != "" {
				found = textMatch{value: collapse(m), element: n.Parent}
				ok = true
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(doc)
	return found, ok
}

var classNameSafe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// selectorFor builds a reusable CSS selector for an element: tag#id, tag.class,
// or a scoped path through the nearest identifiable ancestor
func selectorFor(n *html.Node) string {
	return selectorForDepth(n, 0)
}

func selectorForDepth(n *html.Node, depth int) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	tag := n.Data

	if id := strings.TrimSpace(getAttribute(n, "id")); id != "" && classNameSafe.MatchString(id) {
		return tag + "#" + id
	}

	var classes []string
	for _, c := range strings.Fields(getAttribute(n, "class")) {
		if classNameSafe.MatchString(c) {
			classes = append(classes, c)
		}
		if len(classes) == 2 {
			break
		}
	}
	if len(classes) > 0 {
		return tag + "." + strings.Join(classes, ".")
	}

	switch n.DataAtom {
	case atom.Body, atom.Html, atom.Head:
		return tag
	}
	if depth >= 3 || n.Parent == nil || n.Parent.Type != html.ElementNode {
		return tag
	}
	parent := selectorForDepth(n.Parent, depth+1)
	if parent == "" || parent == "body" || parent == "html" {
		return tag
	}
	return parent + " " + tag
}

// resolveURL resolves href against base; relative references without a base are kept verbatim
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return parsed.String()
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// parseBaseURL returns nil for an empty or unparseable source URL
func parseBaseURL(sourceURL string) *url.URL {
	if strings.TrimSpace(sourceURL) == "" {
		return nil
	}
	base, err := url.Parse(sourceURL)
	if err != nil || !base.IsAbs() {
		return nil
	}
	return base
}

// dedupeStrings removes duplicates and empties, keeping first occurrence
func dedupeStrings(values []string) []string {
	seen := make(map[string]bool)
	unique := []string{}

	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		unique = append(unique, v)
	}

	return unique
}

// joinNonEmpty joins the non-empty parts with sep
func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// formatAddress renders "street, City, State ZIP", omitting absent parts
func formatAddress(street, city, region, postal string) string {
	address := joinNonEmpty(", ", street, city, region)
	postal = strings.TrimSpace(postal)
	if postal == "" {
		return address
	}
	if address == "" {
		return postal
	}
	return address + " " + postal
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
