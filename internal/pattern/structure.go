package pattern

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Structure is an informational summary of a page's DOM shape
type Structure struct {
	Headers  map[string]int `json:"headers"`   // h1..h6 -> count
	MaxDepth int            `json:"max_depth"` // deepest element nesting
	Elements int            `json:"elements"`
}

// StructureAnalyzer inventories headers and nesting depth.
// Its output feeds selector tuning and never gates extraction.
type StructureAnalyzer struct{}

// NewStructureAnalyzer creates a new analyzer
func NewStructureAnalyzer() *StructureAnalyzer {
	return &StructureAnalyzer{}
}

// Analyze walks doc once
func (a *StructureAnalyzer) Analyze(doc *html.Node) Structure {
	s := Structure{Headers: make(map[string]int)}
	if doc == nil {
		return s
	}

	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if n.Type == html.ElementNode {
			s.Elements++
			if depth > s.MaxDepth {
				s.MaxDepth = depth
			}
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				s.Headers[n.Data]++
			}
			depth++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth)
		}
	}

	walk(doc, 1)
	return s
}
