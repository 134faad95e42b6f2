package pattern

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SelectText returns the text of the first element matching selector that yields any.
// meta elements yield their content attribute, tel: links fall back to the number.
// Invalid selectors match nothing.
func SelectText(doc *goquery.Document, selector string) string {
	if doc == nil || strings.TrimSpace(selector) == "" {
		return ""
	}

	var found string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = selectionText(s)
		return found == ""
	})
	return found
}

func selectionText(s *goquery.Selection) string {
	if goquery.NodeName(s) == "meta" {
		content, _ := s.Attr("content")
		return CollapseSpace(content)
	}

	text := CollapseSpace(s.Text())
	if text != "" {
		return text
	}

	if href, ok := s.Attr("href"); ok && strings.HasPrefix(strings.ToLower(href), "tel:") {
		return CollapseSpace(href[len("tel:"):])
	}
	return ""
}

// CollapseSpace trims s and folds internal whitespace runs to one space
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
