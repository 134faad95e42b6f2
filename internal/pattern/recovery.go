package pattern

import "github.com/PuerkitoBio/goquery"

// FailureRecovery holds last-resort selectors per field, used only after every
// learned and dedicated strategy came back empty
type FailureRecovery struct {
	fallbacks map[string][]string
}

// NewFailureRecovery creates a recovery table with the built-in fallbacks
func NewFailureRecovery() *FailureRecovery {
	return &FailureRecovery{
		fallbacks: map[string][]string{
			"name": {
				"meta[property='og:site_name']",
				"meta[property='og:title']",
				"[class*='restaurant-name']",
				"[class*='business-name']",
				"header h2",
				".logo",
				"title",
			},
			"phone": {
				"[itemprop='telephone']",
				"[class*='phone']",
				"[class*='tel']",
				"[id*='phone']",
			},
			"address": {
				"address",
				"[class*='address']",
				"[class*='location']",
				"[id*='address']",
			},
			"hours": {
				"[class*='hours']",
				"[id*='hours']",
				"[class*='schedule']",
				"[class*='opening']",
			},
		},
	}
}

// Fallbacks returns the fallback selectors for field in try order
func (r *FailureRecovery) Fallbacks(field string) []string {
	return append([]string(nil), r.fallbacks[field]...)
}

// Recover returns the first non-empty match from field's fallback table and the selector that produced it
func (r *FailureRecovery) Recover(doc *goquery.Document, field string) (string, string) {
	for _, sel := range r.fallbacks[field] {
		if text := SelectText(doc, sel); text != "" {
			return text, sel
		}
	}
	return "", ""
}
