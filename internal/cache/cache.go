package cache

import (
	"net/url"
	"strings"
)

// TemplateKey derives the cache key for a page template from its URL host and page type.
// Pages of one site that share a page type are assumed to share a template.
func TemplateKey(sourceURL string, pageType string) string {
	host := ""
	if parsed, err := url.Parse(sourceURL); err == nil {
		host = strings.ToLower(parsed.Host)
	}
	return "menuscope:v1:" + host + "|" + pageType
}
