package reconcile

import (
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/menuscope/internal/extract"
	"github.com/ppiankov/menuscope/internal/model"
)

const (
	reliableMinAttempts = 2
	reliableMinRate     = 0.8
)

// ErrMissingName is returned for a record without a name
var ErrMissingName = errors.New("record has no name")

// RecognizedPattern is the running tally for one (pattern, selector) pair
type RecognizedPattern struct {
	Pattern   string `json:"pattern"`
	Selector  string `json:"selector"`
	Attempts  int    `json:"attempts"`
	Successes int    `json:"successes"`
}

// SuccessRate is successes over attempts, zero before any attempt
func (p RecognizedPattern) SuccessRate() float64 {
	if p.Attempts == 0 {
		return 0
	}
	return float64(p.Successes) / float64(p.Attempts)
}

// Reliable reports at least two attempts with a success rate of 0.8 or better
func (p RecognizedPattern) Reliable() bool {
	return p.Attempts >= reliableMinAttempts && p.SuccessRate() >= reliableMinRate
}

type patternKey struct {
	pattern  string
	selector string
}

// MicrodataPatternRecognizer tracks which microdata patterns keep working
type MicrodataPatternRecognizer struct {
	patterns map[patternKey]*RecognizedPattern
}

// NewMicrodataPatternRecognizer creates an empty recognizer
func NewMicrodataPatternRecognizer() *MicrodataPatternRecognizer {
	return &MicrodataPatternRecognizer{
		patterns: make(map[patternKey]*RecognizedPattern),
	}
}

// Record counts one attempt of pattern through selector
func (r *MicrodataPatternRecognizer) Record(pattern, selector string, success bool) {
	key := patternKey{pattern: pattern, selector: selector}
	p, ok := r.patterns[key]
	if !ok {
		p = &RecognizedPattern{Pattern: pattern, Selector: selector}
		r.patterns[key] = p
	}
	p.Attempts++
	if success {
		p.Successes++
	}
}

// IsReliable reports whether the pair has earned trust
func (r *MicrodataPatternRecognizer) IsReliable(pattern, selector string) bool {
	p, ok := r.patterns[patternKey{pattern: pattern, selector: selector}]
	return ok && p.Reliable()
}

// Reliable returns every reliable pair sorted by pattern, then selector
func (r *MicrodataPatternRecognizer) Reliable() []RecognizedPattern {
	var out []RecognizedPattern
	for _, p := range r.patterns {
		if p.Reliable() {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Selector < out[j].Selector
	})
	return out
}

// MicrodataValidator checks a microdata record before it is accepted
type MicrodataValidator struct{}

// NewMicrodataValidator creates a validator
func NewMicrodataValidator() *MicrodataValidator {
	return &MicrodataValidator{}
}

// Validate returns ErrMissingName when the record has no name
func (v *MicrodataValidator) Validate(r model.ExtractionResult) error {
	if !r.IsValid() {
		return ErrMissingName
	}
	return nil
}

// Listing is one entry of a directory page
type Listing struct {
	Name      string `json:"name"`
	DetailURL string `json:"detail_url"`
}

// DirectoryListingCorrelator pairs restaurant names on a directory page with their detail links
type DirectoryListingCorrelator struct {
	validator *MicrodataValidator
	logger    *slog.Logger
}

// NewDirectoryListingCorrelator creates a correlator; a nil logger discards
func NewDirectoryListingCorrelator(logger *slog.Logger) *DirectoryListingCorrelator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DirectoryListingCorrelator{
		validator: NewMicrodataValidator(),
		logger:    logger,
	}
}

// Correlate returns one listing per named restaurant block, in document order.
// The detail link is the block's url property, else its first non-fragment link, resolved against sourceURL.
func (c *DirectoryListingCorrelator) Correlate(htmlContent, sourceURL string) []Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		c.logger.Debug("directory: unparseable html", "url", sourceURL, "error", err)
		return nil
	}

	base, err := url.Parse(sourceURL)
	if err != nil || !base.IsAbs() {
		base = nil
	}

	var listings []Listing
	for _, scope := range extract.RestaurantScopes(doc.Nodes[0]) {
		candidate := model.NewExtractionResult(model.SourceMicrodata)
		candidate.Name = extract.ItemPropValue(scope, "name")
		if err := c.validator.Validate(candidate); err != nil {
			c.logger.Debug("directory: skipping listing", "url", sourceURL, "error", err)
			continue
		}

		href := extract.ItemPropValue(scope, "url")
		if href == "" {
			goquery.NewDocumentFromNode(scope).Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
				link, _ := a.Attr("href")
				if link = strings.TrimSpace(link); link != "" && !strings.HasPrefix(link, "#") {
					href = link
					return false
				}
				return true
			})
		}

		listings = append(listings, Listing{
			Name:      candidate.Name,
			DetailURL: resolveLink(base, href),
		})
	}
	return listings
}

// resolveLink resolves href against base; unresolvable links become empty
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
