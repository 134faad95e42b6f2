package model

import (
	"strings"
	"time"
)

// Confidence is the discrete confidence tier of a candidate record
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Score returns the numeric weight used by metrics (low=0.3, medium=0.6, high=0.9)
func (c Confidence) Score() float64 {
	switch c {
	case ConfidenceHigh:
		return 0.9
	case ConfidenceMedium:
		return 0.6
	case ConfidenceLow:
		return 0.3
	default:
		return 0
	}
}

// Source identifies which extraction strategy produced a record
type Source string

const (
	SourceJSONLD    Source = "json-ld"
	SourceMicrodata Source = "microdata"
	SourceHeuristic Source = "heuristic"
)

// Priority ranks sources for conflict resolution (json-ld wins)
func (s Source) Priority() int {
	switch s {
	case SourceJSONLD:
		return 3
	case SourceMicrodata:
		return 2
	case SourceHeuristic:
		return 1
	default:
		return 0
	}
}

// IsStructured reports whether the source is embedded structured markup
func (s Source) IsStructured() bool {
	return s == SourceJSONLD || s == SourceMicrodata
}

// PageType classifies a page within a site
type PageType string

const (
	PageTypeDirectory PageType = "directory"
	PageTypeDetail    PageType = "detail"
	PageTypeMenu      PageType = "menu"
	PageTypeOther     PageType = "other"
)

// ParsePageType maps a free-form string onto a PageType, defaulting to other
func ParsePageType(s string) PageType {
	switch PageType(strings.ToLower(strings.TrimSpace(s))) {
	case PageTypeDirectory:
		return PageTypeDirectory
	case PageTypeDetail:
		return PageTypeDetail
	case PageTypeMenu:
		return PageTypeMenu
	default:
		return PageTypeOther
	}
}

// ContextEntry is one inherited key/value pair from a parent page
type ContextEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PreviousExtraction summarizes the prior record for an entity
type PreviousExtraction struct {
	Name       string     `json:"name"`
	Source     Source     `json:"source"`
	Confidence Confidence `json:"confidence"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ExtractionMetadata carries provenance and strategy flags for a record.
// Optional members are nil or empty when the producing strategy never sets them.
type ExtractionMetadata struct {
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`

	EntityID         string              `json:"entity_id,omitempty"`
	ParentID         string              `json:"parent_id,omitempty"`
	SourceURL        string              `json:"source_url,omitempty"`
	SchemaType       string              `json:"schema_type,omitempty"`
	InheritedContext []ContextEntry      `json:"inherited_context,omitempty"`
	ReferencedPages  []string            `json:"referenced_pages,omitempty"`
	IsUpdate         bool                `json:"is_update,omitempty"`
	Previous         *PreviousExtraction `json:"previous_extraction,omitempty"`

	// json-ld
	ConfidenceBoost string `json:"confidence_boost,omitempty"`

	// microdata
	BlockCorrelation  bool `json:"block_correlation,omitempty"`
	ParentCorrelation bool `json:"parent_correlation,omitempty"`
	CorrelationBoost  bool `json:"correlation_boost,omitempty"`

	// heuristic
	PatternConfidenceBoost *float64          `json:"pattern_confidence_boost,omitempty"`
	LearnedPattern         bool              `json:"learned_pattern,omitempty"`
	MenuFocused            bool              `json:"menu_focused,omitempty"`
	Selectors              map[string]string `json:"selectors,omitempty"` // field -> selector that produced it
}

// ExtractionResult is one candidate record produced by one extractor call
type ExtractionResult struct {
	Name        string              `json:"name"`
	Address     string              `json:"address"`
	Phone       string              `json:"phone"`
	Hours       string              `json:"hours"`
	PriceRange  string              `json:"price_range"`
	Cuisine     string              `json:"cuisine"`
	MenuItems   map[string][]string `json:"menu_items"`
	SocialMedia []string            `json:"social_media"`
	Confidence  Confidence          `json:"confidence"`
	Source      Source              `json:"source"`
	Metadata    ExtractionMetadata  `json:"extraction_metadata"`
}

// NewExtractionResult returns a result with non-nil collections
func NewExtractionResult(source Source) ExtractionResult {
	return ExtractionResult{
		MenuItems:   make(map[string][]string),
		SocialMedia: []string{},
		Confidence:  ConfidenceLow,
		Source:      source,
		Metadata: ExtractionMetadata{
			Method:    string(source),
			Timestamp: time.Now().UTC(),
		},
	}
}

// IsValid reports whether the record carries a name
func (r ExtractionResult) IsValid() bool {
	return strings.TrimSpace(r.Name) != ""
}

// EntityID returns the entity id recorded in metadata
func (r ExtractionResult) EntityID() string {
	return r.Metadata.EntityID
}

// Field returns a core string field by its serialized name
func (r ExtractionResult) Field(name string) string {
	switch name {
	case "name":
		return r.Name
	case "address":
		return r.Address
	case "phone":
		return r.Phone
	case "hours":
		return r.Hours
	case "price_range":
		return r.PriceRange
	case "cuisine":
		return r.Cuisine
	}
	return ""
}

// SetField sets a core string field by its serialized name
func (r *ExtractionResult) SetField(name, value string) {
	switch name {
	case "name":
		r.Name = value
	case "address":
		r.Address = value
	case "phone":
		r.Phone = value
	case "hours":
		r.Hours = value
	case "price_range":
		r.PriceRange = value
	case "cuisine":
		r.Cuisine = value
	}
}

// CoreFields lists the scalar fields shared by every strategy
var CoreFields = []string{"name", "address", "phone", "hours", "price_range", "cuisine"}

// PopulatedFields counts non-empty core fields
func (r ExtractionResult) PopulatedFields() int {
	count := 0
	for _, f := range CoreFields {
		if strings.TrimSpace(r.Field(f)) != "" {
			count++
		}
	}
	return count
}
