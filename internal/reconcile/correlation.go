package reconcile

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/menuscope/internal/model"
)

// DataCorrelator merges records for a parent page and one of its children
type DataCorrelator struct{}

// NewDataCorrelator creates a correlator
func NewDataCorrelator() *DataCorrelator {
	return &DataCorrelator{}
}

// MergeParentChild keeps every non-empty child field and fills the rest from the parent.
// Child menu sections and social links come first; nothing either side held is lost.
func (d *DataCorrelator) MergeParentChild(parent, child model.ExtractionResult) model.ExtractionResult {
	merged := cloneResult(child)

	for _, f := range model.CoreFields {
		if strings.TrimSpace(merged.Field(f)) == "" {
			merged.SetField(f, parent.Field(f))
		}
	}

	seen := make(map[string]bool, len(merged.SocialMedia))
	for _, link := range merged.SocialMedia {
		seen[link] = true
	}
	for _, link := range parent.SocialMedia {
		if !seen[link] {
			seen[link] = true
			merged.SocialMedia = append(merged.SocialMedia, link)
		}
	}

	for section, items := range parent.MenuItems {
		if _, ok := merged.MenuItems[section]; !ok {
			merged.MenuItems[section] = append([]string(nil), items...)
		}
	}

	if merged.Metadata.ParentID == "" {
		merged.Metadata.ParentID = parent.EntityID()
	}
	merged.Metadata.ParentCorrelation = true
	return merged
}

// Mention is one page on which a name appeared
type Mention struct {
	PageID    string                 `json:"page_id"`
	Data      model.ExtractionResult `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// EntityCorrelationTracker links pages that mention the same literal name
type EntityCorrelationTracker struct {
	mentions map[string][]Mention
}

// NewEntityCorrelationTracker creates an empty tracker
func NewEntityCorrelationTracker() *EntityCorrelationTracker {
	return &EntityCorrelationTracker{
		mentions: make(map[string][]Mention),
	}
}

// Track appends a mention of name; empty names are ignored
func (t *EntityCorrelationTracker) Track(name, pageID string, data model.ExtractionResult, ts time.Time) {
	if strings.TrimSpace(name) == "" {
		return
	}
	t.mentions[name] = append(t.mentions[name], Mention{
		PageID:    pageID,
		Data:      data,
		Timestamp: ts,
	})
}

// Mentions returns the pages that mentioned name, in tracking order
func (t *EntityCorrelationTracker) Mentions(name string) []Mention {
	return append([]Mention(nil), t.mentions[name]...)
}

// Names returns every tracked name, sorted
func (t *EntityCorrelationTracker) Names() []string {
	names := make([]string, 0, len(t.mentions))
	for name := range t.mentions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match is a correlation score with the signals that produced it
type Match struct {
	Score   float64  `json:"score"`
	Signals []string `json:"signals,omitempty"`
}

// CorrelationScorer rates how likely two records describe the same restaurant
type CorrelationScorer struct{}

// NewCorrelationScorer creates a scorer
func NewCorrelationScorer() *CorrelationScorer {
	return &CorrelationScorer{}
}

// Score returns a value in [0, 1]
func (s *CorrelationScorer) Score(a, b model.ExtractionResult) float64 {
	return s.Explain(a, b).Score
}

// Explain scores the pair and lists the matching signals
func (s *CorrelationScorer) Explain(a, b model.ExtractionResult) Match {
	var m Match

	// 1. Name (0.7 exact, 0.4 containment)
	nameA := strings.ToLower(strings.TrimSpace(a.Name))
	nameB := strings.ToLower(strings.TrimSpace(b.Name))
	if nameA != "" && nameB != "" {
		switch {
		case nameA == nameB:
			m.Score += 0.7
			m.Signals = append(m.Signals, "name_exact")
		case strings.Contains(nameA, nameB) || strings.Contains(nameB, nameA):
			m.Score += 0.4
			m.Signals = append(m.Signals, "name_partial")
		}
	}

	// 2. Address (0.2)
	if equalNonEmpty(a.Address, b.Address) {
		m.Score += 0.2
		m.Signals = append(m.Signals, "address")
	}

	// 3. Phone (0.1)
	if equalNonEmpty(a.Phone, b.Phone) {
		m.Score += 0.1
		m.Signals = append(m.Signals, "phone")
	}

	m.Score = math.Min(1, math.Round(m.Score*100)/100)
	return m
}

// DuplicatePair is two entities that likely describe one restaurant
type DuplicatePair struct {
	EntityA string `json:"entity_a"`
	EntityB string `json:"entity_b"`
	Match
}

// FindDuplicates scores every pair of aggregates and keeps those scoring at least
// threshold, strongest first. Ties keep input order.
func (s *CorrelationScorer) FindDuplicates(aggs []Aggregate, threshold float64) []DuplicatePair {
	var out []DuplicatePair
	for i := 0; i < len(aggs); i++ {
		for j := i + 1; j < len(aggs); j++ {
			m := s.Explain(aggs[i].Result, aggs[j].Result)
			if m.Score >= threshold {
				out = append(out, DuplicatePair{EntityA: aggs[i].EntityID, EntityB: aggs[j].EntityID, Match: m})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func equalNonEmpty(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && a == b
}
