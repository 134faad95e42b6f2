// Package reconcile merges, correlates, and audits candidate records that
// describe the same restaurant across pages and extraction strategies.
package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/menuscope/internal/model"
)

// HistoryItem is one observation behind an aggregate
type HistoryItem struct {
	Timestamp  time.Time        `json:"timestamp"`
	Method     string           `json:"method"`
	Confidence model.Confidence `json:"confidence"`
}

// Aggregate is the merged view of every result seen for one entity
type Aggregate struct {
	EntityID string                 `json:"entity_id"`
	Result   model.ExtractionResult `json:"result"`
	History  []HistoryItem          `json:"extraction_history"`
}

// Aggregator groups results by entity id and merges them on demand.
// It belongs to one crawl session and is not safe for concurrent use.
type Aggregator struct {
	entities map[string][]model.ExtractionResult
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		entities: make(map[string][]model.ExtractionResult),
	}
}

// AddExtraction files a result under its entity id; results without one are ignored
func (a *Aggregator) AddExtraction(r model.ExtractionResult) {
	id := strings.TrimSpace(r.EntityID())
	if id == "" {
		return
	}
	a.entities[id] = append(a.entities[id], r)
}

// AggregatedData merges an entity's results newest first. The newest result is
// the base and every empty field is backfilled from older results.
func (a *Aggregator) AggregatedData(entityID string) (Aggregate, bool) {
	results := a.entities[entityID]
	if len(results) == 0 {
		return Aggregate{}, false
	}

	// reversed before the stable sort so that, on equal timestamps, the later arrival wins
	sorted := make([]model.ExtractionResult, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		sorted = append(sorted, results[i])
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Metadata.Timestamp.After(sorted[j].Metadata.Timestamp)
	})

	merged := cloneResult(sorted[0])
	history := make([]HistoryItem, 0, len(sorted))
	for i, r := range sorted {
		history = append(history, HistoryItem{
			Timestamp:  r.Metadata.Timestamp,
			Method:     r.Metadata.Method,
			Confidence: r.Confidence,
		})
		if i > 0 {
			backfill(&merged, r)
		}
	}

	return Aggregate{
		EntityID: entityID,
		Result:   merged,
		History:  history,
	}, true
}

// Entities returns every entity id with at least one result, sorted
func (a *Aggregator) Entities() []string {
	ids := make([]string, 0, len(a.entities))
	for id := range a.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of results held for an entity
func (a *Aggregator) Len(entityID string) int {
	return len(a.entities[entityID])
}

// backfill copies into r whatever older holds and r lacks
func backfill(r *model.ExtractionResult, older model.ExtractionResult) {
	for _, f := range model.CoreFields {
		if strings.TrimSpace(r.Field(f)) == "" && strings.TrimSpace(older.Field(f)) != "" {
			r.SetField(f, older.Field(f))
		}
	}
	if len(r.SocialMedia) == 0 && len(older.SocialMedia) > 0 {
		r.SocialMedia = append([]string(nil), older.SocialMedia...)
	}
	for section, items := range older.MenuItems {
		if _, ok := r.MenuItems[section]; !ok {
			r.MenuItems[section] = append([]string(nil), items...)
		}
	}
}

// cloneResult copies r so that merging never aliases a stored result's collections
func cloneResult(r model.ExtractionResult) model.ExtractionResult {
	out := r
	out.MenuItems = make(map[string][]string, len(r.MenuItems))
	for section, items := range r.MenuItems {
		out.MenuItems[section] = append([]string(nil), items...)
	}
	out.SocialMedia = append([]string{}, r.SocialMedia...)
	return out
}
