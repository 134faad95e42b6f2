package reconcile

import (
	"sort"
	"strings"

	"github.com/ppiankov/menuscope/internal/model"
)

// conflictFields are compared across records; disagreement is reported, never hidden
var conflictFields = []string{"name", "phone", "address"}

// Resolution is the outcome of resolving a set of records for one entity
type Resolution struct {
	Resolved  model.ExtractionResult `json:"resolved"`
	Conflicts map[string][]string    `json:"conflicts"` // field -> distinct values, most trusted first
}

// HasConflicts reports whether any compared field disagreed
func (r Resolution) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// ConflictResolver picks the most trusted record and reports where the others disagree
type ConflictResolver struct{}

// NewConflictResolver creates a resolver
func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{}
}

// ResolveConflicts orders records by source priority, then timestamp, both descending.
// The first record wins every field; fields with more than one distinct value are listed in Conflicts.
// ok is false for an empty input.
func (c *ConflictResolver) ResolveConflicts(records []model.ExtractionResult) (Resolution, bool) {
	if len(records) == 0 {
		return Resolution{}, false
	}

	sorted := append([]model.ExtractionResult(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := sorted[i].Source.Priority(), sorted[j].Source.Priority()
		if pi != pj {
			return pi > pj
		}
		return sorted[i].Metadata.Timestamp.After(sorted[j].Metadata.Timestamp)
	})

	conflicts := make(map[string][]string)
	for _, field := range conflictFields {
		var values []string
		seen := make(map[string]bool)
		for _, r := range sorted {
			v := strings.TrimSpace(r.Field(field))
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			values = append(values, v)
		}
		if len(values) > 1 {
			conflicts[field] = values
		}
	}

	return Resolution{
		Resolved:  cloneResult(sorted[0]),
		Conflicts: conflicts,
	}, true
}
