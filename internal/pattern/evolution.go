package pattern

import (
	"time"

	"github.com/ppiankov/menuscope/internal/model"
)

// Change is one switch of a field's preferred selector
type Change struct {
	Timestamp  time.Time `json:"timestamp"`
	Field      string    `json:"field"`
	OldPattern string    `json:"old_pattern"`
	NewPattern string    `json:"new_pattern"`
	Reason     string    `json:"reason"`
}

// EvolutionTracker keeps the ordered history of preferred-selector changes
type EvolutionTracker struct {
	changes []Change
	now     func() time.Time
}

// NewEvolutionTracker creates an empty tracker
func NewEvolutionTracker() *EvolutionTracker {
	return &EvolutionTracker{now: func() time.Time { return time.Now().UTC() }}
}

// Record appends a change; identical old and new patterns are not a change
func (t *EvolutionTracker) Record(field, oldPattern, newPattern, reason string) {
	if oldPattern == newPattern {
		return
	}
	t.changes = append(t.changes, Change{
		Timestamp:  t.now(),
		Field:      field,
		OldPattern: oldPattern,
		NewPattern: newPattern,
		Reason:     reason,
	})
}

// History returns every change in insertion order
func (t *EvolutionTracker) History() []Change {
	return append([]Change(nil), t.changes...)
}

// FieldHistory returns the changes recorded for one field in insertion order
func (t *EvolutionTracker) FieldHistory(field string) []Change {
	var out []Change
	for _, c := range t.changes {
		if c.Field == field {
			out = append(out, c)
		}
	}
	return out
}

type choice struct {
	selector   string
	confidence float64
}

// AdaptiveSelector keeps, per page type and field, the selector with the highest observed confidence
type AdaptiveSelector struct {
	best      map[model.PageType]map[string]choice
	evolution *EvolutionTracker // optional
}

// NewAdaptiveSelector creates a selector. A non-nil tracker receives every preference change.
func NewAdaptiveSelector(evolution *EvolutionTracker) *AdaptiveSelector {
	return &AdaptiveSelector{
		best:      make(map[model.PageType]map[string]choice),
		evolution: evolution,
	}
}

// Observe reports a selector's confidence for field on pageType.
// The stored confidence of the current preference is refreshed when it is observed again.
func (s *AdaptiveSelector) Observe(pageType model.PageType, field, selector string, confidence float64) {
	fields := s.best[pageType]
	if fields == nil {
		fields = make(map[string]choice)
		s.best[pageType] = fields
	}

	current, ok := fields[field]
	switch {
	case !ok:
		fields[field] = choice{selector: selector, confidence: confidence}
		if s.evolution != nil {
			s.evolution.Record(field, "", selector, "first observation on "+string(pageType)+" page")
		}
	case current.selector == selector:
		fields[field] = choice{selector: selector, confidence: confidence}
	case confidence > current.confidence:
		fields[field] = choice{selector: selector, confidence: confidence}
		if s.evolution != nil {
			s.evolution.Record(field, current.selector, selector, "higher confidence on "+string(pageType)+" page")
		}
	}
}

// Select returns the preferred selector for field on pageType
func (s *AdaptiveSelector) Select(pageType model.PageType, field string) (string, bool) {
	c, ok := s.best[pageType][field]
	return c.selector, ok
}

// Preferences returns field -> selector for one page type
func (s *AdaptiveSelector) Preferences(pageType model.PageType) map[string]string {
	out := make(map[string]string)
	for field, c := range s.best[pageType] {
		out[field] = c.selector
	}
	return out
}
