package pattern

// SharedPattern is a selector one entity found useful for a field
type SharedPattern struct {
	EntityID    string  `json:"entity_id"`
	Field       string  `json:"field"`
	Selector    string  `json:"selector"`
	SuccessRate float64 `json:"success_rate"`
}

// SiblingSharer lets one entity's successful selectors be looked up by its siblings
type SiblingSharer struct {
	patterns map[string]map[string]SharedPattern // entity -> field -> pattern
}

// NewSiblingSharer creates an empty sharer
func NewSiblingSharer() *SiblingSharer {
	return &SiblingSharer{
		patterns: make(map[string]map[string]SharedPattern),
	}
}

// Share publishes entityID's selector for field, replacing only a lower success rate
func (s *SiblingSharer) Share(entityID, field, selector string, successRate float64) {
	if entityID == "" || selector == "" {
		return
	}
	fields := s.patterns[entityID]
	if fields == nil {
		fields = make(map[string]SharedPattern)
		s.patterns[entityID] = fields
	}
	if existing, ok := fields[field]; ok && existing.Selector != selector && existing.SuccessRate > successRate {
		return
	}
	fields[field] = SharedPattern{
		EntityID:    entityID,
		Field:       field,
		Selector:    selector,
		SuccessRate: successRate,
	}
}

// Lookup returns the selector siblingID shared for field
func (s *SiblingSharer) Lookup(siblingID, field string) (SharedPattern, bool) {
	p, ok := s.patterns[siblingID][field]
	return p, ok
}

// FromSiblings returns the shared patterns for field across siblings, in sibling order.
// Unknown sibling ids contribute nothing.
func (s *SiblingSharer) FromSiblings(siblingIDs []string, field string) []SharedPattern {
	var out []SharedPattern
	for _, id := range siblingIDs {
		if p, ok := s.Lookup(id, field); ok {
			out = append(out, p)
		}
	}
	return out
}
