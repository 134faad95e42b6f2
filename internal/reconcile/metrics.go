package reconcile

import (
	"sort"

	"github.com/ppiankov/menuscope/internal/model"
)

// Metrics is a snapshot of extraction outcomes for a session
type Metrics struct {
	TotalPages              int     `json:"total_pages"`
	SuccessfulExtractions   int     `json:"successful_extractions"`
	StructuredDataPages     int     `json:"structured_data_pages"`
	HeuristicOnlyPages      int     `json:"heuristic_only_pages"`
	Entities                int     `json:"entities"`
	ExtractionSuccessRate   float64 `json:"extraction_success_rate"`
	AverageConfidence       float64 `json:"average_confidence"`
	PagesWithStructuredData int     `json:"pages_with_structured_data"`
}

// MetricsTracker accumulates per-page extraction outcomes
type MetricsTracker struct {
	total         int
	successes     int
	structured    int
	heuristicOnly int
	scores        []float64
	entities      map[string]struct{}
}

// NewMetricsTracker creates an empty tracker
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{
		entities: make(map[string]struct{}),
	}
}

// RecordExtraction records one page. An empty confidence records no score.
func (m *MetricsTracker) RecordExtraction(entityID string, method model.Source, success bool, confidence model.Confidence) {
	m.total++
	if success {
		m.successes++
	}

	switch {
	case method.IsStructured():
		m.structured++
	case method == model.SourceHeuristic:
		m.heuristicOnly++
	}

	if confidence != "" {
		m.scores = append(m.scores, confidence.Score())
	}
	if entityID != "" {
		m.entities[entityID] = struct{}{}
	}
}

// SuccessRate is successes over total pages, zero before any page
func (m *MetricsTracker) SuccessRate() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.successes) / float64(m.total)
}

// AverageConfidence is the mean recorded confidence score, zero when none were recorded
func (m *MetricsTracker) AverageConfidence() float64 {
	if len(m.scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range m.scores {
		sum += s
	}
	return sum / float64(len(m.scores))
}

// PagesWithStructuredData counts pages resolved by json-ld or microdata
func (m *MetricsTracker) PagesWithStructuredData() int {
	return m.structured
}

// Snapshot returns all counters and derived rates
func (m *MetricsTracker) Snapshot() Metrics {
	return Metrics{
		TotalPages:              m.total,
		SuccessfulExtractions:   m.successes,
		StructuredDataPages:     m.structured,
		HeuristicOnlyPages:      m.heuristicOnly,
		Entities:                len(m.entities),
		ExtractionSuccessRate:   m.SuccessRate(),
		AverageConfidence:       m.AverageConfidence(),
		PagesWithStructuredData: m.PagesWithStructuredData(),
	}
}

// PatternStats counts uses of one pattern
type PatternStats struct {
	Pattern   string `json:"pattern"`
	Uses      int    `json:"uses"`
	Successes int    `json:"successes"`
}

// SuccessRate is successes over uses, zero before any use
func (s PatternStats) SuccessRate() float64 {
	if s.Uses == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Uses)
}

// EffectivenessTracker tracks how often each pattern produced a value
type EffectivenessTracker struct {
	stats map[string]*PatternStats
}

// NewEffectivenessTracker creates an empty tracker
func NewEffectivenessTracker() *EffectivenessTracker {
	return &EffectivenessTracker{
		stats: make(map[string]*PatternStats),
	}
}

// Record counts one use of pattern
func (t *EffectivenessTracker) Record(pattern string, success bool) {
	s, ok := t.stats[pattern]
	if !ok {
		s = &PatternStats{Pattern: pattern}
		t.stats[pattern] = s
	}
	s.Uses++
	if success {
		s.Successes++
	}
}

// SuccessRate returns the pattern's success rate, zero for an unknown pattern
func (t *EffectivenessTracker) SuccessRate(pattern string) float64 {
	if s, ok := t.stats[pattern]; ok {
		return s.SuccessRate()
	}
	return 0
}

// Stats returns every pattern's counters sorted by pattern
func (t *EffectivenessTracker) Stats() []PatternStats {
	out := make([]PatternStats, 0, len(t.stats))
	for _, s := range t.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out
}
