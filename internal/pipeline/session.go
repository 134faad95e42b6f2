package pipeline

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/menuscope/internal/cache"
	"github.com/ppiankov/menuscope/internal/extract"
	"github.com/ppiankov/menuscope/internal/model"
	"github.com/ppiankov/menuscope/internal/pattern"
	"github.com/ppiankov/menuscope/internal/reconcile"
)

// Page is one already-fetched page plus the caller's relationship bookkeeping
type Page struct {
	EntityID   string               `json:"entity_id"`
	ParentID   string               `json:"parent_id,omitempty"`
	URL        string               `json:"url"`
	Type       model.PageType       `json:"page_type"`
	Siblings   []string             `json:"siblings,omitempty"`
	Children   []string             `json:"children,omitempty"`
	References []string             `json:"references,omitempty"`
	Inherited  []model.ContextEntry `json:"inherited,omitempty"`
	HTML       string               `json:"-"`
}

// Session owns all learning and reconciliation state for one crawl of one site.
// Pages of a session must be processed one at a time; separate sites get separate sessions.
type Session struct {
	ID        string
	Site      string
	StartedAt time.Time

	Learner    *pattern.Learner
	Cache      *cache.PatternCache // nil when caching is disabled
	History    *model.ExtractionHistory
	Analyzer   *pattern.CrossPageAnalyzer
	Evolution  *pattern.EvolutionTracker
	Adaptive   *pattern.AdaptiveSelector
	Sharer     *pattern.SiblingSharer
	Calculator *pattern.ConfidenceCalculator

	Aggregator    *reconcile.Aggregator
	Metrics       *reconcile.MetricsTracker
	Effectiveness *reconcile.EffectivenessTracker
	Recognizer    *reconcile.MicrodataPatternRecognizer
	Mentions      *reconcile.EntityCorrelationTracker

	extracted   []string          // entity ids in processing order
	schemaTypes map[string]string // entity id -> structured schema type
}

// NewSession creates an empty session for site
func NewSession(site string, cfg *model.Config) *Session {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	evolution := pattern.NewEvolutionTracker()
	s := &Session{
		ID:            uuid.NewString(),
		Site:          site,
		StartedAt:     time.Now().UTC(),
		Learner:       pattern.NewLearner(),
		History:       model.NewExtractionHistory(),
		Analyzer:      pattern.NewCrossPageAnalyzer(),
		Evolution:     evolution,
		Adaptive:      pattern.NewAdaptiveSelector(evolution),
		Sharer:        pattern.NewSiblingSharer(),
		Calculator:    pattern.NewConfidenceCalculator(),
		Aggregator:    reconcile.NewAggregator(),
		Metrics:       reconcile.NewMetricsTracker(),
		Effectiveness: reconcile.NewEffectivenessTracker(),
		Recognizer:    reconcile.NewMicrodataPatternRecognizer(),
		Mentions:      reconcile.NewEntityCorrelationTracker(),
		schemaTypes:   make(map[string]string),
	}
	if cfg.Cache.Enabled {
		s.Cache = cache.NewPatternCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	}
	return s
}

// NewContext builds an extraction context for page wired to the session's shared state
func (s *Session) NewContext(page Page) *extract.Context {
	ctx := extract.NewContext(page.EntityID, page.URL, page.Type)
	ctx.ParentID = page.ParentID
	ctx.Relationships = extract.Relationships{
		Parent:     page.ParentID,
		Siblings:   append([]string(nil), page.Siblings...),
		Children:   append([]string(nil), page.Children...),
		References: append([]string(nil), page.References...),
	}
	ctx.ParentContext = append([]model.ContextEntry(nil), page.Inherited...)

	ctx.PatternCache = s.Cache
	ctx.PatternLearner = s.Learner
	ctx.History = s.History
	ctx.Analyzer = s.Analyzer
	ctx.Adaptive = s.Adaptive
	ctx.Calculator = s.Calculator
	ctx.SiblingSharer = s.Sharer
	ctx.SiblingsExtracted = s.siblingsExtracted(page)

	if page.ParentID != "" {
		if agg, ok := s.Aggregator.AggregatedData(page.ParentID); ok {
			parent := agg.Result
			ctx.ParentData = &parent
		}
	}

	for _, id := range ctx.Relationships.Siblings {
		if t, ok := s.schemaTypes[id]; ok {
			ctx.SiblingPatterns = &extract.SiblingPatterns{Type: t}
			break
		}
	}
	return ctx
}

// siblingsExtracted lists the page's declared siblings this session already processed
func (s *Session) siblingsExtracted(page Page) []string {
	declared := make(map[string]bool, len(page.Siblings))
	for _, id := range page.Siblings {
		declared[id] = true
	}

	var out []string
	for _, id := range s.extracted {
		if declared[id] && id != page.EntityID {
			out = append(out, id)
		}
	}
	return out
}

// remember files an accepted result into the session's history and indices
func (s *Session) remember(r model.ExtractionResult) {
	id := r.EntityID()
	if id == "" {
		return
	}

	s.History.Record(r)
	s.Aggregator.AddExtraction(r)
	if r.Source.IsStructured() && r.Metadata.SchemaType != "" {
		s.schemaTypes[id] = schemaTypeName(r.Metadata.SchemaType)
	}
	for _, seen := range s.extracted {
		if seen == id {
			return
		}
	}
	s.extracted = append(s.extracted, id)
}

// Extracted returns entity ids in the order they were first accepted
func (s *Session) Extracted() []string {
	return append([]string(nil), s.extracted...)
}

// schemaTypeName drops any vocabulary prefix from a schema type
func schemaTypeName(t string) string {
	if i := strings.LastIndexAny(t, "/#:"); i >= 0 {
		return t[i+1:]
	}
	return t
}
