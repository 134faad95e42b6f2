package pipeline

import (
	"time"

	"github.com/ppiankov/menuscope/internal/pattern"
	"github.com/ppiankov/menuscope/internal/reconcile"
)

// duplicateThreshold is the lowest correlation score reported as a likely duplicate.
// An exact name match alone reaches it.
const duplicateThreshold = 0.7

// SiteReport summarizes a finished session
type SiteReport struct {
	SessionID     string                        `json:"session_id"`
	Site          string                        `json:"site"`
	StartedAt     time.Time                     `json:"started_at"`
	FinishedAt    time.Time                     `json:"finished_at"`
	Pages         []*PageResult                 `json:"pages,omitempty"`
	Entities      []reconcile.Aggregate         `json:"entities"`
	Metrics       reconcile.Metrics             `json:"metrics"`
	Patterns      []pattern.Candidate           `json:"patterns,omitempty"`
	Preferences   map[string]map[string]string  `json:"preferences,omitempty"` // page type -> field -> selector
	Evolution     []pattern.Change              `json:"evolution,omitempty"`
	Effectiveness []reconcile.PatternStats      `json:"effectiveness,omitempty"`
	Reliable      []reconcile.RecognizedPattern `json:"reliable_microdata,omitempty"`
	Duplicates    []reconcile.DuplicatePair     `json:"duplicates,omitempty"`
	Errors        []string                      `json:"errors,omitempty"`
}

// Report builds the session summary. Pages and errors are supplied by the caller.
func (s *Session) Report(pages []*PageResult, errs []error) SiteReport {
	report := SiteReport{
		SessionID:     s.ID,
		Site:          s.Site,
		StartedAt:     s.StartedAt,
		FinishedAt:    time.Now().UTC(),
		Pages:         pages,
		Entities:      []reconcile.Aggregate{},
		Metrics:       s.Metrics.Snapshot(),
		Patterns:      pattern.NewOptimizer().FromLearner(s.Learner),
		Evolution:     s.Evolution.History(),
		Effectiveness: s.Effectiveness.Stats(),
		Reliable:      s.Recognizer.Reliable(),
	}

	for _, id := range s.Aggregator.Entities() {
		if agg, ok := s.Aggregator.AggregatedData(id); ok {
			report.Entities = append(report.Entities, agg)
		}
	}
	report.Duplicates = reconcile.NewCorrelationScorer().FindDuplicates(report.Entities, duplicateThreshold)

	for _, pt := range s.Analyzer.PageTypes() {
		prefs := s.Adaptive.Preferences(pt)
		if len(prefs) == 0 {
			continue
		}
		if report.Preferences == nil {
			report.Preferences = make(map[string]map[string]string)
		}
		report.Preferences[string(pt)] = prefs
	}

	for _, err := range errs {
		report.Errors = append(report.Errors, err.Error())
	}
	return report
}
