// Package extract turns already-fetched restaurant pages into candidate records
// using linked data, inline microdata, and DOM heuristics, in that order of trust.
package extract

import (
	"io"
	"log/slog"

	"github.com/ppiankov/menuscope/internal/model"
)

// Extractor defines the capability shared by every extraction strategy.
// Extraction never fails: malformed or irrelevant input yields no results.
type Extractor interface {
	// Name returns the source label this extractor stamps on its results
	Name() model.Source

	// ExtractFromHTML returns zero or more candidate records for one page
	ExtractFromHTML(htmlContent string, ctx *Context) []model.ExtractionResult
}

// Registry holds extractors in cascade order
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry with the built-in json-ld, microdata, and heuristic extractors
func NewRegistry(cfg *model.Config, logger *slog.Logger) *Registry {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	registry := &Registry{}
	registry.Register(NewJSONLDExtractor(cfg.JSONLD, logger))
	registry.Register(NewMicrodataExtractor(logger))
	registry.Register(NewHeuristicExtractor(cfg.Heuristic, logger))
	return registry
}

// Register appends an extractor to the cascade
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Extractors returns the extractors in cascade order
func (r *Registry) Extractors() []Extractor {
	return append([]Extractor(nil), r.extractors...)
}

// Find returns the extractor registered for source
func (r *Registry) Find(source model.Source) (Extractor, bool) {
	for _, e := range r.extractors {
		if e.Name() == source {
			return e, true
		}
	}
	return nil, false
}

// ExtractFirst runs the cascade and returns the first strategy's non-empty output
func (r *Registry) ExtractFirst(htmlContent string, ctx *Context) []model.ExtractionResult {
	for _, e := range r.extractors {
		if results := e.ExtractFromHTML(htmlContent, ctx); len(results) > 0 {
			return results
		}
	}
	return nil
}

// ExtractAll runs every strategy and concatenates their output in cascade order
func (r *Registry) ExtractAll(htmlContent string, ctx *Context) []model.ExtractionResult {
	var all []model.ExtractionResult
	for _, e := range r.extractors {
		all = append(all, e.ExtractFromHTML(htmlContent, ctx)...)
	}
	return all
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
