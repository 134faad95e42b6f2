package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ppiankov/menuscope/internal/extract"
	"github.com/ppiankov/menuscope/internal/model"
	"github.com/ppiankov/menuscope/internal/reconcile"
)

// ErrEmptyPage is returned for a page with no HTML
var ErrEmptyPage = errors.New("empty page")

// microdataProps maps result fields to the itemprop that fills them
var microdataProps = map[string]string{
	"name":        "name",
	"address":     "address",
	"phone":       "telephone",
	"hours":       "openingHours",
	"price_range": "priceRange",
	"cuisine":     "servesCuisine",
}

// Pipeline runs the extractor cascade over one page at a time and feeds the session
type Pipeline struct {
	registry   *extract.Registry
	resolver   *reconcile.ConflictResolver
	directory  *reconcile.DirectoryListingCorrelator
	correlator *reconcile.DataCorrelator
	config     *model.Config
	logger     *slog.Logger
}

// NewPipeline creates a pipeline with the built-in extractors
func NewPipeline(cfg *model.Config, logger *slog.Logger) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Pipeline{
		registry:   extract.NewRegistry(cfg, logger),
		resolver:   reconcile.NewConflictResolver(),
		directory:  reconcile.NewDirectoryListingCorrelator(logger),
		correlator: reconcile.NewDataCorrelator(),
		config:     cfg,
		logger:     logger,
	}
}

// PageResult is the outcome of one page
type PageResult struct {
	URL        string                   `json:"url"`
	EntityID   string                   `json:"entity_id,omitempty"`
	PageType   model.PageType           `json:"page_type"`
	Method     model.Source             `json:"method,omitempty"` // strategy whose results were accepted
	Results    []model.ExtractionResult `json:"results"`
	Conflicts  map[string][]string      `json:"conflicts,omitempty"`   // disagreement across strategies
	Listings   []reconcile.Listing      `json:"listings,omitempty"`    // directory pages only
	WithParent *model.ExtractionResult  `json:"with_parent,omitempty"` // first result filled from the parent record
	Candidates int                      `json:"candidates"`            // results produced by every strategy
}

// ExtractPage runs every strategy on page, accepts the first non-empty one in
// cascade order, and records the outcome in the session.
// Pages without any signal succeed with no results.
func (p *Pipeline) ExtractPage(ctx context.Context, s *Session, page Page) (*PageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract %s: %w", page.URL, err)
	}
	if strings.TrimSpace(page.HTML) == "" {
		return nil, fmt.Errorf("extract %s: %w", page.URL, ErrEmptyPage)
	}
	if page.Type == "" {
		page.Type = model.PageTypeOther
	}

	ectx := s.NewContext(page)
	result := &PageResult{
		URL:      page.URL,
		EntityID: page.EntityID,
		PageType: page.Type,
		Results:  []model.ExtractionResult{},
	}

	// 1. Every strategy runs so the heuristic keeps learning and disagreements surface
	var candidates []model.ExtractionResult
	for _, e := range p.registry.Extractors() {
		found := e.ExtractFromHTML(page.HTML, ectx)
		s.Effectiveness.Record(string(e.Name()), len(found) > 0)
		if e.Name() == model.SourceMicrodata {
			p.recognize(s, found)
		}

		candidates = append(candidates, found...)
		if result.Method == "" && len(found) > 0 {
			result.Method = e.Name()
			result.Results = found
		}
	}
	result.Candidates = len(candidates)

	// 2. Directory pages list many entities; everything else describes one
	if page.Type == model.PageTypeDirectory {
		result.Listings = p.directory.Correlate(page.HTML, page.URL)
		for _, r := range result.Results {
			s.Mentions.Track(r.Name, page.URL, r, r.Metadata.Timestamp)
		}
	} else {
		if res, ok := p.resolver.ResolveConflicts(candidates); ok && res.HasConflicts() {
			result.Conflicts = res.Conflicts
			p.logger.Debug("strategies disagree", "url", page.URL, "fields", len(res.Conflicts))
		}
		if len(result.Results) > 0 && ectx.ParentData != nil {
			merged := p.correlator.MergeParentChild(*ectx.ParentData, result.Results[0])
			result.WithParent = &merged
		}
		for _, r := range result.Results {
			s.remember(r)
			s.Mentions.Track(r.Name, page.URL, r, r.Metadata.Timestamp)
		}
	}

	// 3. Metrics
	var confidence model.Confidence
	if len(result.Results) > 0 {
		confidence = result.Results[0].Confidence
	}
	s.Metrics.RecordExtraction(page.EntityID, result.Method, len(result.Results) > 0, confidence)

	p.logger.Debug("page extracted",
		"url", page.URL,
		"page_type", page.Type,
		"method", result.Method,
		"results", len(result.Results),
		"candidates", result.Candidates,
	)

	return result, nil
}

// recognize tallies which itemprops produced values
func (p *Pipeline) recognize(s *Session, results []model.ExtractionResult) {
	for _, r := range results {
		for _, field := range model.CoreFields {
			selector := fmt.Sprintf("[itemprop=%s]", microdataProps[field])
			s.Recognizer.Record(field, selector, strings.TrimSpace(r.Field(field)) != "")
		}
	}
}
