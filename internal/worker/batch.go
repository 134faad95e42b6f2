package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ppiankov/menuscope/internal/model"
	"github.com/ppiankov/menuscope/internal/pipeline"
)

// PageExtractor runs one page through the extractor cascade
type PageExtractor interface {
	ExtractPage(ctx context.Context, s *pipeline.Session, page pipeline.Page) (*pipeline.PageResult, error)
}

// SiteJob extracts every page of one site inside its own session
type SiteJob struct {
	Site      Site
	Extractor PageExtractor
	Config    *model.Config
	Logger    *slog.Logger
}

// Execute runs the site's pages one at a time.
// A bad page is reported and skipped; a cancelled context stops the site.
func (j *SiteJob) Execute(ctx context.Context) Result {
	logger := j.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	session := pipeline.NewSession(j.Site.Name, j.Config)

	var (
		pages []*pipeline.PageResult
		errs  []error
	)
	for _, page := range j.Site.Pages {
		res, err := j.Extractor.ExtractPage(ctx, session, page)
		if err != nil {
			if ctx.Err() != nil {
				return &SiteResult{Site: j.Site.Name, Error: fmt.Errorf("site %s: %w", j.Site.Name, err)}
			}
			logger.Warn("page skipped", "site", j.Site.Name, "url", page.URL, "error", err)
			errs = append(errs, err)
			continue
		}
		pages = append(pages, res)
	}

	report := session.Report(pages, errs)
	return &SiteResult{Site: j.Site.Name, Report: &report}
}

// SiteResult is the outcome of one site
type SiteResult struct {
	Site   string
	Report *pipeline.SiteReport
	Error  error
}

// GetError returns the site-level error
func (r *SiteResult) GetError() error {
	return r.Error
}

// SiteBatchProcessor runs independent sites in parallel, one session each
type SiteBatchProcessor struct {
	extractor   PageExtractor
	config      *model.Config
	concurrency int
	logger      *slog.Logger
}

// NewSiteBatchProcessor creates a processor. Concurrency defaults to config.concurrency.site_workers.
func NewSiteBatchProcessor(extractor PageExtractor, cfg *model.Config, logger *slog.Logger) *SiteBatchProcessor {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SiteBatchProcessor{
		extractor:   extractor,
		config:      cfg,
		concurrency: cfg.Concurrency.SiteWorkers,
		logger:      logger,
	}
}

// ProcessSites returns one result per site in input order.
// Sites never started because ctx was cancelled carry the context error.
func (b *SiteBatchProcessor) ProcessSites(ctx context.Context, sites []Site) []*SiteResult {
	if len(sites) == 0 {
		return []*SiteResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, site := range sites {
		pool.Submit(&SiteJob{
			Site:      site,
			Extractor: b.extractor,
			Config:    b.config,
			Logger:    b.logger,
		})
	}

	byName := make(map[string]*SiteResult, len(sites))
	for _, res := range pool.Wait() {
		sr := res.(*SiteResult)
		byName[sr.Site] = sr
	}

	out := make([]*SiteResult, len(sites))
	for i, site := range sites {
		if sr, ok := byName[site.Name]; ok {
			out[i] = sr
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = errors.New("site not processed")
		}
		out[i] = &SiteResult{Site: site.Name, Error: fmt.Errorf("site %s: %w", site.Name, err)}
	}
	return out
}

// ProcessDir loads every site under root and processes them
func (b *SiteBatchProcessor) ProcessDir(ctx context.Context, root string) ([]*SiteResult, error) {
	sites, err := LoadSites(root)
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}
	b.logger.Info("sites loaded", "root", root, "sites", len(sites), "workers", b.concurrency)
	return b.ProcessSites(ctx, sites), nil
}
