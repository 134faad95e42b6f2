package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/menuscope/internal/pipeline"
	"github.com/ppiankov/menuscope/internal/worker"
	"github.com/spf13/cobra"
)

var (
	siteWorkers  int
	outputDir    string
	batchTimeout time.Duration
	noCache      bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Extract every site under a directory, sites in parallel",
	Long: `Batch treats each subdirectory of <dir> as one site:
- HTML files are processed in lexical order inside one session per site
- an optional site.yaml sets base_url and per-file entity ids, page types
  and relationships
- sites run in parallel; learning never crosses sites
- each site produces a JSON report of aggregated entities and metrics

Example:
  menuscope batch ./crawl
  menuscope batch ./crawl --workers 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&siteWorkers, "workers", 0, "sites processed in parallel (default: concurrency.site_workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write one <site>.json per site here instead of stdout")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the learned-selector cache")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if siteWorkers > 0 {
		cfg.Concurrency.SiteWorkers = siteWorkers
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), batchTimeout)
	defer cancel()

	processor := worker.NewSiteBatchProcessor(pipeline.NewPipeline(cfg, logger), cfg, logger)
	results, err := processor.ProcessDir(ctx, args[0])
	if err != nil {
		return err
	}

	reports := []*pipeline.SiteReport{}
	failures := 0
	for _, res := range results {
		if res.Error != nil {
			failures++
			logger.Error("site failed", "site", res.Site, "error", res.Error)
			continue
		}
		logger.Info("site done",
			"site", res.Site,
			"pages", res.Report.Metrics.TotalPages,
			"entities", len(res.Report.Entities),
			"errors", len(res.Report.Errors),
		)
		reports = append(reports, res.Report)
	}

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		for _, r := range reports {
			path := filepath.Join(outputDir, sanitizeFilename(r.Site)+".json")
			if err := writeOutput(cmd.OutOrStdout(), path, r, cfg.Output.Pretty); err != nil {
				return fmt.Errorf("site %s: %w", r.Site, err)
			}
		}
	} else if err := writeOutput(cmd.OutOrStdout(), "", reports, cfg.Output.Pretty); err != nil {
		return err
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d sites failed", failures, len(results))
	}
	return nil
}

// sanitizeFilename makes a site name safe to use as a file name
func sanitizeFilename(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			out[i] = '_'
		}
	}
	if len(out) > 100 {
		out = out[:100]
	}
	if len(out) == 0 {
		return "site"
	}
	return string(out)
}
