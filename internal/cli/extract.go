package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/menuscope/internal/model"
	"github.com/ppiankov/menuscope/internal/pipeline"
	"github.com/ppiankov/menuscope/internal/worker"
	"github.com/spf13/cobra"
)

var (
	pageURL      string
	pageType     string
	pageEntityID string
	pageParentID string
	outPath      string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file.html>",
	Short: "Extract restaurant facts from one saved HTML page",
	Long: `Extract runs one page through the JSON-LD, microdata and heuristic
extractors and prints the accepted results, the strategy that produced them,
and any disagreement between strategies.

Example:
  menuscope extract rosa.html --url https://rosa.example/
  menuscope extract city.html --page-type directory --out city.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&pageURL, "url", "", "page URL used to resolve relative links (default: file:// path)")
	extractCmd.Flags().StringVar(&pageType, "page-type", "", "directory, detail, menu or other (default: inferred from file name)")
	extractCmd.Flags().StringVar(&pageEntityID, "entity-id", "", "entity id (default: file name without extension)")
	extractCmd.Flags().StringVar(&pageParentID, "parent-id", "", "parent entity id")
	extractCmd.Flags().StringVarP(&outPath, "out", "o", "", "write JSON here instead of stdout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	path := args[0]
	content, err := worker.ReadPage(path)
	if err != nil {
		return err
	}

	page := pipeline.Page{
		EntityID: pageEntityID,
		ParentID: pageParentID,
		URL:      pageURL,
		HTML:     content,
	}
	if page.EntityID == "" {
		base := filepath.Base(path)
		page.EntityID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if page.URL == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve path: %w", err)
		}
		page.URL = "file://" + filepath.ToSlash(abs)
	}
	if pageType != "" {
		page.Type = model.ParsePageType(pageType)
	} else {
		page.Type = worker.InferPageType(path)
	}

	session := pipeline.NewSession(page.URL, cfg)
	res, err := pipeline.NewPipeline(cfg, logger).ExtractPage(commandContext(cmd), session, page)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	logger.Info("page extracted", "file", path, "method", res.Method, "results", len(res.Results))
	return writeOutput(cmd.OutOrStdout(), outPath, res, cfg.Output.Pretty)
}

// writeOutput renders v as JSON to path, or to w when path is empty
func writeOutput(w io.Writer, path string, v any, pretty bool) (err error) {
	if path != "" {
		var f *os.File
		f, err = os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		w = f
	}

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// commandContext returns the command's context or a background one
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
