package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/menuscope/internal/model"
	"github.com/ppiankov/menuscope/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const rosaPage = `<html><body><h1>Rosa's Kitchen</h1><p>Our menu changes daily.</p><p>Call 555-867-5309 to book.</p></body></html>`

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MENUSCOPE_CACHE_ENABLED", "false")
	t.Setenv("MENUSCOPE_HEURISTIC_MIN_KEYWORDS", "4")
	t.Setenv("MENUSCOPE_CACHE_TTL", "5m")

	v := viper.New()
	setDefaults(v, model.DefaultConfig())
	v.SetEnvPrefix("MENUSCOPE")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 4, cfg.Heuristic.MinKeywords)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 3, cfg.Heuristic.LearnerTopN, "unset keys keep their defaults")
}

func TestLoadConfig_FileAndVerbose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  pretty: false\nconcurrency:\n  site_workers: 3\n"), 0o644))

	v := viper.New()
	setDefaults(v, model.DefaultConfig())
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	v.Set("verbose", true)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.False(t, cfg.Output.Pretty)
	assert.Equal(t, 3, cfg.Concurrency.SiteWorkers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := newLogger(model.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "v", line["k"])

	_, err = newLogger(model.LoggingConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
	_, err = newLogger(model.LoggingConfig{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, 2, cfg.Heuristic.MinKeywords)
	assert.True(t, cfg.Cache.Enabled)

	assert.Error(t, writeDefaultConfig(path), "existing files are never overwritten")
}

func TestRunExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rosa.html")
	require.NoError(t, os.WriteFile(path, []byte(rosaPage), 0o644))

	pageURL = "https://rosa.example/"
	t.Cleanup(func() { pageURL = "" })

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, runExtract(cmd, []string{path}))

	var res pipeline.PageResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "rosa", res.EntityID)
	assert.Equal(t, model.PageTypeDetail, res.PageType)
	assert.Equal(t, model.SourceHeuristic, res.Method)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Rosa's Kitchen", res.Results[0].Name)
}

func TestRunExtract_MissingFile(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, runExtract(cmd, []string{filepath.Join(t.TempDir(), "nope.html")}))
}

func TestRunBatch(t *testing.T) {
	root := t.TempDir()
	site := filepath.Join(root, "rosa.example")
	require.NoError(t, os.MkdirAll(site, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(site, "rosa.html"), []byte(rosaPage), 0o644))

	outputDir = filepath.Join(root, "reports")
	t.Cleanup(func() { outputDir = "" })

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, runBatch(cmd, []string{root}))

	data, err := os.ReadFile(filepath.Join(outputDir, "rosa.example.json"))
	require.NoError(t, err)

	var report pipeline.SiteReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "rosa.example", report.Site)
	require.Len(t, report.Entities, 1)
	assert.Equal(t, "Rosa's Kitchen", report.Entities[0].Result.Name)
}

func TestWriteOutput_Compact(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "", map[string]int{"a": 1}, false))
	assert.Equal(t, "{\"a\":1}\n", buf.String())
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "example.com", sanitizeFilename("example.com"))
	assert.Equal(t, "a_b_c", sanitizeFilename("a/b:c"))
	assert.Equal(t, "site", sanitizeFilename(""))
}
