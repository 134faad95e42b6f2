package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/ppiankov/menuscope/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is stamped at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// envKeyReplacer maps config keys onto MENUSCOPE_ variable names
var envKeyReplacer = strings.NewReplacer(".", "_")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "menuscope",
	Short: "Menuscope - restaurant facts from saved HTML",
	Long: `Menuscope extracts restaurant facts (name, address, phone, hours, price range,
cuisine, menu) from already-fetched HTML pages.

Each page runs through an ordered cascade: JSON-LD, then microdata, then DOM
heuristics. Pages of one site share a session, so selectors that worked on one
page are tried first on the next. Menuscope never fetches anything.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command; an interrupt cancels the running command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "menuscope %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.menuscope/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".menuscope"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	setDefaults(viper.GetViper(), model.DefaultConfig())

	// MENUSCOPE_CACHE_ENABLED=false overrides cache.enabled
	viper.SetEnvPrefix("MENUSCOPE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so environment overrides resolve
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("heuristic.min_keywords", cfg.Heuristic.MinKeywords)
	v.SetDefault("heuristic.learner_top_n", cfg.Heuristic.LearnerTopN)
	v.SetDefault("heuristic.max_cuisines", cfg.Heuristic.MaxCuisines)
	v.SetDefault("heuristic.cuisine_density_threshold", cfg.Heuristic.CuisineDensityThreshold)
	v.SetDefault("heuristic.pattern_confidence_boost", cfg.Heuristic.PatternConfidenceBoost)
	v.SetDefault("jsonld.repair_malformed", cfg.JSONLD.RepairMalformed)
	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.cleanup_interval", cfg.Cache.CleanupInterval)
	v.SetDefault("concurrency.site_workers", cfg.Concurrency.SiteWorkers)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("output.pretty", cfg.Output.Pretty)
}

// loadConfig merges defaults, config file and environment
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if v.GetBool("verbose") {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the slog handler named by the logging section
func newLogger(cfg model.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("logging.format: unknown format %q", cfg.Format)
	}
}

// setup loads config and logger for a command
func setup(cmd *cobra.Command) (*model.Config, *slog.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
