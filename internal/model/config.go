package model

import (
	"runtime"
	"time"
)

// Config holds all runtime settings
type Config struct {
	Heuristic   HeuristicConfig   `yaml:"heuristic" mapstructure:"heuristic"`
	JSONLD      JSONLDConfig      `yaml:"jsonld" mapstructure:"jsonld"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HeuristicConfig tunes the DOM-heuristic extractor
type HeuristicConfig struct {
	MinKeywords             int     `yaml:"min_keywords" mapstructure:"min_keywords"`                           // Relevance gate: distinct restaurant keywords required
	LearnerTopN             int     `yaml:"learner_top_n" mapstructure:"learner_top_n"`                         // Learned selectors tried per field
	MaxCuisines             int     `yaml:"max_cuisines" mapstructure:"max_cuisines"`                           // Cuisine keyword cap
	CuisineDensityThreshold float64 `yaml:"cuisine_density_threshold" mapstructure:"cuisine_density_threshold"` // Cuisine hits per word that trigger the boost
	PatternConfidenceBoost  float64 `yaml:"pattern_confidence_boost" mapstructure:"pattern_confidence_boost"`   // Numeric annotation, never a tier change
}

// JSONLDConfig tunes the linked-data extractor
type JSONLDConfig struct {
	RepairMalformed bool `yaml:"repair_malformed" mapstructure:"repair_malformed"` // Try jsonrepair once before skipping a block
}

// CacheConfig controls the learned-selector cache
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// ConcurrencyConfig controls cross-site parallelism
type ConcurrencyConfig struct {
	SiteWorkers int `yaml:"site_workers" mapstructure:"site_workers"` // One session per site; sites run in parallel
}

// LoggingConfig controls the slog handler
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// OutputConfig controls result rendering
type OutputConfig struct {
	Pretty bool `yaml:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Heuristic: HeuristicConfig{
			MinKeywords:             2,
			LearnerTopN:             3,
			MaxCuisines:             3,
			CuisineDensityThreshold: 0.01,
			PatternConfidenceBoost:  0.1,
		},
		JSONLD: JSONLDConfig{
			RepairMalformed: false,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             30 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			SiteWorkers: runtime.NumCPU(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Pretty: true,
		},
	}
}
