// Package config owns the immutable study configuration. A Config is
// loaded once, validated, and threaded through each component's
// constructor; components never reach for ambient global state, so runs
// with different configurations can coexist.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"sentfactor/internal/dataset"
)

const dateLayout = "2006-01-02"

// Config represents the complete study configuration
type Config struct {
	Study      StudyConfig      `yaml:"study" envconfig:"STUDY"`
	Sentiment  SentimentConfig  `yaml:"sentiment" envconfig:"SENTIMENT"`
	Estimation EstimationConfig `yaml:"estimation" envconfig:"ESTIMATION"`
	Robustness RobustnessConfig `yaml:"robustness" envconfig:"ROBUSTNESS"`
	Feeds      FeedsConfig      `yaml:"feeds" envconfig:"FEEDS"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Export     ExportConfig     `yaml:"export" envconfig:"EXPORT"`
}

// StudyConfig pins the study window and instrument universe
type StudyConfig struct {
	StartDate string   `yaml:"start_date" envconfig:"START_DATE" validate:"required,studydate"`
	EndDate   string   `yaml:"end_date" envconfig:"END_DATE" validate:"required,studydate"`
	Universe  []string `yaml:"universe" envconfig:"UNIVERSE" validate:"required,min=1,dive,required"`
	// Closed indicator sets; unknown names fail validation at load time
	FundamentalIndicators []string `yaml:"fundamental_indicators" envconfig:"FUNDAMENTAL_INDICATORS" validate:"required,min=1"`
	MacroIndicators       []string `yaml:"macro_indicators" envconfig:"MACRO_INDICATORS" validate:"required,min=1"`
	Holidays              []string `yaml:"holidays" envconfig:"HOLIDAYS" validate:"dive,studydate"`
}

// SentimentConfig tunes per-article scoring and stock-day aggregation
type SentimentConfig struct {
	// Weight of the general-purpose polarity baseline; the finance lexicon
	// gets the remaining 1-w. Tunable to keep reproducibility auditable.
	LexiconBlendWeight float64 `yaml:"lexicon_blend_weight" envconfig:"LEXICON_BLEND_WEIGHT" validate:"gte=0,lte=1"`
	ExtremeThreshold   float64 `yaml:"extreme_threshold" envconfig:"EXTREME_THRESHOLD" validate:"gt=0,lte=1"`
	MomentumWindow     int     `yaml:"momentum_window" envconfig:"MOMENTUM_WINDOW" validate:"gte=1"`
	// Policy for articles with no resolvable instrument: "drop" excludes
	// them from per-stock aggregation (default); "broadcast" attributes
	// them to every instrument in the universe.
	UnlinkedNewsPolicy string `yaml:"unlinked_news_policy" envconfig:"UNLINKED_NEWS_POLICY" validate:"oneof=drop broadcast"`
}

// EstimationConfig tunes the factor model estimator
type EstimationConfig struct {
	ClusteringSchemes     []string `yaml:"clustering_schemes" envconfig:"CLUSTERING_SCHEMES" validate:"required,min=1,dive,oneof=none firm time twoway"`
	SignificanceThreshold float64  `yaml:"significance_threshold" envconfig:"SIGNIFICANCE_THRESHOLD" validate:"gt=0"`
	MinRegressionObs      int      `yaml:"min_regression_obs" envconfig:"MIN_REGRESSION_OBS" validate:"gte=10"`
	MomentumLookback      int      `yaml:"momentum_lookback" envconfig:"MOMENTUM_LOOKBACK" validate:"gte=2"`
}

// RobustnessConfig bounds the resampling procedures so runs can be
// time-boxed.
type RobustnessConfig struct {
	BootstrapIterations int      `yaml:"bootstrap_iterations" envconfig:"BOOTSTRAP_ITERATIONS" validate:"gte=1"`
	BlockLength         int      `yaml:"block_length" envconfig:"BLOCK_LENGTH" validate:"gte=1"`
	ShuffleIterations   int      `yaml:"shuffle_iterations" envconfig:"SHUFFLE_ITERATIONS" validate:"gte=1"`
	RandomSeed          int64    `yaml:"random_seed" envconfig:"RANDOM_SEED"`
	BreakDates          []string `yaml:"break_dates" envconfig:"BREAK_DATES" validate:"dive,studydate"`
	MaxConcurrency      int      `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" validate:"gte=1"`
}

// FeedsConfig selects the data-acquisition variant. The synthetic variant
// is the only one implemented in this module; live fetching belongs to the
// excluded acquisition layer.
type FeedsConfig struct {
	Variant    string `yaml:"variant" envconfig:"VARIANT" validate:"oneof=synthetic live"`
	Seed       int64  `yaml:"seed" envconfig:"SEED"`
	NewsPerDay int    `yaml:"news_per_day" envconfig:"NEWS_PER_DAY" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// ExportConfig configures the tabular export surface
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	Format    string `yaml:"format" envconfig:"FORMAT" validate:"oneof=csv xlsx both"`
}

// Load reads configuration from an optional YAML file and environment
// variables (env takes precedence, prefix SENTF), fills defaults and
// validates the result.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := envconfig.Process("SENTF", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration: a 2015-2024 study over a
// large-cap universe with the full closed indicator sets.
func Default() *Config {
	return &Config{
		Study: StudyConfig{
			StartDate:             "2015-01-01",
			EndDate:               "2024-12-31",
			Universe:              defaultUniverse(),
			FundamentalIndicators: dataset.FundamentalIndicators(),
			MacroIndicators:       dataset.MacroSeries(),
		},
		Sentiment: SentimentConfig{
			LexiconBlendWeight: 0.6,
			ExtremeThreshold:   0.6,
			MomentumWindow:     5,
			UnlinkedNewsPolicy: "drop",
		},
		Estimation: EstimationConfig{
			ClusteringSchemes:     []string{"none", "firm", "time", "twoway"},
			SignificanceThreshold: 3.5,
			MinRegressionObs:      30,
			MomentumLookback:      21,
		},
		Robustness: RobustnessConfig{
			BootstrapIterations: 1000,
			BlockLength:         5,
			ShuffleIterations:   500,
			RandomSeed:          42,
			BreakDates:          []string{"2020-03-01", "2022-01-01"},
			MaxConcurrency:      4,
		},
		Feeds: FeedsConfig{
			Variant:    "synthetic",
			Seed:       42,
			NewsPerDay: 6,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/study.log",
		},
		Export: ExportConfig{
			OutputDir: "results",
			Format:    "both",
		},
	}
}

// Validate checks the configuration through struct tags plus the
// cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("studydate", isStudyDate); err != nil {
		return fmt.Errorf("register validator: %w", err)
	}

	if err := v.Struct(c); err != nil {
		return err
	}

	start, _ := time.Parse(dateLayout, c.Study.StartDate)
	end, _ := time.Parse(dateLayout, c.Study.EndDate)
	if !start.Before(end) {
		return fmt.Errorf("study start %s must precede end %s", c.Study.StartDate, c.Study.EndDate)
	}

	for _, name := range c.Study.FundamentalIndicators {
		if !dataset.IsFundamentalIndicator(name) {
			return fmt.Errorf("unknown fundamental indicator %q", name)
		}
	}
	for _, name := range c.Study.MacroIndicators {
		if !dataset.IsMacroSeries(name) {
			return fmt.Errorf("unknown macro series %q", name)
		}
	}

	for _, d := range c.Robustness.BreakDates {
		bd, err := time.Parse(dateLayout, d)
		if err != nil {
			return fmt.Errorf("parse break date %q: %w", d, err)
		}
		if bd.Before(start) || bd.After(end) {
			return fmt.Errorf("break date %s outside study window", d)
		}
	}

	if c.Logging.Output != "stdout" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging output %q requires a file path", c.Logging.Output)
	}

	return nil
}

// isStudyDate validates the YYYY-MM-DD date format
func isStudyDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(dateLayout, fl.Field().String())
	return err == nil
}

// Window returns the parsed study window. Validate must have succeeded.
func (c *Config) Window() (start, end time.Time) {
	start, _ = time.Parse(dateLayout, c.Study.StartDate)
	end, _ = time.Parse(dateLayout, c.Study.EndDate)
	return start, end
}

// HolidayDates returns the parsed exchange holidays
func (c *Config) HolidayDates() []time.Time {
	out := make([]time.Time, 0, len(c.Study.Holidays))
	for _, h := range c.Study.Holidays {
		if d, err := time.Parse(dateLayout, h); err == nil {
			out = append(out, d)
		}
	}
	return out
}

// ParsedBreakDates returns the candidate structural break points
func (c *Config) ParsedBreakDates() []time.Time {
	out := make([]time.Time, 0, len(c.Robustness.BreakDates))
	for _, d := range c.Robustness.BreakDates {
		if bd, err := time.Parse(dateLayout, d); err == nil {
			out = append(out, bd)
		}
	}
	return out
}

// Schemes returns the configured clustering schemes as typed values
func (c *Config) Schemes() []dataset.ClusterScheme {
	out := make([]dataset.ClusterScheme, 0, len(c.Estimation.ClusteringSchemes))
	for _, s := range c.Estimation.ClusteringSchemes {
		out = append(out, dataset.ClusterScheme(s))
	}
	return out
}

// defaultUniverse returns the default large-cap universe
func defaultUniverse() []string {
	return []string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "BRK-B", "UNH", "JNJ",
		"JPM", "V", "PG", "XOM", "HD", "CVX", "MA", "BAC", "ABBV", "PFE",
		"AVGO", "KO", "LLY", "WMT", "PEP", "TMO", "COST", "MRK", "DIS", "ABT",
	}
}
