package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Gap       GapConfig       `yaml:"gap" mapstructure:"gap"`
	Recommend RecommendConfig `yaml:"recommend" mapstructure:"recommend"`
	Survival  SurvivalConfig  `yaml:"survival" mapstructure:"survival"`
	Tables    TablesConfig    `yaml:"tables" mapstructure:"tables"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures where area profiles are persisted.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // json | sqlite | postgres
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// InputConfig locates the business snapshot produced by the ETL.
type InputConfig struct {
	BusinessesPath string `yaml:"businesses_path" mapstructure:"businesses_path"`
}

// GapConfig configures the batch gap analysis.
type GapConfig struct {
	RadiusKM          float64 `yaml:"radius_km" mapstructure:"radius_km"`
	MinAreaBusinesses int     `yaml:"min_area_businesses" mapstructure:"min_area_businesses"`
	TopCuisineGaps    int     `yaml:"top_cuisine_gaps" mapstructure:"top_cuisine_gaps"`
	MinNeighborDemand int     `yaml:"min_neighbor_demand" mapstructure:"min_neighbor_demand"`
	GapScoreMin       float64 `yaml:"gap_score_min" mapstructure:"gap_score_min"`
	AttributeGapMin   float64 `yaml:"attribute_gap_min" mapstructure:"attribute_gap_min"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// RecommendConfig holds the filter, blend and diversification constants of
// the query pipeline.
type RecommendConfig struct {
	// Filter.
	PriceBuffer        float64 `yaml:"price_buffer" mapstructure:"price_buffer"`
	PricePenalty       float64 `yaml:"price_penalty" mapstructure:"price_penalty"`
	ConfidenceFloor    int     `yaml:"confidence_floor" mapstructure:"confidence_floor"`
	UnconfirmedPenalty float64 `yaml:"unconfirmed_penalty" mapstructure:"unconfirmed_penalty"`
	NearExactPenalty   float64 `yaml:"near_exact_penalty" mapstructure:"near_exact_penalty"`
	RelaxedPenalty     float64 `yaml:"relaxed_penalty" mapstructure:"relaxed_penalty"`
	SynonymPenalty     float64 `yaml:"synonym_penalty" mapstructure:"synonym_penalty"`
	ProxyPenalty       float64 `yaml:"proxy_penalty" mapstructure:"proxy_penalty"`
	ReclassifyFloor    float64 `yaml:"reclassify_floor" mapstructure:"reclassify_floor"`

	// Blend.
	GapWeight            float64 `yaml:"gap_weight" mapstructure:"gap_weight"`
	MarketWeight         float64 `yaml:"market_weight" mapstructure:"market_weight"`
	StabilityWeight      float64 `yaml:"stability_weight" mapstructure:"stability_weight"`
	HighClosure          float64 `yaml:"high_closure" mapstructure:"high_closure"`
	HighClosurePenalty   float64 `yaml:"high_closure_penalty" mapstructure:"high_closure_penalty"`
	MediumClosure        float64 `yaml:"medium_closure" mapstructure:"medium_closure"`
	MediumClosurePenalty float64 `yaml:"medium_closure_penalty" mapstructure:"medium_closure_penalty"`
	SurvivalHighBonus    float64 `yaml:"survival_high_bonus" mapstructure:"survival_high_bonus"`
	SurvivalMediumBonus  float64 `yaml:"survival_medium_bonus" mapstructure:"survival_medium_bonus"`
	AttrBonusPerGap      float64 `yaml:"attr_bonus_per_gap" mapstructure:"attr_bonus_per_gap"`
	AttrBonusCap         float64 `yaml:"attr_bonus_cap" mapstructure:"attr_bonus_cap"`
	JitterRange          float64 `yaml:"jitter_range" mapstructure:"jitter_range"`
	ScoreMin             float64 `yaml:"score_min" mapstructure:"score_min"`
	ScoreMax             float64 `yaml:"score_max" mapstructure:"score_max"`

	// Diversify.
	Lambda      float64 `yaml:"lambda" mapstructure:"lambda"`
	MaxSubAreas int     `yaml:"max_sub_areas" mapstructure:"max_sub_areas"`

	// Limits.
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int `yaml:"max_limit" mapstructure:"max_limit"`
}

// SurvivalConfig configures the survival predictor.
type SurvivalConfig struct {
	Provider         string  `yaml:"provider" mapstructure:"provider"` // local | http | none
	ModelPath        string  `yaml:"model_path" mapstructure:"model_path"`
	URL              string  `yaml:"url" mapstructure:"url"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
	// PrefetchBudget is the share of a query's remaining deadline the
	// survival prefetch may use; PrefetchTimeoutMS applies without a deadline.
	PrefetchBudget    float64 `yaml:"prefetch_budget" mapstructure:"prefetch_budget"`
	PrefetchTimeoutMS int     `yaml:"prefetch_timeout_ms" mapstructure:"prefetch_timeout_ms"`
	HighThreshold     float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	Threshold         float64 `yaml:"threshold" mapstructure:"threshold"`
	LowThreshold      float64 `yaml:"low_threshold" mapstructure:"low_threshold"`
}

// TablesConfig points at an optional YAML override of the lookup tables.
type TablesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GAPSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "json")
	v.SetDefault("store.path", "data/gap_analysis.json")
	v.SetDefault("store.max_conns", 5)
	v.SetDefault("input.businesses_path", "data/businesses.json")
	v.SetDefault("gap.radius_km", 20.0)
	v.SetDefault("gap.min_area_businesses", 3)
	v.SetDefault("gap.top_cuisine_gaps", 10)
	v.SetDefault("gap.min_neighbor_demand", 2)
	v.SetDefault("gap.gap_score_min", 1.0)
	v.SetDefault("gap.attribute_gap_min", 0.05)
	v.SetDefault("gap.concurrency", 4)
	v.SetDefault("recommend.price_buffer", 0.25)
	v.SetDefault("recommend.price_penalty", -3.0)
	v.SetDefault("recommend.confidence_floor", 5)
	v.SetDefault("recommend.unconfirmed_penalty", -2.0)
	v.SetDefault("recommend.near_exact_penalty", -4.0)
	v.SetDefault("recommend.relaxed_penalty", -10.0)
	v.SetDefault("recommend.synonym_penalty", -2.0)
	v.SetDefault("recommend.proxy_penalty", -8.0)
	v.SetDefault("recommend.reclassify_floor", -3.0)
	v.SetDefault("recommend.gap_weight", 50.0)
	v.SetDefault("recommend.market_weight", 6.0)
	v.SetDefault("recommend.stability_weight", 15.0)
	v.SetDefault("recommend.high_closure", 0.40)
	v.SetDefault("recommend.high_closure_penalty", -8.0)
	v.SetDefault("recommend.medium_closure", 0.30)
	v.SetDefault("recommend.medium_closure_penalty", -3.0)
	v.SetDefault("recommend.survival_high_bonus", 6.0)
	v.SetDefault("recommend.survival_medium_bonus", 3.0)
	v.SetDefault("recommend.attr_bonus_per_gap", 1.5)
	v.SetDefault("recommend.attr_bonus_cap", 6.0)
	v.SetDefault("recommend.jitter_range", 0.5)
	v.SetDefault("recommend.score_min", 0.1)
	v.SetDefault("recommend.score_max", 99.9)
	v.SetDefault("recommend.lambda", 0.7)
	v.SetDefault("recommend.max_sub_areas", 3)
	v.SetDefault("recommend.default_limit", 10)
	v.SetDefault("recommend.max_limit", 30)
	v.SetDefault("survival.provider", "local")
	v.SetDefault("survival.model_path", "models/survival_logistic.json")
	v.SetDefault("survival.timeout_secs", 5)
	v.SetDefault("survival.rate_limit_rps", 20.0)
	v.SetDefault("survival.failure_threshold", 5)
	v.SetDefault("survival.reset_timeout_secs", 30)
	v.SetDefault("survival.concurrency", 8)
	v.SetDefault("survival.prefetch_budget", 0.5)
	v.SetDefault("survival.prefetch_timeout_ms", 2000)
	v.SetDefault("survival.high_threshold", 0.75)
	v.SetDefault("survival.threshold", 0.55)
	v.SetDefault("survival.low_threshold", 0.40)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks value ranges across all sections plus the requirements of
// the given mode ("batch", "query" or "serve").
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "batch":
		if c.Input.BusinessesPath == "" {
			errs = append(errs, "input.businesses_path is required")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
	}

	switch c.Store.Driver {
	case "json", "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for the "+c.Store.Driver+" driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be json, sqlite or postgres", c.Store.Driver))
	}

	if c.Gap.RadiusKM <= 0 {
		errs = append(errs, "gap.radius_km must be > 0")
	}
	if c.Gap.MinAreaBusinesses < 1 {
		errs = append(errs, "gap.min_area_businesses must be >= 1")
	}
	if c.Gap.TopCuisineGaps < 1 {
		errs = append(errs, "gap.top_cuisine_gaps must be >= 1")
	}
	if c.Gap.AttributeGapMin < 0 || c.Gap.AttributeGapMin >= 1 {
		errs = append(errs, "gap.attribute_gap_min must be in [0, 1)")
	}

	r := c.Recommend
	if r.PriceBuffer < 0 {
		errs = append(errs, "recommend.price_buffer must be >= 0")
	}
	if r.Lambda < 0 || r.Lambda > 1 {
		errs = append(errs, "recommend.lambda must be in [0, 1]")
	}
	if r.ScoreMin >= r.ScoreMax {
		errs = append(errs, "recommend.score_min must be < score_max")
	}
	if r.DefaultLimit < 1 || r.DefaultLimit > r.MaxLimit {
		errs = append(errs, "recommend.default_limit must be in [1, max_limit]")
	}
	if r.MaxSubAreas < 1 {
		errs = append(errs, "recommend.max_sub_areas must be >= 1")
	}

	s := c.Survival
	switch s.Provider {
	case "none":
	case "local":
		if s.ModelPath == "" {
			errs = append(errs, "survival.model_path is required for the local provider")
		}
	case "http":
		if s.URL == "" {
			errs = append(errs, "survival.url is required for the http provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("survival.provider %q must be local, http or none", s.Provider))
	}
	if s.PrefetchBudget < 0 || s.PrefetchBudget > 1 {
		errs = append(errs, "survival.prefetch_budget must be in [0, 1]")
	}
	if !(s.LowThreshold <= s.Threshold && s.Threshold <= s.HighThreshold) {
		errs = append(errs, "survival thresholds must satisfy low <= threshold <= high")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
