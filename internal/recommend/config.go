// Package recommend turns a concept query into a diversified, ranked list of
// city-level recommendations over the area profile snapshot.
package recommend

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gapscout/internal/config"
)

// DefaultConfig returns a config.RecommendConfig with the standard filter,
// blend and diversification constants.
func DefaultConfig() config.RecommendConfig {
	return config.RecommendConfig{
		PriceBuffer:        0.25,
		PricePenalty:       -3,
		ConfidenceFloor:    5,
		UnconfirmedPenalty: -2,
		NearExactPenalty:   -4,
		RelaxedPenalty:     -10,
		SynonymPenalty:     -2,
		ProxyPenalty:       -8,
		ReclassifyFloor:    -3,

		GapWeight:            50,
		MarketWeight:         6,
		StabilityWeight:      15,
		HighClosure:          0.40,
		HighClosurePenalty:   -8,
		MediumClosure:        0.30,
		MediumClosurePenalty: -3,
		SurvivalHighBonus:    6,
		SurvivalMediumBonus:  3,
		AttrBonusPerGap:      1.5,
		AttrBonusCap:         6,
		JitterRange:          0.5,
		ScoreMin:             0.1,
		ScoreMax:             99.9,

		Lambda:      0.7,
		MaxSubAreas: 3,

		DefaultLimit: 10,
		MaxLimit:     30,
	}
}

// ValidateConfig checks that a RecommendConfig is usable.
func ValidateConfig(c config.RecommendConfig) error {
	var errs []string
	if c.PriceBuffer < 0 {
		errs = append(errs, "price_buffer must be >= 0")
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		errs = append(errs, "lambda must be in [0, 1]")
	}
	if c.ScoreMin >= c.ScoreMax {
		errs = append(errs, "score_min must be < score_max")
	}
	if c.MaxLimit < 1 || c.DefaultLimit < 1 || c.DefaultLimit > c.MaxLimit {
		errs = append(errs, "default_limit must be in [1, max_limit]")
	}
	if c.MaxSubAreas < 1 {
		errs = append(errs, "max_sub_areas must be >= 1")
	}
	if c.JitterRange < 0 {
		errs = append(errs, "jitter_range must be >= 0")
	}
	if len(errs) > 0 {
		return eris.Errorf("recommend: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
