// Package gap scores unmet cuisine and service-attribute demand per area and
// runs the batch pass that materializes area profiles.
package gap

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gapscout/internal/config"
)

// DefaultConfig returns a config.GapConfig with the standard thresholds.
func DefaultConfig() config.GapConfig {
	return config.GapConfig{
		RadiusKM:          20,
		MinAreaBusinesses: 3,
		TopCuisineGaps:    10,
		MinNeighborDemand: 2,
		GapScoreMin:       1.0,
		AttributeGapMin:   0.05,
		Concurrency:       4,
	}
}

// ValidateConfig checks that a GapConfig is usable.
func ValidateConfig(c config.GapConfig) error {
	var errs []string
	if c.RadiusKM <= 0 {
		errs = append(errs, "radius_km must be > 0")
	}
	if c.MinAreaBusinesses < 1 {
		errs = append(errs, "min_area_businesses must be >= 1")
	}
	if c.TopCuisineGaps < 1 {
		errs = append(errs, "top_cuisine_gaps must be >= 1")
	}
	if c.MinNeighborDemand < 0 {
		errs = append(errs, "min_neighbor_demand must be >= 0")
	}
	if c.GapScoreMin < 0 {
		errs = append(errs, "gap_score_min must be >= 0")
	}
	if len(errs) > 0 {
		return eris.Errorf("gap: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
