package survival

import "github.com/sells-group/gapscout/internal/config"

// Tier is the interpretation label of a survival probability.
type Tier string

const (
	TierHigh    Tier = "high"
	TierMedium  Tier = "medium"
	TierLow     Tier = "low"
	TierVeryLow Tier = "very_low"
	// TierUnknown marks an unavailable prediction.
	TierUnknown Tier = ""
)

var tierSignals = map[Tier]string{
	TierHigh:    "Strong survival signal: concept and location align well with open businesses.",
	TierMedium:  "Moderate survival signal: viable concept but some market risk.",
	TierLow:     "Marginal survival signal: concept faces elevated closure risk at this location.",
	TierVeryLow: "Weak survival signal: model detects significant closure risk patterns.",
}

// Signal returns the human-readable sentence for a tier.
func (t Tier) Signal() string { return tierSignals[t] }

// Thresholds are the lower bounds of the high, medium and low tiers.
type Thresholds struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
}

// ThresholdsFrom reads the tier bounds from config. When p reports its own
// decision threshold, that value becomes the medium bound.
func ThresholdsFrom(cfg config.SurvivalConfig, p Predictor) Thresholds {
	th := Thresholds{High: cfg.HighThreshold, Medium: cfg.Threshold, Low: cfg.LowThreshold}
	if p != nil {
		if t := InfoOf(p).Threshold; t > th.Low && t < th.High {
			th.Medium = t
		}
	}
	return th
}

// Classify maps a probability to its tier.
func (th Thresholds) Classify(p float64) Tier {
	switch {
	case p >= th.High:
		return TierHigh
	case p >= th.Medium:
		return TierMedium
	case p >= th.Low:
		return TierLow
	default:
		return TierVeryLow
	}
}

// TierOf classifies an outcome, returning TierUnknown when unavailable.
func (th Thresholds) TierOf(o Outcome) Tier {
	if !o.Available {
		return TierUnknown
	}
	return th.Classify(o.Probability)
}
