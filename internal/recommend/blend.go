package recommend

import (
	"hash/fnv"
	"math"
	"sort"

	"github.com/sells-group/gapscout/internal/config"
	"github.com/sells-group/gapscout/internal/supply"
	"github.com/sells-group/gapscout/internal/survival"
)

// Blender computes the composite match score of each candidate.
type Blender struct {
	cfg        config.RecommendConfig
	thresholds survival.Thresholds
}

// NewBlender creates a Blender.
func NewBlender(cfg config.RecommendConfig, th survival.Thresholds) *Blender {
	return &Blender{cfg: cfg, thresholds: th}
}

// Blend scores every candidate in place and sorts them by raw score
// descending, then area code. gaps is the sorted gap distribution of the
// whole query (see Filter.GapDistribution). Survival outcomes must already be
// attached.
func (b *Blender) Blend(cands []Candidate, gaps []float64) {
	for i := range cands {
		c := &cands[i]
		c.SurvivalTier = b.thresholds.TierOf(c.Survival)
		c.Raw = b.gapTerm(*c, gaps) +
			b.marketTerm(*c) +
			b.stabilityTerm(*c) +
			b.weakMarketPenalty(*c) +
			b.survivalBonus(c.SurvivalTier) +
			b.attributeBonus(*c) +
			c.Penalty +
			Jitter(c.Profile.Zip, b.cfg.JitterRange)
		c.Relevance = math.Min(math.Max(c.Raw, b.cfg.ScoreMin), b.cfg.ScoreMax)
		c.Score = supply.Round(c.Relevance, 1)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Raw != cands[j].Raw {
			return cands[i].Raw > cands[j].Raw
		}
		return cands[i].Profile.Zip < cands[j].Profile.Zip
	})
}

// gapTerm scales the percentile of the candidate's gap score among all
// matched gap scores of the query. Percentile ranking keeps one outlier area
// from flattening the rest.
func (b *Blender) gapTerm(c Candidate, sorted []float64) float64 {
	if c.Gap == nil || len(sorted) == 0 {
		return 0
	}
	return Percentile(sorted, c.GapScore()) * b.cfg.GapWeight
}

func (b *Blender) marketTerm(c Candidate) float64 {
	return math.Log10(float64(c.Profile.TotalReviews)+1) * b.cfg.MarketWeight
}

func (b *Blender) stabilityTerm(c Candidate) float64 {
	return (1 - c.Profile.ClosureRate) * b.cfg.StabilityWeight
}

func (b *Blender) weakMarketPenalty(c Candidate) float64 {
	switch {
	case c.Profile.ClosureRate > b.cfg.HighClosure:
		return b.cfg.HighClosurePenalty
	case c.Profile.ClosureRate > b.cfg.MediumClosure:
		return b.cfg.MediumClosurePenalty
	default:
		return 0
	}
}

func (b *Blender) survivalBonus(t survival.Tier) float64 {
	switch t {
	case survival.TierHigh:
		return b.cfg.SurvivalHighBonus
	case survival.TierMedium:
		return b.cfg.SurvivalMediumBonus
	default:
		return 0
	}
}

func (b *Blender) attributeBonus(c Candidate) float64 {
	return math.Min(float64(len(c.Profile.AttributeGaps))*b.cfg.AttrBonusPerGap, b.cfg.AttrBonusCap)
}

// Percentile returns the fraction of sorted values that are <= v.
func Percentile(sorted []float64, v float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	n := sort.Search(len(sorted), func(i int) bool { return sorted[i] > v })
	return float64(n) / float64(len(sorted))
}

// Jitter is a deterministic tie-break offset in [0, span) derived from the
// FNV-1a hash of the area code. It is not random: an area always gets the
// same offset.
func Jitter(area string, span float64) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(area))
	return float64(h.Sum32()%1000) / 1000 * span
}
