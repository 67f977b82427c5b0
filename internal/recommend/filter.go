package recommend

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/gapscout/internal/config"
	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/supply"
	"github.com/sells-group/gapscout/internal/survival"
	"github.com/sells-group/gapscout/internal/tables"
)

// MatchType reports how closely a candidate satisfies the query.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchRelaxed MatchType = "relaxed"
)

// Candidate is one area that survived filtering, with its query-specific
// annotations. Candidates live for a single query.
type Candidate struct {
	Profile   model.AreaProfile
	MatchType MatchType
	Issues    []string
	// Gap is the cuisine gap the score is based on: direct, synonym-matched
	// or a proxy estimate. Nil when the area has no gap at all.
	Gap     *model.CuisineGap
	Penalty float64

	Survival     survival.Outcome
	SurvivalTier survival.Tier

	// Raw is the unclamped blended score used for ordering.
	Raw float64
	// Relevance is Raw clamped to the score bounds.
	Relevance float64
	// Score is Relevance rounded to one decimal.
	Score float64
}

// GapScore returns the matched gap score, or zero without a gap.
func (c Candidate) GapScore() float64 {
	if c.Gap == nil {
		return 0
	}
	return c.Gap.GapScore
}

func (c *Candidate) penalize(p float64, issue string) {
	c.Penalty += p
	if issue != "" {
		c.Issues = append(c.Issues, issue)
	}
}

// Filter applies the hard and tolerance-based filters of a query.
type Filter struct {
	cfg    config.RecommendConfig
	tables *tables.Tables
}

// NewFilter creates a Filter.
func NewFilter(cfg config.RecommendConfig, t *tables.Tables) *Filter {
	return &Filter{cfg: cfg, tables: t}
}

// Apply returns the candidates that survive q, in input order.
func (f *Filter) Apply(profiles []model.AreaProfile, q resolved) []Candidate {
	out := make([]Candidate, 0, len(profiles))
	for i := range profiles {
		if c, ok := f.evaluate(profiles[i], q); ok {
			out = append(out, c)
		}
	}
	return out
}

// GapDistribution returns the sorted query-matched gap scores of every
// profile, ahead of the hard filters. Blend ranks candidates against it so a
// candidate's gap term does not depend on which other areas were filtered out.
func (f *Filter) GapDistribution(profiles []model.AreaProfile, q resolved) []float64 {
	scores := make([]float64, 0, len(profiles))
	for i := range profiles {
		c := Candidate{Profile: profiles[i]}
		if f.matchCuisine(&c, q) && c.Gap != nil {
			scores = append(scores, c.GapScore())
		}
	}
	sort.Float64s(scores)
	return scores
}

func (f *Filter) evaluate(p model.AreaProfile, q resolved) (Candidate, bool) {
	c := Candidate{Profile: p, MatchType: MatchExact}

	if p.TotalReviews < q.MinMarketSize {
		return c, false
	}

	if !q.accepted[p.Risk()] {
		return c, false
	}

	if q.MaxPriceTier != nil {
		limit := *q.MaxPriceTier
		switch {
		case p.AvgPrice > limit+f.cfg.PriceBuffer:
			return c, false
		case p.AvgPrice > limit:
			c.penalize(f.cfg.PricePenalty, fmt.Sprintf(
				"Average price tier %s is slightly above requested %s", fmtNum(p.AvgPrice), fmtNum(limit)))
		}
	}

	if len(q.attributes) > 0 {
		f.checkAttributes(&c, q)
	}

	if !f.matchCuisine(&c, q) {
		return c, false
	}

	if c.Penalty >= f.cfg.ReclassifyFloor {
		c.MatchType = MatchExact
	}
	return c, true
}

func (f *Filter) checkAttributes(c *Candidate, q resolved) {
	var missing []string
	for _, a := range q.attributes {
		if !c.Profile.HasAttributeGap(a.Label) {
			missing = append(missing, a.Label)
		}
	}
	if len(missing) == 0 {
		return
	}

	required := len(q.attributes)
	satisfied := required - len(missing)
	list := strings.Join(missing, ", ")

	switch {
	case f.localSample(c.Profile, q) < f.cfg.ConfidenceFloor:
		c.penalize(f.cfg.UnconfirmedPenalty, "Attribute gap unconfirmed (small local sample): "+list)
	case required >= 2 && satisfied*2 >= required:
		c.penalize(f.cfg.NearExactPenalty, "Partial attribute match, missing: "+list)
	default:
		c.MatchType = MatchRelaxed
		c.penalize(f.cfg.RelaxedPenalty, "Missing attribute gap: "+list)
	}
}

// localSample is the number of open local businesses in the query's cuisine
// family, or all open businesses when the query names no cuisine.
func (f *Filter) localSample(p model.AreaProfile, q resolved) int {
	if !q.hasCuisine() {
		return p.OpenRestaurants
	}
	return familyCount(p.ExistingCuisines, q.family)
}

func familyCount(existing map[string]int, family []string) int {
	n := 0
	for _, c := range family {
		key := tables.Key(c)
		for name, count := range existing {
			if tables.Key(name) == key {
				n += count
			}
		}
	}
	return n
}

func (f *Filter) matchCuisine(c *Candidate, q resolved) bool {
	p := c.Profile
	if !q.hasCuisine() {
		if g, ok := p.TopGap(); ok {
			c.Gap = &g
		}
		return true
	}

	want := tables.Key(q.cuisine)
	for i := range p.CuisineGaps {
		if tables.Key(p.CuisineGaps[i].Cuisine) == want {
			g := p.CuisineGaps[i]
			c.Gap = &g
			return true
		}
	}

	related := make(map[string]bool, len(q.family))
	for _, r := range q.family[1:] {
		related[tables.Key(r)] = true
	}
	for i := range p.CuisineGaps {
		if related[tables.Key(p.CuisineGaps[i].Cuisine)] {
			g := p.CuisineGaps[i]
			c.Gap = &g
			c.penalize(f.cfg.SynonymPenalty, "Matched via related cuisine: "+g.Cuisine)
			return true
		}
	}

	topDemand := 0
	for _, g := range p.CuisineGaps {
		if g.NeighborDemand > topDemand {
			topDemand = g.NeighborDemand
		}
	}
	local := familyCount(p.ExistingCuisines, q.family)
	proxy := float64(topDemand-local) / float64(local+1)
	if proxy <= 0 {
		return false
	}
	c.Gap = &model.CuisineGap{
		Cuisine:        q.cuisine,
		GapScore:       supply.Round(proxy, 2),
		LocalCount:     local,
		NeighborDemand: topDemand,
	}
	c.MatchType = MatchRelaxed
	c.penalize(f.cfg.ProxyPenalty, fmt.Sprintf("No listed gap for %s; estimated from local supply", q.cuisine))
	return true
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
