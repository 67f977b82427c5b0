package recommend

import (
	"math"
	"sort"

	"github.com/sells-group/gapscout/internal/config"
	"github.com/sells-group/gapscout/internal/geo"
	"github.com/sells-group/gapscout/internal/tables"
)

// CityCandidate collapses every candidate area of one city.
type CityCandidate struct {
	City   string
	Region string
	// Rep is the best-scoring area of the city.
	Rep        Candidate
	Areas      []Candidate
	Attributes []string
}

// Diversifier groups candidates by city and selects a geographically spread
// shortlist with per-region caps.
type Diversifier struct {
	cfg    config.RecommendConfig
	tables *tables.Tables
}

// NewDiversifier creates a Diversifier.
func NewDiversifier(cfg config.RecommendConfig, t *tables.Tables) *Diversifier {
	return &Diversifier{cfg: cfg, tables: t}
}

// Group collapses candidates by case-insensitive city name. The input must be
// sorted by score; groups come out in the order of their representatives.
func (d *Diversifier) Group(cands []Candidate) []CityCandidate {
	index := make(map[string]int)
	var groups []CityCandidate
	for _, c := range cands {
		key := tables.Key(c.Profile.City)
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, CityCandidate{
				City:   c.Profile.City,
				Region: d.tables.RegionOf(c.Profile.City, c.Profile.Zip),
				Rep:    c,
			})
			i = len(groups) - 1
		}
		g := &groups[i]
		if better(c, g.Rep) {
			g.Rep = c
			g.City = c.Profile.City
			g.Region = d.tables.RegionOf(c.Profile.City, c.Profile.Zip)
		}
		g.Areas = append(g.Areas, c)
	}

	for i := range groups {
		g := &groups[i]
		sort.SliceStable(g.Areas, func(a, b int) bool { return better(g.Areas[a], g.Areas[b]) })
		seen := make(map[string]bool)
		for _, a := range g.Areas {
			for _, label := range a.Profile.AttributeLabels() {
				if !seen[label] {
					seen[label] = true
					g.Attributes = append(g.Attributes, label)
				}
			}
		}
		sort.Strings(g.Attributes)
		if len(g.Areas) > d.cfg.MaxSubAreas {
			g.Areas = g.Areas[:d.cfg.MaxSubAreas]
		}
	}
	sort.SliceStable(groups, func(a, b int) bool { return better(groups[a].Rep, groups[b].Rep) })
	return groups
}

// Select picks up to limit groups by maximal marginal relevance:
// lambda*relevance/maxRelevance - (1-lambda)*maxSimilarity, where similarity
// is 1/(1+km) to the already selected groups. Regions with an explicit cap
// never exceed it. When no group is eligible, the best remaining group from
// a region without an explicit cap is taken; selection stops when none is
// left. The result is sorted by score.
func (d *Diversifier) Select(groups []CityCandidate, limit int) []CityCandidate {
	if limit <= 0 || len(groups) == 0 {
		return nil
	}
	maxRel := 0.0
	for _, g := range groups {
		maxRel = math.Max(maxRel, g.Rep.Relevance)
	}
	if maxRel <= 0 {
		maxRel = 1
	}

	remaining := append([]CityCandidate(nil), groups...)
	var selected []CityCandidate
	counts := make(map[string]int)
	lambda := d.cfg.Lambda

	for len(selected) < limit && len(remaining) > 0 {
		best, bestVal := -1, math.Inf(-1)
		for i, g := range remaining {
			limitFor, _ := d.tables.CapFor(g.Region)
			if counts[tables.Key(g.Region)] >= limitFor {
				continue
			}
			val := lambda*g.Rep.Relevance/maxRel - (1-lambda)*maxSimilarity(g, selected)
			if val > bestVal {
				best, bestVal = i, val
			}
		}
		if best < 0 {
			for i, g := range remaining {
				if _, explicit := d.tables.CapFor(g.Region); !explicit {
					best = i
					break
				}
			}
		}
		if best < 0 {
			break
		}

		pick := remaining[best]
		selected = append(selected, pick)
		counts[tables.Key(pick.Region)]++
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	sort.SliceStable(selected, func(a, b int) bool { return better(selected[a].Rep, selected[b].Rep) })
	return selected
}

func maxSimilarity(g CityCandidate, selected []CityCandidate) float64 {
	best := 0.0
	p := geo.NewPoint(g.Rep.Profile.Latitude, g.Rep.Profile.Longitude)
	for _, s := range selected {
		q := geo.NewPoint(s.Rep.Profile.Latitude, s.Rep.Profile.Longitude)
		best = math.Max(best, 1/(1+geo.HaversineKM(p, q)))
	}
	return best
}

// better orders candidates by raw score descending, then area code.
func better(a, b Candidate) bool {
	if a.Raw != b.Raw {
		return a.Raw > b.Raw
	}
	return a.Profile.Zip < b.Profile.Zip
}
