package gap

import (
	"math"
	"sort"

	"github.com/sells-group/gapscout/internal/config"
	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/supply"
	"github.com/sells-group/gapscout/internal/tables"
)

// Scorer turns local supply and neighbor supply into ranked gap lists.
type Scorer struct {
	cfg    config.GapConfig
	tables *tables.Tables
	agg    *supply.Aggregator
}

// NewScorer creates a Scorer.
func NewScorer(cfg config.GapConfig, t *tables.Tables, agg *supply.Aggregator) *Scorer {
	return &Scorer{cfg: cfg, tables: t, agg: agg}
}

// Score returns the gap score for one cuisine:
// neighborDemand / (localCount * max(localAvgStars, 1) + 1), rounded to 2dp.
func Score(neighborDemand, localCount int, localAvgStars float64) float64 {
	suppression := float64(localCount)*math.Max(localAvgStars, 1.0) + 1
	return supply.Round(float64(neighborDemand)/suppression, 2)
}

// CuisineGaps ranks the cuisines whose summed neighbor demand clears the
// noise floor and whose gap score clears the minimum. No neighbors yields no
// gaps.
func (s *Scorer) CuisineGaps(local map[string]int, localStars map[string]float64, neighbors []map[string]int) []model.CuisineGap {
	if len(neighbors) == 0 {
		return nil
	}

	demand := make(map[string]int)
	for _, counts := range neighbors {
		for c, n := range counts {
			demand[c] += n
		}
	}

	var gaps []model.CuisineGap
	for cuisine, nd := range demand {
		if nd < s.cfg.MinNeighborDemand {
			continue
		}
		lc := local[cuisine]
		stars := localStars[cuisine]
		score := Score(nd, lc, stars)
		if score < s.cfg.GapScoreMin {
			continue
		}
		gaps = append(gaps, model.CuisineGap{
			Cuisine:        cuisine,
			GapScore:       score,
			LocalCount:     lc,
			NeighborDemand: nd,
			LocalAvgStars:  stars,
		})
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].GapScore != gaps[j].GapScore {
			return gaps[i].GapScore > gaps[j].GapScore
		}
		return gaps[i].Cuisine < gaps[j].Cuisine
	})
	if len(gaps) > s.cfg.TopCuisineGaps {
		gaps = gaps[:s.cfg.TopCuisineGaps]
	}
	return gaps
}

// AttributeGaps compares the local attribute rate with the mean of the
// per-neighbor rates and keeps gaps above the minimum.
func (s *Scorer) AttributeGaps(local []model.Business, neighbors [][]model.Business) []model.AttributeGap {
	if len(neighbors) == 0 {
		return nil
	}

	var gaps []model.AttributeGap
	for _, attr := range s.tables.Attributes {
		localRate := s.agg.AttributeRate(local, attr)

		var sum float64
		for _, nb := range neighbors {
			sum += s.agg.AttributeRate(nb, attr)
		}
		neighborAvg := supply.Round(sum/float64(len(neighbors)), 4)

		g := supply.Round(neighborAvg-localRate, 4)
		if g <= s.cfg.AttributeGapMin {
			continue
		}
		gaps = append(gaps, model.AttributeGap{
			Attribute:   attr.Label,
			LocalRate:   supply.Round(localRate, 4),
			NeighborAvg: neighborAvg,
			Gap:         g,
		})
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Gap != gaps[j].Gap {
			return gaps[i].Gap > gaps[j].Gap
		}
		return gaps[i].Attribute < gaps[j].Attribute
	})
	return gaps
}
