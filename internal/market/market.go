// Package market answers exploratory questions over the profile snapshot:
// ranked opportunity listings, per-area detail, multi-filter search and
// weak-competition spots.
package market

import (
	"math"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/supply"
	"github.com/sells-group/gapscout/internal/tables"
)

// Source is the read-only view the explorer works over. store.Snapshot
// satisfies it.
type Source interface {
	Profiles() []model.AreaProfile
	Get(zip string) (model.AreaProfile, bool)
	Cuisines() []string
	Businesses(zip string) []model.Business
}

// Explorer answers market queries. It is safe for concurrent use.
type Explorer struct {
	src    Source
	tables *tables.Tables
}

// NewExplorer creates an Explorer over src.
func NewExplorer(src Source, t *tables.Tables) *Explorer {
	return &Explorer{src: src, tables: t}
}

// Summary is the compact listing form of an area.
type Summary struct {
	Zip              string               `json:"zip"`
	City             string               `json:"city"`
	OpportunityScore float64              `json:"opportunity_score"`
	Risk             model.RiskLevel      `json:"risk"`
	ClosureRate      float64              `json:"closure_rate"`
	AvgStars         float64              `json:"avg_stars"`
	TotalReviews     int                  `json:"total_reviews"`
	TotalRestaurants int                  `json:"total_restaurants"`
	OpenRestaurants  int                  `json:"open_restaurants"`
	AvgPriceTier     float64              `json:"avg_price_tier"`
	TopCuisineGaps   []model.CuisineGap   `json:"top_cuisine_gaps"`
	AttrGaps         []model.AttributeGap `json:"attr_gaps"`
}

// Listing is a counted, truncated result list.
type Listing[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

func listing[T any](all []T, limit int) Listing[T] {
	out := Listing[T]{Count: len(all), Results: all}
	if limit > 0 && len(all) > limit {
		out.Results = all[:limit]
	}
	if out.Results == nil {
		out.Results = []T{}
	}
	return out
}

// Meta lists the vocabulary a client can query with.
type Meta struct {
	Cuisines   []string `json:"cuisines"`
	Attributes []string `json:"attributes"`
}

// Meta returns the cuisines present in the snapshot and the attribute labels.
func (e *Explorer) Meta() Meta {
	return Meta{Cuisines: e.src.Cuisines(), Attributes: e.tables.AttributeLabels()}
}

// gapFor returns the gap of a cuisine in p, compared case-insensitively.
func gapFor(p model.AreaProfile, cuisine string) (model.CuisineGap, bool) {
	want := tables.Key(cuisine)
	for _, g := range p.CuisineGaps {
		if tables.Key(g.Cuisine) == want {
			return g, true
		}
	}
	return model.CuisineGap{}, false
}

// existingCount returns the local count of a cuisine, compared
// case-insensitively.
func existingCount(p model.AreaProfile, cuisine string) int {
	want := tables.Key(cuisine)
	n := 0
	for name, c := range p.ExistingCuisines {
		if tables.Key(name) == want {
			n += c
		}
	}
	return n
}

// OpportunityScore ranks an area for a cuisine, or for its top gap when
// cuisine is empty: 0.6 per gap point, 2 per natural-log review, 5 per
// attribute gap capped at 25.
func OpportunityScore(p model.AreaProfile, cuisine string) float64 {
	var top float64
	if cuisine != "" {
		if g, ok := gapFor(p, cuisine); ok {
			top = g.GapScore
		}
	} else if g, ok := p.TopGap(); ok {
		top = g.GapScore
	}
	attr := math.Min(float64(len(p.AttributeGaps))*5, 25)
	return supply.Round(top*0.6+math.Log(float64(p.TotalReviews)+1)*2+attr, 2)
}

// Summarize builds the listing form of p. With a cuisine, its gap moves to
// the front of the top three.
func Summarize(p model.AreaProfile, cuisine string) Summary {
	gaps := p.CuisineGaps
	if cuisine != "" {
		want := tables.Key(cuisine)
		ordered := make([]model.CuisineGap, 0, len(gaps))
		for _, g := range gaps {
			if tables.Key(g.Cuisine) == want {
				ordered = append(ordered, g)
			}
		}
		for _, g := range gaps {
			if tables.Key(g.Cuisine) != want {
				ordered = append(ordered, g)
			}
		}
		gaps = ordered
	}
	if len(gaps) > 3 {
		gaps = gaps[:3]
	}
	if gaps == nil {
		gaps = []model.CuisineGap{}
	}
	attrs := p.AttributeGaps
	if attrs == nil {
		attrs = []model.AttributeGap{}
	}
	return Summary{
		Zip:              p.Zip,
		City:             p.City,
		OpportunityScore: OpportunityScore(p, cuisine),
		Risk:             p.Risk(),
		ClosureRate:      p.ClosureRate,
		AvgStars:         p.AvgStars,
		TotalReviews:     p.TotalReviews,
		TotalRestaurants: p.TotalRestaurants,
		OpenRestaurants:  p.OpenRestaurants,
		AvgPriceTier:     p.AvgPrice,
		TopCuisineGaps:   gaps,
		AttrGaps:         attrs,
	}
}

// withinRisk reports whether p's risk does not exceed max. An empty max
// accepts everything.
func withinRisk(p model.AreaProfile, max model.RiskLevel) bool {
	return max == "" || p.Risk().Rank() <= max.Rank()
}
