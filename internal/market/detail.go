package market

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/store"
)

const maxLocalBusinesses = 15

// MarketBlock holds the aggregate figures of an area.
type MarketBlock struct {
	TotalRestaurants int     `json:"total_restaurants"`
	OpenRestaurants  int     `json:"open_restaurants"`
	ClosureRate      float64 `json:"closure_rate"`
	AvgStars         float64 `json:"avg_stars"`
	AvgReviews       float64 `json:"avg_reviews"`
	TotalReviews     int     `json:"total_reviews"`
	AvgPriceTier     float64 `json:"avg_price_tier"`
	NumNeighbors     int     `json:"num_neighbors_analyzed"`
}

// LocalBusiness is one snapshot record of the area.
type LocalBusiness struct {
	Name        string   `json:"name"`
	Stars       *float64 `json:"stars"`
	ReviewCount int      `json:"review_count"`
	Categories  string   `json:"categories"`
	IsOpen      int      `json:"is_open"`
}

// Detail is the full breakdown of one area.
type Detail struct {
	Zip              string               `json:"zip"`
	City             string               `json:"city"`
	OpportunityScore float64              `json:"opportunity_score"`
	Risk             model.RiskLevel      `json:"risk"`
	Market           MarketBlock          `json:"market"`
	CuisineGaps      []model.CuisineGap   `json:"cuisine_gaps"`
	AttributeGaps    []model.AttributeGap `json:"attribute_gaps"`
	ExistingCuisines map[string]int       `json:"existing_cuisines"`
	SignalSummary    string               `json:"signal_summary"`
	LocalRestaurants []LocalBusiness      `json:"local_restaurants"`
}

// Detail returns the breakdown of zip. Unknown areas wrap store.ErrNotFound.
func (e *Explorer) Detail(zip string) (*Detail, error) {
	p, ok := e.src.Get(zip)
	if !ok {
		return nil, eris.Wrapf(store.ErrNotFound, "market: area %s", zip)
	}

	d := &Detail{
		Zip:              p.Zip,
		City:             p.City,
		OpportunityScore: OpportunityScore(p, ""),
		Risk:             p.Risk(),
		Market: MarketBlock{
			TotalRestaurants: p.TotalRestaurants,
			OpenRestaurants:  p.OpenRestaurants,
			ClosureRate:      p.ClosureRate,
			AvgStars:         p.AvgStars,
			AvgReviews:       p.AvgReviews,
			TotalReviews:     p.TotalReviews,
			AvgPriceTier:     p.AvgPrice,
			NumNeighbors:     p.NumNeighbors,
		},
		CuisineGaps:      nonNil(p.CuisineGaps),
		AttributeGaps:    nonNil(p.AttributeGaps),
		ExistingCuisines: p.ExistingCuisines,
		SignalSummary:    SignalSummary(p),
		LocalRestaurants: localBusinesses(e.src.Businesses(zip)),
	}
	if d.ExistingCuisines == nil {
		d.ExistingCuisines = map[string]int{}
	}
	return d, nil
}

// SignalSummary describes the strongest cuisine gap of p in one or two
// sentences, adding the top attribute gap when present.
func SignalSummary(p model.AreaProfile) string {
	g, ok := p.TopGap()
	if !ok {
		return "Insufficient gap data for this zip code."
	}
	var s string
	if g.LocalCount == 0 {
		s = fmt.Sprintf("No %s restaurants exist in %s, while %d operate in surrounding zip codes, "+
			"strong unmet demand with zero direct competition.", g.Cuisine, p.Zip, g.NeighborDemand)
	} else {
		s = fmt.Sprintf("Only %d %s restaurant(s) in %s serving a market where %d nearby zips demonstrate demand. "+
			"Weak competition signal.", g.LocalCount, g.Cuisine, p.Zip, g.NeighborDemand)
	}
	if len(p.AttributeGaps) > 0 {
		a := p.AttributeGaps[0]
		s += fmt.Sprintf(" Adding %s would differentiate: only %d%% of local restaurants offer it vs %d%% regionally.",
			a.Attribute, int(math.Round(a.LocalRate*100)), int(math.Round(a.NeighborAvg*100)))
	}
	return s
}

func localBusinesses(all []model.Business) []LocalBusiness {
	out := make([]LocalBusiness, 0, len(all))
	for _, b := range all {
		out = append(out, LocalBusiness{
			Name:        b.Name,
			Stars:       b.Stars,
			ReviewCount: b.ReviewCount,
			Categories:  b.Categories,
			IsOpen:      b.IsOpen,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ReviewCount != out[j].ReviewCount {
			return out[i].ReviewCount > out[j].ReviewCount
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > maxLocalBusinesses {
		out = out[:maxLocalBusinesses]
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
