package market

import (
	"sort"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/validate"
)

// Sort keys of an opportunity listing.
const (
	SortOpportunity = "opportunity_score"
	SortMarketSize  = "market_size"
	SortStars       = "stars"
	SortClosureRisk = "closure_risk"
)

// OpportunityQuery ranks areas for a concept.
type OpportunityQuery struct {
	Cuisine       string          `json:"cuisine,omitempty" validate:"max=64"`
	MinGapScore   float64         `json:"min_gap_score,omitempty" validate:"gte=0"`
	MinMarketSize int             `json:"min_market_size,omitempty" validate:"gte=0"`
	MaxRisk       model.RiskLevel `json:"max_risk,omitempty" validate:"omitempty,oneof=low medium high"`
	Sort          string          `json:"sort,omitempty" validate:"omitempty,oneof=opportunity_score market_size stars closure_risk"`
	Limit         int             `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

// Opportunities lists areas ranked by q.Sort. With a cuisine, only areas
// listing a gap for it qualify and the gap score refers to that cuisine.
func (e *Explorer) Opportunities(q OpportunityQuery) (Listing[Summary], error) {
	if err := validate.Struct(q); err != nil {
		return Listing[Summary]{}, err
	}
	if q.Limit == 0 {
		q.Limit = 20
	}

	var out []Summary
	for _, p := range e.src.Profiles() {
		var gapScore float64
		if q.Cuisine != "" {
			g, ok := gapFor(p, q.Cuisine)
			if !ok {
				continue
			}
			gapScore = g.GapScore
		} else if g, ok := p.TopGap(); ok {
			gapScore = g.GapScore
		}
		if gapScore < q.MinGapScore || p.TotalReviews < q.MinMarketSize || !withinRisk(p, q.MaxRisk) {
			continue
		}
		out = append(out, Summarize(p, q.Cuisine))
	}

	sortSummaries(out, q.Sort)
	return listing(out, q.Limit), nil
}

func sortSummaries(s []Summary, key string) {
	less := func(a, b Summary) bool { return a.OpportunityScore > b.OpportunityScore }
	switch key {
	case SortMarketSize:
		less = func(a, b Summary) bool { return a.TotalReviews > b.TotalReviews }
	case SortStars:
		less = func(a, b Summary) bool { return a.AvgStars > b.AvgStars }
	case SortClosureRisk:
		less = func(a, b Summary) bool { return a.ClosureRate > b.ClosureRate }
	}
	sort.SliceStable(s, func(i, j int) bool { return less(s[i], s[j]) })
}

// SearchQuery is the multi-filter concept search.
type SearchQuery struct {
	Cuisine       string          `json:"cuisine,omitempty" validate:"max=64"`
	Attributes    []string        `json:"attributes,omitempty" validate:"max=16,dive,required"`
	MaxPriceTier  *float64        `json:"max_price_tier,omitempty" validate:"omitempty,gte=1,lte=4"`
	MinMarketSize int             `json:"min_market_size" validate:"gte=0"`
	MaxRisk       model.RiskLevel `json:"max_risk,omitempty" validate:"omitempty,oneof=low medium high"`
	Limit         int             `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

// DefaultSearchQuery returns a SearchQuery with the standard market floor.
func DefaultSearchQuery() SearchQuery {
	return SearchQuery{MinMarketSize: 500, Limit: 15}
}

// Search returns areas that satisfy every filter strictly: no price
// tolerance, every required attribute must be a listed gap, and the cuisine
// must be a listed gap. Results are ranked by opportunity score.
func (e *Explorer) Search(q SearchQuery) (Listing[Summary], error) {
	if err := validate.Struct(q); err != nil {
		return Listing[Summary]{}, err
	}
	labels := make([]string, 0, len(q.Attributes))
	for _, name := range q.Attributes {
		def, ok := e.tables.Attribute(name)
		if !ok {
			return Listing[Summary]{}, validate.Invalid("attributes", "unknown attribute "+name)
		}
		labels = append(labels, def.Label)
	}
	if q.Limit == 0 {
		q.Limit = 15
	}

	var out []Summary
	for _, p := range e.src.Profiles() {
		if p.TotalReviews < q.MinMarketSize || !withinRisk(p, q.MaxRisk) {
			continue
		}
		if q.MaxPriceTier != nil && p.AvgPrice > *q.MaxPriceTier {
			continue
		}
		if q.Cuisine != "" {
			if _, ok := gapFor(p, q.Cuisine); !ok {
				continue
			}
		}
		if !hasAll(p, labels) {
			continue
		}
		out = append(out, Summarize(p, q.Cuisine))
	}
	sortSummaries(out, SortOpportunity)
	return listing(out, q.Limit), nil
}

func hasAll(p model.AreaProfile, labels []string) bool {
	for _, l := range labels {
		if !p.HasAttributeGap(l) {
			return false
		}
	}
	return true
}
