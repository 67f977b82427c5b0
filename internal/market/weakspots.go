package market

import (
	"sort"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/validate"
)

// WeakspotQuery looks for areas where existing competition struggles.
type WeakspotQuery struct {
	Cuisine        string  `json:"cuisine,omitempty" validate:"max=64"`
	MinClosureRate float64 `json:"min_closure_rate" validate:"gte=0,lte=1"`
	MinExisting    int     `json:"min_existing" validate:"gte=0"`
	MinAvgStars    float64 `json:"min_avg_stars" validate:"gte=0,lte=5"`
	MaxAvgStars    float64 `json:"max_avg_stars" validate:"gte=0,lte=5,gtefield=MinAvgStars"`
	Limit          int     `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

// DefaultWeakspotQuery returns the standard weakspot thresholds.
func DefaultWeakspotQuery() WeakspotQuery {
	return WeakspotQuery{MinClosureRate: 0.25, MinExisting: 1, MaxAvgStars: 5, Limit: 15}
}

// Weakspot is an area whose incumbents are failing.
type Weakspot struct {
	Summary
	// ExistingCount is set only when the query names a cuisine.
	ExistingCount        *int             `json:"existing_count"`
	WeakCompetitorSignal bool             `json:"weak_competitor_signal"`
	GapForCuisine        model.CuisineGap `json:"gap_for_cuisine"`
}

// Weakspots lists high-closure areas that still carry a gap for the cuisine
// (or any gap without one), ranked by closure rate times opportunity score.
func (e *Explorer) Weakspots(q WeakspotQuery) (Listing[Weakspot], error) {
	if err := validate.Struct(q); err != nil {
		return Listing[Weakspot]{}, err
	}
	if q.Limit == 0 {
		q.Limit = 15
	}

	var out []Weakspot
	for _, p := range e.src.Profiles() {
		if p.ClosureRate < q.MinClosureRate || p.AvgStars < q.MinAvgStars || p.AvgStars > q.MaxAvgStars {
			continue
		}
		w := Weakspot{}
		var (
			gap model.CuisineGap
			ok  bool
		)
		if q.Cuisine != "" {
			n := existingCount(p, q.Cuisine)
			if n < q.MinExisting {
				continue
			}
			w.ExistingCount = &n
			gap, ok = gapFor(p, q.Cuisine)
		} else {
			gap, ok = p.TopGap()
		}
		if !ok {
			continue
		}
		w.Summary = Summarize(p, q.Cuisine)
		w.GapForCuisine = gap
		w.WeakCompetitorSignal = gap.LocalCount > 0 && gap.GapScore > 5
		out = append(out, w)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ClosureRate*out[i].OpportunityScore > out[j].ClosureRate*out[j].OpportunityScore
	})
	return listing(out, q.Limit), nil
}
