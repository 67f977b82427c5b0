package model

// RiskLevel buckets an area's closure rate.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Closure-rate bucket boundaries.
const (
	lowRiskCeiling    = 0.20
	mediumRiskCeiling = 0.35
)

// RiskOf returns the risk bucket for a closure rate.
func RiskOf(closureRate float64) RiskLevel {
	switch {
	case closureRate < lowRiskCeiling:
		return RiskLow
	case closureRate < mediumRiskCeiling:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Rank orders risk levels from low (0) to high (2). Unknown levels rank as high.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	default:
		return 2
	}
}

// Valid reports whether r is one of the known levels.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// RisksUpTo returns every level whose rank does not exceed max.
func RisksUpTo(max RiskLevel) []RiskLevel {
	var out []RiskLevel
	for _, r := range []RiskLevel{RiskLow, RiskMedium, RiskHigh} {
		if r.Rank() <= max.Rank() {
			out = append(out, r)
		}
	}
	return out
}

// CuisineGap is unmet demand for one cuisine in an area.
type CuisineGap struct {
	Cuisine        string  `json:"cuisine"`
	GapScore       float64 `json:"gap_score"`
	LocalCount     int     `json:"local_count"`
	NeighborDemand int     `json:"neighbor_demand"`
	LocalAvgStars  float64 `json:"local_avg_stars"`
}

// AttributeGap is the shortfall of a service attribute against the neighbor average.
type AttributeGap struct {
	Attribute   string  `json:"attribute"`
	LocalRate   float64 `json:"local_rate"`
	NeighborAvg float64 `json:"neighbor_avg"`
	Gap         float64 `json:"gap"`
}

// AreaProfile is the materialized per-area record produced by the batch pass.
type AreaProfile struct {
	Zip               string         `json:"zip"`
	City              string         `json:"city"`
	TotalRestaurants  int            `json:"total_restaurants"`
	OpenRestaurants   int            `json:"open_restaurants"`
	ClosedRestaurants int            `json:"closed_restaurants"`
	ClosureRate       float64        `json:"closure_rate"`
	AvgStars          float64        `json:"avg_stars"`
	AvgReviews        float64        `json:"avg_reviews"`
	TotalReviews      int            `json:"total_reviews"`
	AvgPrice          float64        `json:"avg_price"`
	NumNeighbors      int            `json:"num_neighbors"`
	Latitude          float64        `json:"latitude"`
	Longitude         float64        `json:"longitude"`
	ExistingCuisines  map[string]int `json:"existing_cuisines"`
	CuisineGaps       []CuisineGap   `json:"top_cuisine_gaps"`
	AttributeGaps     []AttributeGap `json:"attr_gaps"`
}

// Risk returns the profile's closure-rate bucket.
func (p AreaProfile) Risk() RiskLevel { return RiskOf(p.ClosureRate) }

// TopGap returns the highest-ranked cuisine gap, if any.
func (p AreaProfile) TopGap() (CuisineGap, bool) {
	if len(p.CuisineGaps) == 0 {
		return CuisineGap{}, false
	}
	return p.CuisineGaps[0], true
}

// HasAttributeGap reports whether the attribute appears in the gap list.
func (p AreaProfile) HasAttributeGap(attribute string) bool {
	for _, g := range p.AttributeGaps {
		if g.Attribute == attribute {
			return true
		}
	}
	return false
}

// AttributeLabels returns the attribute names of the gap list in rank order.
func (p AreaProfile) AttributeLabels() []string {
	out := make([]string, 0, len(p.AttributeGaps))
	for _, g := range p.AttributeGaps {
		out = append(out, g.Attribute)
	}
	return out
}
