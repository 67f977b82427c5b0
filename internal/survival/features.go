package survival

import (
	"math"
	"strings"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/tables"
	"github.com/sells-group/gapscout/internal/validate"
)

// Concept is a requested restaurant concept. Nil fields fall back to the
// cuisine defaults and then to the area priors.
type Concept struct {
	Cuisine       string   `json:"cuisine" validate:"required,max=64"`
	PriceTier     *float64 `json:"price_tier,omitempty" validate:"omitempty,gte=1,lte=4"`
	ExpectedStars *float64 `json:"expected_stars,omitempty" validate:"omitempty,gte=1,lte=5"`
	NoiseLevel    string   `json:"noise_level,omitempty" validate:"omitempty,oneof=quiet average loud very_loud"`

	HasDelivery       *int `json:"has_delivery,omitempty" validate:"omitempty,oneof=0 1"`
	HasTakeout        *int `json:"has_takeout,omitempty" validate:"omitempty,oneof=0 1"`
	HasOutdoorSeating *int `json:"has_outdoor_seating,omitempty" validate:"omitempty,oneof=0 1"`
	GoodForKids       *int `json:"good_for_kids,omitempty" validate:"omitempty,oneof=0 1"`
	HasReservations   *int `json:"has_reservations,omitempty" validate:"omitempty,oneof=0 1"`
	HasWiFi           *int `json:"has_wifi,omitempty" validate:"omitempty,oneof=0 1"`
	HasAlcohol        *int `json:"has_alcohol,omitempty" validate:"omitempty,oneof=0 1"`
	HasTV             *int `json:"has_tv,omitempty" validate:"omitempty,oneof=0 1"`
	GoodForGroups     *int `json:"good_for_groups,omitempty" validate:"omitempty,oneof=0 1"`
}

// Validate checks field ranges.
func (c Concept) Validate() error {
	return validate.Struct(c)
}

// Applied is a concept after defaults and overrides were merged.
type Applied struct {
	Cuisine       string   `json:"cuisine"`
	PriceTier     float64  `json:"price_tier"`
	ExpectedStars *float64 `json:"expected_stars,omitempty"`
	NoiseLevel    string   `json:"noise_level"`

	HasDelivery       int `json:"has_delivery"`
	HasTakeout        int `json:"has_takeout"`
	HasOutdoorSeating int `json:"has_outdoor_seating"`
	GoodForKids       int `json:"good_for_kids"`
	HasReservations   int `json:"has_reservations"`
	HasWiFi           int `json:"has_wifi"`
	HasAlcohol        int `json:"has_alcohol"`
	HasTV             int `json:"has_tv"`
	GoodForGroups     int `json:"good_for_groups"`
}

// flagSlots pairs each flag name with its request and applied fields.
func flagSlots(c *Concept, a *Applied) []struct {
	name string
	req  *int
	dst  *int
} {
	return []struct {
		name string
		req  *int
		dst  *int
	}{
		{"has_delivery", c.HasDelivery, &a.HasDelivery},
		{"has_takeout", c.HasTakeout, &a.HasTakeout},
		{"has_outdoor_seating", c.HasOutdoorSeating, &a.HasOutdoorSeating},
		{"good_for_kids", c.GoodForKids, &a.GoodForKids},
		{"has_reservations", c.HasReservations, &a.HasReservations},
		{"has_wifi", c.HasWiFi, &a.HasWiFi},
		{"has_alcohol", c.HasAlcohol, &a.HasAlcohol},
		{"has_tv", c.HasTV, &a.HasTV},
		{"good_for_groups", c.GoodForGroups, &a.GoodForGroups},
	}
}

// Apply merges the cuisine defaults of t under the explicit request fields.
// Takeout defaults to offered; every other flag defaults to not offered.
func Apply(c Concept, t *tables.Tables) Applied {
	d := t.DefaultsFor(c.Cuisine)
	a := Applied{
		Cuisine:       strings.TrimSpace(c.Cuisine),
		PriceTier:     d.PriceTier,
		ExpectedStars: c.ExpectedStars,
		NoiseLevel:    d.NoiseLevel,
		HasTakeout:    1,
	}
	if a.PriceTier == 0 {
		a.PriceTier = 2
	}
	if a.NoiseLevel == "" {
		a.NoiseLevel = "average"
	}
	if c.PriceTier != nil {
		a.PriceTier = *c.PriceTier
	}
	if c.NoiseLevel != "" {
		a.NoiseLevel = c.NoiseLevel
	}
	for _, s := range flagSlots(&c, &a) {
		if v, ok := d.Flags[s.name]; ok {
			*s.dst = v
		}
		if s.req != nil {
			*s.dst = *s.req
		}
	}
	return a
}

var noiseLevels = map[string]float64{"quiet": 0, "average": 1, "loud": 2, "very_loud": 3}

// CuisineFeature returns the indicator feature name for a cuisine label.
func CuisineFeature(label string) string {
	return "cuisine_" + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// BuildFeatures synthesizes the feature vector of a new concept at an area.
// A new restaurant has no review history, so temporal and sentiment features
// take fixed priors and star features inherit the area average.
func BuildFeatures(a Applied, p model.AreaProfile, t *tables.Tables) Features {
	areaStars := p.AvgStars
	if areaStars == 0 {
		areaStars = 3.5
	}
	stars := areaStars
	if a.ExpectedStars != nil {
		stars = *a.ExpectedStars
	}
	noise, ok := noiseLevels[a.NoiseLevel]
	if !ok {
		noise = 1
	}

	f := Features{
		"stars_yelp":        stars,
		"review_count_yelp": 50,
		"price_tier":        a.PriceTier,

		"review_count_computed": 0,
		"lifespan_days":         0,
		"review_velocity_30d":   0,
		"review_velocity_90d":   0,
		"reviews_per_month":     0,

		"pct_1star":            0.08,
		"pct_5star":            0.35,
		"pct_negative":         0.12,
		"pct_positive":         0.65,
		"star_std":             0.9,
		"star_slope":           0,
		"stars_first_quartile": areaStars,
		"stars_last_quartile":  areaStars,
		"star_delta":           0,

		"sentiment_mean":          0.3,
		"sentiment_std":           0.4,
		"sentiment_slope":         0,
		"sentiment_last_quartile": 0.3,
		"pct_very_positive":       0.4,
		"pct_very_negative":       0.08,

		"useful_per_review":   0.5,
		"funny_per_review":    0.1,
		"cool_per_review":     0.2,
		"total_engagement":    40,
		"pct_engaged_reviews": 0.3,

		"avg_review_length":    350,
		"median_review_length": 300,

		"has_delivery":        float64(a.HasDelivery),
		"has_takeout":         float64(a.HasTakeout),
		"has_outdoor_seating": float64(a.HasOutdoorSeating),
		"good_for_kids":       float64(a.GoodForKids),
		"has_reservations":    float64(a.HasReservations),
		"has_wifi":            float64(a.HasWiFi),
		"has_alcohol":         float64(a.HasAlcohol),
		"has_tv":              float64(a.HasTV),
		"good_for_groups":     float64(a.GoodForGroups),
		"noise_level":         noise,

		"zip_closure_rate":  p.ClosureRate,
		"zip_log_reviews":   math.Log1p(float64(p.TotalReviews)),
		"zip_num_neighbors": float64(p.NumNeighbors),
	}

	concept := tables.Key(a.Cuisine)
	for _, c := range t.Cuisines {
		v := 0.0
		if strings.Contains(concept, tables.Key(c)) {
			v = 1
		}
		f[CuisineFeature(c)] = v
	}
	return f
}
