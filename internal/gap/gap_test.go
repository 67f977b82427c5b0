package gap

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/supply"
	"github.com/sells-group/gapscout/internal/tables"
)

func f(v float64) *float64 { return &v }

type bizOpt func(*model.Business)

func closed() bizOpt { return func(b *model.Business) { b.IsOpen = 0 } }

func stars(v float64) bizOpt { return func(b *model.Business) { b.Stars = f(v) } }

func attrs(a model.Attributes) bizOpt { return func(b *model.Business) { b.Attributes = a } }

func noCoords() bizOpt {
	return func(b *model.Business) { b.Latitude, b.Longitude = nil, nil }
}

var seq int

func newBiz(zip, city, categories string, lat, lon float64, opts ...bizOpt) model.Business {
	seq++
	b := model.Business{
		ID:          fmt.Sprintf("b%d", seq),
		PostalCode:  zip,
		City:        city,
		Categories:  categories,
		Latitude:    f(lat),
		Longitude:   f(lon),
		IsOpen:      1,
		ReviewCount: 10,
		Attributes:  model.Attributes{"RestaurantsPriceRange2": "2"},
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

func repeat(n int, mk func() model.Business) []model.Business {
	out := make([]model.Business, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, mk())
	}
	return out
}

func fixture() []model.Business {
	var bs []model.Business
	// Marlton: Italian-heavy, one Japanese spot.
	bs = append(bs, repeat(5, func() model.Business {
		return newBiz("08053", "Marlton", "Italian", 39.89, -74.92, stars(4))
	})...)
	bs = append(bs, newBiz("08053", "Marlton", "Japanese", 39.891, -74.921, stars(3.5)))
	bs = append(bs, newBiz("08053", "Marlton", "Thai", 39.892, -74.922, closed()))
	// Cherry Hill neighbors supply Japanese demand and delivery.
	delivery := attrs(model.Attributes{"RestaurantsDelivery": "True"})
	bs = append(bs, repeat(10, func() model.Business {
		return newBiz("08002", "Cherry Hill", "Japanese, Ramen", 39.93, -75.02, stars(4), delivery)
	})...)
	bs = append(bs, repeat(14, func() model.Business {
		return newBiz("08034", "Cherry Hill", "Japanese", 39.91, -74.99, stars(4), delivery)
	})...)
	// Isolated area.
	bs = append(bs, repeat(3, func() model.Business {
		return newBiz("08401", "Atlantic City", "Seafood", 39.36, -74.42)
	})...)
	// Sparse, invalid and ungeocoded areas.
	bs = append(bs, repeat(2, func() model.Business {
		return newBiz("07999", "Sparse", "Pizza", 40.0, -74.5)
	})...)
	bs = append(bs, newBiz("8053", "Bad", "Pizza", 39.89, -74.92))
	bs = append(bs, repeat(3, func() model.Business {
		return newBiz("08100", "Nowhere", "Pizza", 0, 0, noCoords())
	})...)
	return bs
}

func TestScore_ExampleFromMarlton(t *testing.T) {
	assert.Equal(t, 5.33, Score(24, 1, 3.5))
	// Unrated competitors still suppress with a floor rating of 1.
	assert.Equal(t, 12.0, Score(24, 1, 0))
	assert.Equal(t, 24.0, Score(24, 0, 0))
}

func TestCuisineGaps_Thresholds(t *testing.T) {
	tb := tables.Default()
	s := NewScorer(DefaultConfig(), tb, supply.NewAggregator(tb))

	local := map[string]int{"Italian": 5, "Japanese": 1}
	localStars := map[string]float64{"Italian": 4, "Japanese": 3.5}
	neighbors := []map[string]int{
		{"Japanese": 10, "Thai": 1, "Italian": 6},
		{"Japanese": 14, "Mexican": 3},
	}

	gaps := s.CuisineGaps(local, localStars, neighbors)
	require.Len(t, gaps, 2)

	assert.Equal(t, "Japanese", gaps[0].Cuisine)
	assert.Equal(t, 5.33, gaps[0].GapScore)
	assert.Equal(t, 24, gaps[0].NeighborDemand)
	assert.Equal(t, 1, gaps[0].LocalCount)
	assert.Equal(t, 3.5, gaps[0].LocalAvgStars)

	assert.Equal(t, "Mexican", gaps[1].Cuisine)
	assert.Equal(t, 3.0, gaps[1].GapScore)

	// Thai is under the demand floor; Italian scores 6/21 < 1.
	for _, g := range gaps {
		assert.GreaterOrEqual(t, g.NeighborDemand, 2)
		assert.GreaterOrEqual(t, g.GapScore, 1.0)
	}

	assert.Empty(t, s.CuisineGaps(local, localStars, nil))
}

func TestCuisineGaps_TruncatesAndSorts(t *testing.T) {
	tb := tables.Default()
	cfg := DefaultConfig()
	cfg.TopCuisineGaps = 3
	s := NewScorer(cfg, tb, supply.NewAggregator(tb))

	neighbor := map[string]int{"Thai": 5, "Greek": 5, "Vegan": 9, "French": 2, "Halal": 7}
	gaps := s.CuisineGaps(nil, nil, []map[string]int{neighbor})
	require.Len(t, gaps, 3)
	assert.Equal(t, []string{"Vegan", "Halal", "Greek"}, []string{gaps[0].Cuisine, gaps[1].Cuisine, gaps[2].Cuisine})
}

func TestBuild_Fixture(t *testing.T) {
	b := NewBuilder(DefaultConfig(), tables.Default())
	profiles, stats, err := b.Build(context.Background(), fixture())
	require.NoError(t, err)

	require.Len(t, profiles, 4)
	assert.Equal(t, 4, stats.Areas)
	assert.Equal(t, 1, stats.SparseAreas)
	assert.Equal(t, 1, stats.NoCentroid)
	assert.NotEmpty(t, stats.RunID)

	zips := make([]string, 0, len(profiles))
	byZip := make(map[string]model.AreaProfile)
	for _, p := range profiles {
		zips = append(zips, p.Zip)
		byZip[p.Zip] = p
	}
	assert.Equal(t, []string{"08002", "08034", "08053", "08401"}, zips)

	marlton := byZip["08053"]
	assert.Equal(t, "Marlton", marlton.City)
	assert.Equal(t, 7, marlton.TotalRestaurants)
	assert.Equal(t, 6, marlton.OpenRestaurants)
	assert.Equal(t, 1, marlton.ClosedRestaurants)
	assert.Equal(t, 0.1429, marlton.ClosureRate)
	assert.Equal(t, 2, marlton.NumNeighbors)
	assert.Equal(t, 2.0, marlton.AvgPrice)
	assert.Equal(t, map[string]int{"Italian": 5, "Japanese": 1}, marlton.ExistingCuisines)

	require.NotEmpty(t, marlton.CuisineGaps)
	top := marlton.CuisineGaps[0]
	assert.Equal(t, "Japanese", top.Cuisine)
	assert.Equal(t, 24, top.NeighborDemand)
	assert.Equal(t, 5.33, top.GapScore)

	require.NotEmpty(t, marlton.AttributeGaps)
	assert.Equal(t, "Delivery", marlton.AttributeGaps[0].Attribute)
	assert.Equal(t, 1.0, marlton.AttributeGaps[0].Gap)

	ac := byZip["08401"]
	assert.Zero(t, ac.NumNeighbors)
	assert.Empty(t, ac.CuisineGaps)
	assert.Empty(t, ac.AttributeGaps)
}

func TestBuild_ProfileConsistency(t *testing.T) {
	b := NewBuilder(DefaultConfig(), tables.Default())
	profiles, _, err := b.Build(context.Background(), fixture())
	require.NoError(t, err)

	for _, p := range profiles {
		assert.Equal(t, p.TotalRestaurants, p.OpenRestaurants+p.ClosedRestaurants, p.Zip)
		assert.GreaterOrEqual(t, p.ClosureRate, 0.0)
		assert.LessOrEqual(t, p.ClosureRate, 1.0)
		assert.GreaterOrEqual(t, p.TotalRestaurants, 3)

		for i := 1; i < len(p.CuisineGaps); i++ {
			assert.GreaterOrEqual(t, p.CuisineGaps[i-1].GapScore, p.CuisineGaps[i].GapScore)
		}
		for i := 1; i < len(p.AttributeGaps); i++ {
			assert.GreaterOrEqual(t, p.AttributeGaps[i-1].Gap, p.AttributeGaps[i].Gap)
		}
		for _, g := range p.AttributeGaps {
			assert.Greater(t, g.Gap, 0.05)
		}
	}
}

func TestBuild_ConcurrencyDoesNotChangeOutput(t *testing.T) {
	serial := DefaultConfig()
	serial.Concurrency = 1
	wide := DefaultConfig()
	wide.Concurrency = 16

	a, _, err := NewBuilder(serial, tables.Default()).Build(context.Background(), fixture())
	require.NoError(t, err)
	b, _, err := NewBuilder(wide, tables.Default()).Build(context.Background(), fixture())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilder(DefaultConfig(), tables.Default())
	_, _, err := b.Build(ctx, fixture())
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(DefaultConfig()))

	cfg := DefaultConfig()
	cfg.RadiusKM = 0
	cfg.TopCuisineGaps = 0
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "radius_km")
	assert.Contains(t, err.Error(), "top_cuisine_gaps")
}

func TestModeOf(t *testing.T) {
	assert.Equal(t, "Cherry Hill", modeOf(map[string]int{"Cherry Hill": 2, "Voorhees": 2, "Marlton": 1}))
	assert.Equal(t, "", modeOf(nil))
}
