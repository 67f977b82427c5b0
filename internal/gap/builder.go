package gap

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/gapscout/internal/config"
	"github.com/sells-group/gapscout/internal/geo"
	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/supply"
	"github.com/sells-group/gapscout/internal/tables"
)

// BuildStats summarizes one batch pass.
type BuildStats struct {
	RunID         string        `json:"run_id"`
	Businesses    int           `json:"businesses"`
	Grouped       int           `json:"grouped"`
	SparseAreas   int           `json:"sparse_areas"`
	NoCentroid    int           `json:"no_centroid"`
	Areas         int           `json:"areas"`
	AvgNeighbors  float64       `json:"avg_neighbors"`
	WithGaps      int           `json:"with_gaps"`
	Duration      time.Duration `json:"duration"`
	RadiusKM      float64       `json:"radius_km"`
	MinBusinesses int           `json:"min_businesses"`
}

// Builder runs the batch pass: group by area, drop sparse areas, compute
// centroids and the neighbor index, then score gaps per area.
type Builder struct {
	cfg    config.GapConfig
	tables *tables.Tables
	agg    *supply.Aggregator
	scorer *Scorer
}

// NewBuilder creates a Builder.
func NewBuilder(cfg config.GapConfig, t *tables.Tables) *Builder {
	agg := supply.NewAggregator(t)
	return &Builder{
		cfg:    cfg,
		tables: t,
		agg:    agg,
		scorer: NewScorer(cfg, t, agg),
	}
}

// areaStats holds the per-area aggregates reused while scoring neighbors.
type areaStats struct {
	businesses []model.Business
	cuisines   map[string]int
	ratings    map[string]float64
}

// Build materializes one AreaProfile per qualifying area, sorted by area code.
func (b *Builder) Build(ctx context.Context, businesses []model.Business) ([]model.AreaProfile, BuildStats, error) {
	start := time.Now()
	stats := BuildStats{
		RunID:         uuid.NewString(),
		Businesses:    len(businesses),
		RadiusKM:      b.cfg.RadiusKM,
		MinBusinesses: b.cfg.MinAreaBusinesses,
	}
	log := zap.L().With(zap.String("component", "gap.builder"), zap.String("run_id", stats.RunID))

	if err := ValidateConfig(b.cfg); err != nil {
		return nil, stats, err
	}

	byArea := make(map[string][]model.Business)
	for _, biz := range businesses {
		area, ok := biz.AreaCode()
		if !ok {
			continue
		}
		byArea[area] = append(byArea[area], biz)
		stats.Grouped++
	}

	centroids := make(map[string]*geom.Point)
	areas := make(map[string]*areaStats)
	for area, group := range byArea {
		if len(group) < b.cfg.MinAreaBusinesses {
			stats.SparseAreas++
			continue
		}
		c, ok := centroidOf(group)
		if !ok {
			stats.NoCentroid++
			continue
		}
		centroids[area] = c
		areas[area] = &areaStats{
			businesses: group,
			cuisines:   b.agg.CuisineCounts(group),
			ratings:    b.agg.CuisineRatings(group),
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, stats, eris.Wrap(err, "gap: build cancelled")
	}

	idx := geo.NewIndex(centroids, b.cfg.RadiusKM)

	order := idx.Areas()
	profiles := make([]model.AreaProfile, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.cfg.Concurrency, 1))
	for i, area := range order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "gap: build cancelled")
			}
			profiles[i] = b.score(area, areas, idx, centroids[area])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	var neighborTotal int
	for _, p := range profiles {
		if len(p.CuisineGaps) > 0 {
			stats.WithGaps++
		}
		neighborTotal += p.NumNeighbors
	}

	stats.Areas = len(profiles)
	if stats.Areas > 0 {
		stats.AvgNeighbors = supply.Round(float64(neighborTotal)/float64(stats.Areas), 1)
	}
	stats.Duration = time.Since(start)

	log.Info("gap: build complete",
		zap.Int("businesses", stats.Businesses),
		zap.Int("grouped", stats.Grouped),
		zap.Int("areas", stats.Areas),
		zap.Int("sparse_areas", stats.SparseAreas),
		zap.Int("no_centroid", stats.NoCentroid),
		zap.Float64("avg_neighbors", stats.AvgNeighbors),
		zap.Int("with_gaps", stats.WithGaps),
		zap.Duration("duration", stats.Duration),
	)

	return profiles, stats, nil
}

// score builds the profile of one area against its neighbors. It only reads
// shared state and is safe to run concurrently.
func (b *Builder) score(area string, areas map[string]*areaStats, idx *geo.Index, centroid *geom.Point) model.AreaProfile {
	local := areas[area]
	nbrs := idx.NeighborsOf(area)
	neighborCounts := make([]map[string]int, 0, len(nbrs))
	neighborBiz := make([][]model.Business, 0, len(nbrs))
	for _, n := range nbrs {
		neighborCounts = append(neighborCounts, areas[n].cuisines)
		neighborBiz = append(neighborBiz, areas[n].businesses)
	}

	p := b.profile(area, local)
	p.NumNeighbors = len(nbrs)
	p.Latitude, p.Longitude = geo.LatLon(centroid)
	p.CuisineGaps = b.scorer.CuisineGaps(local.cuisines, local.ratings, neighborCounts)
	p.AttributeGaps = b.scorer.AttributeGaps(local.businesses, neighborBiz)
	return p
}

// profile computes the market statistics of one area.
func (b *Builder) profile(area string, s *areaStats) model.AreaProfile {
	group := s.businesses
	total := len(group)

	var open, totalReviews, rated, priced int
	var starSum, priceSum float64
	cityCounts := make(map[string]int)
	for _, biz := range group {
		if biz.Open() {
			open++
		}
		totalReviews += biz.ReviewCount
		if stars, ok := biz.Rating(); ok {
			starSum += stars
			rated++
		}
		if p, ok := biz.Attributes.PriceTier(); ok {
			priceSum += p
			priced++
		}
		if biz.City != "" {
			cityCounts[biz.City]++
		}
	}

	p := model.AreaProfile{
		Zip:               area,
		City:              modeOf(cityCounts),
		TotalRestaurants:  total,
		OpenRestaurants:   open,
		ClosedRestaurants: total - open,
		TotalReviews:      totalReviews,
		AvgPrice:          2.0,
		ExistingCuisines:  s.cuisines,
	}
	if total > 0 {
		p.ClosureRate = supply.Round(float64(total-open)/float64(total), 4)
		p.AvgReviews = supply.Round(float64(totalReviews)/float64(total), 1)
	}
	if rated > 0 {
		p.AvgStars = supply.Round(starSum/float64(rated), 3)
	}
	if priced > 0 {
		p.AvgPrice = supply.Round(priceSum/float64(priced), 2)
	}
	return p
}

func centroidOf(group []model.Business) (*geom.Point, bool) {
	lats := make([]float64, 0, len(group))
	lons := make([]float64, 0, len(group))
	for _, biz := range group {
		if !biz.HasCoordinates() {
			continue
		}
		lats = append(lats, *biz.Latitude)
		lons = append(lons, *biz.Longitude)
	}
	return geo.Centroid(lats, lons)
}

// modeOf returns the most frequent key, breaking ties lexicographically.
func modeOf(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best, bestN := "", 0
	for _, k := range keys {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}
