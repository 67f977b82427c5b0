package recommend

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/gapscout/internal/config"
	"github.com/sells-group/gapscout/internal/metrics"
	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/survival"
	"github.com/sells-group/gapscout/internal/tables"
)

// ProfileSource provides the immutable profile set a query runs over.
type ProfileSource interface {
	Profiles() []model.AreaProfile
}

// Evidence explains a recommendation.
type Evidence struct {
	Cuisine                string   `json:"cuisine,omitempty"`
	GapScore               float64  `json:"cuisine_gap_score"`
	CompetitionSignal      string   `json:"competition_signal"`
	NeighborDemand         int      `json:"neighbor_demand"`
	MarketSize             string   `json:"market_size"`
	AttributeOpportunities []string `json:"attribute_opportunities"`
	SurvivalProbability    *float64 `json:"survival_probability"`
	SurvivalTier           string   `json:"survival_tier,omitempty"`
}

// SubArea is one area of a recommended city.
type SubArea struct {
	Zip          string    `json:"zip"`
	Score        float64   `json:"match_score"`
	MatchType    MatchType `json:"match_type"`
	GapScore     float64   `json:"cuisine_gap_score"`
	ClosureRate  float64   `json:"closure_rate"`
	TotalReviews int       `json:"total_reviews"`
}

// CityRecommendation is one entry of the shortlist.
type CityRecommendation struct {
	City           string          `json:"city"`
	Region         string          `json:"region"`
	Zip            string          `json:"zip"`
	Score          float64         `json:"match_score"`
	MatchType      MatchType       `json:"match_type"`
	Issues         []string        `json:"match_issues"`
	PrimaryConcept string          `json:"primary_concept"`
	Risk           model.RiskLevel `json:"risk"`
	ClosureRate    float64         `json:"closure_rate"`
	AvgStars       float64         `json:"avg_stars"`
	TotalReviews   int             `json:"total_reviews"`
	AvgPriceTier   float64         `json:"avg_price_tier"`
	Evidence       Evidence        `json:"evidence"`
	SubAreas       []SubArea       `json:"sub_areas"`
}

// Response is the result of one query.
type Response struct {
	QueryID           string               `json:"query_id"`
	Query             Query                `json:"query"`
	Candidates        int                  `json:"candidates"`
	Count             int                  `json:"count"`
	SurvivalAvailable bool                 `json:"survival_available"`
	Recommendations   []CityRecommendation `json:"recommendations"`
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithAssessor enables the survival bonus.
func WithAssessor(a *survival.Assessor) EngineOption {
	return func(e *Engine) { e.assessor = a }
}

// WithConcurrency bounds concurrent predictor calls per query.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithSurvivalBudget bounds the survival prefetch of a query to fraction of
// the time left before the query deadline, or to fallback when the query has
// no deadline. Non-positive values keep the defaults.
func WithSurvivalBudget(fraction float64, fallback time.Duration) EngineOption {
	return func(e *Engine) {
		if fraction > 0 && fraction <= 1 {
			e.budgetFraction = fraction
		}
		if fallback > 0 {
			e.budgetFallback = fallback
		}
	}
}

// Engine runs the filter, blend and diversify pipeline. It holds no
// per-query state and is safe for concurrent use.
type Engine struct {
	source      ProfileSource
	tables      *tables.Tables
	cfg         config.RecommendConfig
	filter      *Filter
	diversifier *Diversifier
	assessor    *survival.Assessor
	concurrency int
	log         *zap.Logger

	budgetFraction float64
	budgetFallback time.Duration
}

// NewEngine creates an Engine over source.
func NewEngine(source ProfileSource, t *tables.Tables, cfg config.RecommendConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		source:         source,
		tables:         t,
		cfg:            cfg,
		filter:         NewFilter(cfg, t),
		diversifier:    NewDiversifier(cfg, t),
		concurrency:    8,
		budgetFraction: 0.5,
		budgetFallback: 2 * time.Second,
		log:            zap.L().With(zap.String("component", "recommend")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend answers q. The same query over the same snapshot always yields
// the same ordered result.
func (e *Engine) Recommend(ctx context.Context, q Query) (*Response, error) {
	start := time.Now()
	defer func() { metrics.RecommendDuration.Observe(time.Since(start).Seconds()) }()

	r, err := resolve(q, e.tables, e.cfg.DefaultLimit, e.cfg.MaxLimit)
	if err != nil {
		return nil, err
	}
	qid := uuid.NewString()
	log := e.log.With(zap.String("query_id", qid))

	profiles := e.source.Profiles()
	gaps := e.filter.GapDistribution(profiles, r)
	cands := e.filter.Apply(profiles, r)
	metrics.RecommendCandidates.WithLabelValues("filtered").Observe(float64(len(cands)))

	var th survival.Thresholds
	survivalOn := e.assessor != nil
	if survivalOn {
		th = e.assessor.Thresholds()
		if err := e.attachSurvival(ctx, log, cands, r); err != nil {
			return nil, err
		}
	}

	NewBlender(e.cfg, th).Blend(cands, gaps)
	groups := e.diversifier.Select(e.diversifier.Group(cands), r.limit)
	metrics.RecommendCandidates.WithLabelValues("diversified").Observe(float64(len(groups)))

	resp := &Response{
		QueryID:           qid,
		Query:             q,
		Candidates:        len(cands),
		Count:             len(groups),
		SurvivalAvailable: survivalOn && survivalUp(cands),
		Recommendations:   make([]CityRecommendation, 0, len(groups)),
	}
	for _, g := range groups {
		resp.Recommendations = append(resp.Recommendations, e.assemble(g, r))
	}

	log.Info("recommend: query answered",
		zap.String("cuisine", r.cuisine),
		zap.Int("candidates", len(cands)),
		zap.Int("returned", len(groups)),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// attachSurvival predicts survival for every candidate concurrently through
// a per-query memo, within the prefetch budget. Predictions that fail or do
// not finish in time leave the outcome unavailable. It errors only when ctx
// is already done on entry.
func (e *Engine) attachSurvival(ctx context.Context, log *zap.Logger, cands []Candidate, r resolved) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "recommend: query cancelled")
	}
	budget := e.survivalBudget(ctx)
	pctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type job struct {
		idx     int
		concept survival.Concept
		profile model.AreaProfile
	}
	jobs := make([]job, 0, len(cands))
	for i := range cands {
		if concept, ok := e.concept(cands[i], r); ok {
			jobs = append(jobs, job{idx: i, concept: concept, profile: cands[i].Profile})
		}
	}

	memo := survival.NewMemo(e.assessor.Predictor(), log)
	outcomes := make([]survival.Outcome, len(cands))
	var (
		mu     sync.Mutex
		closed bool
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(e.concurrency)
		for _, j := range jobs {
			if pctx.Err() != nil {
				break
			}
			g.Go(func() error {
				_, feats := e.assessor.Features(j.concept, j.profile)
				o := memo.Predict(pctx, j.profile.Zip, conceptKey(j.concept), feats)
				mu.Lock()
				if !closed {
					outcomes[j.idx] = o
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-pctx.Done():
		log.Warn("recommend: survival prefetch budget exhausted, remaining areas unscored",
			zap.Duration("budget", budget))
	}

	mu.Lock()
	closed = true
	for i := range cands {
		cands[i].Survival = outcomes[i]
	}
	mu.Unlock()

	if n := memo.Failures(); n > 0 {
		log.Debug("recommend: survival unavailable for some areas", zap.Int("failures", n))
	}
	return nil
}

func (e *Engine) survivalBudget(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		return time.Duration(float64(time.Until(dl)) * e.budgetFraction)
	}
	return e.budgetFallback
}

// attributeFlags maps attribute parameters to the concept flag they imply.
var attributeFlags = map[string]func(*survival.Concept){
	"delivery":     func(c *survival.Concept) { c.HasDelivery = one() },
	"outdoor":      func(c *survival.Concept) { c.HasOutdoorSeating = one() },
	"kid_friendly": func(c *survival.Concept) { c.GoodForKids = one() },
	"wifi":         func(c *survival.Concept) { c.HasWiFi = one() },
	"reservations": func(c *survival.Concept) { c.HasReservations = one() },
}

func one() *int { v := 1; return &v }

// concept derives the survival concept of a candidate: the query cuisine, or
// the area's own top gap when the query names none.
func (e *Engine) concept(c Candidate, r resolved) (survival.Concept, bool) {
	cuisine := r.cuisine
	if cuisine == "" {
		if c.Gap == nil {
			return survival.Concept{}, false
		}
		cuisine = c.Gap.Cuisine
	}
	out := survival.Concept{Cuisine: cuisine, PriceTier: r.MaxPriceTier}
	for _, a := range r.attributes {
		if set, ok := attributeFlags[a.Param]; ok {
			set(&out)
		}
	}
	return out, true
}

func conceptKey(c survival.Concept) string {
	var b strings.Builder
	b.WriteString(tables.Key(c.Cuisine))
	if c.PriceTier != nil {
		b.WriteString("|p")
		b.WriteString(strconv.FormatFloat(*c.PriceTier, 'f', -1, 64))
	}
	for _, f := range []*int{c.HasDelivery, c.HasOutdoorSeating, c.GoodForKids, c.HasWiFi, c.HasReservations} {
		if f != nil {
			b.WriteString("|1")
		} else {
			b.WriteString("|0")
		}
	}
	return b.String()
}

func survivalUp(cands []Candidate) bool {
	for _, c := range cands {
		if c.Survival.Available {
			return true
		}
	}
	return false
}

var printer = message.NewPrinter(language.English)

func (e *Engine) assemble(g CityCandidate, r resolved) CityRecommendation {
	rep := g.Rep
	p := rep.Profile

	ev := Evidence{
		MarketSize:             printer.Sprintf("%d reviews", p.TotalReviews),
		AttributeOpportunities: g.Attributes,
		CompetitionSignal:      "Unknown",
		SurvivalTier:           string(rep.SurvivalTier),
	}
	if ev.AttributeOpportunities == nil {
		ev.AttributeOpportunities = []string{}
	}
	primary := "General"
	if rep.Gap != nil {
		primary = rep.Gap.Cuisine
		ev.Cuisine = rep.Gap.Cuisine
		ev.GapScore = rep.Gap.GapScore
		ev.NeighborDemand = rep.Gap.NeighborDemand
		ev.CompetitionSignal = competitionSignal(rep.Gap.LocalCount)
	}
	if r.hasCuisine() {
		primary = r.cuisine
	}
	if rep.Survival.Available {
		prob := math.Round(rep.Survival.Probability*1e4) / 1e4
		ev.SurvivalProbability = &prob
	}

	subs := make([]SubArea, 0, len(g.Areas))
	for _, a := range g.Areas {
		subs = append(subs, SubArea{
			Zip:          a.Profile.Zip,
			Score:        a.Score,
			MatchType:    a.MatchType,
			GapScore:     a.GapScore(),
			ClosureRate:  a.Profile.ClosureRate,
			TotalReviews: a.Profile.TotalReviews,
		})
	}

	issues := rep.Issues
	if issues == nil {
		issues = []string{}
	}
	return CityRecommendation{
		City:           g.City,
		Region:         g.Region,
		Zip:            p.Zip,
		Score:          rep.Score,
		MatchType:      rep.MatchType,
		Issues:         issues,
		PrimaryConcept: primary,
		Risk:           p.Risk(),
		ClosureRate:    p.ClosureRate,
		AvgStars:       p.AvgStars,
		TotalReviews:   p.TotalReviews,
		AvgPriceTier:   p.AvgPrice,
		Evidence:       ev,
		SubAreas:       subs,
	}
}

func competitionSignal(local int) string {
	if local == 0 {
		return "Zero local competition"
	}
	return strconv.Itoa(local) + " existing competitor(s)"
}
