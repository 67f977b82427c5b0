package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gapscout/internal/market"
	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/recommend"
	"github.com/sells-group/gapscout/internal/store"
	"github.com/sells-group/gapscout/internal/survival"
	"github.com/sells-group/gapscout/internal/validate"
)

var endpoints = []string{
	"/opportunities", "/opportunity/{zip}", "/search", "/weakspots",
	"/recommendations", "/predict", "/meta/cuisines", "/meta/model",
}

func (s *Server) modelInfo() survival.ModelInfo {
	if s.deps.Assessor == nil {
		return survival.ModelInfo{Provider: "none"}
	}
	return survival.InfoOf(s.deps.Assessor.Predictor())
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service":      "gapscout",
		"profiles":     s.deps.Snapshot.Len(),
		"model_loaded": s.modelInfo().Loaded,
		"endpoints":    endpoints,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCuisines(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Explorer.Meta())
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	info := s.modelInfo()
	if !info.Loaded {
		respondErr(w, r, survival.ErrUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	p := &params{v: r.URL.Query()}
	q := market.OpportunityQuery{
		Cuisine:       p.str("cuisine"),
		MinGapScore:   p.number("min_gap_score", 0),
		MinMarketSize: p.integer("min_market_size", 0),
		MaxRisk:       model.RiskLevel(strings.ToLower(p.str("max_risk"))),
		Sort:          p.str("sort"),
		Limit:         p.integer("limit", 20),
	}
	if p.err != nil {
		respondErr(w, r, p.err)
		return
	}
	res, err := s.deps.Explorer.Opportunities(q)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleOpportunity(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Explorer.Detail(chi.URLParam(r, "zip"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	p := &params{v: r.URL.Query()}
	def := market.DefaultSearchQuery()
	q := market.SearchQuery{
		Cuisine:       p.str("cuisine"),
		Attributes:    p.attributes(),
		MaxPriceTier:  p.floatPtr("max_price_tier"),
		MinMarketSize: p.integer("min_market_size", def.MinMarketSize),
		MaxRisk:       model.RiskLevel(strings.ToLower(p.str("max_risk"))),
		Limit:         p.integer("limit", def.Limit),
	}
	if p.err != nil {
		respondErr(w, r, p.err)
		return
	}
	res, err := s.deps.Explorer.Search(q)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleWeakspots(w http.ResponseWriter, r *http.Request) {
	p := &params{v: r.URL.Query()}
	def := market.DefaultWeakspotQuery()
	q := market.WeakspotQuery{
		Cuisine:        p.str("cuisine"),
		MinClosureRate: p.number("min_closure_rate", def.MinClosureRate),
		MinExisting:    p.integer("min_existing", def.MinExisting),
		MinAvgStars:    p.number("min_avg_stars", def.MinAvgStars),
		MaxAvgStars:    p.number("max_avg_stars", def.MaxAvgStars),
		Limit:          p.integer("limit", def.Limit),
	}
	if p.err != nil {
		respondErr(w, r, p.err)
		return
	}
	res, err := s.deps.Explorer.Weakspots(q)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	p := &params{v: r.URL.Query()}
	q := recommend.Query{
		Cuisine:       p.str("cuisine"),
		Attributes:    p.attributes(),
		MaxRisk:       model.RiskLevel(strings.ToLower(p.str("max_risk"))),
		AcceptedRisks: p.risks("accepted_risks"),
		MaxPriceTier:  p.floatPtr("max_price_tier"),
		MinMarketSize: p.integer("min_market_size", 0),
		Limit:         p.integer("limit", 0),
	}
	if p.err != nil {
		respondErr(w, r, p.err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	resp, err := s.deps.Engine.Recommend(ctx, q)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	Zip string `json:"zip_code" validate:"required,len=5,numeric"`
	survival.Concept
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondErr(w, r, err)
		return
	}
	if s.deps.Assessor == nil {
		respondErr(w, r, survival.ErrUnavailable)
		return
	}
	profile, ok := s.deps.Snapshot.Get(req.Zip)
	if !ok {
		respondErr(w, r, eris.Wrapf(store.ErrNotFound, "api: area %s", req.Zip))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	a, err := s.deps.Assessor.Assess(ctx, req.Concept, profile)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}
