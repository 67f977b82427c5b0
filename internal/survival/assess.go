package survival

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/tables"
)

// SignalLabel is a tier with its sentence.
type SignalLabel struct {
	Label  Tier   `json:"label"`
	Signal string `json:"signal"`
}

// Assessment is the survival estimate of one concept at one area.
type Assessment struct {
	Zip            string             `json:"zip_code"`
	Cuisine        string             `json:"cuisine"`
	Probability    float64            `json:"survival_probability"`
	Signal         SignalLabel        `json:"survival_signal"`
	ConceptApplied Applied            `json:"concept_applied"`
	CuisineGap     *model.CuisineGap  `json:"cuisine_gap"`
	TopFactors     []Factor           `json:"top_survival_factors"`
	Threshold      float64            `json:"threshold_used"`
	ModelMetrics   map[string]float64 `json:"model_metrics,omitempty"`
	CuisineWarning string             `json:"cuisine_model_warning,omitempty"`
}

// Assessor scores concepts against area profiles.
type Assessor struct {
	predictor  Predictor
	thresholds Thresholds
	tables     *tables.Tables
}

// NewAssessor creates an Assessor.
func NewAssessor(p Predictor, th Thresholds, t *tables.Tables) *Assessor {
	return &Assessor{predictor: p, thresholds: th, tables: t}
}

// Thresholds returns the tier bounds in use.
func (a *Assessor) Thresholds() Thresholds { return a.thresholds }

// Predictor returns the wrapped predictor.
func (a *Assessor) Predictor() Predictor { return a.predictor }

// Features applies defaults to c and builds its feature vector at p.
func (a *Assessor) Features(c Concept, p model.AreaProfile) (Applied, Features) {
	applied := Apply(c, a.tables)
	return applied, BuildFeatures(applied, p, a.tables)
}

// Assess validates c, predicts its survival at p and interprets the result.
// Predictor failures are returned wrapped around ErrUnavailable.
func (a *Assessor) Assess(ctx context.Context, c Concept, p model.AreaProfile) (*Assessment, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if a.predictor == nil {
		return nil, ErrUnavailable
	}

	applied, feats := a.Features(c, p)
	prob, err := a.predictor.Predict(ctx, feats)
	if err != nil {
		if eris.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, eris.Wrapf(ErrUnavailable, "survival: predict %s at %s: %v", c.Cuisine, p.Zip, err)
	}
	prob = clamp01(prob)
	tier := a.thresholds.Classify(prob)
	info := InfoOf(a.predictor)

	out := &Assessment{
		Zip:            p.Zip,
		Cuisine:        applied.Cuisine,
		Probability:    math.Round(prob*1e4) / 1e4,
		Signal:         SignalLabel{Label: tier, Signal: tier.Signal()},
		ConceptApplied: applied,
		TopFactors:     info.TopFactors,
		Threshold:      a.thresholds.Medium,
		ModelMetrics:   info.Metrics,
	}
	if out.TopFactors == nil {
		out.TopFactors = []Factor{}
	}
	for i := range p.CuisineGaps {
		if tables.Key(p.CuisineGaps[i].Cuisine) == tables.Key(c.Cuisine) {
			g := p.CuisineGaps[i]
			out.CuisineGap = &g
			break
		}
	}
	if len(info.Features) > 0 && !contains(info.Features, CuisineFeature(applied.Cuisine)) {
		out.CuisineWarning = fmt.Sprintf(
			"The model has no signal for cuisine %q; the estimate relies on area and concept attributes only.",
			applied.Cuisine)
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
