package survival

import (
	"context"
	"math"
	"os"
	"sort"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// LogisticModel is a logistic regression trained out of band and shipped as
// a JSON coefficients file:
//
//	{
//	  "intercept": 0.41,
//	  "coefficients": {"stars_yelp": 0.62, "price_tier": -0.08},
//	  "means": {"stars_yelp": 3.6},
//	  "scales": {"stars_yelp": 0.7},
//	  "threshold": 0.55,
//	  "metrics": {"cv_roc_auc_mean": 0.71},
//	  "feature_importance": {"stars_yelp": 0.21}
//	}
//
// Features with a positive scale are standardized before weighting.
type LogisticModel struct {
	Intercept         float64            `json:"intercept"`
	Coefficients      map[string]float64 `json:"coefficients"`
	Means             map[string]float64 `json:"means,omitempty"`
	Scales            map[string]float64 `json:"scales,omitempty"`
	Threshold         float64            `json:"threshold,omitempty"`
	Metrics           map[string]float64 `json:"metrics,omitempty"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`

	// names holds the coefficient names in sorted order so the sum in
	// Predict is accumulated in a fixed order.
	names []string
}

// LoadLogistic reads and validates a coefficients file.
func LoadLogistic(path string) (*LogisticModel, error) {
	if path == "" {
		return nil, eris.New("survival: model path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "survival: read model %s", path)
	}
	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "survival: parse model %s", path)
	}
	if len(m.Coefficients) == 0 {
		return nil, eris.Errorf("survival: model %s has no coefficients", path)
	}
	for name, w := range m.Coefficients {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, eris.Errorf("survival: model %s: coefficient %s is not finite", path, name)
		}
	}
	m.names = sortedKeys(m.Coefficients)
	return &m, nil
}

// Predict returns sigmoid(intercept + sum(w_i * x_i)). Missing features count
// as zero.
func (m *LogisticModel) Predict(ctx context.Context, f Features) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, eris.Wrap(err, "survival: predict")
	}
	names := m.names
	if len(names) != len(m.Coefficients) {
		names = sortedKeys(m.Coefficients)
	}
	z := m.Intercept
	for _, name := range names {
		w := m.Coefficients[name]
		x := f[name]
		if s := m.Scales[name]; s > 0 {
			x = (x - m.Means[name]) / s
		}
		z += w * x
	}
	return 1 / (1 + math.Exp(-z)), nil
}

// Info reports the model threshold, metrics and top five factors.
func (m *LogisticModel) Info() ModelInfo {
	names := sortedKeys(m.Coefficients)

	return ModelInfo{
		Provider:   "local",
		Loaded:     true,
		Threshold:  m.Threshold,
		Metrics:    m.Metrics,
		Features:   names,
		TopFactors: topFactors(m.importance(), 5),
	}
}

// importance falls back to absolute coefficients when the file carries no
// importance table.
func (m *LogisticModel) importance() map[string]float64 {
	if len(m.FeatureImportance) > 0 {
		return m.FeatureImportance
	}
	out := make(map[string]float64, len(m.Coefficients))
	for n, w := range m.Coefficients {
		out[n] = math.Abs(w)
	}
	return out
}

func topFactors(imp map[string]float64, n int) []Factor {
	out := make([]Factor, 0, len(imp))
	for f, v := range imp {
		out = append(out, Factor{Feature: f, Importance: math.Round(v*1e4) / 1e4})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Feature < out[j].Feature
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
