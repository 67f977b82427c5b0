// Package survival estimates how likely a restaurant concept is to stay open
// at a given area.
package survival

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gapscout/internal/config"
)

// ErrUnavailable is returned when no predictor is configured or loaded.
var ErrUnavailable = eris.New("survival: predictor unavailable")

// Features is a named feature vector. Unknown names are ignored by models.
type Features map[string]float64

// Predictor scores a feature vector with a survival probability in [0,1].
type Predictor interface {
	Predict(ctx context.Context, f Features) (float64, error)
}

// Describer is implemented by predictors that can report model metadata.
type Describer interface {
	Info() ModelInfo
}

// Factor is one feature's global importance.
type Factor struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// ModelInfo describes a loaded predictor.
type ModelInfo struct {
	Provider   string             `json:"provider"`
	Loaded     bool               `json:"loaded"`
	Threshold  float64            `json:"threshold,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Features   []string           `json:"features,omitempty"`
	TopFactors []Factor           `json:"top_factors,omitempty"`
}

// InfoOf returns p's metadata, or a minimal record when p cannot describe itself.
func InfoOf(p Predictor) ModelInfo {
	if d, ok := p.(Describer); ok {
		return d.Info()
	}
	return ModelInfo{Provider: "custom", Loaded: p != nil}
}

// Unavailable is the predictor used when no model is configured. Every call
// fails with ErrUnavailable.
type Unavailable struct {
	Reason string
}

// Predict always fails.
func (u Unavailable) Predict(context.Context, Features) (float64, error) {
	if u.Reason != "" {
		return 0, eris.Wrap(ErrUnavailable, u.Reason)
	}
	return 0, ErrUnavailable
}

// Info reports the predictor as not loaded.
func (u Unavailable) Info() ModelInfo { return ModelInfo{Provider: "none"} }

// New builds the predictor selected by cfg.Provider. A local model file that
// cannot be loaded degrades to Unavailable with a warning.
func New(cfg config.SurvivalConfig) (Predictor, error) {
	switch cfg.Provider {
	case "local":
		m, err := LoadLogistic(cfg.ModelPath)
		if err != nil {
			zap.L().Warn("survival: model not loaded, predictions disabled",
				zap.String("path", cfg.ModelPath),
				zap.Error(err),
			)
			return Unavailable{Reason: "model not loaded"}, nil
		}
		return m, nil
	case "http":
		return NewHTTPPredictor(cfg.URL,
			WithTimeout(cfg.TimeoutSecs),
			WithRateLimit(cfg.RateLimitRPS),
			WithBreaker(cfg.FailureThreshold, cfg.ResetTimeoutSecs),
		)
	case "none", "":
		return Unavailable{}, nil
	default:
		return nil, eris.Errorf("survival: unknown provider %q", cfg.Provider)
	}
}

// Outcome is the result of one prediction. Probability is meaningful only
// when Available is true.
type Outcome struct {
	Probability float64
	Available   bool
}

type memoKey struct {
	area    string
	concept string
}

// Memo caches outcomes per (area, concept) for the lifetime of one query and
// logs the first failure only.
type Memo struct {
	p   Predictor
	log *zap.Logger

	mu       sync.Mutex
	entries  map[memoKey]Outcome
	failures int
	warnOnce sync.Once
}

// NewMemo wraps p for one query.
func NewMemo(p Predictor, log *zap.Logger) *Memo {
	if log == nil {
		log = zap.L()
	}
	return &Memo{p: p, log: log, entries: make(map[memoKey]Outcome)}
}

// Predict returns the cached outcome for (area, concept) or asks the
// predictor. Errors yield an unavailable outcome.
func (m *Memo) Predict(ctx context.Context, area, concept string, f Features) Outcome {
	key := memoKey{area: area, concept: concept}
	m.mu.Lock()
	if o, ok := m.entries[key]; ok {
		m.mu.Unlock()
		return o
	}
	m.mu.Unlock()

	var out Outcome
	if m.p != nil {
		prob, err := m.p.Predict(ctx, f)
		if err == nil {
			out = Outcome{Probability: clamp01(prob), Available: true}
		} else {
			m.mu.Lock()
			m.failures++
			m.mu.Unlock()
			m.warnOnce.Do(func() {
				m.log.Warn("survival: prediction failed, bonus disabled for affected areas",
					zap.String("area", area),
					zap.String("concept", concept),
					zap.Error(err),
				)
			})
		}
	}

	m.mu.Lock()
	m.entries[key] = out
	m.mu.Unlock()
	return out
}

// Lookup returns a cached outcome without calling the predictor.
func (m *Memo) Lookup(area, concept string) (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.entries[memoKey{area: area, concept: concept}]
	return o, ok
}

// Failures returns the number of failed predictor calls.
func (m *Memo) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
