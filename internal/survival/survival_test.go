package survival

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gapscout/internal/config"
	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/resilience"
	"github.com/sells-group/gapscout/internal/tables"
	"github.com/sells-group/gapscout/internal/validate"
)

type mockPredictor struct {
	mock.Mock
}

func (m *mockPredictor) Predict(ctx context.Context, f Features) (float64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(float64), args.Error(1)
}

func ptr[T any](v T) *T { return &v }

func marlton() model.AreaProfile {
	return model.AreaProfile{
		Zip: "08053", City: "Marlton", AvgStars: 3.8, ClosureRate: 0.14, TotalReviews: 900, NumNeighbors: 2,
		CuisineGaps: []model.CuisineGap{{Cuisine: "Japanese", GapScore: 5.33, NeighborDemand: 24, LocalCount: 1}},
	}
}

func defaultThresholds() Thresholds {
	return Thresholds{High: 0.75, Medium: 0.55, Low: 0.40}
}

func TestThresholds_Classify(t *testing.T) {
	th := defaultThresholds()
	tests := []struct {
		p    float64
		want Tier
	}{
		{0.9, TierHigh},
		{0.75, TierHigh},
		{0.6, TierMedium},
		{0.55, TierMedium},
		{0.45, TierLow},
		{0.40, TierLow},
		{0.1, TierVeryLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Classify(tt.p), tt.p)
	}
	assert.Equal(t, TierUnknown, th.TierOf(Outcome{Probability: 0.9}))
	assert.NotEmpty(t, TierHigh.Signal())
}

func TestThresholdsFrom_ModelOverridesMedium(t *testing.T) {
	cfg := config.SurvivalConfig{HighThreshold: 0.75, Threshold: 0.55, LowThreshold: 0.40}
	assert.Equal(t, 0.55, ThresholdsFrom(cfg, Unavailable{}).Medium)
	assert.Equal(t, 0.6, ThresholdsFrom(cfg, &LogisticModel{Threshold: 0.6}).Medium)
	// Out-of-band thresholds are ignored.
	assert.Equal(t, 0.55, ThresholdsFrom(cfg, &LogisticModel{Threshold: 0.9}).Medium)
}

func TestApply_DefaultsAndOverrides(t *testing.T) {
	tb := tables.Default()

	a := Apply(Concept{Cuisine: "Pizza"}, tb)
	assert.Equal(t, 1, a.HasDelivery)
	assert.Equal(t, 1, a.HasTakeout)
	assert.Equal(t, 1.0, a.PriceTier)

	a = Apply(Concept{Cuisine: "Pizza", HasDelivery: ptr(0), PriceTier: ptr(3.0), NoiseLevel: "loud"}, tb)
	assert.Equal(t, 0, a.HasDelivery)
	assert.Equal(t, 3.0, a.PriceTier)
	assert.Equal(t, "loud", a.NoiseLevel)

	a = Apply(Concept{Cuisine: "Ethiopian"}, tb)
	assert.Equal(t, 2.0, a.PriceTier)
	assert.Equal(t, "average", a.NoiseLevel)
	assert.Equal(t, 1, a.HasTakeout)
	assert.Equal(t, 0, a.HasDelivery)
}

func TestConcept_Validate(t *testing.T) {
	tests := []struct {
		name  string
		c     Concept
		field string
	}{
		{"ok", Concept{Cuisine: "Italian"}, ""},
		{"missing cuisine", Concept{}, "cuisine"},
		{"stars too high", Concept{Cuisine: "Italian", ExpectedStars: ptr(6.0)}, "expected_stars"},
		{"price too high", Concept{Cuisine: "Italian", PriceTier: ptr(5.0)}, "price_tier"},
		{"bad noise", Concept{Cuisine: "Italian", NoiseLevel: "deafening"}, "noise_level"},
		{"bad flag", Concept{Cuisine: "Italian", HasTV: ptr(2)}, "has_tv"},
		{"zero flag ok", Concept{Cuisine: "Italian", HasTV: ptr(0)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, validate.IsValidation(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestBuildFeatures(t *testing.T) {
	tb := tables.Default()
	a := Apply(Concept{Cuisine: "Japanese", NoiseLevel: "very_loud"}, tb)
	f := BuildFeatures(a, marlton(), tb)

	assert.Equal(t, 3.8, f["stars_yelp"])
	assert.Equal(t, 3.8, f["stars_first_quartile"])
	assert.Equal(t, 50.0, f["review_count_yelp"])
	assert.Equal(t, 3.0, f["noise_level"])
	assert.Equal(t, 1.0, f["cuisine_japanese"])
	assert.Equal(t, 0.0, f["cuisine_italian"])
	assert.Equal(t, 1.0, f["has_reservations"])
	assert.Equal(t, 0.14, f["zip_closure_rate"])

	a = Apply(Concept{Cuisine: "Japanese", ExpectedStars: ptr(4.5)}, tb)
	f = BuildFeatures(a, model.AreaProfile{}, tb)
	assert.Equal(t, 4.5, f["stars_yelp"])
	assert.Equal(t, 3.5, f["stars_last_quartile"])
	assert.Equal(t, "cuisine_middle_eastern", CuisineFeature("Middle Eastern"))
}

func writeModel(t *testing.T, m LogisticModel) string {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLogisticModel(t *testing.T) {
	path := writeModel(t, LogisticModel{
		Intercept:    0,
		Coefficients: map[string]float64{"stars_yelp": 1, "price_tier": -0.5, "cuisine_japanese": 0.2},
		Means:        map[string]float64{"stars_yelp": 3.5},
		Scales:       map[string]float64{"stars_yelp": 0.5},
		Threshold:    0.6,
		Metrics:      map[string]float64{"cv_roc_auc_mean": 0.71},
	})
	m, err := LoadLogistic(path)
	require.NoError(t, err)

	p, err := m.Predict(context.Background(), Features{"stars_yelp": 3.5, "price_tier": 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-9)

	p, err = m.Predict(context.Background(), Features{"stars_yelp": 4.5})
	require.NoError(t, err)
	assert.Greater(t, p, 0.5)

	info := m.Info()
	assert.Equal(t, "local", info.Provider)
	assert.True(t, info.Loaded)
	assert.Equal(t, 0.6, info.Threshold)
	require.Len(t, info.TopFactors, 3)
	assert.Equal(t, "stars_yelp", info.TopFactors[0].Feature)
}

func TestLogisticModel_FixedSummationOrder(t *testing.T) {
	coefs := map[string]float64{
		"a_stars": 1e16, "b_price": 1.5, "c_reviews": -1e16, "d_noise": 0.25,
		"e_delivery": 3e15, "f_takeout": 0.125, "g_kids": -3e15, "h_wifi": 0.5,
	}
	feats := Features{}
	for name := range coefs {
		feats[name] = 1
	}

	names := make([]string, 0, len(coefs))
	for name := range coefs {
		names = append(names, name)
	}
	sort.Strings(names)
	z := 0.0
	for _, name := range names {
		z += coefs[name]
	}
	want := 1 / (1 + math.Exp(-z))

	loaded, err := LoadLogistic(writeModel(t, LogisticModel{Coefficients: coefs}))
	require.NoError(t, err)
	assert.Equal(t, names, loaded.names)

	tests := []struct {
		name string
		m    *LogisticModel
	}{
		{"loaded from file", loaded},
		{"built in memory", &LogisticModel{Coefficients: coefs}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				p, err := tt.m.Predict(context.Background(), feats)
				require.NoError(t, err)
				assert.Equal(t, want, p)
			}
		})
	}
}

func TestLoadLogistic_Errors(t *testing.T) {
	_, err := LoadLogistic("")
	assert.Error(t, err)

	_, err = LoadLogistic(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadLogistic(writeModel(t, LogisticModel{Intercept: 1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no coefficients")
}

func TestNew_Providers(t *testing.T) {
	p, err := New(config.SurvivalConfig{Provider: "none"})
	require.NoError(t, err)
	assert.IsType(t, Unavailable{}, p)

	p, err = New(config.SurvivalConfig{Provider: "local", ModelPath: filepath.Join(t.TempDir(), "nope.json")})
	require.NoError(t, err)
	_, err = p.Predict(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = New(config.SurvivalConfig{Provider: "http"})
	assert.Error(t, err)

	_, err = New(config.SurvivalConfig{Provider: "xgboost"})
	assert.Error(t, err)
}

func TestMemo_CachesAndLogsOnce(t *testing.T) {
	mp := new(mockPredictor)
	mp.On("Predict", mock.Anything, mock.Anything).Return(0.8, nil).Once()
	mp.On("Predict", mock.Anything, mock.Anything).Return(0.0, errors.New("down")).Twice()

	m := NewMemo(mp, nil)
	ctx := context.Background()

	o := m.Predict(ctx, "08053", "Japanese", Features{})
	assert.True(t, o.Available)
	assert.Equal(t, 0.8, o.Probability)

	// Cached: no second call.
	o = m.Predict(ctx, "08053", "Japanese", Features{})
	assert.Equal(t, 0.8, o.Probability)

	assert.False(t, m.Predict(ctx, "08002", "Japanese", Features{}).Available)
	assert.False(t, m.Predict(ctx, "08034", "Japanese", Features{}).Available)
	assert.Equal(t, 2, m.Failures())

	cached, ok := m.Lookup("08002", "Japanese")
	assert.True(t, ok)
	assert.False(t, cached.Available)
	mp.AssertExpectations(t)
}

func TestMemo_Concurrent(t *testing.T) {
	mp := new(mockPredictor)
	mp.On("Predict", mock.Anything, mock.Anything).Return(0.6, nil)
	m := NewMemo(mp, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := m.Predict(context.Background(), "08053", "Thai", Features{})
			assert.True(t, o.Available)
		}()
	}
	wg.Wait()
	assert.Zero(t, m.Failures())
}

func TestHTTPPredictor(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"probability": 0.73}`))
	}))
	defer srv.Close()

	p, err := NewHTTPPredictor(srv.URL, WithRateLimit(100), WithRetry(resilience.RetryConfig{
		MaxAttempts: 2, InitialBackoff: 1, MaxBackoff: 1,
	}))
	require.NoError(t, err)

	prob, err := p.Predict(context.Background(), Features{"stars_yelp": 4})
	require.NoError(t, err)
	assert.Equal(t, 0.73, prob)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "http", p.Info().Provider)
}

func TestHTTPPredictor_BreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p, err := NewHTTPPredictor(srv.URL, WithBreaker(2, 60))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = p.Predict(context.Background(), Features{})
		require.Error(t, err)
	}
	_, err = p.Predict(context.Background(), Features{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}

func TestHTTPPredictor_BadProbability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"probability": 1.7}`))
	}))
	defer srv.Close()

	p, err := NewHTTPPredictor(srv.URL)
	require.NoError(t, err)
	_, err = p.Predict(context.Background(), Features{})
	assert.Error(t, err)
}

func TestAssessor_Assess(t *testing.T) {
	mp := new(mockPredictor)
	mp.On("Predict", mock.Anything, mock.MatchedBy(func(f Features) bool {
		return f["has_delivery"] == 1 && f["cuisine_pizza"] == 1
	})).Return(0.81234, nil)

	a := NewAssessor(mp, defaultThresholds(), tables.Default())
	got, err := a.Assess(context.Background(), Concept{Cuisine: "Pizza"}, marlton())
	require.NoError(t, err)

	assert.Equal(t, "08053", got.Zip)
	assert.Equal(t, 0.8123, got.Probability)
	assert.Equal(t, TierHigh, got.Signal.Label)
	assert.Equal(t, 1, got.ConceptApplied.HasDelivery)
	assert.Nil(t, got.CuisineGap)
	assert.Equal(t, 0.55, got.Threshold)
	assert.NotNil(t, got.TopFactors)
	mp.AssertExpectations(t)
}

func TestAssessor_CuisineGapAndWarning(t *testing.T) {
	m := &LogisticModel{Coefficients: map[string]float64{"stars_yelp": 0.1, "cuisine_japanese": 0.3}}
	a := NewAssessor(m, defaultThresholds(), tables.Default())

	got, err := a.Assess(context.Background(), Concept{Cuisine: "japanese"}, marlton())
	require.NoError(t, err)
	require.NotNil(t, got.CuisineGap)
	assert.Equal(t, 5.33, got.CuisineGap.GapScore)
	assert.Empty(t, got.CuisineWarning)

	got, err = a.Assess(context.Background(), Concept{Cuisine: "Ethiopian"}, marlton())
	require.NoError(t, err)
	assert.Contains(t, got.CuisineWarning, "Ethiopian")
}

func TestAssessor_Errors(t *testing.T) {
	a := NewAssessor(Unavailable{}, defaultThresholds(), tables.Default())
	_, err := a.Assess(context.Background(), Concept{Cuisine: "Italian"}, marlton())
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = a.Assess(context.Background(), Concept{Cuisine: "Italian", PriceTier: ptr(5.0)}, marlton())
	assert.True(t, validate.IsValidation(err))

	mp := new(mockPredictor)
	mp.On("Predict", mock.Anything, mock.Anything).Return(0.0, errors.New("boom"))
	a = NewAssessor(mp, defaultThresholds(), tables.Default())
	_, err = a.Assess(context.Background(), Concept{Cuisine: "Italian"}, marlton())
	assert.ErrorIs(t, err, ErrUnavailable)
}
