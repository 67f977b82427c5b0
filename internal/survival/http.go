package survival

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/gapscout/internal/metrics"
	"github.com/sells-group/gapscout/internal/resilience"
)

// HTTPOption configures an HTTPPredictor.
type HTTPOption func(*HTTPPredictor)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(p *HTTPPredictor) {
		p.client = hc
	}
}

// WithTimeout sets the per-request timeout in seconds.
func WithTimeout(secs int) HTTPOption {
	return func(p *HTTPPredictor) {
		if secs > 0 {
			p.client.Timeout = time.Duration(secs) * time.Second
		}
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) HTTPOption {
	return func(p *HTTPPredictor) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithBreaker configures the circuit breaker.
func WithBreaker(failureThreshold, resetTimeoutSecs int) HTTPOption {
	return func(p *HTTPPredictor) {
		p.breaker = resilience.NewBreaker[float64](
			resilience.BreakerFromConfig("survival-http", failureThreshold, resetTimeoutSecs))
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) HTTPOption {
	return func(p *HTTPPredictor) {
		p.retry = cfg
	}
}

// HTTPPredictor posts feature vectors to a remote scoring service.
//
// Request:  {"features": {"stars_yelp": 4.0, ...}}
// Response: {"probability": 0.73}
type HTTPPredictor struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker[float64]
	retry   resilience.RetryConfig
}

// NewHTTPPredictor creates a predictor for the given endpoint.
func NewHTTPPredictor(url string, opts ...HTTPOption) (*HTTPPredictor, error) {
	if url == "" {
		return nil, eris.New("survival: http predictor url is empty")
	}
	p := &HTTPPredictor{
		url:     url,
		client:  &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(20, 20),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breaker == nil {
		p.breaker = resilience.NewBreaker[float64](resilience.BreakerFromConfig("survival-http", 0, 0))
	}
	return p, nil
}

type predictRequest struct {
	Features Features `json:"features"`
}

type predictResponse struct {
	Probability *float64 `json:"probability"`
}

// Predict calls the remote service through the rate limiter, retry policy
// and circuit breaker.
func (p *HTTPPredictor) Predict(ctx context.Context, f Features) (float64, error) {
	body, err := json.Marshal(predictRequest{Features: f})
	if err != nil {
		return 0, eris.Wrap(err, "survival: marshal features")
	}

	prob, err := p.breaker.Execute(func() (float64, error) {
		return resilience.Retry(ctx, p.retry, func(ctx context.Context) (float64, error) {
			return p.post(ctx, body)
		})
	})
	switch {
	case err == nil:
		metrics.PredictorCalls.WithLabelValues("http", "success").Inc()
		return prob, nil
	case resilience.IsOpen(err):
		metrics.PredictorCalls.WithLabelValues("http", "rejected").Inc()
		return 0, eris.Wrap(err, "survival: predictor circuit open")
	default:
		metrics.PredictorCalls.WithLabelValues("http", "failure").Inc()
		return 0, err
	}
}

func (p *HTTPPredictor) post(ctx context.Context, body []byte) (float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, eris.Wrap(err, "survival: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return 0, eris.Wrap(err, "survival: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "survival: post")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, eris.Wrap(err, "survival: read response")
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("survival: predictor returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return 0, resilience.NewTransientError(err, resp.StatusCode)
		}
		return 0, err
	}

	var out predictResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, eris.Wrap(err, "survival: decode response")
	}
	if out.Probability == nil || *out.Probability < 0 || *out.Probability > 1 {
		return 0, eris.New("survival: response probability missing or out of range")
	}
	return *out.Probability, nil
}

// Info describes the remote predictor.
func (p *HTTPPredictor) Info() ModelInfo {
	return ModelInfo{Provider: "http", Loaded: p.breaker.State() != "open"}
}
