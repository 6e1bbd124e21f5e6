package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/normalize"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultResultPath = "factory"

	maxResponseBytes = 4 << 20
)

// Extractor is the text understanding service: raw description in, candidate
// document out. Implementations do not retry.
type Extractor interface {
	Extract(ctx context.Context, text, schema string) (*normalize.Candidate, error)
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(ctx context.Context, text, schema string) (*normalize.Candidate, error)

func (f ExtractorFunc) Extract(ctx context.Context, text, schema string) (*normalize.Candidate, error) {
	return f(ctx, text, schema)
}

type Options struct {
	BaseURL    string
	ResultPath string
	Timeout    time.Duration
	// RatePerSec paces outbound calls; zero disables pacing.
	RatePerSec float64
	Burst      int
}

// HTTPExtractor calls the extraction endpoint of the LLM gateway.
type HTTPExtractor struct {
	baseURL    string
	resultPath string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewHTTPExtractor(opts Options) *HTTPExtractor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ResultPath == "" {
		opts.ResultPath = DefaultResultPath
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return &HTTPExtractor{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		resultPath: opts.ResultPath,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
	}
}

type extractRequest struct {
	Text   string          `json:"text"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// Extract posts the description and returns whatever candidate the service
// produced. Transport failures, non-2xx statuses, explicit service errors and
// bodies without a usable document are all errors.
func (c *HTTPExtractor) Extract(ctx context.Context, text, schema string) (*normalize.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqBody := extractRequest{Text: text}
	if schema != "" && json.Valid([]byte(schema)) {
		reqBody.Schema = json.RawMessage(schema)
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", domain.ErrUpstreamStatus, resp.StatusCode)
	}

	cand, err := c.candidateFrom(body)
	if err != nil {
		return nil, err
	}
	if cand.IsEmpty() {
		return nil, domain.ErrEmptyCandidate
	}
	return cand, nil
}

func (c *HTTPExtractor) candidateFrom(body []byte) (*normalize.Candidate, error) {
	if !gjson.ValidBytes(body) {
		// Some gateways relay the raw model text.
		return normalize.ParseCandidate(body)
	}
	if msg := gjson.GetBytes(body, "error"); msg.Type == gjson.String && msg.Str != "" {
		return nil, fmt.Errorf("upstream error: %s", msg.Str)
	}

	res := gjson.GetBytes(body, c.resultPath)
	switch {
	case !res.Exists():
		return normalize.ParseCandidate(body)
	case res.Type == gjson.Null:
		return nil, domain.ErrEmptyCandidate
	case res.Type == gjson.String:
		return normalize.ParseCandidate([]byte(res.Str))
	default:
		return normalize.ParseCandidate([]byte(res.Raw))
	}
}

// Health reports whether the gateway answers its health endpoint.
func (c *HTTPExtractor) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %d", domain.ErrUpstreamStatus, resp.StatusCode)
	}
	return nil
}
