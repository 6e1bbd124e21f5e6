package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/normalize"
)

func machineIDs(t *testing.T, c *normalize.Candidate) []string {
	t.Helper()
	f, _, err := normalize.New(normalize.Options{}).Normalize(c)
	require.NoError(t, err)
	return f.MachineIDs()
}

func TestHTTPExtractor_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		var body struct {
			Text   string          `json:"text"`
			Schema json.RawMessage `json:"schema"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Text != "M1 cuts" {
			t.Errorf("unexpected text: %q", body.Text)
		}
		if len(body.Schema) == 0 {
			t.Error("expected schema to be forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true, "factory": {"machines": [{"id": "M1", "name": "Saw"}], "jobs": []}}`))
	}))
	defer server.Close()

	client := NewHTTPExtractor(Options{BaseURL: server.URL})
	cand, err := client.Extract(context.Background(), "M1 cuts", domain.CandidateSchema())
	require.NoError(t, err)
	assert.Equal(t, []string{"M1"}, machineIDs(t, cand))
}

func TestHTTPExtractor_ResultShapes(t *testing.T) {
	cases := map[string]string{
		"string payload":   `{"factory": "` + "```json\\n{\\\"machines\\\": [\\\"M1\\\"], \\\"jobs\\\": []}\\n```" + `"}`,
		"root document":    `{"machines": ["M1"], "jobs": []}`,
		"raw model text":   "Sure! {\"machines\": [\"M1\"], \"jobs\": []}",
		"custom path miss": `{"data": {"machines": ["M1"]}, "machines": ["M1"]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(payload))
			}))
			defer server.Close()

			cand, err := NewHTTPExtractor(Options{BaseURL: server.URL}).Extract(context.Background(), "x", "")
			require.NoError(t, err)
			assert.Equal(t, []string{"M1"}, machineIDs(t, cand))
		})
	}
}

func TestHTTPExtractor_ResultPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {"output": {"machines": ["M2"], "jobs": []}}}`))
	}))
	defer server.Close()

	client := NewHTTPExtractor(Options{BaseURL: server.URL + "/", ResultPath: "result.output"})
	cand, err := client.Extract(context.Background(), "x", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"M2"}, machineIDs(t, cand))
}

func TestHTTPExtractor_Failures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		payload string
		target  error
	}{
		{"server error", http.StatusBadGateway, `{"error": "model overloaded"}`, domain.ErrUpstreamStatus},
		{"explicit error", http.StatusOK, `{"ok": false, "error": "model refused"}`, nil},
		{"null document", http.StatusOK, `{"factory": null}`, domain.ErrEmptyCandidate},
		{"empty body", http.StatusOK, ``, domain.ErrEmptyCandidate},
		{"empty object", http.StatusOK, `{}`, domain.ErrEmptyCandidate},
		{"garbage", http.StatusOK, "machines: [M1\njobs: {", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.payload))
			}))
			defer server.Close()

			cand, err := NewHTTPExtractor(Options{BaseURL: server.URL}).Extract(context.Background(), "x", "")
			require.Error(t, err)
			assert.Nil(t, cand)
			if tc.target != nil {
				assert.True(t, errors.Is(err, tc.target), "got %v", err)
			}
		})
	}
}

func TestHTTPExtractor_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPExtractor(Options{BaseURL: server.URL}).Extract(ctx, "x", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestHTTPExtractor_Unreachable(t *testing.T) {
	client := NewHTTPExtractor(Options{BaseURL: "http://invalid-url-that-does-not-exist", Timeout: 2 * time.Second})
	_, err := client.Extract(context.Background(), "x", "")
	require.Error(t, err)
}

func TestHTTPExtractor_RateLimitRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"machines": ["M1"], "jobs": []}`))
	}))
	defer server.Close()

	client := NewHTTPExtractor(Options{BaseURL: server.URL, RatePerSec: 0.001, Burst: 1})
	_, err := client.Extract(context.Background(), "x", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Extract(ctx, "x", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}

func TestHTTPExtractor_Health(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	client := NewHTTPExtractor(Options{BaseURL: server.URL})
	require.NoError(t, client.Health(context.Background()))

	healthy.Store(false)
	err := client.Health(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamStatus))
}

func TestExtractorFunc(t *testing.T) {
	var e Extractor = ExtractorFunc(func(ctx context.Context, text, schema string) (*normalize.Candidate, error) {
		return normalize.CandidateFromValue(map[string]any{"machines": []any{"M3"}}), nil
	})
	cand, err := e.Extract(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"M3"}, machineIDs(t, cand))
}
