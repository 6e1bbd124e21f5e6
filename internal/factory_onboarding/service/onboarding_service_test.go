package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/events"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/llm"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/normalize"
)

const regressionText = `Our plant has three machines: M1 (Lathe), M2 (Mill) and M3 (Paint booth).
We run four jobs. J1 goes M1 for 1.5 hours then M2 for 2 hours, due at hour 20.
J2 is M2 for 1 hour then M3 for 1.5 hours, due at 30. J3 uses M1 for 3 hours, due 16.
J4 goes M3 for 2 hours and M1 for 1.5 hours, due at hour 40.`

const regressionCandidate = `{
  "machines": [
    {"id": "M1", "name": "Lathe"},
    {"id": "M2", "name": "Mill"},
    {"id": "M3", "name": "Paint booth"}
  ],
  "jobs": [
    {"id": "J1", "name": "Job 1", "due_time_hour": 20, "steps": [{"machine_id": "M1", "duration_hours": 1.5}, {"machine_id": "M2", "duration_hours": 2}]},
    {"id": "J2", "name": "Job 2", "due_time_hour": 30, "steps": [{"machine_id": "M2", "duration_hours": 1}, {"machine_id": "M3", "duration_hours": 1.5}]},
    {"id": "J3", "name": "Job 3", "due_time_hour": 16, "steps": [{"machine_id": "M1", "duration_hours": 3}]},
    {"id": "J4", "name": "Job 4", "due_time_hour": 40, "steps": [{"machine_id": "M3", "duration_hours": 2}, {"machine_id": "M1", "duration_hours": 1.5}]}
  ]
}`

func staticExtractor(doc string) llm.Extractor {
	return llm.ExtractorFunc(func(ctx context.Context, text, schema string) (*normalize.Candidate, error) {
		return normalize.ParseCandidate([]byte(doc))
	})
}

func failingExtractor(err error) llm.Extractor {
	return llm.ExtractorFunc(func(ctx context.Context, text, schema string) (*normalize.Candidate, error) {
		return nil, err
	})
}

type recordingSink struct {
	mu      sync.Mutex
	records []events.Record
	err     error
}

func (s *recordingSink) Publish(ctx context.Context, rec events.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *recordingSink) all() []events.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Record(nil), s.records...)
}

func newTestService(t *testing.T, extractor llm.Extractor, sink events.DecisionSink) (*OnboardingService, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	svc, err := NewOnboardingService(DefaultSettings(), extractor, sink, zap.New(core), nil)
	require.NoError(t, err)
	return svc, logs
}

func decisionRecords(logs *observer.ObservedLogs) []observer.LoggedEntry {
	return logs.FilterMessage("onboarding decision").All()
}

func TestOnboard_RegressionFixture(t *testing.T) {
	svc, logs := newTestService(t, staticExtractor(regressionCandidate), nil)

	res := svc.Onboard(context.Background(), regressionText)

	assert.False(t, res.Meta.UsedDefaultFactory)
	assert.Empty(t, res.Meta.OnboardingErrors)
	assert.NotNil(t, res.Meta.OnboardingErrors)
	assert.Equal(t, []string{"M1", "M2", "M3"}, res.Factory.MachineIDs())
	assert.Equal(t, []string{"J1", "J2", "J3", "J4"}, res.Factory.JobIDs())

	assert.Equal(t, 2, res.Factory.Jobs[0].Steps[0].DurationHours)
	assert.Equal(t, 2, res.Factory.Jobs[1].Steps[1].DurationHours)
	assert.Equal(t, 2, res.Factory.Jobs[3].Steps[1].DurationHours)
	assert.Contains(t, res.Meta.InferredAssumptions, "job J1 step 1: duration 1.5 rounded to 2")

	records := decisionRecords(logs)
	require.Len(t, records, 1)
	assert.Equal(t, "accepted", records[0].ContextMap()["state"])
}

func TestOnboard_GarbageInput(t *testing.T) {
	cases := map[string]string{
		"empty lists":      `{"machines": [], "jobs": []}`,
		"scalar document":  `"no idea what you mean"`,
		"machines no jobs": `{"machines": ["M1"]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestService(t, staticExtractor(doc), nil)
			res := svc.Onboard(context.Background(), "the quick brown fox jumps over the lazy dog")

			assert.True(t, res.Meta.UsedDefaultFactory)
			assert.Equal(t, []string{"normalization_empty"}, res.Meta.OnboardingErrors)
			assert.Empty(t, res.Meta.InferredAssumptions)
			assert.Equal(t, domain.DefaultFactory(), res.Factory)
		})
	}
}

func TestOnboard_BlankTextSkipsExtractor(t *testing.T) {
	called := false
	extractor := llm.ExtractorFunc(func(ctx context.Context, text, schema string) (*normalize.Candidate, error) {
		called = true
		return nil, nil
	})
	svc, _ := newTestService(t, extractor, nil)

	res := svc.Onboard(context.Background(), "  \n\t ")
	assert.False(t, called)
	assert.True(t, res.Meta.UsedDefaultFactory)
	assert.Equal(t, []string{"extraction_failed: empty description"}, res.Meta.OnboardingErrors)
}

func TestOnboard_ExtractionFailures(t *testing.T) {
	cases := []struct {
		name      string
		extractor llm.Extractor
		want      string
	}{
		{"upstream error", failingExtractor(errors.New("connection refused")), "extraction_failed: connection refused"},
		{"nil candidate", failingExtractor(nil), "extraction_failed: " + domain.ErrEmptyCandidate.Error()},
		{"empty candidate", staticExtractor("{}"), "extraction_failed: " + domain.ErrEmptyCandidate.Error()},
		{"extractor panic", llm.ExtractorFunc(func(ctx context.Context, text, schema string) (*normalize.Candidate, error) {
			panic("boom")
		}), "extraction_failed: extractor panic: boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, logs := newTestService(t, tc.extractor, nil)
			res := svc.Onboard(context.Background(), "M1 runs J1")

			assert.True(t, res.Meta.UsedDefaultFactory)
			assert.Equal(t, []string{tc.want}, res.Meta.OnboardingErrors)
			assert.Len(t, decisionRecords(logs), 1)
		})
	}
}

func TestOnboard_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	cases := map[string]llm.Extractor{
		"honours context": llm.ExtractorFunc(func(ctx context.Context, text, schema string) (*normalize.Candidate, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
		"ignores context": llm.ExtractorFunc(func(ctx context.Context, text, schema string) (*normalize.Candidate, error) {
			<-release
			return nil, nil
		}),
	}
	for name, extractor := range cases {
		t.Run(name, func(t *testing.T) {
			settings := DefaultSettings()
			settings.ExtractTimeout = 50 * time.Millisecond
			svc, err := NewOnboardingService(settings, extractor, nil, nil, nil)
			require.NoError(t, err)

			start := time.Now()
			res := svc.Onboard(context.Background(), "M1 runs J1")
			assert.Less(t, time.Since(start), 2*time.Second)

			assert.True(t, res.Meta.UsedDefaultFactory)
			require.Len(t, res.Meta.OnboardingErrors, 1)
			assert.True(t, strings.HasPrefix(res.Meta.OnboardingErrors[0], "extraction_failed:"), res.Meta.OnboardingErrors[0])
		})
	}
}

func TestOnboard_LowCoverage(t *testing.T) {
	doc := `{"machines": [{"id": "M1", "name": "Saw"}], "jobs": [{"id": "J1", "name": "Cut", "due_time_hour": 8, "steps": [{"machine_id": "M1", "duration_hours": 1}]}]}`
	svc, _ := newTestService(t, staticExtractor(doc), nil)

	res := svc.Onboard(context.Background(), "J1 runs on M1, then M2, then M3.")
	assert.True(t, res.Meta.UsedDefaultFactory)
	assert.Equal(t, []string{"low_coverage: 0.33, 1.00"}, res.Meta.OnboardingErrors)
}

func TestOnboard_AcceptsWithUnreferencedNotes(t *testing.T) {
	doc := `{"machines": ["M1", "M2"], "jobs": [{"id": "J1", "name": "Cut", "due_time_hour": 8, "steps": [{"machine": "m1", "hours": 2}, {"machine": "M9", "hours": 1}]}]}`
	svc, _ := newTestService(t, staticExtractor(doc), nil)

	res := svc.Onboard(context.Background(), "J1 on M1")
	assert.False(t, res.Meta.UsedDefaultFactory)
	require.Len(t, res.Factory.Jobs, 1)
	require.Len(t, res.Factory.Jobs[0].Steps, 1)
	assert.Equal(t, "M1", res.Factory.Jobs[0].Steps[0].MachineID)
	assert.Contains(t, res.Meta.InferredAssumptions, "step referencing unknown machine M9 removed from job J1")
	assert.Contains(t, res.Meta.InferredAssumptions, "machine M2 is not used by any job")
}

func TestOnboard_RecoversInternalPanic(t *testing.T) {
	svc, logs := newTestService(t, staticExtractor(regressionCandidate), nil)
	svc.normalizer = nil

	var res domain.Result
	require.NotPanics(t, func() {
		res = svc.Onboard(context.Background(), regressionText)
	})
	assert.True(t, res.Meta.UsedDefaultFactory)
	require.Len(t, res.Meta.OnboardingErrors, 1)
	assert.True(t, strings.HasPrefix(res.Meta.OnboardingErrors[0], "internal_error: "))
	assert.Len(t, decisionRecords(logs), 1)
}

func TestOnboard_PanicAfterDecisionKeepsResult(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	logger := zap.New(core, zap.Hooks(func(e zapcore.Entry) error {
		if e.Message == "onboarding decision" {
			panic("log hook failed")
		}
		return nil
	}))
	svc, err := NewOnboardingService(DefaultSettings(), staticExtractor(regressionCandidate), nil, logger, nil)
	require.NoError(t, err)

	var res domain.Result
	require.NotPanics(t, func() {
		res = svc.Onboard(context.Background(), regressionText)
	})
	assert.False(t, res.Meta.UsedDefaultFactory)
	assert.NotNil(t, res.Meta.OnboardingErrors)
	assert.NotNil(t, res.Meta.InferredAssumptions)
	assert.Equal(t, []string{"J1", "J2", "J3", "J4"}, res.Factory.JobIDs())
	assert.NoError(t, domain.Validate(res.Factory, domain.DefaultIDGrammar()))
}

func TestOnboard_UnderflowingDueTimeKeepsFactory(t *testing.T) {
	doc := `{"machines": ["M1"], "jobs": [
		{"id": "J1", "name": "Cut", "due_time_hour": "1e-400", "steps": [{"machine_id": "M1", "duration_hours": 1}]},
		{"id": "J2", "name": "Drill", "due_time_hour": 12, "steps": [{"machine_id": "M1", "duration_hours": "1e2000000000"}]}
	]}`
	svc, _ := newTestService(t, staticExtractor(doc), nil)

	res := svc.Onboard(context.Background(), "J1 and J2 both run on M1")
	assert.False(t, res.Meta.UsedDefaultFactory)
	assert.Empty(t, res.Meta.OnboardingErrors)
	require.Equal(t, []string{"J1", "J2"}, res.Factory.JobIDs())
	assert.Equal(t, normalize.DefaultDueTimeHour, res.Factory.Jobs[0].DueTimeHour)
	assert.Equal(t, normalize.MaxDurationHours, res.Factory.Jobs[1].Steps[0].DurationHours)
}

func TestOnboard_SinkFailureDoesNotChangeOutcome(t *testing.T) {
	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("redis down")}

	svcOK, _ := newTestService(t, staticExtractor(regressionCandidate), ok)
	svcBroken, logs := newTestService(t, staticExtractor(regressionCandidate), broken)

	want := svcOK.Onboard(context.Background(), regressionText)
	got := svcBroken.Onboard(context.Background(), regressionText)

	assert.Equal(t, want, got)
	assert.Len(t, broken.all(), 1)
	assert.Equal(t, 1, logs.FilterField(zap.String("operation", opPublish)).Len())
}

func TestOnboard_PublishesDecisionRecord(t *testing.T) {
	sink := &recordingSink{}
	svc, logs := newTestService(t, failingExtractor(errors.New("503")), sink)

	ctx := middleware.WithRequestID(context.Background(), "req-7")
	svc.Onboard(ctx, "M1 runs J1")

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, "req-7", records[0].RequestID)
	assert.Equal(t, "fallback", records[0].State)
	assert.Equal(t, "extraction_failed", records[0].Reason)
	assert.False(t, records[0].FinishedAt.Before(records[0].StartedAt))

	entries := decisionRecords(logs)
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
}

func TestOnboard_ConcurrentRequestsAreIndependent(t *testing.T) {
	extractor := llm.ExtractorFunc(func(ctx context.Context, text, schema string) (*normalize.Candidate, error) {
		if strings.Contains(text, "garbage") {
			return normalize.ParseCandidate([]byte(`{"machines": []}`))
		}
		return normalize.ParseCandidate([]byte(regressionCandidate))
	})
	svc, logs := newTestService(t, extractor, nil)

	const n = 32
	results := make([]domain.Result, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			text := regressionText
			if i%2 == 1 {
				text = fmt.Sprintf("garbage %d", i)
			}
			results[i] = svc.Onboard(ctx, text)
			// Callers own their result.
			if len(results[i].Factory.Machines) > 0 {
				results[i].Factory.Machines[0].Name = "mutated"
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i, res := range results {
		assert.Equal(t, i%2 == 1, res.Meta.UsedDefaultFactory, "request %d", i)
	}
	assert.Len(t, decisionRecords(logs), n)
	assert.NotEqual(t, "mutated", svc.DefaultFactory().Machines[0].Name)
}

func TestOnboard_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc, err := NewOnboardingService(DefaultSettings(), staticExtractor(regressionCandidate), nil, nil, metrics)
	require.NoError(t, err)

	svc.Onboard(context.Background(), regressionText)
	svc.Onboard(context.Background(), "")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.fallbacks.WithLabelValues("extraction_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.upstreamCalls.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.repairNotes))
}

func TestNewOnboardingService_Validation(t *testing.T) {
	_, err := NewOnboardingService(DefaultSettings(), nil, nil, nil, nil)
	assert.Error(t, err)

	settings := DefaultSettings()
	settings.CoverageThreshold = 1.5
	_, err = NewOnboardingService(settings, staticExtractor("{}"), nil, nil, nil)
	assert.Error(t, err)

	settings = DefaultSettings()
	settings.Grammar = domain.MustIDGrammar(`MC[0-9]+`, `J[0-9]+`)
	_, err = NewOnboardingService(settings, staticExtractor("{}"), nil, nil, nil)
	assert.Error(t, err)
}
