package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/coverage"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/events"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/ladder"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/llm"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/mentions"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/normalize"
)

const publishTimeout = 2 * time.Second

// Settings are the tuning knobs of the onboarding pipeline.
type Settings struct {
	Grammar            domain.IDGrammar
	CoverageThreshold  float64
	DefaultDueTimeHour float64
	ExtractTimeout     time.Duration
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		Grammar:            domain.DefaultIDGrammar(),
		CoverageThreshold:  coverage.DefaultThreshold,
		DefaultDueTimeHour: normalize.DefaultDueTimeHour,
		ExtractTimeout:     DefaultExtractTimeout,
	}
}

// OnboardingService turns a free-text factory description into a factory
// the scheduling engine can run. It holds no per-request state and is safe
// for concurrent use.
type OnboardingService struct {
	settings       Settings
	extractor      llm.Extractor
	normalizer     *normalize.Normalizer
	sink           events.DecisionSink
	logger         *zap.Logger
	metrics        *Metrics
	defaultFactory domain.Factory
	schema         string
}

// NewOnboardingService creates a new onboarding service. sink, logger and
// metrics are optional.
func NewOnboardingService(settings Settings, extractor llm.Extractor, sink events.DecisionSink, logger *zap.Logger, metrics *Metrics) (*OnboardingService, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if settings.CoverageThreshold < 0 || settings.CoverageThreshold > 1 {
		return nil, fmt.Errorf("coverage threshold %v outside [0, 1]", settings.CoverageThreshold)
	}
	if settings.ExtractTimeout <= 0 {
		settings.ExtractTimeout = DefaultExtractTimeout
	}
	if settings.DefaultDueTimeHour <= 0 {
		settings.DefaultDueTimeHour = normalize.DefaultDueTimeHour
	}

	def := domain.DefaultFactory()
	if err := domain.Validate(def, settings.Grammar); err != nil {
		return nil, fmt.Errorf("default factory does not match the id grammar: %w", err)
	}
	if sink == nil {
		sink = events.NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OnboardingService{
		settings:  settings,
		extractor: extractor,
		normalizer: normalize.New(normalize.Options{
			Grammar:            settings.Grammar,
			DefaultDueTimeHour: settings.DefaultDueTimeHour,
		}),
		sink:           sink,
		logger:         logger,
		metrics:        metrics,
		defaultFactory: def,
		schema:         domain.CandidateSchema(),
	}, nil
}

// DefaultFactory returns a copy of the fallback factory.
func (s *OnboardingService) DefaultFactory() domain.Factory {
	return s.defaultFactory.Clone()
}

// Schema returns the schema description sent to the text understanding service.
func (s *OnboardingService) Schema() string {
	return s.schema
}

// Normalize runs only the repair normalizer on a candidate document.
func (s *OnboardingService) Normalize(c *normalize.Candidate) (domain.Factory, []string, error) {
	return s.normalizer.Normalize(c)
}

// onboardingRun is the per-request state machine.
type onboardingRun struct {
	state     ladder.State
	startedAt time.Time
	coverage  coverage.Report
	result    domain.Result
}

func (r *onboardingRun) transition(next ladder.State) {
	if r.state.Terminal() {
		return
	}
	r.state = next
}

// Onboard runs one onboarding request. It never returns an error: every
// failure ends in a fallback to the default factory with the cause recorded
// in the returned meta.
func (s *OnboardingService) Onboard(ctx context.Context, rawText string) (res domain.Result) {
	logger := NewLogger(ctx, s.logger)
	run := &onboardingRun{state: ladder.StateIdle, startedAt: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			if run.state.Terminal() {
				logger.LogErrorf(opOnboard, "recovered panic after decision: %v", r)
				res = run.result
				return
			}
			logger.LogErrorf(opOnboard, "recovered panic in state %s: %v", run.state, r)
			d := ladder.Fallback(ladder.ReasonInternalError, fmt.Sprintf("internal_error: %v", r), s.defaultFactory)
			res = s.finish(ctx, logger, run, d)
		}
	}()

	run.transition(ladder.StateExtracting)
	if strings.TrimSpace(rawText) == "" {
		return s.finish(ctx, logger, run, ladder.Decide(ladder.Input{UpstreamErr: domain.ErrEmptyDescription}, s.defaultFactory))
	}
	cand, err := s.extract(ctx, logger, rawText)
	if err != nil {
		return s.finish(ctx, logger, run, ladder.Decide(ladder.Input{UpstreamErr: err}, s.defaultFactory))
	}

	run.transition(ladder.StateNormalizing)
	f, notes, normErr := s.normalizer.Normalize(cand)
	s.metrics.recordRepairNotes(len(notes))
	if normErr != nil {
		logger.LogWarnf(opOnboard, "normalized factory still violates invariants: %v", normErr)
	}

	run.transition(ladder.StateCoverageChecking)
	mentioned := mentions.Extract(rawText, s.settings.Grammar)
	run.coverage = coverage.Evaluate(coverage.Input{
		NormalizedMachines: f.MachineIDs(),
		NormalizedJobs:     f.JobIDs(),
		MentionedMachines:  mentioned.Machines,
		MentionedJobs:      mentioned.Jobs,
	}, s.settings.CoverageThreshold)

	run.transition(ladder.StateDeciding)
	d := ladder.Decide(ladder.Input{
		Factory:      f,
		NormalizeErr: normErr,
		RepairNotes:  notes,
		Coverage:     run.coverage,
		Unreferenced: coverage.Unreferenced(f),
	}, s.defaultFactory)
	return s.finish(ctx, logger, run, d)
}

type extractResult struct {
	cand *normalize.Candidate
	err  error
}

// extract calls the text understanding service under the extract timeout.
// The wait is bounded even if the extractor ignores its context.
func (s *OnboardingService) extract(ctx context.Context, logger *Logger, text string) (*normalize.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.ExtractTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan extractResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- extractResult{err: fmt.Errorf("extractor panic: %v", r)}
			}
		}()
		cand, err := s.extractor.Extract(ctx, text, s.schema)
		done <- extractResult{cand: cand, err: err}
	}()

	var out extractResult
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	if out.err == nil && out.cand.IsEmpty() {
		out.err = domain.ErrEmptyCandidate
	}
	s.metrics.recordUpstreamCall(time.Since(start), out.err)

	if out.err != nil {
		logger.LogWarnf(opExtract, "extraction failed after %s: %v", time.Since(start).Round(time.Millisecond), out.err)
		return nil, out.err
	}
	logger.LogInfof(opExtract, "candidate received in %s", time.Since(start).Round(time.Millisecond))
	return out.cand, nil
}

// finish moves the run to its terminal state and writes the single decision
// record for the request.
func (s *OnboardingService) finish(ctx context.Context, logger *Logger, run *onboardingRun, d ladder.Decision) domain.Result {
	run.transition(d.State)
	run.result = domain.Result{Factory: d.Factory, Meta: d.Meta}

	reason := ""
	if d.State == ladder.StateFallback {
		reason = d.Reason
	}
	s.metrics.recordOutcome(string(d.State), reason)

	finished := time.Now()
	fields := []zap.Field{
		zap.String("state", string(d.State)),
		zap.String("reason", d.Reason),
		zap.Bool("used_default_factory", d.Meta.UsedDefaultFactory),
		zap.Strings("onboarding_errors", d.Meta.OnboardingErrors),
		zap.Strings("inferred_assumptions", d.Meta.InferredAssumptions),
		zap.Float64("machine_coverage", run.coverage.MachineCoverage),
		zap.Float64("job_coverage", run.coverage.JobCoverage),
		zap.Int("machines", len(d.Factory.Machines)),
		zap.Int("jobs", len(d.Factory.Jobs)),
		zap.Duration("elapsed", finished.Sub(run.startedAt)),
	}
	if d.State == ladder.StateFallback {
		logger.LogWarn(opDecision, "onboarding decision", fields...)
	} else {
		logger.LogInfo(opDecision, "onboarding decision", fields...)
	}

	s.publish(ctx, logger, events.Record{
		RequestID:       logger.RequestID(),
		State:           string(d.State),
		Reason:          d.Reason,
		Meta:            d.Meta,
		MachineCoverage: run.coverage.MachineCoverage,
		JobCoverage:     run.coverage.JobCoverage,
		MachineCount:    len(d.Factory.Machines),
		JobCount:        len(d.Factory.Jobs),
		StartedAt:       run.startedAt,
		FinishedAt:      finished,
	})

	return run.result
}

// publish hands rec to the sink. Failures are logged and never change the
// result.
func (s *OnboardingService) publish(ctx context.Context, logger *Logger, rec events.Record) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogErrorf(opPublish, "decision sink panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.sink.Publish(ctx, rec); err != nil {
		logger.LogError(opPublish, err)
	}
}
