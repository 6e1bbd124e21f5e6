package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// HealthChecker is implemented by upstream clients that expose a health endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// UpstreamProbe periodically checks the text understanding service and
// publishes the result on the upstream_up gauge.
type UpstreamProbe struct {
	checker HealthChecker
	metrics *Metrics
	logger  *zap.Logger
	cron    *cron.Cron
}

func NewUpstreamProbe(checker HealthChecker, metrics *Metrics, logger *zap.Logger) *UpstreamProbe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpstreamProbe{
		checker: checker,
		metrics: metrics,
		logger:  logger,
	}
}

// Start initializes the cron task. spec uses the six-field format with
// seconds; an empty spec uses DefaultProbeSpec.
func (p *UpstreamProbe) Start(spec string) error {
	if spec == "" {
		spec = DefaultProbeSpec
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() {
		p.Check(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to create probe job: %w", err)
	}

	p.logger.Info("upstream probe started", zap.String("operation", opProbe), zap.String("spec", spec))
	p.cron = c
	c.Start()
	return nil
}

// Stop halts the scheduler and waits for a running probe to finish.
func (p *UpstreamProbe) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
}

// Check runs one probe and reports whether the upstream answered.
func (p *UpstreamProbe) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := p.checker.Health(ctx)
	p.metrics.setUpstreamUp(err == nil)
	if err != nil {
		p.logger.Warn("upstream probe failed", zap.String("operation", opProbe), zap.Error(err))
		return false
	}
	return true
}
