// Package events hands onboarding decision records to downstream listeners.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
)

const (
	// DefaultChannel is the pub/sub channel decision records go to: onboarding:decisions
	DefaultChannel = "onboarding:decisions"
	// requestChannelPrefix scopes a copy of the record to its request: onboarding:request:{request_id}
	requestChannelPrefix = "onboarding:request:"
)

// Record is the decision record written once per onboarding request.
type Record struct {
	RequestID       string      `json:"request_id"`
	State           string      `json:"state"`
	Reason          string      `json:"reason"`
	Meta            domain.Meta `json:"meta"`
	MachineCoverage float64     `json:"machine_coverage"`
	JobCoverage     float64     `json:"job_coverage"`
	MachineCount    int         `json:"machine_count"`
	JobCount        int         `json:"job_count"`
	StartedAt       time.Time   `json:"started_at"`
	FinishedAt      time.Time   `json:"finished_at"`
}

// DecisionSink receives decision records. Delivery is best effort: callers
// log a failed Publish and move on.
type DecisionSink interface {
	Publish(ctx context.Context, rec Record) error
}

// NopSink drops every record.
type NopSink struct{}

func (NopSink) Publish(context.Context, Record) error { return nil }

// RedisPublisher publishes decision records over Redis Pub/Sub. Nothing is
// stored; subscribers that are not listening miss the record.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher on channel (DefaultChannel if empty).
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
	}
}

// Publish sends rec to the shared channel and, when it has a request id, to
// the per-request channel.
func (p *RedisPublisher) Publish(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal decision record: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, p.channel, data)
	if rec.RequestID != "" {
		pipe.Publish(ctx, RequestChannel(rec.RequestID), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish decision record: %w", err)
	}
	return nil
}

// Channel returns the shared channel name.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// RequestChannel returns the per-request channel for requestID.
func RequestChannel(requestID string) string {
	return fmt.Sprintf("%s%s", requestChannelPrefix, requestID)
}
