package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/coachwell-ai/coaching-engine/internal/model"
	"github.com/coachwell-ai/coaching-engine/pkg/metrics"
)

const (
	// StreamName is the name of the escalation stream.
	StreamName = "ESCALATIONS"

	// SubjectPrefix is the prefix for all escalation subjects.
	SubjectPrefix = "escalation"
)

// StreamManager handles JetStream stream operations for the escalation
// queue. It satisfies escalation.Publisher.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the escalation stream exists with proper
// configuration. Escalation records are never deleted or purged from the
// broker side; the review system is responsible for their lifecycle.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	// Create stream
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Redacted escalation records awaiting human review",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// RecordSubject returns the subject for an escalation record. Urgent and
// high priority records land on separate subjects so reviewers can consume
// urgent ones first.
func RecordSubject(priority model.EscalationPriority) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, priority)
}

// Publish publishes an escalation record to JetStream.
func (m *StreamManager) Publish(ctx context.Context, rec *model.EscalationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation record: %w", err)
	}

	_, err = m.client.JetStream().Publish(ctx, RecordSubject(rec.Priority), data)
	if err != nil {
		return fmt.Errorf("failed to publish escalation record: %w", err)
	}

	return nil
}

// ReportStreamMetrics refreshes stream gauges. Called periodically from a
// background goroutine.
func (m *StreamManager) ReportStreamMetrics(ctx context.Context) error {
	stream, err := m.client.JetStream().Stream(ctx, StreamName)
	if err != nil {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	metrics.NATSStreamMessages.WithLabelValues(StreamName).Set(float64(info.State.Msgs))
	metrics.NATSStreamBytes.WithLabelValues(StreamName).Set(float64(info.State.Bytes))
	return nil
}
