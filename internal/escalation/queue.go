package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coachwell-ai/coaching-engine/internal/model"
	"github.com/coachwell-ai/coaching-engine/pkg/logger"
	"github.com/coachwell-ai/coaching-engine/pkg/metrics"
)

// Publisher delivers records to the review system's transport.
type Publisher interface {
	Publish(ctx context.Context, rec *model.EscalationRecord) error
}

// Queue builds redacted escalation records and hands them off. The engine's
// response path never depends on a hand-off succeeding.
type Queue struct {
	publisher       Publisher
	resources       *ResourceDirectory
	urgentThreshold float64
	logger          *logger.Logger

	redact func(string) (string, error)
}

// NewQueue creates an escalation queue. urgentThreshold is the composite
// score at which a record is tagged urgent rather than high.
func NewQueue(publisher Publisher, resources *ResourceDirectory, urgentThreshold float64, log *logger.Logger) *Queue {
	return &Queue{
		publisher:       publisher,
		resources:       resources,
		urgentThreshold: urgentThreshold,
		logger:          log,
		redact:          Redact,
	}
}

// BuildRecord creates the pending record for a flagged message. Redaction
// runs here, before anything can be persisted; when it cannot be verified
// the record ships with metadata only.
func (q *Queue) BuildRecord(userID string, msg *model.Message, bundle model.RiskSignalBundle, locale string) *model.EscalationRecord {
	priority := model.PriorityHigh
	if bundle.CompositeScore >= q.urgentThreshold {
		priority = model.PriorityUrgent
	}

	rec := &model.EscalationRecord{
		ID:             uuid.Must(uuid.NewV7()).String(),
		UserID:         userID,
		MessageID:      msg.ID,
		SessionID:      msg.SessionID,
		Resources:      q.resources.ResourcesFor(locale),
		Priority:       priority,
		Status:         model.StatusPending,
		CompositeScore: bundle.CompositeScore,
		CreatedAt:      time.Now(),
	}

	redacted, err := q.redact(msg.Content)
	if err != nil {
		// Fail closed: withhold content, keep the hand-off.
		rec.ContentWithheld = true
		metrics.RedactionFailuresTotal.Inc()
		q.logger.Error("redaction unverified, withholding escalation content",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	} else {
		rec.RedactedContent = redacted
	}
	return rec
}

// Enqueue publishes a record. Errors are returned so the caller can log
// them as operational faults; they must never alter the user-facing
// response.
func (q *Queue) Enqueue(ctx context.Context, rec *model.EscalationRecord) error {
	if err := q.publisher.Publish(ctx, rec); err != nil {
		metrics.EscalationsTotal.WithLabelValues(string(rec.Priority), "failed").Inc()
		return err
	}
	metrics.EscalationsTotal.WithLabelValues(string(rec.Priority), "enqueued").Inc()
	return nil
}

// MemoryPublisher collects records in memory. Used in tests and as a
// fallback when no NATS cluster is configured.
type MemoryPublisher struct {
	mu      sync.Mutex
	records []model.EscalationRecord
}

// NewMemoryPublisher creates an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish satisfies Publisher.
func (p *MemoryPublisher) Publish(ctx context.Context, rec *model.EscalationRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, *rec)
	return nil
}

// Records returns a copy of everything published so far.
func (p *MemoryPublisher) Records() []model.EscalationRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EscalationRecord, len(p.records))
	copy(out, p.records)
	return out
}
