package model

import (
	"time"
)

// EscalationPriority tags how quickly a record needs human eyes.
type EscalationPriority string

const (
	PriorityHigh   EscalationPriority = "high"
	PriorityUrgent EscalationPriority = "urgent"
)

// EscalationStatus is the review lifecycle. Transitions are
// pending -> in_review -> {completed, escalated} and are driven by the
// human-review system, never by the engine.
type EscalationStatus string

const (
	StatusPending   EscalationStatus = "pending"
	StatusInReview  EscalationStatus = "in_review"
	StatusCompleted EscalationStatus = "completed"
	StatusEscalated EscalationStatus = "escalated"
)

// Resource is a regional support contact offered alongside an escalation.
type Resource struct {
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	URL    string `json:"url,omitempty"`
	Locale string `json:"locale"`
}

// EscalationRecord is the redacted hand-off to human review. At most one
// record exists per qualifying message. RedactedContent never holds raw PII;
// when redaction cannot be verified the content is dropped and only metadata
// is kept.
type EscalationRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`

	RedactedContent string     `json:"redacted_content,omitempty"`
	ContentWithheld bool       `json:"content_withheld,omitempty"`
	Resources       []Resource `json:"resources,omitempty"`

	Priority       EscalationPriority `json:"priority"`
	Status         EscalationStatus   `json:"status"`
	CompositeScore float64            `json:"composite_score"`

	CreatedAt time.Time `json:"created_at"`
}
