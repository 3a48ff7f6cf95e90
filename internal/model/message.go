package model

import (
	"time"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// Message is a single turn within a session. Messages are insertion-ordered
// and immutable after creation except for review metadata.
type Message struct {
	// Identity
	ID        string `json:"id"`
	SessionID string `json:"session_id"`

	// Content
	Sender  Sender `json:"sender"`
	Content string `json:"content"`

	// Per-message accounting
	TokenCount     int     `json:"token_count"`
	SentimentScore float64 `json:"sentiment_score"`

	// Risk is the signal snapshot computed for user messages.
	Risk *RiskSignalBundle `json:"risk,omitempty"`

	// Citations are attached to assistant messages grounded in curriculum.
	Citations []Citation `json:"citations,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Review metadata, attached by the human-review collaborator.
	ReviewedBy *string    `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// Citation references a retrieved curriculum item an assistant reply drew on.
type Citation struct {
	LessonID    string `json:"lesson_id"`
	Title       string `json:"title"`
	CourseTitle string `json:"course_title"`
}
