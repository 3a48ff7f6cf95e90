// Package model defines data structures for the coaching engine.
package model

import (
	"time"
)

// ConversationSession represents a coaching conversation thread.
// A session is open while EndedAt is nil; a user has at most one
// open session at any time.
type ConversationSession struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// ContextSummary is the rolling summary of the active window.
	ContextSummary string `json:"context_summary,omitempty"`

	// LongTermSummary holds consolidated facts from turns that have been
	// folded out of the active window. Only ever appended to.
	LongTermSummary string `json:"long_term_summary,omitempty"`

	// TokenCount and MessageCount are monotonically non-decreasing.
	// Close freezes both.
	TokenCount   int64 `json:"token_count"`
	MessageCount int   `json:"message_count"`
}

// Open reports whether the session is still accepting messages.
func (s *ConversationSession) Open() bool {
	return s.EndedAt == nil
}

// UserContext carries caller-supplied facts about the user that inform
// risk assessment and prompt grounding. It is input, never persisted state.
type UserContext struct {
	Locale              string   `json:"locale,omitempty"`
	Level               string   `json:"level,omitempty"`
	CompletedLessons    int      `json:"completed_lessons"`
	RecentActivity      string   `json:"recent_activity,omitempty"`
	Preferences         []string `json:"preferences,omitempty"`
	DecliningEngagement bool     `json:"declining_engagement,omitempty"`
	PriorEscalations    bool     `json:"prior_escalations,omitempty"`
}
