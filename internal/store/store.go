// Package store owns session and message lifecycle for the engine.
package store

import (
	"context"
	"errors"

	"github.com/coachwell-ai/coaching-engine/internal/model"
)

var (
	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed indicates an append against a closed session.
	ErrSessionClosed = errors.New("session is closed")
)

// Store is the persistence seam for sessions, messages, and escalation
// marks. Implementations must enforce at most one open session per user
// (the way a partial unique index on (user_id) WHERE ended_at IS NULL
// would) and keep session counters additive and monotonic.
type Store interface {
	// Open returns the user's open session, creating one only if none
	// exists. It never produces a second open session for the same user.
	Open(ctx context.Context, userID string) (*model.ConversationSession, error)

	// Get returns a session by id.
	Get(ctx context.Context, sessionID string) (*model.ConversationSession, error)

	// Append persists a message and bumps the session counters. It may
	// fold old history into the long-term summary when thresholds trip.
	Append(ctx context.Context, sessionID string, msg *model.Message) error

	// Recent returns up to n of the newest active-window messages in
	// insertion order.
	Recent(ctx context.Context, sessionID string, n int) ([]model.Message, error)

	// Close ends a session, freezing its totals. Closing a closed session
	// is a no-op.
	Close(ctx context.Context, sessionID string) error

	// MarkEscalated records that a message produced an escalation. It
	// reports false if the message was already marked, making the
	// one-record-per-message invariant checkable.
	MarkEscalated(ctx context.Context, userID, messageID string) (bool, error)

	// HasPriorEscalation reports whether the user has escalation history.
	HasPriorEscalation(ctx context.Context, userID string) (bool, error)
}
