package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachwell-ai/coaching-engine/internal/model"
	"github.com/coachwell-ai/coaching-engine/pkg/metrics"
)

// Limits configures the summarization trigger.
type Limits struct {
	// SummarizeMessages folds history once the active window grows past
	// this many messages.
	SummarizeMessages int

	// SummarizeTokens folds history once the active window holds more
	// than this many tokens.
	SummarizeTokens int64

	// KeepWindow is how many recent messages survive a fold verbatim.
	KeepWindow int
}

// Memory is the in-memory Store. Production deployments swap in a database
// behind the same interface; the mutex plays the role of the transactional
// upsert there.
type Memory struct {
	limits Limits

	mu           sync.RWMutex
	sessions     map[string]*model.ConversationSession
	openByUser   map[string]string
	messages     map[string][]model.Message
	escalatedMsg map[string]struct{}
	escalations  map[string]int
}

// NewMemory creates an empty in-memory store.
func NewMemory(limits Limits) *Memory {
	if limits.KeepWindow <= 0 {
		limits.KeepWindow = 10
	}
	return &Memory{
		limits:       limits,
		sessions:     make(map[string]*model.ConversationSession),
		openByUser:   make(map[string]string),
		messages:     make(map[string][]model.Message),
		escalatedMsg: make(map[string]struct{}),
		escalations:  make(map[string]int),
	}
}

// Open returns the user's open session, creating one only if none exists.
func (m *Memory) Open(ctx context.Context, userID string) (*model.ConversationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.openByUser[userID]; ok {
		return copySession(m.sessions[id]), nil
	}

	session := &model.ConversationSession{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		StartedAt: time.Now(),
	}
	m.sessions[session.ID] = session
	m.openByUser[userID] = session.ID
	metrics.SessionsTotal.Inc()
	return copySession(session), nil
}

// Get returns a session by id.
func (m *Memory) Get(ctx context.Context, sessionID string) (*model.ConversationSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(session), nil
}

// Append persists a message, bumps counters additively, folds old history
// into the long-term summary when a threshold trips, and refreshes the
// rolling summary of the active window.
func (m *Memory) Append(ctx context.Context, sessionID string, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if session.EndedAt != nil {
		return ErrSessionClosed
	}

	if msg.ID == "" {
		msg.ID = uuid.Must(uuid.NewV7()).String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.SessionID = sessionID

	m.messages[sessionID] = append(m.messages[sessionID], *msg)
	session.TokenCount += int64(msg.TokenCount)
	session.MessageCount++

	m.maybeSummarize(session)
	session.ContextSummary = Summarize(m.messages[sessionID])
	return nil
}

// maybeSummarize folds all but the keep-window into LongTermSummary once the
// active window exceeds a limit. Counters stay cumulative across folds.
func (m *Memory) maybeSummarize(session *model.ConversationSession) {
	active := m.messages[session.ID]
	if len(active) <= m.limits.KeepWindow {
		return
	}

	overMessages := m.limits.SummarizeMessages > 0 && len(active) > m.limits.SummarizeMessages
	overTokens := m.limits.SummarizeTokens > 0 && activeTokens(active) > m.limits.SummarizeTokens
	if !overMessages && !overTokens {
		return
	}

	cut := len(active) - m.limits.KeepWindow
	folded := Summarize(active[:cut])
	if folded != "" {
		if session.LongTermSummary != "" {
			session.LongTermSummary += "\n"
		}
		session.LongTermSummary += folded
	}
	m.messages[session.ID] = append([]model.Message(nil), active[cut:]...)
	metrics.SummarizationsTotal.Inc()
}

// Recent returns up to n of the newest active-window messages in order.
func (m *Memory) Recent(ctx context.Context, sessionID string, n int) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return nil, ErrSessionNotFound
	}

	msgs := m.messages[sessionID]
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Close ends a session and frees the user's open slot.
func (m *Memory) Close(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if session.EndedAt != nil {
		return nil
	}

	now := time.Now()
	session.EndedAt = &now
	delete(m.openByUser, session.UserID)
	return nil
}

// MarkEscalated records an escalation mark, reporting false on duplicates.
func (m *Memory) MarkEscalated(ctx context.Context, userID, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.escalatedMsg[messageID]; dup {
		return false, nil
	}
	m.escalatedMsg[messageID] = struct{}{}
	m.escalations[userID]++
	return true, nil
}

// HasPriorEscalation reports whether the user has escalation history.
func (m *Memory) HasPriorEscalation(ctx context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.escalations[userID] > 0, nil
}

func copySession(s *model.ConversationSession) *model.ConversationSession {
	out := *s
	return &out
}

func activeTokens(msgs []model.Message) int64 {
	var total int64
	for _, msg := range msgs {
		total += int64(msg.TokenCount)
	}
	return total
}
