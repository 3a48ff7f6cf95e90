// Package engine orchestrates a coaching turn: risk assessment, grounding,
// vendor generation, persistence, and escalation hand-off.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/coachwell-ai/coaching-engine/internal/escalation"
	"github.com/coachwell-ai/coaching-engine/internal/model"
	"github.com/coachwell-ai/coaching-engine/internal/prompt"
	"github.com/coachwell-ai/coaching-engine/internal/provider"
	"github.com/coachwell-ai/coaching-engine/internal/retrieval"
	"github.com/coachwell-ai/coaching-engine/internal/risk"
	"github.com/coachwell-ai/coaching-engine/internal/store"
	"github.com/coachwell-ai/coaching-engine/pkg/logger"
	"github.com/coachwell-ai/coaching-engine/pkg/metrics"
)

// fallbackText is served when every provider is exhausted. Static by
// requirement: it must not depend on anything that can fail.
const fallbackText = "I'm having trouble responding right now. Please give " +
	"me a moment and try again. If you need support urgently, consider " +
	"reaching out to someone you trust."

// ValidationError rejects malformed input before any side effect.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s", e.Reason)
}

// Request is one inbound coaching turn.
type Request struct {
	UserID  string
	Message string
	Context model.UserContext
}

// Reply is the engine's answer to a turn. Escalated means a crisis record
// was built for this message; IsFallback means no vendor produced the text.
type Reply struct {
	SessionID      string                  `json:"session_id"`
	MessageID      string                  `json:"message_id"`
	Text           string                  `json:"text"`
	Citations      []model.Citation        `json:"citations,omitempty"`
	RiskLevel      model.RiskLevel         `json:"risk_level"`
	Escalated      bool                    `json:"escalated"`
	IsFallback     bool                    `json:"is_fallback"`
	FallbackReason provider.FallbackReason `json:"fallback_reason,omitempty"`
}

// Clock supplies the time used for contextual risk signals. Injected so
// tests can pin the hour.
type Clock func() time.Time

// Engine wires the turn pipeline together.
type Engine struct {
	store     store.Store
	assessor  *risk.Assessor
	assembler *prompt.Assembler
	router    *provider.Router
	queue     *escalation.Queue
	logger    *logger.Logger

	historyWindow   int
	maxMessageBytes int
	constraints     provider.Constraints
	now             Clock
}

// Options carries the engine's collaborators and tunables.
type Options struct {
	Store     store.Store
	Assessor  *risk.Assessor
	Assembler *prompt.Assembler
	Router    *provider.Router
	Queue     *escalation.Queue
	Logger    *logger.Logger

	HistoryWindow   int
	MaxMessageBytes int
	Constraints     provider.Constraints
	Now             Clock
}

// New creates an engine. Every collaborator in Options is required except
// Now, which defaults to the wall clock.
func New(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:           opts.Store,
		assessor:        opts.Assessor,
		assembler:       opts.Assembler,
		router:          opts.Router,
		queue:           opts.Queue,
		logger:          opts.Logger,
		historyWindow:   opts.HistoryWindow,
		maxMessageBytes: opts.MaxMessageBytes,
		constraints:     opts.Constraints,
		now:             now,
	}
}

// Chat runs one full coaching turn. High-risk messages short-circuit before
// any vendor call; provider exhaustion degrades to the static fallback. The
// only errors returned are validation failures, store failures, and the
// caller's own context ending.
func (e *Engine) Chat(ctx context.Context, req *Request) (*Reply, error) {
	if err := e.validate(req); err != nil {
		return nil, err
	}

	session, err := e.store.Open(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	history, err := e.store.Recent(ctx, session.ID, e.historyWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	uc := req.Context
	if !uc.PriorEscalations {
		prior, err := e.store.HasPriorEscalation(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("check escalation history: %w", err)
		}
		uc.PriorEscalations = prior
	}

	bundle := e.assessor.Assess(req.Message, history, uc, e.now())
	metrics.RiskAssessmentsTotal.WithLabelValues(string(bundle.Level)).Inc()

	userMsg := &model.Message{
		Sender:         model.SenderUser,
		Content:        req.Message,
		TokenCount:     provider.EstimateTokens(req.Message),
		SentimentScore: bundle.SentimentScore,
		Risk:           &bundle,
	}

	if bundle.Level == model.RiskHigh {
		return e.crisisTurn(ctx, session, userMsg, bundle, uc)
	}
	return e.coachingTurn(ctx, session, userMsg, bundle, uc, history)
}

// crisisTurn handles a high-risk message: persist it, hand the redacted
// record to human review, and answer with the scripted supportive reply.
// No vendor is ever called on this path.
func (e *Engine) crisisTurn(ctx context.Context, session *model.ConversationSession, userMsg *model.Message, bundle model.RiskSignalBundle, uc model.UserContext) (*Reply, error) {
	if err := e.store.Append(ctx, session.ID, userMsg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	rec := e.queue.BuildRecord(session.UserID, userMsg, bundle, uc.Locale)

	first, err := e.store.MarkEscalated(ctx, session.UserID, userMsg.ID)
	if err != nil {
		return nil, fmt.Errorf("mark escalated: %w", err)
	}
	if first {
		// Queue faults must never change what the user sees.
		if err := e.queue.Enqueue(ctx, rec); err != nil {
			e.logger.Error("escalation hand-off failed",
				zap.String("record_id", rec.ID),
				zap.String("user_id", session.UserID),
				zap.Error(err),
			)
		}
	}

	text := supportiveReply(rec.Resources)
	assistantMsg := &model.Message{
		Sender:     model.SenderAssistant,
		Content:    text,
		TokenCount: provider.EstimateTokens(text),
	}
	if err := e.store.Append(ctx, session.ID, assistantMsg); err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}

	return &Reply{
		SessionID: session.ID,
		MessageID: userMsg.ID,
		Text:      text,
		RiskLevel: bundle.Level,
		Escalated: true,
	}, nil
}

// coachingTurn is the ordinary path: ground, generate, cite, persist.
func (e *Engine) coachingTurn(ctx context.Context, session *model.ConversationSession, userMsg *model.Message, bundle model.RiskSignalBundle, uc model.UserContext, history []model.Message) (*Reply, error) {
	p, items := e.assembler.Build(ctx, session, uc, userMsg.Content, history)

	result, err := e.router.Generate(ctx, p, e.constraints)
	if err != nil {
		// Context cancellation: nothing is persisted for this turn.
		return nil, err
	}

	text := result.Text
	var citations []model.Citation
	if result.IsFallback {
		text = fallbackText
	} else {
		citations = ExtractCitations(text, items)
	}

	if err := e.store.Append(ctx, session.ID, userMsg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	assistantMsg := &model.Message{
		Sender:     model.SenderAssistant,
		Content:    text,
		TokenCount: result.OutputTokens,
		Citations:  citations,
	}
	if assistantMsg.TokenCount == 0 {
		assistantMsg.TokenCount = provider.EstimateTokens(text)
	}
	if err := e.store.Append(ctx, session.ID, assistantMsg); err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}

	if !result.IsFallback {
		metrics.RecordGeneration(result.Provider, result.InputTokens, result.OutputTokens)
	}

	return &Reply{
		SessionID:      session.ID,
		MessageID:      userMsg.ID,
		Text:           text,
		Citations:      citations,
		RiskLevel:      bundle.Level,
		IsFallback:     result.IsFallback,
		FallbackReason: result.Reason,
	}, nil
}

// CurrentSession returns the user's open session, creating one if needed.
func (e *Engine) CurrentSession(ctx context.Context, userID string) (*model.ConversationSession, error) {
	return e.store.Open(ctx, userID)
}

// CloseSession ends the user's open session. Closing when no session is
// open is a no-op from the caller's point of view.
func (e *Engine) CloseSession(ctx context.Context, userID string) (*model.ConversationSession, error) {
	session, err := e.store.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := e.store.Close(ctx, session.ID); err != nil {
		return nil, err
	}
	return e.store.Get(ctx, session.ID)
}

func (e *Engine) validate(req *Request) error {
	if req.UserID == "" {
		return &ValidationError{Reason: "missing user id"}
	}
	if strings.TrimSpace(req.Message) == "" {
		return &ValidationError{Reason: "empty message"}
	}
	if len(req.Message) > e.maxMessageBytes {
		return &ValidationError{Reason: fmt.Sprintf("message exceeds %d bytes", e.maxMessageBytes)}
	}
	if !utf8.ValidString(req.Message) {
		return &ValidationError{Reason: "message is not valid UTF-8"}
	}
	return nil
}

// ExtractCitations returns the retrieved lessons whose titles appear in the
// reply, deduplicated by lesson id. Pure string matching: running it twice
// on the same inputs yields the same list.
func ExtractCitations(text string, items []retrieval.Item) []model.Citation {
	var out []model.Citation
	seen := make(map[string]bool)
	for _, item := range items {
		if item.Title == "" || seen[item.LessonID] {
			continue
		}
		if strings.Contains(strings.ToLower(text), strings.ToLower(item.Title)) {
			seen[item.LessonID] = true
			out = append(out, model.Citation{
				LessonID:    item.LessonID,
				Title:       item.Title,
				CourseTitle: item.CourseTitle,
			})
		}
	}
	return out
}

// supportiveReply is the scripted crisis response with regional resources
// attached. Deliberately static.
func supportiveReply(resources []model.Resource) string {
	var b strings.Builder
	b.WriteString("I'm really glad you told me, and I'm concerned about what you're going through. ")
	b.WriteString("You deserve support from someone who can really help right now.\n\n")
	b.WriteString("Please consider reaching out:\n")
	for _, r := range resources {
		b.WriteString("- ")
		b.WriteString(r.Name)
		if r.Phone != "" {
			b.WriteString(": ")
			b.WriteString(r.Phone)
		}
		if r.URL != "" {
			b.WriteString(" (")
			b.WriteString(r.URL)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nIf you are in immediate danger, please contact your local emergency services. I'm here to listen, but a trained counselor can support you in ways I can't.")
	return b.String()
}
