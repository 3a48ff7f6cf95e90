// Package prompt builds the grounded, provider-agnostic prompt for a
// coaching reply.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/coachwell-ai/coaching-engine/internal/model"
	"github.com/coachwell-ai/coaching-engine/internal/retrieval"
)

// Turn is one conversational exchange in provider-neutral form.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is the assembled input for any provider: a system instruction plus
// an ordered turn list ending with the current user message.
type Prompt struct {
	System string `json:"system"`
	Turns  []Turn `json:"turns"`
}

// safetyClause is the standing instruction present in every prompt,
// regardless of the risk band.
const safetyClause = "If the user expresses any indication of crisis or " +
	"self-harm, respond with warmth, take it seriously, and encourage them " +
	"to reach out to a mental health professional or local crisis line. " +
	"Do not attempt to counsel them through a crisis yourself."

// Assembler builds prompts grounded in retrieved curriculum content.
type Assembler struct {
	retriever      *retrieval.Retriever
	historyWindow  int
	retrievalLimit int
}

// NewAssembler creates an assembler. historyWindow bounds how many prior
// turns are included verbatim; older context arrives only via the session's
// long-term summary.
func NewAssembler(retriever *retrieval.Retriever, historyWindow, retrievalLimit int) *Assembler {
	return &Assembler{
		retriever:      retriever,
		historyWindow:  historyWindow,
		retrievalLimit: retrievalLimit,
	}
}

// Build assembles the prompt for the current message. Retrieval failure
// degrades to an ungrounded prompt rather than failing the turn; the
// returned items are the excerpts the reply may cite.
func (a *Assembler) Build(ctx context.Context, session *model.ConversationSession, uc model.UserContext, message string, history []model.Message) (*Prompt, []retrieval.Item) {
	excerpts, err := a.retriever.Search(ctx, message, a.retrievalLimit)
	if err != nil {
		excerpts = nil
	}

	var sys strings.Builder
	sys.WriteString("You are a supportive AI coach helping the user work through their personal development curriculum.\n\n")

	if len(excerpts) > 0 {
		sys.WriteString("Relevant curriculum content:\n")
		for _, item := range excerpts {
			fmt.Fprintf(&sys, "- %q (%s): %s\n", item.Title, item.CourseTitle, item.Excerpt)
		}
		sys.WriteString("When you draw on this material, cite the lesson by its title.\n\n")
	}

	sys.WriteString("About the user:\n")
	fmt.Fprintf(&sys, "- Completed lessons: %d\n", uc.CompletedLessons)
	if uc.Level != "" {
		fmt.Fprintf(&sys, "- Level: %s\n", uc.Level)
	}
	if uc.RecentActivity != "" {
		fmt.Fprintf(&sys, "- Recent activity: %s\n", uc.RecentActivity)
	}
	if len(uc.Preferences) > 0 {
		fmt.Fprintf(&sys, "- Preferences: %s\n", strings.Join(uc.Preferences, ", "))
	}
	sys.WriteString("\n")

	if session != nil && session.ContextSummary != "" {
		sys.WriteString("This session so far:\n")
		sys.WriteString(session.ContextSummary)
		sys.WriteString("\n\n")
	}

	if session != nil && session.LongTermSummary != "" {
		sys.WriteString("Earlier in this coaching relationship:\n")
		sys.WriteString(session.LongTermSummary)
		sys.WriteString("\n\n")
	}

	sys.WriteString(safetyClause)

	return &Prompt{
		System: sys.String(),
		Turns:  a.turns(history, message),
	}, excerpts
}

// turns trims history to the configured window and appends the current
// message as the final user turn.
func (a *Assembler) turns(history []model.Message, message string) []Turn {
	if len(history) > a.historyWindow {
		history = history[len(history)-a.historyWindow:]
	}

	out := make([]Turn, 0, len(history)+1)
	for _, msg := range history {
		role := string(msg.Sender)
		if msg.Sender == model.SenderSystem {
			// System-sender messages are engine bookkeeping, not dialogue.
			continue
		}
		out = append(out, Turn{Role: role, Content: msg.Content})
	}
	return append(out, Turn{Role: string(model.SenderUser), Content: message})
}
