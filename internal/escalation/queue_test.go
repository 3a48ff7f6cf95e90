package escalation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachwell-ai/coaching-engine/internal/model"
	"github.com/coachwell-ai/coaching-engine/pkg/logger"
)

func newTestQueue(pub Publisher) *Queue {
	return NewQueue(pub, NewResourceDirectory(), 0.9, logger.NewNop())
}

func TestRedactReplacesPIIPatterns(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"email", "reach me at sam.doe@example.com please", "reach me at [EMAIL] please"},
		{"phone", "call 415-555-0132 tonight", "call [PHONE] tonight"},
		{"gov id", "my ssn is 078-05-1120 ok", "my ssn is [ID] ok"},
		{"card", "card 4111 1111 1111 1111 thanks", "card [CARD] thanks"},
		{"card at sentence end", "card 4111-1111-1111-1111.", "card [CARD]."},
		{"clean", "no personal details here", "no personal details here"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Redact(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildRecordPriorityFromComposite(t *testing.T) {
	q := newTestQueue(NewMemoryPublisher())
	msg := &model.Message{ID: "m1", SessionID: "s1", Content: "I can't do this anymore"}

	high := q.BuildRecord("u1", msg, model.RiskSignalBundle{CompositeScore: 0.82}, "us")
	urgent := q.BuildRecord("u1", msg, model.RiskSignalBundle{CompositeScore: 0.95}, "us")

	assert.Equal(t, model.PriorityHigh, high.Priority)
	assert.Equal(t, model.PriorityUrgent, urgent.Priority)
	assert.Equal(t, model.StatusPending, high.Status)
}

func TestBuildRecordRedactsContent(t *testing.T) {
	q := newTestQueue(NewMemoryPublisher())
	msg := &model.Message{ID: "m1", Content: "I give up, email me at low@example.com"}

	rec := q.BuildRecord("u1", msg, model.RiskSignalBundle{CompositeScore: 0.85}, "us")

	assert.NotContains(t, rec.RedactedContent, "low@example.com")
	assert.Contains(t, rec.RedactedContent, "[EMAIL]")
	assert.False(t, rec.ContentWithheld)
}

func TestBuildRecordFailsClosedWhenRedactionUnverified(t *testing.T) {
	q := newTestQueue(NewMemoryPublisher())
	q.redact = func(string) (string, error) { return "", ErrRedactionIncomplete }
	msg := &model.Message{ID: "m1", Content: "sensitive text"}

	rec := q.BuildRecord("u1", msg, model.RiskSignalBundle{CompositeScore: 0.85}, "us")

	assert.True(t, rec.ContentWithheld)
	assert.Empty(t, rec.RedactedContent)
	// Metadata survives the withheld content.
	assert.Equal(t, "m1", rec.MessageID)
	assert.Equal(t, "u1", rec.UserID)
}

func TestBuildRecordAttachesRegionalResources(t *testing.T) {
	q := newTestQueue(NewMemoryPublisher())
	msg := &model.Message{ID: "m1", Content: "done with everything"}

	us := q.BuildRecord("u1", msg, model.RiskSignalBundle{CompositeScore: 0.85}, "en-US")
	unknown := q.BuildRecord("u1", msg, model.RiskSignalBundle{CompositeScore: 0.85}, "xx")

	require.NotEmpty(t, us.Resources)
	assert.Equal(t, "988 Suicide & Crisis Lifeline", us.Resources[0].Name)
	require.NotEmpty(t, unknown.Resources)
	assert.Equal(t, "intl", unknown.Resources[0].Locale)
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, rec *model.EscalationRecord) error {
	return errors.New("stream unavailable")
}

func TestEnqueueReturnsPublishError(t *testing.T) {
	q := newTestQueue(failingPublisher{})
	rec := &model.EscalationRecord{ID: "r1", Priority: model.PriorityUrgent}

	assert.Error(t, q.Enqueue(context.Background(), rec))
}

func TestEnqueueDeliversToPublisher(t *testing.T) {
	pub := NewMemoryPublisher()
	q := newTestQueue(pub)
	rec := &model.EscalationRecord{ID: "r1", Priority: model.PriorityHigh}

	require.NoError(t, q.Enqueue(context.Background(), rec))
	require.Len(t, pub.Records(), 1)
	assert.Equal(t, "r1", pub.Records()[0].ID)
}
