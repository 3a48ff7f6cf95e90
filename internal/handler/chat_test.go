package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachwell-ai/coaching-engine/internal/config"
	"github.com/coachwell-ai/coaching-engine/internal/engine"
	"github.com/coachwell-ai/coaching-engine/internal/escalation"
	"github.com/coachwell-ai/coaching-engine/internal/middleware"
	"github.com/coachwell-ai/coaching-engine/internal/prompt"
	"github.com/coachwell-ai/coaching-engine/internal/provider"
	"github.com/coachwell-ai/coaching-engine/internal/retrieval"
	"github.com/coachwell-ai/coaching-engine/internal/risk"
	"github.com/coachwell-ai/coaching-engine/internal/store"
	"github.com/coachwell-ai/coaching-engine/pkg/logger"
)

type staticVendor struct{ text string }

func (v staticVendor) Name() string { return "static" }

func (v staticVendor) Generate(ctx context.Context, p *prompt.Prompt, c provider.Constraints) (*provider.Response, error) {
	return &provider.Response{Text: v.text, Model: "test-model", OutputTokens: 10}, nil
}

type emptySearcher struct{}

func (emptySearcher) Search(ctx context.Context, terms []string, limit int) ([]retrieval.Item, error) {
	return nil, nil
}

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()

	router, err := provider.NewRouter(
		provider.Config{Providers: []provider.Spec{{Name: "static", Timeout: 50 * time.Millisecond}}},
		map[string]provider.Client{"static": staticVendor{text: "Sounds like a solid plan."}},
		logger.NewNop(),
	)
	require.NoError(t, err)

	return engine.New(engine.Options{
		Store:           store.NewMemory(store.Limits{SummarizeMessages: 40, SummarizeTokens: 12000}),
		Assessor:        risk.NewAssessor(config.DefaultRiskPolicy()),
		Assembler:       prompt.NewAssembler(retrieval.New(emptySearcher{}), 10, 5),
		Router:          router,
		Queue:           escalation.NewQueue(escalation.NewMemoryPublisher(), escalation.NewResourceDirectory(), 0.9, logger.NewNop()),
		Logger:          logger.NewNop(),
		HistoryWindow:   10,
		MaxMessageBytes: 8192,
	})
}

func authed(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
	return r.WithContext(ctx)
}

func TestChatEndpointReturnsReply(t *testing.T) {
	h := NewChatHandler(newTestEngine(t), logger.NewNop())

	body := strings.NewReader(`{"message":"How do I plan my week?"}`)
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/chat", body), "user-1")
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var reply engine.Reply
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reply))
	assert.Equal(t, "Sounds like a solid plan.", reply.Text)
	assert.NotEmpty(t, reply.SessionID)
	assert.False(t, reply.Escalated)
}

func TestChatEndpointRejectsBadInput(t *testing.T) {
	h := NewChatHandler(newTestEngine(t), logger.NewNop())

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message":`},
		{"empty message", `{"message":"  "}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(tc.body)), "user-1")
			rec := httptest.NewRecorder()

			h.Chat(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body errorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestSessionEndpoints(t *testing.T) {
	eng := newTestEngine(t)
	h := NewSessionHandler(eng, logger.NewNop())

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/current", nil), "user-1")
	rec := httptest.NewRecorder()
	h.Current(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var current map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&current))
	sessionID := current["id"].(string)
	require.NotEmpty(t, sessionID)

	req = authed(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/close", nil), "user-1")
	rec = httptest.NewRecorder()
	h.Close(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var closed map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&closed))
	assert.Equal(t, sessionID, closed["id"])
	assert.NotNil(t, closed["ended_at"])
}
