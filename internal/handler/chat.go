// Package handler exposes the engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/coachwell-ai/coaching-engine/internal/engine"
	"github.com/coachwell-ai/coaching-engine/internal/middleware"
	"github.com/coachwell-ai/coaching-engine/internal/model"
	"github.com/coachwell-ai/coaching-engine/pkg/logger"
)

// ChatHandler handles the coaching turn endpoint.
type ChatHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(eng *engine.Engine, log *logger.Logger) *ChatHandler {
	return &ChatHandler{engine: eng, logger: log}
}

// ChatRequest is the POST /api/v1/chat body. SessionID is advisory: the
// engine always routes to the user's single open session. UserContext is
// optional; missing fields fall back to defaults and the token's locale
// claim.
type ChatRequest struct {
	SessionID string            `json:"session_id,omitempty"`
	Message   string            `json:"message"`
	Context   model.UserContext `json:"user_context"`
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Context.Locale == "" {
		req.Context.Locale = middleware.GetLocale(ctx)
	}

	reply, err := h.engine.Chat(ctx, &engine.Request{
		UserID:  userID,
		Message: req.Message,
		Context: req.Context,
	})
	if err != nil {
		var verr *engine.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Reason)
		case errors.Is(err, context.Canceled):
			// Client went away; nothing useful to write.
		default:
			h.logger.Error("chat turn failed",
				zap.String("user_id", userID),
				zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "failed to process message")
		}
		return
	}

	writeJSON(w, http.StatusOK, reply)
}
