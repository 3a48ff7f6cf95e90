package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/coachwell-ai/coaching-engine/internal/engine"
	"github.com/coachwell-ai/coaching-engine/internal/middleware"
	"github.com/coachwell-ai/coaching-engine/pkg/logger"
)

// SessionHandler handles session lifecycle endpoints.
type SessionHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(eng *engine.Engine, log *logger.Logger) *SessionHandler {
	return &SessionHandler{engine: eng, logger: log}
}

// Current handles GET /api/v1/sessions/current
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	session, err := h.engine.CurrentSession(ctx, userID)
	if err != nil {
		h.logger.Error("failed to load session", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Close handles POST /api/v1/sessions/close
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	session, err := h.engine.CloseSession(ctx, userID)
	if err != nil {
		h.logger.Error("failed to close session", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to close session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}
