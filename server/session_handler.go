package server

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"deskchat/storage"
)

// SessionHandler serves session and history endpoints.
type SessionHandler struct {
	store  *storage.SessionStore
	logger *slog.Logger
}

// NewSessionHandler creates the session handler.
func NewSessionHandler(store *storage.SessionStore, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

type createSessionRequest struct {
	Title  string `json:"title"`
	UserID string `json:"user_id"`
}

// CreateSession handles POST /api/chat/sessions.
func (h *SessionHandler) CreateSession(ctx context.Context, c *app.RequestContext) {
	var req createSessionRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}

	session, err := h.store.CreateSession(ctx, req.Title, req.UserID)
	if err != nil {
		ErrorResponse(c, err)
		return
	}
	CreatedResponse(c, session)
}

// ListSessions handles GET /api/chat/sessions.
func (h *SessionHandler) ListSessions(ctx context.Context, c *app.RequestContext) {
	userID := c.Query("user_id")
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	sessions, err := h.store.ListSessions(ctx, userID, limit, offset)
	if err != nil {
		ErrorResponse(c, err)
		return
	}
	SuccessResponse(c, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// DeleteSession handles DELETE /api/chat/sessions/:session_id.
func (h *SessionHandler) DeleteSession(ctx context.Context, c *app.RequestContext) {
	sessionID := c.Param("session_id")
	if err := h.store.DeleteSession(ctx, sessionID); err != nil {
		ErrorResponse(c, err)
		return
	}
	NoContentResponse(c)
}

// History handles GET /api/chat/history.
func (h *SessionHandler) History(ctx context.Context, c *app.RequestContext) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		BadRequestResponse(c, "session_id is required")
		return
	}
	limit := queryInt(c, "limit", 200)
	offset := queryInt(c, "offset", 0)

	messages, err := h.store.History(ctx, sessionID, limit, offset)
	if err != nil {
		ErrorResponse(c, err)
		return
	}
	SuccessResponse(c, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
		"count":      len(messages),
	})
}

// ClearHistory handles DELETE /api/chat/history/:session_id. Messages go,
// the session stays.
func (h *SessionHandler) ClearHistory(ctx context.Context, c *app.RequestContext) {
	sessionID := c.Param("session_id")
	if err := h.store.ClearHistory(ctx, sessionID); err != nil {
		ErrorResponse(c, err)
		return
	}
	NoContentResponse(c)
}

func queryInt(c *app.RequestContext, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
