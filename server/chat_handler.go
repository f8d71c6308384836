package server

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/protocol/http1/resp"

	"deskchat/chat"
	"deskchat/logger"
	"deskchat/model"
	"deskchat/storage"
)

// ChatHandler serves the chat endpoints. It logs through the request-scoped
// logger the middleware stores in the context.
type ChatHandler struct {
	dispatcher *chat.Dispatcher
	store      *storage.SessionStore
}

// NewChatHandler creates the chat handler.
func NewChatHandler(dispatcher *chat.Dispatcher, store *storage.SessionStore) *ChatHandler {
	return &ChatHandler{
		dispatcher: dispatcher,
		store:      store,
	}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	// CreateIfAbsent opts into implicit session creation for simple
	// clients. Without it a missing session is an error.
	CreateIfAbsent bool `json:"create_if_absent"`
}

// resolveSession returns the session ID a turn should run against,
// creating a session first when the request opted in.
func (h *ChatHandler) resolveSession(ctx context.Context, req *chatRequest) (string, error) {
	if req.SessionID != "" {
		if _, err := h.store.GetSession(ctx, req.SessionID); err == nil {
			return req.SessionID, nil
		} else if !model.IsSessionNotFound(err) || !req.CreateIfAbsent {
			return "", err
		}
	} else if !req.CreateIfAbsent {
		return "", fmt.Errorf("session_id is required: %w", model.ErrInvalidInput)
	}

	session, err := h.store.CreateSession(ctx, "", req.UserID)
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

// Chat handles POST /api/chat: one blocking turn, full reply in the
// envelope.
func (h *ChatHandler) Chat(ctx context.Context, c *app.RequestContext) {
	var req chatRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}

	sessionID, err := h.resolveSession(ctx, &req)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	reply, err := h.dispatcher.Ask(ctx, sessionID, req.Message)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, map[string]any{
		"session_id": sessionID,
		"message":    reply,
	})
}

// ChatStream handles POST /api/chat/stream: newline-delimited JSON frames,
// zero or more content frames then exactly one done or error frame.
func (h *ChatHandler) ChatStream(ctx context.Context, c *app.RequestContext) {
	var req chatRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}

	sessionID, err := h.resolveSession(ctx, &req)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	frames, err := h.dispatcher.Dispatch(ctx, sessionID, req.Message)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	c.SetStatusCode(consts.StatusOK)
	c.Response.Header.Set("Content-Type", "application/x-ndjson; charset=utf-8")
	c.Response.Header.Set("X-Session-ID", sessionID)
	c.Response.HijackWriter(resp.NewChunkedBodyWriter(&c.Response, c.GetWriter()))

	log := logger.FromContext(ctx)
	for frame := range frames {
		line, err := sonic.Marshal(frame)
		if err != nil {
			log.Error("failed to marshal frame", "error", err)
			h.abandonStream(sessionID, frames)
			return
		}
		line = append(line, '\n')
		if _, err := c.Write(line); err != nil {
			log.Info("client went away, cancelling stream", "session_id", sessionID)
			h.abandonStream(sessionID, frames)
			return
		}
		if err := c.Flush(); err != nil {
			log.Info("flush failed, cancelling stream", "session_id", sessionID)
			h.abandonStream(sessionID, frames)
			return
		}
	}
}

// Cancel handles POST /api/chat/sessions/:session_id/cancel.
func (h *ChatHandler) Cancel(ctx context.Context, c *app.RequestContext) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		BadRequestResponse(c, "session_id is required")
		return
	}

	cancelled := h.dispatcher.Cancel(sessionID)
	SuccessResponse(c, map[string]any{
		"session_id": sessionID,
		"cancelled":  cancelled,
	})
}

// abandonStream cancels the in-flight turn and drains remaining frames so
// the dispatcher goroutine can finish and release the session.
func (h *ChatHandler) abandonStream(sessionID string, frames <-chan model.StreamFrame) {
	h.dispatcher.Cancel(sessionID)
	for range frames {
	}
}
