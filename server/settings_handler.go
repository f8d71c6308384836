package server

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"deskchat/memory"
)

// SettingsHandler serves the runtime chat-settings endpoints.
type SettingsHandler struct {
	window *memory.Window
}

// NewSettingsHandler creates the settings handler.
func NewSettingsHandler(window *memory.Window) *SettingsHandler {
	return &SettingsHandler{window: window}
}

// GetSettings handles GET /api/chat/settings.
func (h *SettingsHandler) GetSettings(ctx context.Context, c *app.RequestContext) {
	SuccessResponse(c, h.window.Settings())
}

type updateSettingsRequest struct {
	// Pointer fields distinguish "omitted" from zero values; omitted fields
	// keep their current value.
	SystemPrompt *string `json:"system_prompt"`
	MaxTurns     *int    `json:"max_turns"`
}

// UpdateSettings handles PUT /api/chat/settings. Updates apply to turns
// dispatched after the call; turns in flight keep the settings they started
// with.
func (h *SettingsHandler) UpdateSettings(ctx context.Context, c *app.RequestContext) {
	var req updateSettingsRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}

	settings := h.window.Settings()
	if req.SystemPrompt != nil {
		settings.SystemPrompt = *req.SystemPrompt
	}
	if req.MaxTurns != nil {
		if *req.MaxTurns < 0 {
			BadRequestResponse(c, "max_turns must not be negative")
			return
		}
		settings.MaxTurns = *req.MaxTurns
	}

	SuccessResponse(c, h.window.SetSettings(settings))
}
