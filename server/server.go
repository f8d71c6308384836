// Package server wires the HTTP surface of the chat service.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"

	"deskchat/provider"
)

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	registry *provider.Registry
	started  time.Time
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(registry *provider.Registry) *HealthHandler {
	return &HealthHandler{registry: registry, started: time.Now()}
}

// Health reports service liveness and the active provider selection. It
// deliberately does not ping the provider: health must stay cheap.
func (h *HealthHandler) Health(ctx context.Context, c *app.RequestContext) {
	active := h.registry.Current()
	SuccessResponse(c, map[string]any{
		"status":         "ok",
		"provider":       string(active.Type),
		"model":          active.Model,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// Setup registers middleware and routes on a Hertz server.
func Setup(
	h *server.Hertz,
	chatHandler *ChatHandler,
	sessionHandler *SessionHandler,
	modelHandler *ModelHandler,
	settingsHandler *SettingsHandler,
	healthHandler *HealthHandler,
) {
	h.Use(Recovery())
	h.Use(RequestLogger())
	h.Use(CORS())

	api := h.Group("/api")
	{
		api.GET("/health", healthHandler.Health)

		chatGroup := api.Group("/chat")
		{
			chatGroup.POST("", chatHandler.Chat)
			chatGroup.POST("/stream", chatHandler.ChatStream)

			chatGroup.GET("/history", sessionHandler.History)
			chatGroup.DELETE("/history/:session_id", sessionHandler.ClearHistory)

			chatGroup.GET("/settings", settingsHandler.GetSettings)
			chatGroup.PUT("/settings", settingsHandler.UpdateSettings)

			sessions := chatGroup.Group("/sessions")
			{
				sessions.GET("", sessionHandler.ListSessions)
				sessions.POST("", sessionHandler.CreateSession)
				sessions.DELETE("/:session_id", sessionHandler.DeleteSession)
				sessions.POST("/:session_id/cancel", chatHandler.Cancel)
			}
		}

		models := api.Group("/models")
		{
			models.GET("/supported", modelHandler.Supported)
			models.GET("/current", modelHandler.Current)
			models.GET("/status", modelHandler.Status)
			models.GET("/list", modelHandler.List)
			models.GET("/providers/:provider/models", modelHandler.ProviderModels)
			models.POST("/switch", modelHandler.Switch)
			models.POST("/test", modelHandler.Test)
		}
	}

	slog.Info("routes registered")
}
