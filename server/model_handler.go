package server

import (
	"context"
	"log/slog"

	"github.com/cloudwego/hertz/pkg/app"

	"deskchat/provider"
)

// ModelHandler serves provider and model management endpoints.
type ModelHandler struct {
	registry *provider.Registry
	tester   *provider.Tester
	logger   *slog.Logger
}

// NewModelHandler creates the model handler.
func NewModelHandler(registry *provider.Registry, tester *provider.Tester, logger *slog.Logger) *ModelHandler {
	return &ModelHandler{registry: registry, tester: tester, logger: logger}
}

// Supported handles GET /api/models/supported: the full static catalogue.
func (h *ModelHandler) Supported(ctx context.Context, c *app.RequestContext) {
	SuccessResponse(c, map[string]any{
		"providers": provider.AllSupportedModels(),
	})
}

// Current handles GET /api/models/current.
func (h *ModelHandler) Current(ctx context.Context, c *app.RequestContext) {
	active := h.registry.Current()
	SuccessResponse(c, map[string]any{
		"provider": string(active.Type),
		"model":    active.Model,
	})
}

// List handles GET /api/models/list: every provider entry with configured
// and current flags.
func (h *ModelHandler) List(ctx context.Context, c *app.RequestContext) {
	SuccessResponse(c, map[string]any{
		"models": h.registry.List(),
	})
}

// Status handles GET /api/models/status: the active selection plus whether
// its credential is in place.
func (h *ModelHandler) Status(ctx context.Context, c *app.RequestContext) {
	active := h.registry.Current()

	configured := true
	var baseURL string
	for _, s := range h.registry.List() {
		if s.IsCurrent {
			configured = s.IsConfigured
			baseURL = s.BaseURL
		}
	}

	status := "ready"
	if !configured {
		status = "not_configured"
	}

	SuccessResponse(c, map[string]any{
		"provider":      string(active.Type),
		"model":         active.Model,
		"api_base":      baseURL,
		"is_configured": configured,
		"status":        status,
	})
}

// ProviderModels handles GET /api/models/providers/:provider/models.
func (h *ModelHandler) ProviderModels(ctx context.Context, c *app.RequestContext) {
	providerID := c.Param("provider")
	models, err := provider.SupportedModels(provider.Type(providerID))
	if err != nil {
		ErrorResponse(c, err)
		return
	}
	SuccessResponse(c, map[string]any{
		"provider": providerID,
		"models":   models,
	})
}

type switchRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Switch handles POST /api/models/switch. Validation happens before the
// switch takes effect; turns already in flight keep their provider.
func (h *ModelHandler) Switch(ctx context.Context, c *app.RequestContext) {
	var req switchRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}
	if req.Provider == "" {
		BadRequestResponse(c, "provider is required")
		return
	}

	active, err := h.registry.Switch(req.Provider, req.Model)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, map[string]any{
		"provider": string(active.Type),
		"model":    active.Model,
	})
}

type testRequest struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	TestMessage string `json:"test_message"`
}

// Test handles POST /api/models/test. The probe outcome is always a 200
// with the result object; only a malformed request is an error.
func (h *ModelHandler) Test(ctx context.Context, c *app.RequestContext) {
	var req testRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}
	if req.Provider == "" {
		BadRequestResponse(c, "provider is required")
		return
	}

	result := h.tester.Test(ctx, req.Provider, req.Model, req.TestMessage)
	SuccessResponse(c, result)
}
