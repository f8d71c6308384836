package server

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/ut"

	"deskchat/memory"
)

func jsonBody(s string) *ut.Body {
	return &ut.Body{Body: bytes.NewBufferString(s), Len: len(s)}
}

func TestGetSettings(t *testing.T) {
	window := memory.NewWindow(nil, nil, "be helpful", 10)
	h := NewSettingsHandler(window)

	engine := newTestEngine()
	engine.GET("/api/chat/settings", h.GetSettings)

	w := ut.PerformRequest(engine, "GET", "/api/chat/settings", nil)
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode())
	}
	body := string(resp.Body())
	for _, want := range []string{`"system_prompt":"be helpful"`, `"max_turns":10`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in %s", want, body)
		}
	}
}

func TestUpdateSettings(t *testing.T) {
	window := memory.NewWindow(nil, nil, "be helpful", 10)
	h := NewSettingsHandler(window)

	engine := newTestEngine()
	engine.PUT("/api/chat/settings", h.UpdateSettings)

	w := ut.PerformRequest(engine, "PUT", "/api/chat/settings",
		jsonBody(`{"system_prompt":"terse answers only","max_turns":3}`),
		ut.Header{Key: "Content-Type", Value: "application/json"})
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("expected 200, got %d", got)
	}

	settings := window.Settings()
	if settings.SystemPrompt != "terse answers only" || settings.MaxTurns != 3 {
		t.Errorf("settings not applied: %+v", settings)
	}
}

func TestUpdateSettingsPartial(t *testing.T) {
	window := memory.NewWindow(nil, nil, "be helpful", 10)
	h := NewSettingsHandler(window)

	engine := newTestEngine()
	engine.PUT("/api/chat/settings", h.UpdateSettings)

	ut.PerformRequest(engine, "PUT", "/api/chat/settings",
		jsonBody(`{"max_turns":5}`),
		ut.Header{Key: "Content-Type", Value: "application/json"})

	settings := window.Settings()
	if settings.SystemPrompt != "be helpful" {
		t.Errorf("omitted field must keep its value, got %q", settings.SystemPrompt)
	}
	if settings.MaxTurns != 5 {
		t.Errorf("max_turns not applied: %d", settings.MaxTurns)
	}
}

func TestUpdateSettingsRejectsNegativeTurns(t *testing.T) {
	window := memory.NewWindow(nil, nil, "be helpful", 10)
	h := NewSettingsHandler(window)

	engine := newTestEngine()
	engine.PUT("/api/chat/settings", h.UpdateSettings)

	w := ut.PerformRequest(engine, "PUT", "/api/chat/settings",
		jsonBody(`{"max_turns":-1}`),
		ut.Header{Key: "Content-Type", Value: "application/json"})
	if got := w.Result().StatusCode(); got != 400 {
		t.Fatalf("expected 400, got %d", got)
	}
	if window.Settings().MaxTurns != 10 {
		t.Error("rejected update must not change settings")
	}
}
