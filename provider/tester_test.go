package provider

import (
	"context"
	"fmt"
	"testing"
	"time"

	"deskchat/model"
	"deskchat/provider/testutil"
)

func TestTesterSuccess(t *testing.T) {
	r := newTestRegistry(t)
	tester := NewTester(r, time.Second)

	result := tester.Test(context.Background(), "openai", "gpt-4o-mini", "")
	if !result.Success {
		t.Fatalf("expected success, got error %q (%s)", result.Error, result.ErrorKind)
	}
	if result.Response != "Mock response" {
		t.Errorf("unexpected response %q", result.Response)
	}
	if result.Provider != "openai" || result.Model != "gpt-4o-mini" {
		t.Errorf("result misidentifies the probe: %s/%s", result.Provider, result.Model)
	}
	if result.LatencyMs < 0 {
		t.Errorf("negative latency %d", result.LatencyMs)
	}
}

func TestTesterDefaultModel(t *testing.T) {
	r := newTestRegistry(t)
	tester := NewTester(r, time.Second)

	result := tester.Test(context.Background(), "anthropic", "", "")
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	if result.Model != "claude-3-5-haiku-latest" {
		t.Errorf("expected provider default model, got %s", result.Model)
	}
}

func TestTesterFailureKinds(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		probeErr error
		wantKind string
	}{
		{"auth failure", "openai", "", fmt.Errorf("401: %w", model.ErrAuth), KindAuthError},
		{"timeout", "openai", "", fmt.Errorf("slow: %w", model.ErrProviderTimeout), KindTimeout},
		{"unreachable", "openai", "", fmt.Errorf("down: %w", model.ErrNetwork), KindUnreachable},
		{"provider error", "openai", "", fmt.Errorf("boom: %w", model.ErrProvider), KindProviderError},
		{"unknown provider", "gemini", "", nil, KindUnknownProvider},
		{"unsupported model", "openai", "gpt-99", nil, KindUnsupportedModel},
		{"unconfigured provider", "deepseek", "", nil, KindNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			if tt.probeErr != nil {
				r.newProvider = func(c Config) (model.Provider, error) {
					mock := testutil.NewMockProvider(c.Model)
					mock.CompleteFunc = func(ctx context.Context, messages []model.ContextMessage) (string, error) {
						return "", tt.probeErr
					}
					return mock, nil
				}
			}
			tester := NewTester(r, time.Second)

			result := tester.Test(context.Background(), tt.provider, tt.model, "")
			if result.Success {
				t.Fatal("expected failure")
			}
			if result.ErrorKind != tt.wantKind {
				t.Errorf("expected kind %s, got %s (error %q)", tt.wantKind, result.ErrorKind, result.Error)
			}
			if result.Error == "" {
				t.Error("failed probe must carry an error message")
			}
		})
	}
}

func TestTesterUsesDefaultMessage(t *testing.T) {
	r := newTestRegistry(t)

	var got string
	r.newProvider = func(c Config) (model.Provider, error) {
		mock := testutil.NewMockProvider(c.Model)
		mock.CompleteFunc = func(ctx context.Context, messages []model.ContextMessage) (string, error) {
			if len(messages) != 1 {
				t.Fatalf("expected 1 message, got %d", len(messages))
			}
			got = messages[0].Content
			return "ok", nil
		}
		return mock, nil
	}

	tester := NewTester(r, time.Second)
	tester.Test(context.Background(), "openai", "", "")
	if got != DefaultTestMessage {
		t.Errorf("expected default test message, got %q", got)
	}

	tester.Test(context.Background(), "openai", "", "custom probe")
	if got != "custom probe" {
		t.Errorf("expected custom message, got %q", got)
	}
}
