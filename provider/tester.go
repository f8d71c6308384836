package provider

import (
	"context"
	"errors"
	"time"

	"deskchat/model"
)

// DefaultTestMessage is sent when a connection test supplies no message of
// its own.
const DefaultTestMessage = "Hello! Please introduce yourself briefly."

// Error kinds reported by connection tests. String-valued so they go
// straight into the JSON result.
const (
	KindAuthError        = "auth_error"
	KindTimeout          = "timeout"
	KindUnreachable      = "unreachable"
	KindUnsupportedModel = "unsupported_model"
	KindUnknownProvider  = "unknown_provider"
	KindNotConfigured    = "not_configured"
	KindProviderError    = "provider_error"
)

// TestResult is the outcome of one connection test. Failures are data, not
// errors: a failed probe still produces a result describing what went
// wrong.
type TestResult struct {
	Success   bool   `json:"success"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Response  string `json:"response,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Tester probes a (provider, model) pair with a real completion request
// under a hard deadline. It never mutates the registry's current selection.
type Tester struct {
	registry *Registry
	timeout  time.Duration
}

// NewTester creates a connection tester. timeout bounds each probe; zero
// selects 15 seconds.
func NewTester(registry *Registry, timeout time.Duration) *Tester {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Tester{registry: registry, timeout: timeout}
}

// Test sends one completion to the named provider and reports the outcome.
// An empty message selects DefaultTestMessage; an empty model selects the
// provider's configured default.
func (t *Tester) Test(ctx context.Context, providerID, modelName, message string) *TestResult {
	if message == "" {
		message = DefaultTestMessage
	}

	result := &TestResult{Provider: providerID, Model: modelName}

	active, err := t.registry.Resolve(providerID, modelName)
	if err != nil {
		result.Error = err.Error()
		result.ErrorKind = classifyKind(err)
		return result
	}
	result.Model = active.Model

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	response, err := active.Provider.Complete(ctx, []model.ContextMessage{
		{Role: model.RoleUser, Content: message},
	})
	result.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		result.Error = err.Error()
		result.ErrorKind = classifyKind(err)
		return result
	}

	result.Success = true
	result.Response = response
	return result
}

func classifyKind(err error) string {
	switch {
	case model.IsAuthError(err):
		return KindAuthError
	case model.IsProviderTimeout(err):
		return KindTimeout
	case model.IsNetworkError(err):
		return KindUnreachable
	case model.IsUnsupportedModel(err):
		return KindUnsupportedModel
	case model.IsUnknownProvider(err), model.IsInvalidInput(err):
		return KindUnknownProvider
	case errors.Is(err, model.ErrProviderNotConfigured):
		return KindNotConfigured
	default:
		return KindProviderError
	}
}
