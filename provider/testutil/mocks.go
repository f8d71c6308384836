// Package testutil provides mock providers for testing.
package testutil

import (
	"context"

	"deskchat/model"
)

// MockProvider implements model.Provider for testing. Each method delegates
// to an overridable func field; the defaults emit a fixed response.
type MockProvider struct {
	StreamCompleteFunc func(ctx context.Context, messages []model.ContextMessage, callback model.StreamCallback) error
	CompleteFunc       func(ctx context.Context, messages []model.ContextMessage) (string, error)
	PingFunc           func(ctx context.Context) error

	currentModel string
}

// NewMockProvider creates a mock provider with default implementations.
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{currentModel: modelName}
	mock.StreamCompleteFunc = mock.defaultStreamComplete
	mock.CompleteFunc = mock.defaultComplete
	mock.PingFunc = mock.defaultPing
	return mock
}

// NewStreamingMock creates a mock whose stream emits the given deltas in
// order.
func NewStreamingMock(modelName string, deltas ...string) *MockProvider {
	mock := NewMockProvider(modelName)
	mock.StreamCompleteFunc = func(ctx context.Context, messages []model.ContextMessage, callback model.StreamCallback) error {
		for _, d := range deltas {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := callback(d); err != nil {
				return err
			}
		}
		return nil
	}
	return mock
}

func (m *MockProvider) defaultStreamComplete(ctx context.Context, messages []model.ContextMessage, callback model.StreamCallback) error {
	if len(messages) > 0 && callback != nil {
		return callback("Mock response")
	}
	return nil
}

func (m *MockProvider) defaultComplete(ctx context.Context, messages []model.ContextMessage) (string, error) {
	return "Mock response", nil
}

func (m *MockProvider) defaultPing(ctx context.Context) error {
	return nil
}

func (m *MockProvider) StreamComplete(ctx context.Context, messages []model.ContextMessage, callback model.StreamCallback) error {
	return m.StreamCompleteFunc(ctx, messages, callback)
}

func (m *MockProvider) Complete(ctx context.Context, messages []model.ContextMessage) (string, error) {
	return m.CompleteFunc(ctx, messages)
}

func (m *MockProvider) Model() string {
	return m.currentModel
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
