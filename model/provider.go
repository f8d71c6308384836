package model

import "context"

// Provider abstracts LLM provider implementations (OpenAI, Anthropic,
// Ollama, and the OpenAI-compatible vendors) behind provider-agnostic types.
//
// This interface is defined in the model package (not provider package) to
// avoid import cycles: provider implementations can import model, and the
// dispatcher can use the Provider interface without importing the provider
// package.
type Provider interface {
	// StreamComplete sends the context window and streams response deltas
	// back through callback, in production order. A non-nil error from the
	// callback aborts the stream.
	StreamComplete(ctx context.Context, messages []ContextMessage, callback StreamCallback) error

	// Complete sends the context window and blocks until the full response
	// is available. Used for connection testing and the single-shot path.
	Complete(ctx context.Context, messages []ContextMessage) (string, error)

	// Model returns the model identifier this provider instance targets.
	Model() string

	// Ping checks whether the provider is reachable with its configured
	// credentials. It must not mutate any state.
	Ping(ctx context.Context) error
}

// StreamCallback receives one response delta. Returning an error stops the
// provider stream.
type StreamCallback func(delta string) error
