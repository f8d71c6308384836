package provider

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"

	"deskchat/model"
	"deskchat/ollama"
)

// OllamaProvider wraps ollama.Client to implement model.Provider. Ollama
// serves local models and needs no credential.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates an Ollama provider instance. baseURL defaults
// to http://localhost:11434 when empty.
func NewOllamaProvider(baseURL, modelName string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	return &OllamaProvider{client: client}, nil
}

// StreamComplete implements model.Provider.
func (p *OllamaProvider) StreamComplete(ctx context.Context, messages []model.ContextMessage, callback model.StreamCallback) error {
	err := p.client.Chat(ctx, toOllamaMessages(messages), func(chunk string) error {
		if callback == nil {
			return nil
		}
		return callback(chunk)
	})
	if err != nil {
		return classifyOllamaError(err)
	}
	return nil
}

// Complete implements model.Provider with a blocking request.
func (p *OllamaProvider) Complete(ctx context.Context, messages []model.ContextMessage) (string, error) {
	content, err := p.client.Generate(ctx, toOllamaMessages(messages))
	if err != nil {
		return "", classifyOllamaError(err)
	}
	return content, nil
}

// Model implements model.Provider.
func (p *OllamaProvider) Model() string {
	return p.client.GetModel()
}

// Ping implements model.Provider.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return classifyOllamaError(err)
	}
	return nil
}

func toOllamaMessages(messages []model.ContextMessage) []api.Message {
	out := make([]api.Message, len(messages))
	for i, m := range messages {
		out[i] = api.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// classifyOllamaError maps client failures onto the shared error taxonomy.
// Ollama has no auth layer; failures are either timeouts or the local
// server being down.
func classifyOllamaError(err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := classifyContextError("ollama", err); ctxErr != nil {
		return ctxErr
	}
	return classifyTransportError("ollama", err)
}
