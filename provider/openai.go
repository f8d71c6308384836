package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"deskchat/model"
)

// OpenAIProvider implements model.Provider using the official OpenAI Go SDK.
// It also serves the OpenAI-compatible vendors (DeepSeek, Moonshot, Zhipu)
// through a vendor-specific base URL.
type OpenAIProvider struct {
	client openai.Client
	vendor string
	model  string
}

// NewOpenAIProvider creates an OpenAI-protocol provider instance.
//
// vendor tags error messages so failures name the actual upstream. baseURL
// defaults to the OpenAI API when empty. Returns an error if the API key is
// missing.
func NewOpenAIProvider(vendor, baseURL, apiKey, modelName string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", vendor, model.ErrProviderNotConfigured)
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client: client,
		vendor: vendor,
		model:  modelName,
	}, nil
}

// StreamComplete implements model.Provider.
func (p *OpenAIProvider) StreamComplete(ctx context.Context, messages []model.ContextMessage, callback model.StreamCallback) error {
	params := openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(messages),
		Model:    openai.ChatModel(p.model),
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if callback != nil {
				if err := callback(chunk.Choices[0].Delta.Content); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return classifyOpenAIError(p.vendor, err)
	}

	return nil
}

// Complete implements model.Provider with a blocking request.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []model.ContextMessage) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(messages),
		Model:    openai.ChatModel(p.model),
	})
	if err != nil {
		return "", classifyOpenAIError(p.vendor, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices: %w", p.vendor, model.ErrProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

// Model implements model.Provider.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Ping implements model.Provider by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return classifyOpenAIError(p.vendor, err)
	}
	return nil
}

// toOpenAIMessages converts the context window to the SDK's message union.
func toOpenAIMessages(messages []model.ContextMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// classifyOpenAIError maps SDK failures onto the shared error taxonomy.
func classifyOpenAIError(vendor string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := classifyContextError(vendor, err); ctxErr != nil {
		return ctxErr
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401, 403:
			return fmt.Errorf("%s rejected credentials: %w", vendor, model.ErrAuth)
		case 404:
			if strings.Contains(strings.ToLower(apierr.Error()), "model") {
				return fmt.Errorf("%s: %w", vendor, model.ErrUnsupportedModel)
			}
		}
		return fmt.Errorf("%s request failed (status %d): %w", vendor, apierr.StatusCode, model.ErrProvider)
	}

	return classifyTransportError(vendor, err)
}
