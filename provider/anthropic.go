package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"deskchat/model"
)

// Anthropic requires an explicit output cap on every request.
const anthropicMaxTokens = 4096

// AnthropicProvider implements model.Provider using the official Anthropic
// Go SDK.
type AnthropicProvider struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider creates an Anthropic provider instance. baseURL
// defaults to the public API when empty. Returns an error if the API key is
// missing.
func NewAnthropicProvider(baseURL, apiKey, modelName string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", model.ErrProviderNotConfigured)
	}
	if modelName == "" {
		modelName = "claude-3-5-haiku-latest"
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client: &client,
		model:  anthropic.Model(modelName),
	}, nil
}

// StreamComplete implements model.Provider.
func (p *AnthropicProvider) StreamComplete(ctx context.Context, messages []model.ContextMessage, callback model.StreamCallback) error {
	params := p.buildParams(messages)
	stream := p.client.Messages.NewStreaming(ctx, params)

	for stream.Next() {
		event := stream.Current()
		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if callback != nil && deltaVariant.Text != "" {
					if err := callback(deltaVariant.Text); err != nil {
						return err
					}
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return classifyAnthropicError(err)
	}

	return nil
}

// Complete implements model.Provider with a blocking request.
func (p *AnthropicProvider) Complete(ctx context.Context, messages []model.ContextMessage) (string, error) {
	msg, err := p.client.Messages.New(ctx, p.buildParams(messages))
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}

// Model implements model.Provider.
func (p *AnthropicProvider) Model() string {
	return string(p.model)
}

// Ping implements model.Provider. Anthropic has no health endpoint, so a
// minimal one-token request stands in.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return classifyAnthropicError(err)
	}
	return nil
}

// buildParams converts the context window to Anthropic request parameters.
// System messages move into the dedicated system field; Anthropic rejects
// them in the messages array.
func (p *AnthropicProvider) buildParams(messages []model.ContextMessage) anthropic.MessageNewParams {
	var systemBlocks []anthropic.TextBlockParam
	anthropicMsgs := make([]anthropic.MessageParam, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: m.Content})
		case model.RoleAssistant:
			anthropicMsgs = append(anthropicMsgs,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			anthropicMsgs = append(anthropicMsgs,
				anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  anthropicMsgs,
		MaxTokens: anthropicMaxTokens,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	return params
}

// classifyAnthropicError maps SDK failures onto the shared error taxonomy.
func classifyAnthropicError(err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := classifyContextError("anthropic", err); ctxErr != nil {
		return ctxErr
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401, 403:
			return fmt.Errorf("anthropic rejected credentials: %w", model.ErrAuth)
		case 404:
			if strings.Contains(strings.ToLower(apierr.Error()), "model") {
				return fmt.Errorf("anthropic: %w", model.ErrUnsupportedModel)
			}
		}
		return fmt.Errorf("anthropic request failed (status %d): %w", apierr.StatusCode, model.ErrProvider)
	}

	return classifyTransportError("anthropic", err)
}
