package provider

import (
	"fmt"

	"deskchat/model"
)

// catalogues holds the static per-vendor model lists. A model switch is
// validated against these; the set reflects what each vendor's chat API
// accepts for this service, not everything the vendor hosts. Ollama is the
// exception: its models are whatever the local server has pulled, so its
// catalogue is advisory and validation is skipped.
var catalogues = map[Type][]string{
	TypeOpenAI: {
		"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo",
	},
	TypeAnthropic: {
		"claude-sonnet-4-5", "claude-3-5-sonnet-latest", "claude-3-5-haiku-latest",
		"claude-3-opus-latest", "claude-3-haiku-20240307",
	},
	TypeOllama: {
		"llama3.1", "llama3.2", "mistral", "qwen2.5",
	},
	TypeDeepSeek: {
		"deepseek-chat", "deepseek-coder", "deepseek-reasoner",
	},
	TypeMoonshot: {
		"moonshot-v1-8k", "moonshot-v1-32k", "moonshot-v1-128k",
	},
	TypeZhipu: {
		"glm-4", "glm-4-flash", "glm-4v", "glm-3-turbo",
	},
}

// SupportedModels returns the model catalogue for a provider. The returned
// slice is a copy.
func SupportedModels(t Type) ([]string, error) {
	models, ok := catalogues[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownProvider, t)
	}
	out := make([]string, len(models))
	copy(out, models)
	return out, nil
}

// AllSupportedModels returns every provider's catalogue keyed by provider
// ID.
func AllSupportedModels() map[string][]string {
	out := make(map[string][]string, len(catalogues))
	for t := range catalogues {
		models, _ := SupportedModels(t)
		out[string(t)] = models
	}
	return out
}

// ValidateModel checks that a model belongs to the provider's catalogue.
// Ollama accepts any non-empty name since its installed set is only known
// to the local server.
func ValidateModel(t Type, modelName string) error {
	if !Known(t) {
		return fmt.Errorf("%w: %s", model.ErrUnknownProvider, t)
	}
	if modelName == "" {
		return fmt.Errorf("empty model name: %w", model.ErrInvalidInput)
	}
	if t == TypeOllama {
		return nil
	}
	for _, m := range catalogues[t] {
		if m == modelName {
			return nil
		}
	}
	return fmt.Errorf("%s does not serve %q: %w", t, modelName, model.ErrUnsupportedModel)
}
