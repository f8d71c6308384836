package provider

import (
	"fmt"

	"deskchat/model"
)

// Vendor base URLs for the OpenAI-compatible providers. These are fixed
// unless overridden in configuration.
const (
	deepSeekBaseURL = "https://api.deepseek.com"
	moonshotBaseURL = "https://api.moonshot.cn/v1"
	zhipuBaseURL    = "https://open.bigmodel.cn/api/paas/v4"
)

// New creates a provider from configuration.
//
// This is the centralized factory for every provider type. The
// OpenAI-compatible vendors reuse the OpenAI implementation with their own
// base URL; the vendor tag only affects error messages and logging.
func New(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case TypeOpenAI:
		return NewOpenAIProvider("openai", cfg.BaseURL, cfg.APIKey, cfg.Model)
	case TypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case TypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case TypeDeepSeek:
		return NewOpenAIProvider("deepseek", orDefault(cfg.BaseURL, deepSeekBaseURL), cfg.APIKey, cfg.Model)
	case TypeMoonshot:
		return NewOpenAIProvider("moonshot", orDefault(cfg.BaseURL, moonshotBaseURL), cfg.APIKey, cfg.Model)
	case TypeZhipu:
		return NewOpenAIProvider("zhipu", orDefault(cfg.BaseURL, zhipuBaseURL), cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownProvider, cfg.Type)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
