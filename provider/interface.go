// Package provider implements the supported LLM backends behind the
// model.Provider interface.
//
// The service supports a fixed set of providers (OpenAI, Anthropic, Ollama,
// DeepSeek, Moonshot, Zhipu). DeepSeek, Moonshot and Zhipu expose
// OpenAI-compatible APIs and share the OpenAI implementation with an
// overridden base URL. The handler and dispatcher layers stay
// provider-agnostic: they only see model.Provider.
//
// Note: the Provider interface and StreamCallback are defined in the model
// package (model/provider.go) to avoid import cycles. This package
// implements model.Provider.
package provider

// Type identifies the provider implementation.
type Type string

const (
	TypeOpenAI    Type = "openai"
	TypeAnthropic Type = "anthropic"
	TypeOllama    Type = "ollama"
	TypeDeepSeek  Type = "deepseek"
	TypeMoonshot  Type = "moonshot"
	TypeZhipu     Type = "zhipu"
)

// Types lists every supported provider in display order.
func Types() []Type {
	return []Type{TypeOpenAI, TypeAnthropic, TypeOllama, TypeDeepSeek, TypeMoonshot, TypeZhipu}
}

// Known reports whether t names a supported provider.
func Known(t Type) bool {
	switch t {
	case TypeOpenAI, TypeAnthropic, TypeOllama, TypeDeepSeek, TypeMoonshot, TypeZhipu:
		return true
	}
	return false
}

// Config holds provider-specific configuration for the factory.
type Config struct {
	Type    Type
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}
