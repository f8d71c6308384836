package config

import "time"

// Defaults returns the built-in configuration used when no config file is
// present. Every field can be overridden by the file or the DESKCHAT_* env
// vars.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  duration(30 * time.Second),
			WriteTimeout: duration(0), // streaming responses must not be cut off
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Chat: ChatConfig{
			SystemPrompt:       "You are a helpful customer support assistant. Answer clearly and concisely.",
			MaxTurns:           20,
			MaxMessageChars:    32768,
			MaxConcurrentTurns: 32,
			TurnTimeout:        duration(120 * time.Second),
			TestTimeout:        duration(15 * time.Second),
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Knowledge: KnowledgeConfig{
			Enabled: false,
			Timeout: duration(3 * time.Second),
			Limit:   3,
		},
		DefaultProvider: ProviderOpenAI,
		Providers:       DefaultProviders(),
	}
}

// Provider IDs. The set is fixed; adding a vendor means a code change, not a
// config change.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderDeepSeek  = "deepseek"
	ProviderMoonshot  = "moonshot"
	ProviderZhipu     = "zhipu"
)

// DefaultProviders returns the built-in entry for every supported vendor.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			ID:           ProviderOpenAI,
			Name:         "OpenAI",
			DefaultModel: "gpt-4o-mini",
			APIKeyEnv:    "OPENAI_API_KEY",
			KeyRequired:  true,
		},
		{
			ID:           ProviderAnthropic,
			Name:         "Anthropic",
			DefaultModel: "claude-3-5-haiku-latest",
			APIKeyEnv:    "ANTHROPIC_API_KEY",
			KeyRequired:  true,
		},
		{
			ID:           ProviderOllama,
			Name:         "Ollama",
			BaseURL:      "http://localhost:11434",
			DefaultModel: "llama3.1",
			KeyRequired:  false,
		},
		{
			ID:           ProviderDeepSeek,
			Name:         "DeepSeek",
			BaseURL:      "https://api.deepseek.com",
			DefaultModel: "deepseek-chat",
			APIKeyEnv:    "DEEPSEEK_API_KEY",
			KeyRequired:  true,
		},
		{
			ID:           ProviderMoonshot,
			Name:         "Moonshot",
			BaseURL:      "https://api.moonshot.cn/v1",
			DefaultModel: "moonshot-v1-8k",
			APIKeyEnv:    "MOONSHOT_API_KEY",
			KeyRequired:  true,
		},
		{
			ID:           ProviderZhipu,
			Name:         "Zhipu",
			BaseURL:      "https://open.bigmodel.cn/api/paas/v4",
			DefaultModel: "glm-4-flash",
			APIKeyEnv:    "ZHIPU_API_KEY",
			KeyRequired:  true,
		},
	}
}

func defaultDataDir() string {
	return "./data"
}
