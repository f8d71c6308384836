// Package config loads and validates the deskchat configuration.
//
// Configuration lives in a TOML file with environment-variable overrides
// (DESKCHAT_*). Provider credentials are never stored in the file: each
// provider names the environment variable that holds its API key, and a
// provider counts as configured only when that variable is set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	ReadTimeout  duration `toml:"read_timeout"`
	WriteTimeout duration `toml:"write_timeout"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level      string `toml:"level"`  // debug, info, warn, error
	Format     string `toml:"format"` // json, text
	File       string `toml:"file"`   // empty means stderr
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// ChatConfig controls the dispatcher and context window.
type ChatConfig struct {
	SystemPrompt       string   `toml:"system_prompt"`
	MaxTurns           int      `toml:"max_turns"`
	MaxMessageChars    int      `toml:"max_message_chars"`
	MaxConcurrentTurns int      `toml:"max_concurrent_turns"`
	TurnTimeout        duration `toml:"turn_timeout"`
	TestTimeout        duration `toml:"test_timeout"`
}

// StorageConfig locates the on-disk session database.
type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

// KnowledgeConfig points at the external knowledge-base search service.
type KnowledgeConfig struct {
	Enabled bool     `toml:"enabled"`
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
	Limit   int      `toml:"limit"`
}

// ProviderConfig describes one entry of the fixed provider set.
type ProviderConfig struct {
	ID           string `toml:"id"`
	Name         string `toml:"name"`
	BaseURL      string `toml:"base_url"`
	DefaultModel string `toml:"default_model"`
	// APIKeyEnv names the environment variable holding the credential.
	// Empty for providers that need none (ollama).
	APIKeyEnv string `toml:"api_key_env"`
	// KeyRequired distinguishes cloud providers from local ones.
	KeyRequired bool `toml:"key_required"`
}

// APIKey resolves the credential from the environment.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// Configured reports whether the provider can be used: either it needs no
// credential, or its credential env var is set.
func (p ProviderConfig) Configured() bool {
	return !p.KeyRequired || p.APIKey() != ""
}

// Config is the full application configuration.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Log             LogConfig        `toml:"log"`
	Chat            ChatConfig       `toml:"chat"`
	Storage         StorageConfig    `toml:"storage"`
	Knowledge       KnowledgeConfig  `toml:"knowledge"`
	DefaultProvider string           `toml:"default_provider"`
	DefaultModel    string           `toml:"default_model"`
	Providers       []ProviderConfig `toml:"providers"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Provider looks up a provider entry by ID.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// Load reads the config file at path, fills in defaults for anything the
// file leaves unset, and applies environment overrides. A missing file is
// not an error: the defaults alone form a runnable configuration as long as
// the default provider's credential is present.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" && fileExists(path) {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	mergeProviderDefaults(cfg)
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("DESKCHAT_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("DESKCHAT_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.Server.Port = n
		}
	}
	if dataDir := os.Getenv("DESKCHAT_DATA_DIR"); dataDir != "" {
		c.Storage.DataDir = dataDir
	}
	if level := os.Getenv("DESKCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if provider := os.Getenv("DESKCHAT_PROVIDER"); provider != "" {
		c.DefaultProvider = provider
	}
	if m := os.Getenv("DESKCHAT_MODEL"); m != "" {
		c.DefaultModel = m
	}
	if kb := os.Getenv("DESKCHAT_KNOWLEDGE_URL"); kb != "" {
		c.Knowledge.BaseURL = kb
		c.Knowledge.Enabled = true
	}
}

// Validate rejects configurations the server cannot start with. The default
// provider must exist and be configured: discovering the absence of an
// active provider at request time is an invariant violation, so it is
// checked here and aborts startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s, must be 'json' or 'text'", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Chat.MaxTurns < 0 {
		return fmt.Errorf("chat.max_turns must not be negative")
	}
	if c.Chat.MaxMessageChars <= 0 {
		return fmt.Errorf("chat.max_message_chars must be positive")
	}
	if c.Chat.MaxConcurrentTurns <= 0 {
		return fmt.Errorf("chat.max_concurrent_turns must be positive")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}

	seen := map[string]bool{}
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider entry with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider entry: %s", p.ID)
		}
		seen[p.ID] = true
	}

	dp, ok := c.Provider(c.DefaultProvider)
	if !ok {
		return fmt.Errorf("default_provider %q is not a known provider", c.DefaultProvider)
	}
	if !dp.Configured() {
		return fmt.Errorf("default_provider %q is not configured: set %s", dp.ID, dp.APIKeyEnv)
	}

	return nil
}

// mergeProviderDefaults fills gaps in file-supplied provider entries from
// the built-in table and appends any built-in provider the file omitted.
// The provider set is fixed at process start; the file can tune entries but
// not invent new provider kinds.
func mergeProviderDefaults(cfg *Config) {
	defaults := DefaultProviders()

	byID := map[string]ProviderConfig{}
	for _, d := range defaults {
		byID[d.ID] = d
	}

	for i := range cfg.Providers {
		d, ok := byID[cfg.Providers[i].ID]
		if !ok {
			continue
		}
		if cfg.Providers[i].Name == "" {
			cfg.Providers[i].Name = d.Name
		}
		if cfg.Providers[i].BaseURL == "" {
			cfg.Providers[i].BaseURL = d.BaseURL
		}
		if cfg.Providers[i].DefaultModel == "" {
			cfg.Providers[i].DefaultModel = d.DefaultModel
		}
		if cfg.Providers[i].APIKeyEnv == "" {
			cfg.Providers[i].APIKeyEnv = d.APIKeyEnv
		}
		cfg.Providers[i].KeyRequired = d.KeyRequired
		delete(byID, cfg.Providers[i].ID)
	}

	for _, d := range defaults {
		if _, missing := byID[d.ID]; missing {
			cfg.Providers = append(cfg.Providers, d)
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// duration wraps time.Duration so TOML can decode "30s" style strings.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d duration) Std() time.Duration {
	return time.Duration(d)
}
