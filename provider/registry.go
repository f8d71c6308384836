package provider

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"deskchat/config"
	"deskchat/model"
)

// Active is one resolved provider selection. It is immutable: a switch
// installs a new Active rather than mutating the old one, so turns already
// holding a reference keep streaming against the provider they started
// with.
type Active struct {
	Type     Type
	Model    string
	Provider model.Provider
}

// Status describes one provider entry for listing.
type Status struct {
	ID           string `json:"provider"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	BaseURL      string `json:"api_base,omitempty"`
	IsConfigured bool   `json:"is_configured"`
	IsCurrent    bool   `json:"is_current"`
}

// Registry tracks the configured providers and which one is current.
//
// Reads of the current selection are lock-free; switches are serialized by
// a mutex so concurrent switches cannot interleave validation and install.
type Registry struct {
	cfg     *config.Config
	current atomic.Pointer[Active]

	mu sync.Mutex // serializes Switch

	// newProvider builds provider instances. Overridable in tests.
	newProvider func(Config) (model.Provider, error)
}

// NewRegistry builds a registry with the configured default provider
// installed as current. Failing to resolve the default is fatal: the
// service must never run without an active provider.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{
		cfg:         cfg,
		newProvider: New,
	}

	modelName := cfg.DefaultModel
	if active, err := r.build(Type(cfg.DefaultProvider), modelName); err != nil {
		return nil, fmt.Errorf("%w: default provider %s: %v", model.ErrNoActiveProvider, cfg.DefaultProvider, err)
	} else {
		r.current.Store(active)
	}

	return r, nil
}

// Current returns the active provider selection. Never nil after a
// successful NewRegistry.
func (r *Registry) Current() *Active {
	return r.current.Load()
}

// Switch atomically replaces the current provider selection.
//
// Validation happens before any state changes: an invalid switch leaves the
// current selection untouched. Switching to the already-current pair is a
// no-op that returns the existing Active. modelName may be empty, which
// selects the provider's configured default model.
func (r *Registry) Switch(providerID, modelName string) (*Active, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := Type(providerID)
	if !Known(t) {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownProvider, providerID)
	}

	pc, ok := r.cfg.Provider(providerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownProvider, providerID)
	}
	if modelName == "" {
		modelName = pc.DefaultModel
	}
	if err := ValidateModel(t, modelName); err != nil {
		return nil, err
	}
	if !pc.Configured() {
		return nil, fmt.Errorf("%s has no credential (set %s): %w", providerID, pc.APIKeyEnv, model.ErrProviderNotConfigured)
	}

	if cur := r.current.Load(); cur != nil && cur.Type == t && cur.Model == modelName {
		return cur, nil
	}

	active, err := r.build(t, modelName)
	if err != nil {
		return nil, err
	}

	r.current.Store(active)
	slog.Info("switched provider", "provider", providerID, "model", modelName)
	return active, nil
}

// List returns the status of every configured provider entry.
func (r *Registry) List() []Status {
	cur := r.current.Load()

	out := make([]Status, 0, len(r.cfg.Providers))
	for _, pc := range r.cfg.Providers {
		out = append(out, Status{
			ID:           pc.ID,
			Name:         pc.Name,
			Model:        pc.DefaultModel,
			BaseURL:      pc.BaseURL,
			IsConfigured: pc.Configured(),
			IsCurrent:    cur != nil && string(cur.Type) == pc.ID,
		})
	}
	return out
}

// Resolve builds a provider instance for an arbitrary (provider, model)
// pair without installing it as current. Used by connection testing.
func (r *Registry) Resolve(providerID, modelName string) (*Active, error) {
	t := Type(providerID)
	if !Known(t) {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownProvider, providerID)
	}
	pc, ok := r.cfg.Provider(providerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownProvider, providerID)
	}
	if modelName == "" {
		modelName = pc.DefaultModel
	}
	if err := ValidateModel(t, modelName); err != nil {
		return nil, err
	}
	if !pc.Configured() {
		return nil, fmt.Errorf("%s has no credential (set %s): %w", providerID, pc.APIKeyEnv, model.ErrProviderNotConfigured)
	}
	return r.build(t, modelName)
}

func (r *Registry) build(t Type, modelName string) (*Active, error) {
	pc, ok := r.cfg.Provider(string(t))
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownProvider, t)
	}
	if modelName == "" {
		modelName = pc.DefaultModel
	}

	p, err := r.newProvider(Config{
		Type:    t,
		BaseURL: pc.BaseURL,
		Model:   modelName,
		APIKey:  pc.APIKey(),
	})
	if err != nil {
		return nil, err
	}

	return &Active{Type: t, Model: modelName, Provider: p}, nil
}
