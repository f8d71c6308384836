package provider

import (
	"errors"
	"sync"
	"testing"

	"deskchat/config"
	"deskchat/model"
	"deskchat/provider/testutil"
)

// newTestRegistry builds a registry over the default config with mock
// provider construction, so no network clients are created.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("DEEPSEEK_API_KEY", "")

	cfg := config.Defaults()
	r := &Registry{
		cfg: cfg,
		newProvider: func(c Config) (model.Provider, error) {
			return testutil.NewMockProvider(c.Model), nil
		},
	}
	active, err := r.build(Type(cfg.DefaultProvider), cfg.DefaultModel)
	if err != nil {
		t.Fatalf("failed to build initial provider: %v", err)
	}
	r.current.Store(active)
	return r
}

func TestRegistryCurrent(t *testing.T) {
	r := newTestRegistry(t)

	active := r.Current()
	if active == nil {
		t.Fatal("Current returned nil")
	}
	if active.Type != TypeOpenAI {
		t.Errorf("expected openai, got %s", active.Type)
	}
	if active.Model != "gpt-4o-mini" {
		t.Errorf("expected default model, got %s", active.Model)
	}
}

func TestRegistrySwitch(t *testing.T) {
	r := newTestRegistry(t)

	active, err := r.Switch("anthropic", "claude-3-5-haiku-latest")
	if err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if active.Type != TypeAnthropic {
		t.Errorf("expected anthropic, got %s", active.Type)
	}
	if cur := r.Current(); cur != active {
		t.Error("Current should return the switched-to selection")
	}
}

func TestRegistrySwitchIdempotent(t *testing.T) {
	r := newTestRegistry(t)

	first, err := r.Switch("anthropic", "claude-3-5-haiku-latest")
	if err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	second, err := r.Switch("anthropic", "claude-3-5-haiku-latest")
	if err != nil {
		t.Fatalf("repeat switch failed: %v", err)
	}
	if first != second {
		t.Error("switching to the current selection must be a no-op")
	}
}

func TestRegistrySwitchEmptyModelUsesDefault(t *testing.T) {
	r := newTestRegistry(t)

	active, err := r.Switch("anthropic", "")
	if err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if active.Model != "claude-3-5-haiku-latest" {
		t.Errorf("expected provider default model, got %s", active.Model)
	}
}

func TestRegistrySwitchValidation(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		wantErr  error
	}{
		{"unknown provider", "gemini", "", model.ErrUnknownProvider},
		{"unsupported model", "openai", "gpt-99", model.ErrUnsupportedModel},
		{"unconfigured provider", "deepseek", "deepseek-chat", model.ErrProviderNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			before := r.Current()

			_, err := r.Switch(tt.provider, tt.model)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if r.Current() != before {
				t.Error("failed switch must leave the current selection untouched")
			}
		})
	}
}

func TestRegistryInFlightKeepsInstance(t *testing.T) {
	r := newTestRegistry(t)

	held := r.Current()
	if _, err := r.Switch("anthropic", ""); err != nil {
		t.Fatalf("switch failed: %v", err)
	}

	// The reference captured before the switch still points at the old
	// provider; a turn holding it streams against what it started with.
	if held.Type != TypeOpenAI {
		t.Errorf("held selection mutated to %s", held.Type)
	}
	if r.Current() == held {
		t.Error("Current should have moved on")
	}
}

func TestRegistryConcurrentReadsDuringSwitch(t *testing.T) {
	r := newTestRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if r.Current() == nil {
					t.Error("Current returned nil during switches")
					return
				}
			}
		}()
	}

	targets := []string{"anthropic", "openai"}
	for i := 0; i < 50; i++ {
		if _, err := r.Switch(targets[i%2], ""); err != nil {
			t.Fatalf("switch failed: %v", err)
		}
	}
	wg.Wait()
}

func TestRegistryList(t *testing.T) {
	r := newTestRegistry(t)

	statuses := r.List()
	if len(statuses) != len(Types()) {
		t.Fatalf("expected %d entries, got %d", len(Types()), len(statuses))
	}

	var currents int
	for _, s := range statuses {
		if s.IsCurrent {
			currents++
			if s.ID != "openai" {
				t.Errorf("unexpected current provider %s", s.ID)
			}
		}
		if s.ID == "ollama" && !s.IsConfigured {
			t.Error("ollama needs no key and must report configured")
		}
		if s.ID == "deepseek" && s.IsConfigured {
			t.Error("deepseek has no key set and must report unconfigured")
		}
	}
	if currents != 1 {
		t.Errorf("exactly one entry must be current, got %d", currents)
	}
}
