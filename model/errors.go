package model

import "errors"

// Sentinel errors for the chat core. Handlers map these onto HTTP statuses;
// everything else surfaces as an internal error with no detail leaked.
var (
	// ErrInvalidInput rejects a request before any state is created.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionNotFound means the session identifier resolves to nothing.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionBusy means a turn is already in flight for the session.
	ErrSessionBusy = errors.New("session busy")
	// ErrMessageNotOpen means an append targeted a finalized message.
	ErrMessageNotOpen = errors.New("message not open")
	// ErrUnknownProvider means the provider key is not in the supported set.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrUnsupportedModel means the model is not in the provider's catalogue.
	ErrUnsupportedModel = errors.New("unsupported model")
	// ErrNoActiveProvider is a fatal configuration defect: no provider holds
	// the current flag. It aborts startup and must never surface per-request.
	ErrNoActiveProvider = errors.New("no active provider")
	// ErrProviderNotConfigured means the provider has no usable credential.
	ErrProviderNotConfigured = errors.New("provider not configured")
	// ErrProvider wraps an upstream completion failure.
	ErrProvider = errors.New("provider error")
	// ErrProviderTimeout means the per-turn deadline was exceeded.
	ErrProviderTimeout = errors.New("provider timeout")
	// ErrOverloaded means the global concurrency gate rejected the turn.
	ErrOverloaded = errors.New("server overloaded")
	// ErrAuth means the provider rejected the configured credential.
	ErrAuth = errors.New("authentication failed")
	// ErrNetwork means the provider could not be reached at transport level.
	ErrNetwork = errors.New("network error")
)

func IsInvalidInput(err error) bool    { return errors.Is(err, ErrInvalidInput) }
func IsSessionNotFound(err error) bool { return errors.Is(err, ErrSessionNotFound) }
func IsSessionBusy(err error) bool     { return errors.Is(err, ErrSessionBusy) }
func IsMessageNotOpen(err error) bool  { return errors.Is(err, ErrMessageNotOpen) }
func IsUnknownProvider(err error) bool { return errors.Is(err, ErrUnknownProvider) }
func IsUnsupportedModel(err error) bool {
	return errors.Is(err, ErrUnsupportedModel)
}
func IsOverloaded(err error) bool      { return errors.Is(err, ErrOverloaded) }
func IsProviderError(err error) bool   { return errors.Is(err, ErrProvider) }
func IsProviderTimeout(err error) bool { return errors.Is(err, ErrProviderTimeout) }
func IsAuthError(err error) bool       { return errors.Is(err, ErrAuth) }
func IsNetworkError(err error) bool    { return errors.Is(err, ErrNetwork) }
