// Package chat orchestrates streaming turns: session locking, context
// assembly, provider calls and frame relay.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"deskchat/model"
	"deskchat/provider"
)

// Store is the slice of the session store the dispatcher needs.
// *storage.SessionStore satisfies it.
type Store interface {
	GetSession(ctx context.Context, id string) (*model.ChatSession, error)
	AppendUserMessage(ctx context.Context, sessionID, content string) (*model.ChatMessage, error)
	OpenAssistantMessage(ctx context.Context, sessionID, modelName string) (*model.ChatMessage, error)
	AppendToOpenMessage(ctx context.Context, messageID, delta string) error
	CloseMessage(ctx context.Context, messageID string, meta model.MessageMeta) error
}

// ContextBuilder assembles the provider context for one turn.
// *memory.Window satisfies it.
type ContextBuilder interface {
	BuildContext(ctx context.Context, sessionID, userInput string) ([]model.ContextMessage, error)
}

// ProviderSource yields the provider selection a turn should run against.
// *provider.Registry satisfies it.
type ProviderSource interface {
	Current() *provider.Active
}

// Options tunes dispatcher limits. Zero values select the defaults.
type Options struct {
	// MaxConcurrentTurns caps streams across all sessions. Exceeding it
	// fails new turns fast with ErrOverloaded instead of queueing them.
	MaxConcurrentTurns int
	// TurnTimeout bounds one turn's wall clock from dispatch to terminal
	// frame.
	TurnTimeout time.Duration
	// MaxMessageChars bounds user input length.
	MaxMessageChars int
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.MaxConcurrentTurns <= 0 {
		out.MaxConcurrentTurns = 32
	}
	if out.TurnTimeout <= 0 {
		out.TurnTimeout = 120 * time.Second
	}
	if out.MaxMessageChars <= 0 {
		out.MaxMessageChars = 32768
	}
	return out
}

// Dispatcher runs chat turns with per-session exclusivity and a global
// concurrency gate.
//
// One session runs at most one turn at a time; a second dispatch fails fast
// with ErrSessionBusy rather than queueing. Each frame's delta is persisted
// to the open assistant message before the frame is emitted, so a consumer
// that has seen a frame can rely on its content surviving a crash.
type Dispatcher struct {
	store    Store
	window   ContextBuilder
	registry ProviderSource
	opts     Options

	gate *semaphore.Weighted

	mu     sync.Mutex
	active map[string]context.CancelFunc // sessionID to in-flight turn cancel
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(store Store, window ContextBuilder, registry ProviderSource, opts Options) *Dispatcher {
	o := opts.withDefaults()
	return &Dispatcher{
		store:    store,
		window:   window,
		registry: registry,
		opts:     o,
		gate:     semaphore.NewWeighted(int64(o.MaxConcurrentTurns)),
		active:   make(map[string]context.CancelFunc),
	}
}

// Dispatch starts one streaming turn and returns its frame channel.
//
// All admission checks happen before any state is written: input
// validation, session existence, the session lock and the global gate. Once
// Dispatch returns a channel, the turn owns the session until the channel's
// terminal frame; the channel closes right after that frame. Failures after
// admission surface as the terminal error frame, not as a Dispatch error.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID, userInput string) (<-chan model.StreamFrame, error) {
	if err := d.validateInput(userInput); err != nil {
		return nil, err
	}
	if _, err := d.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	active := d.registry.Current()
	if active == nil {
		return nil, model.ErrNoActiveProvider
	}

	// The turn context outlives the request context: the stream keeps
	// running while the consumer drains frames, and Cancel or the timeout
	// end it.
	turnCtx, cancel := context.WithTimeout(context.Background(), d.opts.TurnTimeout)

	if !d.tryAcquireSession(sessionID, cancel) {
		cancel()
		return nil, fmt.Errorf("session %s: %w", sessionID, model.ErrSessionBusy)
	}

	if !d.gate.TryAcquire(1) {
		d.releaseSession(sessionID)
		cancel()
		return nil, model.ErrOverloaded
	}

	frames := make(chan model.StreamFrame, 16)

	go d.runTurn(turnCtx, cancel, sessionID, userInput, active, frames)

	return frames, nil
}

// Cancel aborts the in-flight turn of a session. Returns false when the
// session has no turn running. The turn still persists whatever content it
// has produced and emits its terminal frame before the channel closes.
func (d *Dispatcher) Cancel(sessionID string) bool {
	d.mu.Lock()
	cancel, ok := d.active[sessionID]
	d.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Busy reports whether a session has a turn in flight.
func (d *Dispatcher) Busy(sessionID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.active[sessionID]
	return ok
}

// Ask runs one blocking, non-streaming turn. It shares the session lock and
// global gate with Dispatch, so a streaming turn and an Ask on the same
// session exclude each other.
func (d *Dispatcher) Ask(ctx context.Context, sessionID, userInput string) (*model.ChatMessage, error) {
	if err := d.validateInput(userInput); err != nil {
		return nil, err
	}
	if _, err := d.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	active := d.registry.Current()
	if active == nil {
		return nil, model.ErrNoActiveProvider
	}

	turnCtx, cancel := context.WithTimeout(ctx, d.opts.TurnTimeout)
	defer cancel()

	if !d.tryAcquireSession(sessionID, cancel) {
		return nil, fmt.Errorf("session %s: %w", sessionID, model.ErrSessionBusy)
	}
	defer d.releaseSession(sessionID)

	if !d.gate.TryAcquire(1) {
		return nil, model.ErrOverloaded
	}
	defer d.gate.Release(1)

	if _, err := d.store.AppendUserMessage(turnCtx, sessionID, userInput); err != nil {
		return nil, err
	}
	contextMessages, err := d.window.BuildContext(turnCtx, sessionID, userInput)
	if err != nil {
		return nil, err
	}
	open, err := d.store.OpenAssistantMessage(turnCtx, sessionID, active.Model)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	response, err := active.Provider.Complete(turnCtx, contextMessages)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		d.closeErrored(open.ID, active.Model, latency)
		return nil, err
	}

	if response == "" {
		d.closeErrored(open.ID, active.Model, latency)
		return nil, fmt.Errorf("provider returned no content: %w", model.ErrProvider)
	}

	if err := d.store.AppendToOpenMessage(turnCtx, open.ID, response); err != nil {
		d.closeErrored(open.ID, active.Model, latency)
		return nil, err
	}
	meta := model.MessageMeta{
		Model:      active.Model,
		LatencyMs:  latency,
		TokensUsed: estimateTokens(response),
	}
	if err := d.store.CloseMessage(turnCtx, open.ID, meta); err != nil {
		// The context-bound close may have failed on a dead caller context;
		// a fresh-context errored close still keeps the row from staying
		// open forever.
		d.closeErrored(open.ID, active.Model, latency)
		return nil, err
	}

	open.Content = response
	open.Open = false
	open.LatencyMs = meta.LatencyMs
	open.TokensUsed = meta.TokensUsed
	return open, nil
}

// runTurn executes one streaming turn. It owns the session lock, the gate
// slot and the frame channel, and releases all three exactly once.
func (d *Dispatcher) runTurn(ctx context.Context, cancel context.CancelFunc, sessionID, userInput string, active *provider.Active, frames chan<- model.StreamFrame) {
	defer func() {
		cancel()
		d.gate.Release(1)
		d.releaseSession(sessionID)
		// Close last: a consumer that sees the stream end must find the
		// session lock already released, so an immediate re-dispatch on the
		// same session cannot hit a stale ErrSessionBusy.
		close(frames)
	}()

	log := slog.With("session_id", sessionID, "provider", string(active.Type), "model", active.Model)

	if _, err := d.store.AppendUserMessage(ctx, sessionID, userInput); err != nil {
		d.failTurn(frames, log, "failed to store message", err)
		return
	}

	contextMessages, err := d.window.BuildContext(ctx, sessionID, userInput)
	if err != nil {
		d.failTurn(frames, log, "failed to build context", err)
		return
	}

	open, err := d.store.OpenAssistantMessage(ctx, sessionID, active.Model)
	if err != nil {
		d.failTurn(frames, log, "failed to open assistant message", err)
		return
	}

	var full strings.Builder
	start := time.Now()

	streamErr := active.Provider.StreamComplete(ctx, contextMessages, func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Persist before emit. Store writes use a fresh context so a
		// cancelled turn still keeps the deltas it already received.
		if err := d.store.AppendToOpenMessage(context.Background(), open.ID, delta); err != nil {
			return err
		}
		full.WriteString(delta)
		if !d.emit(ctx, frames, model.ContentFrame(delta)) {
			return context.Canceled
		}
		return nil
	})

	if streamErr == nil && full.Len() == 0 {
		streamErr = fmt.Errorf("provider returned no content: %w", model.ErrProvider)
	}

	latency := time.Since(start).Milliseconds()
	meta := model.MessageMeta{
		Model:      active.Model,
		LatencyMs:  latency,
		TokensUsed: estimateTokens(full.String()),
		Errored:    streamErr != nil && !errors.Is(streamErr, context.Canceled),
	}

	// Closing uses a fresh context too: the terminal state must be durable
	// even when the turn context is already dead.
	if err := d.store.CloseMessage(context.Background(), open.ID, meta); err != nil {
		log.Error("failed to close assistant message", "message_id", open.ID, "error", err)
	}

	switch {
	case streamErr == nil:
		// A cancel racing stream completion resolves to cancelled: the
		// consumer stopped listening, so the turn reports that instead of
		// success.
		if !d.emit(ctx, frames, model.DoneFrame(full.String())) {
			d.emitAlways(frames, model.ErrorFrame("stream cancelled"))
		}
		log.Info("turn completed", "latency_ms", latency, "chars", full.Len())
	case errors.Is(streamErr, context.Canceled):
		d.emitAlways(frames, model.ErrorFrame("stream cancelled"))
		log.Info("turn cancelled", "latency_ms", latency, "chars", full.Len())
	case errors.Is(streamErr, context.DeadlineExceeded), model.IsProviderTimeout(streamErr):
		d.emitAlways(frames, model.ErrorFrame("provider timed out"))
		log.Warn("turn timed out", "latency_ms", latency)
	default:
		d.emitAlways(frames, model.ErrorFrame(streamErr.Error()))
		log.Error("turn failed", "error", streamErr)
	}
}

// closeErrored closes an assistant message as errored, best effort. It uses
// a fresh context so the close survives a dead caller context.
func (d *Dispatcher) closeErrored(messageID, modelName string, latency int64) {
	err := d.store.CloseMessage(context.Background(), messageID, model.MessageMeta{
		Model: modelName, LatencyMs: latency, Errored: true,
	})
	if err != nil {
		slog.Error("failed to close errored message", "message_id", messageID, "error", err)
	}
}

// failTurn emits the terminal error frame for a turn that died before
// streaming started. The frame must go out even when the turn context is
// already dead, and a dead context names its own cause rather than the
// operation it interrupted.
func (d *Dispatcher) failTurn(frames chan<- model.StreamFrame, log *slog.Logger, msg string, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		d.emitAlways(frames, model.ErrorFrame("provider timed out"))
	case errors.Is(err, context.Canceled):
		d.emitAlways(frames, model.ErrorFrame("stream cancelled"))
	default:
		d.emitAlways(frames, model.ErrorFrame(msg))
	}
	log.Error(msg, "error", err)
}

// emit sends one frame unless the turn is cancelled. Reports whether the
// frame was delivered.
func (d *Dispatcher) emit(ctx context.Context, frames chan<- model.StreamFrame, frame model.StreamFrame) bool {
	select {
	case frames <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

// emitAlways delivers a terminal frame even after cancellation, without
// blocking on a consumer that went away.
func (d *Dispatcher) emitAlways(frames chan<- model.StreamFrame, frame model.StreamFrame) {
	select {
	case frames <- frame:
	default:
	}
}

func (d *Dispatcher) validateInput(userInput string) error {
	if strings.TrimSpace(userInput) == "" {
		return fmt.Errorf("empty message: %w", model.ErrInvalidInput)
	}
	if len(userInput) > d.opts.MaxMessageChars {
		return fmt.Errorf("message exceeds %d chars: %w", d.opts.MaxMessageChars, model.ErrInvalidInput)
	}
	return nil
}

func (d *Dispatcher) tryAcquireSession(sessionID string, cancel context.CancelFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.active[sessionID]; busy {
		return false
	}
	d.active[sessionID] = cancel
	return true
}

func (d *Dispatcher) releaseSession(sessionID string) {
	d.mu.Lock()
	delete(d.active, sessionID)
	d.mu.Unlock()
}

// estimateTokens is a rough character-based estimate used when the provider
// does not report usage.
func estimateTokens(content string) int {
	return len(content) / 4
}
