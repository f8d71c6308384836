// Package memory builds the bounded context window sent to providers.
package memory

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"deskchat/knowledge"
	"deskchat/model"
)

// HistorySource supplies the recent closed messages of a session.
// *storage.SessionStore satisfies it.
type HistorySource interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error)
}

// Searcher finds knowledge snippets for a query. *knowledge.Client
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]knowledge.Snippet, error)
}

// Settings is the runtime-tunable part of the context window.
type Settings struct {
	SystemPrompt string `json:"system_prompt"`
	MaxTurns     int    `json:"max_turns"`
}

// Window assembles provider context from the system prompt, recent session
// history, optional knowledge snippets and the current user input.
//
// maxTurns bounds history in user/assistant exchange pairs. Zero means no
// history at all: the provider sees only the system prompt and the current
// input. Both knobs can be changed at runtime; a turn reads them once at
// the start of BuildContext.
type Window struct {
	history  HistorySource
	searcher Searcher // nil when knowledge search is disabled

	mu           sync.RWMutex
	systemPrompt string
	maxTurns     int
}

// NewWindow creates a context window builder. searcher may be nil.
func NewWindow(history HistorySource, searcher Searcher, systemPrompt string, maxTurns int) *Window {
	if maxTurns < 0 {
		maxTurns = 0
	}
	return &Window{
		history:      history,
		searcher:     searcher,
		systemPrompt: systemPrompt,
		maxTurns:     maxTurns,
	}
}

// Settings returns the current window settings.
func (w *Window) Settings() Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Settings{SystemPrompt: w.systemPrompt, MaxTurns: w.maxTurns}
}

// SetSettings replaces the window settings. Negative turn counts clamp to
// zero. Turns already past BuildContext keep the settings they started with.
func (w *Window) SetSettings(s Settings) Settings {
	if s.MaxTurns < 0 {
		s.MaxTurns = 0
	}
	w.mu.Lock()
	w.systemPrompt = s.SystemPrompt
	w.maxTurns = s.MaxTurns
	w.mu.Unlock()
	return s
}

// BuildContext assembles the message list for one turn. Ordering is fixed:
// system prompt first, then history oldest to newest, then the current user
// input last. Knowledge search failures degrade to a context without
// snippets.
func (w *Window) BuildContext(ctx context.Context, sessionID, userInput string) ([]model.ContextMessage, error) {
	w.mu.RLock()
	systemPrompt, maxTurns := w.systemPrompt, w.maxTurns
	w.mu.RUnlock()

	messages := make([]model.ContextMessage, 0, maxTurns*2+2)

	if prompt := w.buildSystemPrompt(ctx, systemPrompt, userInput); prompt != "" {
		messages = append(messages, model.ContextMessage{
			Role:    model.RoleSystem,
			Content: prompt,
		})
	}

	if maxTurns > 0 {
		recent, err := w.history.Recent(ctx, sessionID, maxTurns*2)
		if err != nil {
			return nil, err
		}
		for _, m := range recent {
			messages = append(messages, model.ContextMessage{
				Role:    m.Role,
				Content: m.Content,
			})
		}
	}

	messages = append(messages, model.ContextMessage{
		Role:    model.RoleUser,
		Content: userInput,
	})

	return messages, nil
}

// buildSystemPrompt returns the system prompt, extended with knowledge
// snippets relevant to the current input when a searcher is wired in.
func (w *Window) buildSystemPrompt(ctx context.Context, systemPrompt, userInput string) string {
	if w.searcher == nil {
		return systemPrompt
	}

	snippets, err := w.searcher.Search(ctx, userInput)
	if err != nil {
		slog.Warn("knowledge search failed, continuing without snippets", "error", err)
		return systemPrompt
	}
	if len(snippets) == 0 {
		return systemPrompt
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nRelevant knowledge base entries:\n")
	for _, s := range snippets {
		sb.WriteString("- ")
		if s.Title != "" {
			sb.WriteString(s.Title)
			sb.WriteString(": ")
		}
		sb.WriteString(s.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
