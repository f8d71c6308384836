package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"deskchat/knowledge"
	"deskchat/model"
)

type fakeHistory struct {
	messages []model.ChatMessage
	gotLimit int
	err      error
}

func (f *fakeHistory) Recent(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.messages) {
		return f.messages[len(f.messages)-limit:], nil
	}
	return f.messages, nil
}

type fakeSearcher struct {
	snippets []knowledge.Snippet
	err      error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]knowledge.Snippet, error) {
	return f.snippets, f.err
}

func TestBuildContextOrdering(t *testing.T) {
	history := &fakeHistory{messages: []model.ChatMessage{
		{Role: model.RoleUser, Content: "first question"},
		{Role: model.RoleAssistant, Content: "first answer"},
	}}
	w := NewWindow(history, nil, "be helpful", 5)

	msgs, err := w.BuildContext(context.Background(), "s1", "second question")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	want := []model.ContextMessage{
		{Role: model.RoleSystem, Content: "be helpful"},
		{Role: model.RoleUser, Content: "first question"},
		{Role: model.RoleAssistant, Content: "first answer"},
		{Role: model.RoleUser, Content: "second question"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("position %d: expected %+v, got %+v", i, want[i], msgs[i])
		}
	}
}

func TestBuildContextZeroTurns(t *testing.T) {
	history := &fakeHistory{messages: []model.ChatMessage{
		{Role: model.RoleUser, Content: "old"},
	}}
	w := NewWindow(history, nil, "prompt", 0)

	msgs, err := w.BuildContext(context.Background(), "s1", "fresh")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if len(msgs) != 2 {
		t.Fatalf("maxTurns=0 must yield system prompt and input only, got %d messages", len(msgs))
	}
	if msgs[0].Role != model.RoleSystem || msgs[1].Content != "fresh" {
		t.Errorf("unexpected context: %+v", msgs)
	}
	if history.gotLimit != 0 {
		t.Error("history must not be queried when maxTurns is zero")
	}
}

func TestBuildContextTurnLimit(t *testing.T) {
	history := &fakeHistory{}
	w := NewWindow(history, nil, "", 3)

	if _, err := w.BuildContext(context.Background(), "s1", "q"); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if history.gotLimit != 6 {
		t.Errorf("3 turns should request 6 messages, requested %d", history.gotLimit)
	}
}

func TestBuildContextEmptySystemPrompt(t *testing.T) {
	w := NewWindow(&fakeHistory{}, nil, "", 1)

	msgs, err := w.BuildContext(context.Background(), "s1", "q")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if msgs[0].Role == model.RoleSystem {
		t.Error("empty system prompt must not produce a system message")
	}
}

func TestBuildContextHistoryError(t *testing.T) {
	history := &fakeHistory{err: errors.New("db gone")}
	w := NewWindow(history, nil, "p", 2)

	if _, err := w.BuildContext(context.Background(), "s1", "q"); err == nil {
		t.Fatal("expected history error to propagate")
	}
}

func TestBuildContextKnowledgeSnippets(t *testing.T) {
	searcher := &fakeSearcher{snippets: []knowledge.Snippet{
		{Title: "Returns policy", Content: "30 days with receipt"},
	}}
	w := NewWindow(&fakeHistory{}, searcher, "be helpful", 1)

	msgs, err := w.BuildContext(context.Background(), "s1", "can I return this?")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	system := msgs[0]
	if system.Role != model.RoleSystem {
		t.Fatal("expected system message first")
	}
	if !strings.Contains(system.Content, "Returns policy: 30 days with receipt") {
		t.Errorf("snippet missing from system prompt: %q", system.Content)
	}
	if !strings.HasPrefix(system.Content, "be helpful") {
		t.Errorf("base prompt must come first: %q", system.Content)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	w := NewWindow(&fakeHistory{}, nil, "old prompt", 5)

	got := w.Settings()
	if got.SystemPrompt != "old prompt" || got.MaxTurns != 5 {
		t.Fatalf("unexpected initial settings: %+v", got)
	}

	applied := w.SetSettings(Settings{SystemPrompt: "terse answers only", MaxTurns: 0})
	if applied.SystemPrompt != "terse answers only" || applied.MaxTurns != 0 {
		t.Fatalf("unexpected applied settings: %+v", applied)
	}

	history := &fakeHistory{messages: []model.ChatMessage{{Role: model.RoleUser, Content: "old"}}}
	w2 := NewWindow(history, nil, "p", 3)
	w2.SetSettings(Settings{SystemPrompt: "new", MaxTurns: 0})

	msgs, err := w2.BuildContext(context.Background(), "s1", "q")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "new" {
		t.Errorf("updated settings not applied to BuildContext: %+v", msgs)
	}
	if history.gotLimit != 0 {
		t.Error("history must not be queried after turns dropped to zero")
	}
}

func TestSetSettingsClampsNegativeTurns(t *testing.T) {
	w := NewWindow(&fakeHistory{}, nil, "p", 3)
	applied := w.SetSettings(Settings{SystemPrompt: "p", MaxTurns: -4})
	if applied.MaxTurns != 0 {
		t.Errorf("negative turns must clamp to zero, got %d", applied.MaxTurns)
	}
}

func TestBuildContextKnowledgeFailureIgnored(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("search down")}
	w := NewWindow(&fakeHistory{}, searcher, "be helpful", 1)

	msgs, err := w.BuildContext(context.Background(), "s1", "q")
	if err != nil {
		t.Fatalf("knowledge failure must not fail the turn: %v", err)
	}
	if msgs[0].Content != "be helpful" {
		t.Errorf("expected bare system prompt, got %q", msgs[0].Content)
	}
}
