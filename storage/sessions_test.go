package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"deskchat/model"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := NewSessionStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "Printer trouble", "user-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("session has no ID")
	}
	if session.Status != model.SessionActive {
		t.Errorf("expected active status, got %s", session.Status)
	}

	loaded, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if loaded.Title != "Printer trouble" || loaded.UserID != "user-1" {
		t.Errorf("loaded session does not match: %+v", loaded)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession(context.Background(), "no-such-session")
	if !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAssistantMessageLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "", "")
	open, err := store.OpenAssistantMessage(ctx, session.ID, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !open.Open {
		t.Fatal("message must start open")
	}

	for _, delta := range []string{"Hi", " there"} {
		if err := store.AppendToOpenMessage(ctx, open.ID, delta); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	meta := model.MessageMeta{Model: "gpt-4o-mini", LatencyMs: 42, TokensUsed: 2}
	if err := store.CloseMessage(ctx, open.ID, meta); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	msg, err := store.GetMessage(ctx, open.ID)
	if err != nil {
		t.Fatalf("get message failed: %v", err)
	}
	if msg.Content != "Hi there" {
		t.Errorf("expected concatenated deltas, got %q", msg.Content)
	}
	if msg.Open {
		t.Error("message must be closed")
	}
	if msg.LatencyMs != 42 || msg.TokensUsed != 2 || msg.Model != "gpt-4o-mini" {
		t.Errorf("metadata not recorded: %+v", msg)
	}
}

func TestAppendToClosedMessageFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "", "")
	open, _ := store.OpenAssistantMessage(ctx, session.ID, "m")
	if err := store.CloseMessage(ctx, open.ID, model.MessageMeta{}); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if err := store.AppendToOpenMessage(ctx, open.ID, "late"); !errors.Is(err, model.ErrMessageNotOpen) {
		t.Errorf("expected ErrMessageNotOpen, got %v", err)
	}
	if err := store.CloseMessage(ctx, open.ID, model.MessageMeta{}); !errors.Is(err, model.ErrMessageNotOpen) {
		t.Errorf("double close: expected ErrMessageNotOpen, got %v", err)
	}
}

func TestAppendToMissingMessageFails(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendToOpenMessage(context.Background(), "no-such-message", "x")
	if !errors.Is(err, model.ErrMessageNotOpen) {
		t.Errorf("expected ErrMessageNotOpen, got %v", err)
	}
}

func TestTitleFromFirstUserMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "", "")
	if _, err := store.AppendUserMessage(ctx, session.ID, "My printer is on fire\nplease advise"); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	loaded, _ := store.GetSession(ctx, session.ID)
	if loaded.Title != "My printer is on fire" {
		t.Errorf("expected title from first line, got %q", loaded.Title)
	}

	// A second message must not overwrite the title.
	store.AppendUserMessage(ctx, session.ID, "never mind")
	loaded, _ = store.GetSession(ctx, session.ID)
	if loaded.Title != "My printer is on fire" {
		t.Errorf("title changed on second message: %q", loaded.Title)
	}
}

func TestTitleTruncation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "", "")
	long := strings.Repeat("a", 200)
	store.AppendUserMessage(ctx, session.ID, long)

	loaded, _ := store.GetSession(ctx, session.ID)
	if len([]rune(loaded.Title)) > maxTitleLen+1 {
		t.Errorf("title not truncated: %d runes", len([]rune(loaded.Title)))
	}
}

func TestHistoryOrderAndPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "", "")
	inputs := []string{"one", "two", "three"}
	for _, in := range inputs {
		if _, err := store.AppendUserMessage(ctx, session.ID, in); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	history, err := store.History(ctx, session.ID, 0, 0)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	for i, in := range inputs {
		if history[i].Content != in {
			t.Errorf("position %d: expected %q, got %q", i, in, history[i].Content)
		}
	}

	page, err := store.History(ctx, session.ID, 2, 1)
	if err != nil {
		t.Fatalf("paginated history failed: %v", err)
	}
	if len(page) != 2 || page[0].Content != "two" {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestHistoryMissingSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.History(context.Background(), "missing", 0, 0)
	if !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRecentExcludesOpenAndErrored(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "", "")
	store.AppendUserMessage(ctx, session.ID, "question")

	good, _ := store.OpenAssistantMessage(ctx, session.ID, "m")
	store.AppendToOpenMessage(ctx, good.ID, "answer")
	store.CloseMessage(ctx, good.ID, model.MessageMeta{})

	bad, _ := store.OpenAssistantMessage(ctx, session.ID, "m")
	store.CloseMessage(ctx, bad.ID, model.MessageMeta{Errored: true})

	stillOpen, _ := store.OpenAssistantMessage(ctx, session.ID, "m")
	store.AppendToOpenMessage(ctx, stillOpen.ID, "half-writ")

	recent, err := store.Recent(ctx, session.ID, 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected question and closed answer, got %d messages", len(recent))
	}
	if recent[0].Content != "question" || recent[1].Content != "answer" {
		t.Errorf("unexpected recent contents: %q, %q", recent[0].Content, recent[1].Content)
	}
}

func TestRecentZeroLimit(t *testing.T) {
	store := newTestStore(t)

	recent, err := store.Recent(context.Background(), "whatever", 0)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("expected no messages, got %d", len(recent))
	}
}

func TestClearHistoryKeepsSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "keep me", "")
	store.AppendUserMessage(ctx, session.ID, "hello")

	if err := store.ClearHistory(ctx, session.ID); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	history, _ := store.History(ctx, session.ID, 0, 0)
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d", len(history))
	}
	if _, err := store.GetSession(ctx, session.ID); err != nil {
		t.Errorf("session must survive a history clear: %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "", "")
	store.AppendUserMessage(ctx, session.ID, "hello")

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetSession(ctx, session.ID); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := store.DeleteSession(ctx, session.ID); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("double delete: expected ErrSessionNotFound, got %v", err)
	}
}

func TestListSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, _ := store.CreateSession(ctx, "A", "alice")
	store.CreateSession(ctx, "B", "bob")
	store.AppendUserMessage(ctx, a.ID, "hi")

	all, err := store.ListSessions(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}

	alice, err := store.ListSessions(ctx, "alice", 0, 0)
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if len(alice) != 1 || alice[0].UserID != "alice" {
		t.Errorf("unexpected filtered result: %+v", alice)
	}
	if alice[0].MessageCount != 1 {
		t.Errorf("expected message count 1, got %d", alice[0].MessageCount)
	}
}
