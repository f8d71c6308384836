// Package storage persists chat sessions and messages in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"deskchat/model"
)

// maxTitleLen bounds titles derived from the first user message.
const maxTitleLen = 50

// SessionStore is the durable store for sessions and their transcripts.
//
// Assistant messages go through an open/closed lifecycle: OpenAssistantMessage
// creates them open, AppendToOpenMessage grows them delta by delta, and
// CloseMessage finalizes them exactly once. Appending to or closing an
// already-closed message fails with ErrMessageNotOpen.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore opens (creating if needed) the session database under
// dataDir.
func NewSessionStore(dataDir string) (*SessionStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "sessions.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SessionStore{db: db}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *SessionStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		open INTEGER NOT NULL DEFAULT 0,
		errored INTEGER NOT NULL DEFAULT 0,
		tokens_used INTEGER NOT NULL DEFAULT 0,
		model TEXT NOT NULL DEFAULT '',
		latency_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, updated_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// CreateSession creates a new active session. An empty title stays empty
// until the first user message fills it in.
func (s *SessionStore) CreateSession(ctx context.Context, title, userID string) (*model.ChatSession, error) {
	now := time.Now().UTC()
	session := &model.ChatSession{
		ID:        uuid.NewString(),
		Title:     title,
		UserID:    userID,
		Status:    model.SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, user_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.Title, session.UserID, session.Status,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// GetSession looks up one session by ID.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, user_id, status, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.Title, &session.UserID, &session.Status,
		&session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

// ListSessions returns session summaries ordered by most recent activity.
// An empty userID lists every session.
func (s *SessionStore) ListSessions(ctx context.Context, userID string, limit, offset int) ([]model.SessionMetadata, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT s.id, s.title, s.user_id, s.status, s.created_at, s.updated_at,
		(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id) AS message_count
		FROM sessions s`
	args := []any{}
	if userID != "" {
		query += ` WHERE s.user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY s.updated_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.SessionMetadata{}
	for rows.Next() {
		var md model.SessionMetadata
		if err := rows.Scan(&md.ID, &md.Title, &md.UserID, &md.Status,
			&md.CreatedAt, &md.UpdatedAt, &md.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, md)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and its messages.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.GetSession(ctx, id); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return tx.Commit()
}

// ClearHistory deletes every message in a session but keeps the session
// itself.
func (s *SessionStore) ClearHistory(ctx context.Context, sessionID string) error {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return s.touchSession(ctx, sessionID)
}

// AppendUserMessage stores one user message. The first user message of an
// untitled session becomes its title, truncated.
func (s *SessionStore) AppendUserMessage(ctx context.Context, sessionID, content string) (*model.ChatMessage, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	msg := &model.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, open, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	if session.Title == "" {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE sessions SET title = ? WHERE id = ? AND title = ''`,
			deriveTitle(content), sessionID); err != nil {
			return nil, fmt.Errorf("failed to set session title: %w", err)
		}
	}

	if err := s.touchSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return msg, nil
}

// OpenAssistantMessage creates an empty assistant message in the open
// state. Deltas accumulate into it until CloseMessage.
func (s *SessionStore) OpenAssistantMessage(ctx context.Context, sessionID, modelName string) (*model.ChatMessage, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	msg := &model.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Open:      true,
		Model:     modelName,
		Timestamp: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, open, model, created_at)
		 VALUES (?, ?, ?, '', 1, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Model, msg.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open assistant message: %w", err)
	}
	return msg, nil
}

// AppendToOpenMessage appends one delta to an open assistant message.
func (s *SessionStore) AppendToOpenMessage(ctx context.Context, messageID, delta string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET content = content || ? WHERE id = ? AND open = 1`,
		delta, messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to append delta: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", model.ErrMessageNotOpen, messageID)
	}
	return nil
}

// CloseMessage finalizes an open assistant message with its metadata.
// Closing is one-shot: a second close fails with ErrMessageNotOpen.
func (s *SessionStore) CloseMessage(ctx context.Context, messageID string, meta model.MessageMeta) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages
		 SET open = 0, errored = ?, tokens_used = ?, model = ?, latency_ms = ?
		 WHERE id = ? AND open = 1`,
		meta.Errored, meta.TokensUsed, meta.Model, meta.LatencyMs, messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", model.ErrMessageNotOpen, messageID)
	}

	var sessionID string
	if err := s.db.QueryRowContext(ctx,
		`SELECT session_id FROM messages WHERE id = ?`, messageID).Scan(&sessionID); err == nil {
		return s.touchSession(ctx, sessionID)
	}
	return nil
}

// GetMessage loads one message by ID.
func (s *SessionStore) GetMessage(ctx context.Context, messageID string) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, role, content, open, errored, tokens_used, model, latency_ms, created_at
		 FROM messages WHERE id = ?`, messageID,
	).Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Open, &msg.Errored,
		&msg.TokensUsed, &msg.Model, &msg.LatencyMs, &msg.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", messageID, model.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return &msg, nil
}

// History returns a session's messages in chronological order.
func (s *SessionStore) History(ctx context.Context, sessionID string, limit, offset int) ([]model.ChatMessage, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, open, errored, tokens_used, model, latency_ms, created_at
		 FROM messages WHERE session_id = ?
		 ORDER BY created_at ASC, rowid ASC LIMIT ? OFFSET ?`,
		sessionID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// Recent returns the most recent closed, non-errored messages of a session
// in chronological order. Open messages are excluded so a turn never sees
// its own half-written reply.
func (s *SessionStore) Recent(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		return []model.ChatMessage{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, open, errored, tokens_used, model, latency_ms, created_at
		 FROM (
			SELECT rowid AS rn, * FROM messages
			WHERE session_id = ? AND open = 0 AND errored = 0
			ORDER BY created_at DESC, rowid DESC LIMIT ?
		 ) ORDER BY created_at ASC, rn ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]model.ChatMessage, error) {
	messages := []model.ChatMessage{}
	for rows.Next() {
		var msg model.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Open,
			&msg.Errored, &msg.TokensUsed, &msg.Model, &msg.LatencyMs, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SessionStore) touchSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func deriveTitle(content string) string {
	title := strings.TrimSpace(content)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	runes := []rune(title)
	if len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen]) + "…"
	}
	return title
}
