package model

import "time"

// Message roles. A fixed set; anything else is rejected at the boundary.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Session lifecycle states.
const (
	SessionActive   = "active"
	SessionArchived = "archived"
	SessionDeleted  = "deleted"
)

// ChatMessage represents one message in a session transcript.
//
// An assistant message is created in the open state when a turn starts and
// closed exactly once when the stream terminates. Only the session store
// mutates messages; everything else works on copies.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Open      bool      `json:"open,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Metadata recorded when an assistant message is closed.
	TokensUsed int    `json:"tokens_used,omitempty"`
	Model      string `json:"model,omitempty"`
	LatencyMs  int64  `json:"latency_ms,omitempty"`
	Errored    bool   `json:"errored,omitempty"`
}

// MessageMeta carries the provider-reported metadata attached to an
// assistant message when it is closed.
type MessageMeta struct {
	TokensUsed int
	Model      string
	LatencyMs  int64
	Errored    bool
}

// ChatSession is the durable record of one conversation.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionMetadata is a lightweight session summary for listing.
type SessionMetadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	UserID       string    `json:"user_id,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ContextMessage is one (role, content) pair in the bounded context window
// handed to a provider. It deliberately carries no IDs or metadata.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
