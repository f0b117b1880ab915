package domain

// Identifiers mirror the chat server's relational schema (bigint keys).
// This service never creates them; they arrive inside notification payloads
// and token claims.
type (
	UserID      int64
	ChatID      int64
	WorkspaceID int64
	MessageID   int64
)
