package event

import "chat-notify/domain"

// DomainEvent is an immutable description of a chat-relevant database change.
// Each variant embeds the member list captured at change time, so routing a
// delivery never requires a secondary query. Events are shared read-only
// across every recipient; nothing may mutate one after decoding.
type DomainEvent interface {
	Kind() string
	Chat() domain.ChatID
	Members() []domain.UserID
}

// Wire discriminators. The chat server's triggers emit these in the payload's
// "kind" field.
const (
	KindChatCreated    = "chat_created"
	KindChatUpdated    = "chat_updated"
	KindMessageCreated = "message_created"
)

// ChatCreated is emitted when a chat row is inserted.
type ChatCreated struct {
	ChatID      domain.ChatID      `json:"chat_id" validate:"required"`
	WorkspaceID domain.WorkspaceID `json:"ws_id" validate:"required"`
	MemberIDs   []domain.UserID    `json:"member_ids" validate:"required"`
}

func (e ChatCreated) Kind() string             { return KindChatCreated }
func (e ChatCreated) Chat() domain.ChatID      { return e.ChatID }
func (e ChatCreated) Members() []domain.UserID { return e.MemberIDs }

// ChatUpdated carries the post-update membership of a chat.
type ChatUpdated struct {
	ChatID    domain.ChatID   `json:"chat_id" validate:"required"`
	MemberIDs []domain.UserID `json:"member_ids" validate:"required"`
}

func (e ChatUpdated) Kind() string             { return KindChatUpdated }
func (e ChatUpdated) Chat() domain.ChatID      { return e.ChatID }
func (e ChatUpdated) Members() []domain.UserID { return e.MemberIDs }

// MessageCreated is emitted when a message row is inserted. MemberIDs is the
// chat membership at send time, sender included.
type MessageCreated struct {
	ChatID    domain.ChatID    `json:"chat_id" validate:"required"`
	MessageID domain.MessageID `json:"message_id" validate:"required"`
	SenderID  domain.UserID    `json:"sender_id" validate:"required"`
	MemberIDs []domain.UserID  `json:"member_ids" validate:"required"`
}

func (e MessageCreated) Kind() string             { return KindMessageCreated }
func (e MessageCreated) Chat() domain.ChatID      { return e.ChatID }
func (e MessageCreated) Members() []domain.UserID { return e.MemberIDs }
