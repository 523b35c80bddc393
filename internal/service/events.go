package service

import "gochat/internal/domain"

// Server → client event names. The client → server names live in the ws
// transport, which owns inbound dispatch.
const (
	EventNewMessage          = "new-message"
	EventMessageSent         = "message-sent"
	EventOnlineUsers         = "online-users"
	EventConversationUpdated = "conversation-updated"
	EventError               = "error"
)

// ConversationUpdatedPayload notifies list views that a conversation has a
// new last message, so they can reorder without a full refetch.
type ConversationUpdatedPayload struct {
	ConversationID int64              `json:"conversationId"`
	LastMessage    domain.LastMessage `json:"lastMessage"`
}

// ErrorPayload is sent to a client whose event was rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}
