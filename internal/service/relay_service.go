package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gochat/internal/domain"
	"gochat/internal/registry"
)

// RelayService accepts inbound send events, persists them, keeps the
// conversation's last-message snapshot in sync and forwards the message to
// the receiver's live connection, if any.
type RelayService struct {
	registry      *registry.Registry
	messages      domain.MessageRepository
	conversations domain.ConversationRepository
	users         domain.UserRepository
	logger        *slog.Logger
}

func NewRelayService(
	reg *registry.Registry,
	messages domain.MessageRepository,
	conversations domain.ConversationRepository,
	users domain.UserRepository,
	logger *slog.Logger,
) *RelayService {
	return &RelayService{
		registry:      reg,
		messages:      messages,
		conversations: conversations,
		users:         users,
		logger:        logger,
	}
}

type RelayInput struct {
	ConversationID int64
	SenderID       int64
	ReceiverID     int64
	Text           string
}

// Relay processes one send event:
//
//  1. validate the text (empty after trimming → domain.ErrInvalidInput, no
//     side effects) and the conversation/sender references (unknown →
//     domain.ErrNotFound, nothing persisted);
//  2. persist the message — the durability point: once this succeeds the
//     message counts as sent no matter what happens downstream;
//  3. update the conversation's last-message snapshot, best-effort;
//  4. broadcast conversation-updated to all connections;
//  5. push new-message to the receiver's connection, resolved through a fresh
//     registry lookup, if it exists and is not the sender's own. An offline
//     receiver gets nothing: catch-up is the history fetch, there is no
//     queueing or retry;
//  6. ack the sender with message-sent regardless of receiver delivery.
//
// Failures after step 2 are isolated and never unwind the stored message.
func (s *RelayService) Relay(ctx context.Context, in RelayInput) (*domain.Message, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, domain.ErrInvalidInput
	}

	conv, err := s.conversations.GetByID(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %d: %w", in.ConversationID, domain.ErrNotFound)
	}
	sender, err := s.users.GetByID(ctx, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("get sender: %w", err)
	}
	if sender == nil {
		return nil, fmt.Errorf("sender %d: %w", in.SenderID, domain.ErrNotFound)
	}

	msg := &domain.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Text:           text,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	snapshot := msg.Snapshot()
	if err := s.conversations.SetLastMessage(ctx, msg.ConversationID, snapshot); err != nil {
		// The message is durable; the stale snapshot is corrected by the next
		// send to this conversation.
		s.logger.Warn("last-message snapshot update failed",
			"conversation_id", msg.ConversationID, "message_id", msg.ID, "error", err)
	}

	s.broadcastConversationUpdated(msg.ConversationID, snapshot)

	senderConn, _ := s.registry.Conn(in.SenderID)
	if recvConn, ok := s.registry.Conn(in.ReceiverID); ok {
		if senderConn == nil || recvConn.Handle() != senderConn.Handle() {
			if err := recvConn.Send(EventNewMessage, msg); err != nil {
				s.logger.Warn("push to receiver failed",
					"receiver_id", in.ReceiverID, "message_id", msg.ID, "error", err)
			}
		}
	}

	if senderConn != nil {
		if err := senderConn.Send(EventMessageSent, msg); err != nil {
			s.logger.Warn("ack to sender failed",
				"sender_id", in.SenderID, "message_id", msg.ID, "error", err)
		}
	}

	return msg, nil
}

func (s *RelayService) broadcastConversationUpdated(conversationID int64, lm domain.LastMessage) {
	payload := ConversationUpdatedPayload{
		ConversationID: conversationID,
		LastMessage:    lm,
	}
	for _, conn := range s.registry.Connections() {
		if err := conn.Send(EventConversationUpdated, payload); err != nil {
			s.logger.Debug("conversation-updated push dropped", "handle", conn.Handle(), "error", err)
		}
	}
}
