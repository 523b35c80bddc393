package service

import (
	"context"
	"fmt"

	"gochat/internal/domain"
)

// MessageService serves the pull-based catch-up surface: message history for
// clients that were offline when a message was relayed, plus the seen-flag
// transition.
type MessageService struct {
	messages      domain.MessageRepository
	conversations domain.ConversationRepository
}

func NewMessageService(messages domain.MessageRepository, conversations domain.ConversationRepository) *MessageService {
	return &MessageService{
		messages:      messages,
		conversations: conversations,
	}
}

// History returns the conversation's messages in chronological order.
func (s *MessageService) History(ctx context.Context, conversationID int64) ([]*domain.Message, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}
	return s.messages.ListForConversation(ctx, conversationID)
}

// MarkSeen flips the seen flag, the only mutation a message supports.
func (s *MessageService) MarkSeen(ctx context.Context, messageID int64) (*domain.Message, error) {
	if err := s.messages.MarkSeen(ctx, messageID); err != nil {
		return nil, err
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
	}
	return msg, nil
}
