package service

import (
	"context"
	"fmt"

	"gochat/internal/domain"
)

type ConversationService struct {
	conversations domain.ConversationRepository
	users         domain.UserRepository
}

func NewConversationService(conversations domain.ConversationRepository, users domain.UserRepository) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		users:         users,
	}
}

// FindOrCreateDirect returns the direct conversation between the two users,
// creating it on first contact. The participant pair is immutable afterwards
// and at most one direct conversation exists per pair.
func (s *ConversationService) FindOrCreateDirect(ctx context.Context, userID, otherID int64) (*domain.Conversation, error) {
	if userID == otherID {
		return nil, fmt.Errorf("cannot start a conversation with yourself: %w", domain.ErrInvalidInput)
	}
	for _, id := range []int64{userID, otherID} {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", id, err)
		}
		if u == nil {
			return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
	}

	existing, err := s.conversations.FindDirect(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("find direct conversation: %w", err)
	}
	if existing != nil {
		return s.withParticipants(ctx, existing)
	}

	conv := &domain.Conversation{IsGroup: false}
	if err := s.conversations.Create(ctx, conv, []int64{userID, otherID}); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return s.withParticipants(ctx, conv)
}

// CreateGroup creates a group conversation with the creator and the given
// members. Groups need at least three distinct participants.
func (s *ConversationService) CreateGroup(ctx context.Context, creatorID int64, name string, memberIDs []int64) (*domain.Conversation, error) {
	seen := map[int64]struct{}{creatorID: {}}
	unique := []int64{creatorID}
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) < 3 {
		return nil, fmt.Errorf("a group needs at least 3 participants: %w", domain.ErrInvalidInput)
	}
	for _, id := range unique {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", id, err)
		}
		if u == nil {
			return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
	}

	conv := &domain.Conversation{IsGroup: true}
	if name != "" {
		conv.Name = &name
	}
	if err := s.conversations.Create(ctx, conv, unique); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return s.withParticipants(ctx, conv)
}

// ListForUser returns the user's conversations, newest activity first, each
// carrying its last-message snapshot and participant summaries.
func (s *ConversationService) ListForUser(ctx context.Context, userID int64) ([]*domain.Conversation, error) {
	convs, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range convs {
		if _, err := s.withParticipants(ctx, c); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

func (s *ConversationService) Get(ctx context.Context, conversationID int64) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}
	return s.withParticipants(ctx, conv)
}

func (s *ConversationService) withParticipants(ctx context.Context, c *domain.Conversation) (*domain.Conversation, error) {
	participants, err := s.conversations.ListParticipants(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	c.Participants = participants
	return c, nil
}
