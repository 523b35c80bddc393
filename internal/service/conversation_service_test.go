package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"gochat/internal/domain"
	"gochat/internal/service"
)

func TestFindOrCreateDirect(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsExisting", func(t *testing.T) {
		users := new(MockUserRepo)
		convs := new(MockConversationRepo)
		users.On("GetByID", mock.Anything, mock.Anything).Return(onlineUser(1), nil)
		convs.On("FindDirect", mock.Anything, int64(1), int64(2)).
			Return(&domain.Conversation{ID: 42}, nil)

		svc := service.NewConversationService(convs, users)
		conv, err := svc.FindOrCreateDirect(ctx, 1, 2)

		assert.NoError(t, err)
		assert.Equal(t, int64(42), conv.ID)
		convs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CreatesOnFirstContact", func(t *testing.T) {
		users := new(MockUserRepo)
		convs := new(MockConversationRepo)
		users.On("GetByID", mock.Anything, mock.Anything).Return(onlineUser(1), nil)
		convs.On("FindDirect", mock.Anything, int64(1), int64(2)).Return(nil, nil)
		convs.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
			return !c.IsGroup
		}), []int64{1, 2}).Return(nil)

		svc := service.NewConversationService(convs, users)
		conv, err := svc.FindOrCreateDirect(ctx, 1, 2)

		assert.NoError(t, err)
		assert.NotNil(t, conv)
		convs.AssertExpectations(t)
	})

	t.Run("RejectsSelf", func(t *testing.T) {
		svc := service.NewConversationService(new(MockConversationRepo), new(MockUserRepo))
		_, err := svc.FindOrCreateDirect(ctx, 1, 1)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("GetByID", mock.Anything, int64(1)).Return(onlineUser(1), nil)
		users.On("GetByID", mock.Anything, int64(9)).Return(nil, nil)

		svc := service.NewConversationService(new(MockConversationRepo), users)
		_, err := svc.FindOrCreateDirect(ctx, 1, 9)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("DeduplicatesMembers", func(t *testing.T) {
		users := new(MockUserRepo)
		convs := new(MockConversationRepo)
		users.On("GetByID", mock.Anything, mock.Anything).Return(onlineUser(1), nil)
		convs.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
			return c.IsGroup && c.Name != nil && *c.Name == "team"
		}), []int64{1, 2, 3}).Return(nil)

		svc := service.NewConversationService(convs, users)
		conv, err := svc.CreateGroup(ctx, 1, "team", []int64{2, 3, 2, 1})

		assert.NoError(t, err)
		assert.NotNil(t, conv)
		convs.AssertExpectations(t)
	})

	t.Run("TooFewParticipants", func(t *testing.T) {
		svc := service.NewConversationService(new(MockConversationRepo), new(MockUserRepo))
		_, err := svc.CreateGroup(ctx, 1, "pair", []int64{2})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
