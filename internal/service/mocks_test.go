package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"gochat/internal/domain"
)

// Mocks for the repository interfaces; methods a test never touches return
// zero values.

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	return nil
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, nil
}

func (m *MockUserRepo) ListOnline(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepo) SetOnline(ctx context.Context, id int64, handle string) error {
	return nil
}

func (m *MockUserRepo) SetOffline(ctx context.Context, id int64, handle string) error {
	return nil
}

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Create(ctx context.Context, c *domain.Conversation, participantIDs []int64) error {
	args := m.Called(ctx, c, participantIDs)
	c.ID = 1
	return args.Error(0)
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Conversation, error) {
	return nil, nil
}

func (m *MockConversationRepo) ListParticipants(ctx context.Context, conversationID int64) ([]*domain.UserSummary, error) {
	return nil, nil
}

func (m *MockConversationRepo) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	return true, nil
}

func (m *MockConversationRepo) FindDirect(ctx context.Context, userA, userB int64) (*domain.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) SetLastMessage(ctx context.Context, conversationID int64, lm domain.LastMessage) error {
	args := m.Called(ctx, conversationID, lm)
	return args.Error(0)
}

type MockMessageRepo struct {
	mock.Mock

	nextID int64
}

// Create mimics the store: it assigns the id and the server timestamp.
func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	if args.Error(0) == nil {
		m.nextID++
		msg.ID = m.nextID
		msg.CreatedAt = time.Now().UTC()
	}
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	return nil, nil
}

func (m *MockMessageRepo) ListForConversation(ctx context.Context, conversationID int64) ([]*domain.Message, error) {
	return nil, nil
}

func (m *MockMessageRepo) MarkSeen(ctx context.Context, id int64) error {
	return nil
}

// fakeConn records everything sent to it.

type sentEvent struct {
	event string
	data  any
}

type fakeConn struct {
	handle string

	mu      sync.Mutex
	events  []sentEvent
	sendErr error
	closed  bool
}

func (c *fakeConn) Handle() string { return c.handle }

func (c *fakeConn) Send(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, sentEvent{event: event, data: data})
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) eventsNamed(name string) []sentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var res []sentEvent
	for _, e := range c.events {
		if e.event == name {
			res = append(res, e)
		}
	}
	return res
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
