package domain

import (
	"context"
)

// UserRepository is the user directory: profile reads plus the presence
// columns (online flag, connection handle, last seen) written by the
// connection registry.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListOnline(ctx context.Context) ([]*User, error)
	// SetOnline marks the user online under the given connection handle and
	// refreshes last_seen.
	SetOnline(ctx context.Context, id int64, handle string) error
	// SetOffline clears the online flag and handle, but only while the stored
	// handle still matches: a disconnect of an already-replaced connection
	// must not flip a newer registration offline.
	SetOffline(ctx context.Context, id int64, handle string) error
}

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	Create(ctx context.Context, c *Conversation, participantIDs []int64) error
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]*Conversation, error)
	ListParticipants(ctx context.Context, conversationID int64) ([]*UserSummary, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	// FindDirect returns the non-group conversation between the two users, if
	// one exists. At most one exists per unordered pair.
	FindDirect(ctx context.Context, userA, userB int64) (*Conversation, error)
	// SetLastMessage overwrites the denormalized snapshot. Writes carrying a
	// snapshot older than the stored one are ignored, so a replay or a racing
	// slower sender cannot regress a newer snapshot.
	SetLastMessage(ctx context.Context, conversationID int64, lm LastMessage) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Create persists the message and fills in the server-assigned id and
	// timestamp. Completion of this call is the durability point of a send.
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	ListForConversation(ctx context.Context, conversationID int64) ([]*Message, error)
	MarkSeen(ctx context.Context, id int64) error
}
