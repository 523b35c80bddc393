package domain

import "time"

// User represents an application user. ConnectionHandle is the id of the
// user's single live websocket connection, or nil when offline.
type User struct {
	ID               int64     `db:"id" json:"id"`
	Username         string    `db:"username" json:"username"`
	Name             string    `db:"name" json:"name"`
	Email            *string   `db:"email" json:"email,omitempty"`
	ProfilePicture   string    `db:"profile_picture" json:"profilePicture"`
	IsActive         bool      `db:"is_active" json:"isActive"`
	IsOnline         bool      `db:"is_online" json:"isOnline"`
	ConnectionHandle *string   `db:"connection_handle" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	LastSeen         time.Time `db:"last_seen" json:"lastSeen"`
}

// UserSummary is the slimmed-down user shape pushed in presence events and
// embedded in conversation listings.
type UserSummary struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
}

// Summary converts a full user record to its broadcast shape.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Username:       u.Username,
		Name:           u.Name,
		ProfilePicture: u.ProfilePicture,
	}
}

// Conversation represents a chat conversation (direct or group).
// LastMessage is a denormalized snapshot of the newest message, kept so list
// views can render without querying message history.
type Conversation struct {
	ID           int64          `db:"id" json:"id"`
	Name         *string        `db:"name" json:"name,omitempty"`
	IsGroup      bool           `db:"is_group" json:"isGroup"`
	LastMessage  *LastMessage   `json:"lastMessage,omitempty"`
	Participants []*UserSummary `json:"participants,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// LastMessage is the snapshot cached on a conversation.
type LastMessage struct {
	SenderID int64     `json:"senderId"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}

// Message represents a single chat message. Rows are never hard-deleted; the
// seen flag is the only mutation after creation.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversationId"`
	SenderID       int64     `db:"sender_id" json:"senderId"`
	Text           string    `db:"text" json:"text"`
	Seen           bool      `db:"seen" json:"seen"`
	IsDeleted      bool      `db:"is_deleted" json:"isDeleted"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Snapshot returns the last-message snapshot for this message.
func (m *Message) Snapshot() LastMessage {
	return LastMessage{
		SenderID: m.SenderID,
		Text:     m.Text,
		SentAt:   m.CreatedAt,
	}
}
