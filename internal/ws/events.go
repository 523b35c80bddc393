package ws

import "encoding/json"

// Client → server event names. Server → client names are defined next to the
// services that emit them.
const (
	eventSendMessage    = "send-message"
	eventGetOnlineUsers = "get-online-users"
)

// Envelope is the frame exchanged on the websocket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type sendMessageData struct {
	ConversationID int64  `json:"conversationId"`
	SenderID       int64  `json:"senderId"`
	Text           string `json:"text"`
	ReceiverID     int64  `json:"receiverId"`
}
