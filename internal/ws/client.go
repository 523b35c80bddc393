package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gochat/internal/registry"
)

// Client wraps one websocket connection and implements registry.Conn. The
// handle is assigned at upgrade time and never reused.
type Client struct {
	handle string
	userID int64

	// writeMu serializes writes: broadcasts arrive from other connections'
	// goroutines while the read loop may be acking on this one.
	writeMu sync.Mutex
	conn    *websocket.Conn
}

var _ registry.Conn = (*Client)(nil)

func NewClient(conn *websocket.Conn, userID int64) *Client {
	return &Client{
		handle: uuid.NewString(),
		userID: userID,
		conn:   conn,
	}
}

func (c *Client) Handle() string {
	return c.handle
}

func (c *Client) UserID() int64 {
	return c.userID
}

// Send writes one event envelope to the client.
func (c *Client) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(Envelope{Event: event, Data: payload})
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// ReadEnvelope blocks until the next inbound frame.
func (c *Client) ReadEnvelope() (*Envelope, error) {
	var env Envelope
	if err := c.conn.ReadJSON(&env); err != nil {
		return nil, err
	}
	return &env, nil
}
