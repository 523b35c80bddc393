package ws_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochat/internal/domain"
	"gochat/internal/registry"
	"gochat/internal/service"
	"gochat/internal/store/sqlite"
	"gochat/internal/ws"
)

const readTimeout = 3 * time.Second

type testEnv struct {
	server *httptest.Server
	users  *sqlite.UserRepo
	convs  *sqlite.ConversationRepo
	msgs   *sqlite.MessageRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "gochat_ws_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	users := sqlite.NewUserRepo(db)
	convs := sqlite.NewConversationRepo(db)
	msgs := sqlite.NewMessageRepo(db)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(users, logger)
	presence := service.NewPresenceService(reg, users, logger)
	relay := service.NewRelayService(reg, msgs, convs, users, logger)

	handler := ws.MakeHandler(reg, presence, relay, nil, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, users: users, convs: convs, msgs: msgs}
}

func (e *testEnv) seedUser(t *testing.T, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Name: username}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) seedDirect(t *testing.T, a, b int64) *domain.Conversation {
	t.Helper()
	c := &domain.Conversation{}
	require.NoError(t, e.convs.Create(context.Background(), c, []int64{a, b}))
	return c
}

func (e *testEnv) dial(t *testing.T, userID int64) *websocket.Conn {
	t.Helper()
	conn, err := e.dialRaw(userID)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (e *testEnv) dialRaw(userID int64) (*websocket.Conn, error) {
	url := strings.Replace(e.server.URL, "http://", "ws://", 1)
	conn, resp, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s/ws?userId=%d", url, userID), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ws.Envelope{Event: event, Data: payload}))
}

// readEvent skips frames until the named event arrives and returns its data.
func readEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(readTimeout)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var env ws.Envelope
		require.NoError(t, conn.ReadJSON(&env), "waiting for %q", event)
		if env.Event == event {
			return env.Data
		}
	}
}

// awaitOnlineUsers reads online-users frames until the set of ids matches.
func awaitOnlineUsers(t *testing.T, conn *websocket.Conn, want ...int64) {
	t.Helper()
	wantSet := map[int64]struct{}{}
	for _, id := range want {
		wantSet[id] = struct{}{}
	}
	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		data := readEvent(t, conn, service.EventOnlineUsers)
		var summaries []domain.UserSummary
		require.NoError(t, json.Unmarshal(data, &summaries))
		got := map[int64]struct{}{}
		for _, s := range summaries {
			got[s.ID] = struct{}{}
		}
		if len(got) == len(wantSet) {
			match := true
			for id := range wantSet {
				if _, ok := got[id]; !ok {
					match = false
					break
				}
			}
			if match {
				return
			}
		}
	}
	t.Fatalf("online-users never settled on %v", want)
}

func TestConnectPublishesPresence(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")

	connA := env.dial(t, alice.ID)
	awaitOnlineUsers(t, connA, alice.ID)

	connB := env.dial(t, bob.ID)
	awaitOnlineUsers(t, connA, alice.ID, bob.ID)
	awaitOnlineUsers(t, connB, alice.ID, bob.ID)
}

func TestGetOnlineUsersQuery(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")

	conn := env.dial(t, alice.ID)
	awaitOnlineUsers(t, conn, alice.ID)

	sendEvent(t, conn, "get-online-users", nil)
	awaitOnlineUsers(t, conn, alice.ID)
}

func TestSendMessageDelivery(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	conv := env.seedDirect(t, alice.ID, bob.ID)

	connA := env.dial(t, alice.ID)
	awaitOnlineUsers(t, connA, alice.ID)
	connB := env.dial(t, bob.ID)
	awaitOnlineUsers(t, connA, alice.ID, bob.ID)
	awaitOnlineUsers(t, connB, alice.ID, bob.ID)

	sendEvent(t, connA, "send-message", map[string]any{
		"conversationId": conv.ID,
		"senderId":       alice.ID,
		"receiverId":     bob.ID,
		"text":           "hello bob",
	})

	// The broadcast precedes the push and the ack on the wire.
	for _, conn := range []*websocket.Conn{connA, connB} {
		var upd service.ConversationUpdatedPayload
		require.NoError(t, json.Unmarshal(readEvent(t, conn, service.EventConversationUpdated), &upd))
		assert.Equal(t, conv.ID, upd.ConversationID)
		assert.Equal(t, "hello bob", upd.LastMessage.Text)
	}

	var pushed domain.Message
	require.NoError(t, json.Unmarshal(readEvent(t, connB, service.EventNewMessage), &pushed))
	assert.Equal(t, "hello bob", pushed.Text)
	assert.Equal(t, alice.ID, pushed.SenderID)
	assert.Equal(t, conv.ID, pushed.ConversationID)

	var acked domain.Message
	require.NoError(t, json.Unmarshal(readEvent(t, connA, service.EventMessageSent), &acked))
	assert.Equal(t, pushed.ID, acked.ID)

	// The snapshot is durable, not just broadcast.
	stored, err := env.convs.GetByID(context.Background(), conv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, "hello bob", stored.LastMessage.Text)
}

func TestSendToOfflineReceiverStillPersists(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	conv := env.seedDirect(t, alice.ID, bob.ID)

	connA := env.dial(t, alice.ID)
	awaitOnlineUsers(t, connA, alice.ID)

	sendEvent(t, connA, "send-message", map[string]any{
		"conversationId": conv.ID,
		"senderId":       alice.ID,
		"receiverId":     bob.ID,
		"text":           "catch up later",
	})

	var acked domain.Message
	require.NoError(t, json.Unmarshal(readEvent(t, connA, service.EventMessageSent), &acked))
	assert.Equal(t, "catch up later", acked.Text)

	// Offline delivery is the history fetch.
	list, err := env.msgs.ListForConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "catch up later", list[0].Text)
}

func TestEmptyTextRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	conv := env.seedDirect(t, alice.ID, bob.ID)

	connA := env.dial(t, alice.ID)
	awaitOnlineUsers(t, connA, alice.ID)

	sendEvent(t, connA, "send-message", map[string]any{
		"conversationId": conv.ID,
		"senderId":       alice.ID,
		"receiverId":     bob.ID,
		"text":           "   ",
	})

	var perr service.ErrorPayload
	require.NoError(t, json.Unmarshal(readEvent(t, connA, service.EventError), &perr))
	assert.Equal(t, "message text cannot be empty", perr.Message)

	list, err := env.msgs.ListForConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSecondConnectionDisplacesFirst(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")

	connOld := env.dial(t, alice.ID)
	awaitOnlineUsers(t, connOld, alice.ID)

	connNew := env.dial(t, alice.ID)
	awaitOnlineUsers(t, connNew, alice.ID)

	// The displaced socket is closed by the server.
	require.NoError(t, connOld.SetReadDeadline(time.Now().Add(readTimeout)))
	for {
		var frame ws.Envelope
		if err := connOld.ReadJSON(&frame); err != nil {
			break
		}
	}

	// The old socket's teardown must not flip the user offline.
	require.Eventually(t, func() bool {
		u, err := env.users.GetByID(context.Background(), alice.ID)
		return err == nil && u.IsOnline
	}, readTimeout, 50*time.Millisecond)

	sendEvent(t, connNew, "get-online-users", nil)
	awaitOnlineUsers(t, connNew, alice.ID)
}

func TestDisconnectGoesOffline(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")

	connA := env.dial(t, alice.ID)
	awaitOnlineUsers(t, connA, alice.ID)
	connB := env.dial(t, bob.ID)
	awaitOnlineUsers(t, connA, alice.ID, bob.ID)
	awaitOnlineUsers(t, connB, alice.ID, bob.ID)

	connB.Close()

	awaitOnlineUsers(t, connA, alice.ID)

	require.Eventually(t, func() bool {
		u, err := env.users.GetByID(context.Background(), bob.ID)
		return err == nil && !u.IsOnline
	}, readTimeout, 50*time.Millisecond)
}

func TestRejectsMissingOrUnknownIdentity(t *testing.T) {
	env := newTestEnv(t)

	t.Run("MissingUserID", func(t *testing.T) {
		url := strings.Replace(env.server.URL, "http://", "ws://", 1)
		conn, resp, err := websocket.DefaultDialer.Dial(url+"/ws", nil)
		require.Error(t, err)
		require.Nil(t, conn)
		require.NotNil(t, resp)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("MalformedUserID", func(t *testing.T) {
		url := strings.Replace(env.server.URL, "http://", "ws://", 1)
		conn, resp, err := websocket.DefaultDialer.Dial(url+"/ws?userId=abc", nil)
		require.Error(t, err)
		require.Nil(t, conn)
		require.NotNil(t, resp)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("UnknownUserIsDisconnected", func(t *testing.T) {
		// The upgrade succeeds, then the identity check closes the socket
		// before any event is handled.
		conn, err := env.dialRaw(99999)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
		var envp ws.Envelope
		assert.Error(t, conn.ReadJSON(&envp))
	})
}
