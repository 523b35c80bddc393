package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"gochat/internal/domain"
	"gochat/internal/registry"
	"gochat/internal/service"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			// Non-browser clients (tests, CLIs) send no Origin header.
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// MakeHandler returns the HTTP handler for the /ws endpoint.
// The connecting user is identified by the userId query parameter; a missing
// or invalid identity terminates the connection before any event is handled.
// Inbound events:
//   - send-message     -> relay (persist, snapshot, push, ack)
//   - get-online-users -> reply with the current online set
func MakeHandler(
	reg *registry.Registry,
	presence *service.PresenceService,
	relay *service.RelayService,
	allowedOrigins []string,
	logger *slog.Logger,
) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: makeCheckOrigin(allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rawID := r.URL.Query().Get("userId")
		if rawID == "" {
			http.Error(w, "missing userId", http.StatusBadRequest)
			return
		}
		userID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			http.Error(w, "invalid userId", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := NewClient(conn, userID)
		ctx := r.Context()

		prev, err := reg.Register(ctx, userID, client)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidIdentity) {
				logger.Error("register connection failed", "user_id", userID, "error", err)
			}
			conn.Close()
			return
		}
		if prev != nil {
			// Last connection wins; the displaced socket is closed outright.
			prev.Close()
		}

		defer func() {
			client.Close()
			// The request context is gone once the socket drops, so the
			// offline write uses a fresh one.
			if _, ok := reg.Unregister(context.Background(), client.Handle()); ok {
				presence.BroadcastOnlineUsers(context.Background())
			}
		}()

		presence.BroadcastOnlineUsers(ctx)

		for {
			env, err := client.ReadEnvelope()
			if err != nil {
				return
			}

			switch env.Event {
			case eventSendMessage:
				var data sendMessageData
				if err := json.Unmarshal(env.Data, &data); err != nil {
					sendError(client, "invalid send-message payload")
					continue
				}
				_, err := relay.Relay(ctx, service.RelayInput{
					ConversationID: data.ConversationID,
					SenderID:       data.SenderID,
					ReceiverID:     data.ReceiverID,
					Text:           data.Text,
				})
				switch {
				case err == nil:
					// relay already acked the sender
				case errors.Is(err, domain.ErrInvalidInput):
					sendError(client, "message text cannot be empty")
				case errors.Is(err, domain.ErrNotFound):
					sendError(client, "conversation or user not found")
				default:
					logger.Error("relay failed", "user_id", userID, "error", err)
					sendError(client, "failed to send message")
				}

			case eventGetOnlineUsers:
				if err := presence.SendOnlineUsers(ctx, client); err != nil {
					logger.Warn("online-users reply failed", "user_id", userID, "error", err)
				}

			default:
				logger.Debug("unknown event", "event", env.Event, "user_id", userID)
			}
		}
	}
}

func sendError(client *Client, msg string) {
	_ = client.Send(service.EventError, service.ErrorPayload{Message: msg})
}
