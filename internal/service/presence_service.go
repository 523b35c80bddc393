package service

import (
	"context"
	"log/slog"

	"gochat/internal/domain"
	"gochat/internal/registry"
)

// PresenceService recomputes the online-user set and publishes it to
// connected clients. Broadcasts are fire-and-forget: delivery to a connection
// that disappears mid-send is dropped, never retried. Presence is eventually
// consistent with message delivery; no ordering between the two is promised.
type PresenceService struct {
	registry *registry.Registry
	users    domain.UserRepository
	logger   *slog.Logger
}

func NewPresenceService(reg *registry.Registry, users domain.UserRepository, logger *slog.Logger) *PresenceService {
	return &PresenceService{
		registry: reg,
		users:    users,
		logger:   logger,
	}
}

// BroadcastOnlineUsers pushes the full online-user list to every registered
// connection. Called after every register and unregister.
func (s *PresenceService) BroadcastOnlineUsers(ctx context.Context) {
	summaries, err := s.onlineSummaries(ctx)
	if err != nil {
		s.logger.Warn("compute online users failed", "error", err)
		return
	}
	for _, conn := range s.registry.Connections() {
		if err := conn.Send(EventOnlineUsers, summaries); err != nil {
			s.logger.Debug("presence push dropped", "handle", conn.Handle(), "error", err)
		}
	}
}

// SendOnlineUsers answers a pull-style "who is online" query on a single
// connection.
func (s *PresenceService) SendOnlineUsers(ctx context.Context, conn registry.Conn) error {
	summaries, err := s.onlineSummaries(ctx)
	if err != nil {
		return err
	}
	return conn.Send(EventOnlineUsers, summaries)
}

func (s *PresenceService) onlineSummaries(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.users.ListOnline(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}
	return summaries, nil
}
