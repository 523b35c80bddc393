// Package registry tracks which users currently hold a live connection.
//
// The registry is the only owner of connection handles. Each user has at most
// one live connection at any instant: registering a new connection for a user
// atomically replaces the old mapping, and unregistering resolves the owning
// user by handle, so a late disconnect of a replaced connection never touches
// the newer one. Other components must resolve handles through a fresh lookup
// here rather than caching them.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gochat/internal/domain"
)

// Conn is one live bidirectional client connection.
type Conn interface {
	// Handle returns the ephemeral unique id of this connection.
	Handle() string
	// Send pushes one event to the client.
	Send(event string, data any) error
	Close() error
}

// Registry maps user ids to their single live connection. All mutations are
// written through to the user directory (online flag, handle, last seen).
type Registry struct {
	mu       sync.RWMutex
	byUser   map[int64]Conn
	byHandle map[string]int64

	users  domain.UserRepository
	logger *slog.Logger
}

func New(users domain.UserRepository, logger *slog.Logger) *Registry {
	return &Registry{
		byUser:   make(map[int64]Conn),
		byHandle: make(map[string]int64),
		users:    users,
		logger:   logger,
	}
}

// Register records conn as the user's live connection, displacing any
// existing one. The displaced connection (if any) is returned so the caller
// can close it; it is already removed from the registry. An unknown or
// inactive user yields domain.ErrInvalidIdentity and the caller must
// terminate the connection without processing further events.
func (r *Registry) Register(ctx context.Context, userID int64, conn Conn) (Conn, error) {
	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("look up user %d: %w", userID, err)
	}
	if u == nil || !u.IsActive {
		return nil, domain.ErrInvalidIdentity
	}

	r.mu.Lock()
	prev := r.byUser[userID]
	if prev != nil {
		delete(r.byHandle, prev.Handle())
	}
	r.byUser[userID] = conn
	r.byHandle[conn.Handle()] = userID
	r.mu.Unlock()

	if err := r.users.SetOnline(ctx, userID, conn.Handle()); err != nil {
		// The in-memory mapping stays authoritative; the directory catches up
		// on the next presence write.
		r.logger.Warn("persist online status failed", "user_id", userID, "error", err)
	}

	r.logger.Info("connection registered", "user_id", userID, "handle", conn.Handle())
	return prev, nil
}

// Unregister clears the mapping owned by handle and marks the owner offline.
// If no user owns the handle anymore (it was displaced by a newer
// registration) this is a no-op: looking up the owner by handle instead of
// flipping "the disconnecting user" offline is what keeps a reconnect from a
// second tab from being marked offline by the first socket's late disconnect.
func (r *Registry) Unregister(ctx context.Context, handle string) (int64, bool) {
	r.mu.Lock()
	userID, ok := r.byHandle[handle]
	if ok {
		delete(r.byHandle, handle)
		delete(r.byUser, userID)
	}
	r.mu.Unlock()

	if !ok {
		return 0, false
	}

	if err := r.users.SetOffline(ctx, userID, handle); err != nil {
		r.logger.Warn("persist offline status failed", "user_id", userID, "error", err)
	}

	r.logger.Info("connection unregistered", "user_id", userID, "handle", handle)
	return userID, true
}

// Conn returns the user's current live connection, if any.
func (r *Registry) Conn(userID int64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byUser[userID]
	return conn, ok
}

// IsOnline reports whether the user currently holds a registered connection.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

// Connections returns a snapshot of all registered connections.
func (r *Registry) Connections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Conn, 0, len(r.byUser))
	for _, c := range r.byUser {
		conns = append(conns, c)
	}
	return conns
}

// OnlineUserIDs returns the ids of all users holding a registered connection.
func (r *Registry) OnlineUserIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	return ids
}
