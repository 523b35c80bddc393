package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"gochat/internal/config"
	"gochat/internal/domain"
	"gochat/internal/service"
)

// NewRouter constructs the main HTTP router. The websocket endpoint is passed
// in already wired; REST covers the catch-up surface (conversation and
// message reads, conversation creation, online-user listing).
func NewRouter(
	cfg *config.Config,
	userSvc *service.UserService,
	convSvc *service.ConversationService,
	msgSvc *service.MessageService,
	wsHandler http.HandlerFunc,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": cfg.AppName,
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/online", handleListOnlineUsers(userSvc))
			r.Get("/{userID}", handleGetUser(userSvc))
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/one-on-one", handleFindOrCreateDirect(convSvc))
			r.Post("/group", handleCreateGroup(convSvc))
			r.Get("/", handleListConversations(convSvc))
			r.Get("/{conversationID}", handleGetConversation(convSvc))
			r.Get("/{conversationID}/messages", handleListMessages(msgSvc))
		})

		r.Patch("/messages/{messageID}/seen", handleMarkSeen(msgSvc))
	})

	r.Get("/ws", wsHandler)

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps sentinel errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidIdentity):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
