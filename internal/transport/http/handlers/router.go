package handlers

import (
	"net/http"

	"github.com/vedran77/matrimony/internal/ratelimit"
	"github.com/vedran77/matrimony/internal/transport/http/middleware"
)

type RouterConfig struct {
	Auth          *AuthHandler
	Connections   *ConnectionHandler
	Matches       *MatchHandler
	Conversations *ConversationHandler
	Profiles      *ProfileHandler

	JWTSecret      string
	AllowedOrigins []string
	// Limiter throttles the sending routes. Nil disables throttling.
	Limiter ratelimit.Limiter
	// WS serves GET /ws when set.
	WS http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	auth := middleware.Auth(cfg.JWTSecret)
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}
	throttled := func(scope string, h http.HandlerFunc) http.Handler {
		if cfg.Limiter == nil {
			return auth(h)
		}
		return auth(middleware.RateLimit(cfg.Limiter, scope)(h))
	}

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /api/v1/auth/register", cfg.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", cfg.Auth.Login)

	// Protected - Profiles
	mux.Handle("GET /api/v1/users/{id}", protected(cfg.Profiles.View))
	mux.Handle("POST /api/v1/users/{id}/interest", throttled("interest", cfg.Profiles.ExpressInterest))
	mux.Handle("GET /api/v1/dashboard", protected(cfg.Profiles.Dashboard))
	mux.Handle("POST /api/v1/me/photos/upload-url", protected(cfg.Profiles.PhotoUploadURL))
	mux.Handle("GET /api/v1/me/photos", protected(cfg.Profiles.ListPhotos))
	mux.Handle("POST /api/v1/me/photos", protected(cfg.Profiles.AddPhoto))
	mux.Handle("DELETE /api/v1/me/photos/{id}", protected(cfg.Profiles.DeletePhoto))
	mux.Handle("PUT /api/v1/me/photos/primary", protected(cfg.Profiles.SetPrimaryPhoto))

	// Protected - Connections
	mux.Handle("POST /api/v1/connections/requests", throttled("connect", cfg.Connections.SendRequest))
	mux.Handle("GET /api/v1/connections/requests", protected(cfg.Connections.ListRequests))
	mux.Handle("POST /api/v1/connections/requests/{id}/accept", protected(cfg.Connections.Accept))
	mux.Handle("POST /api/v1/connections/requests/{id}/decline", protected(cfg.Connections.Decline))

	// Protected - Matches
	mux.Handle("GET /api/v1/matches", protected(cfg.Matches.List))
	mux.Handle("POST /api/v1/matches/{id}/unmatch", protected(cfg.Matches.Unmatch))

	// Protected - Conversations
	mux.Handle("GET /api/v1/conversations", protected(cfg.Conversations.List))
	mux.Handle("POST /api/v1/conversations", protected(cfg.Conversations.Open))
	mux.Handle("GET /api/v1/conversations/{id}/messages", protected(cfg.Conversations.Messages))
	mux.Handle("POST /api/v1/conversations/{id}/messages", throttled("message", cfg.Conversations.Send))
	mux.Handle("POST /api/v1/conversations/{id}/read", protected(cfg.Conversations.MarkAllRead))
	mux.Handle("POST /api/v1/messages/{id}/read", protected(cfg.Conversations.MarkRead))

	if cfg.WS != nil {
		mux.Handle("GET /ws", cfg.WS)
	}

	return middleware.Logging(middleware.CORS(cfg.AllowedOrigins)(mux))
}
