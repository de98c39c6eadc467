package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/vkazakov/chatline/internal/api"
	"github.com/vkazakov/chatline/internal/config"
	"github.com/vkazakov/chatline/pkg/utils"
)

type ctxKey int

const claimsKey ctxKey = iota

// Server bundles the in-memory store, the token authenticator and the
// push hub behind one HTTP handler.
type Server struct {
	store    *Store
	hub      *Hub
	auth     *Authenticator
	upgrader websocket.Upgrader
}

// New builds a dev server from config.
func New(cfg config.ServerConfig) *Server {
	return &Server{
		store: NewStore(),
		hub:   NewHub(),
		auth:  NewAuthenticator(cfg.TokenSecret, cfg.AccessTTL, cfg.RefreshTTL),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Store exposes the backing store so tests can seed data directly.
func (s *Server) Store() *Store { return s.store }

// Close tears down every live push connection.
func (s *Server) Close() { s.hub.CloseAll() }

// Handler wires all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Post("/auth/token", s.handleToken)
		v1.Post("/auth/token/refresh", s.handleRefresh)
		v1.Post("/auth/logout", s.handleLogout)
		v1.Post("/user", s.handleSignUp)

		v1.Group(func(protected chi.Router) {
			protected.Use(s.requireAuth)

			protected.Get("/user/me", s.handleMe)
			protected.Get("/user/id/{userID}", s.handleUserByID)
			protected.Get("/user/tag/{tag}", s.handleUserByTag)

			protected.Get("/chat", s.handleListChats)
			protected.Post("/chat", s.handleCreateChat)
			protected.Delete("/chat/{chatID}", s.handleDeleteChat)

			protected.Get("/chat/{chatID}/message", s.handleListMessages)
			protected.Post("/chat/{chatID}/message", s.handleSendMessage)
			protected.Patch("/chat/{chatID}/message/{messageID}", s.handleEditMessage)
			protected.Delete("/chat/{chatID}/message/{messageID}", s.handleDeleteMessage)

			protected.Post("/message/{messageID}/reaction", s.handleAddReaction)
			protected.Delete("/message/{messageID}/reaction/{reactionID}", s.handleRemoveReaction)
		})
	})

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireAuth)
		protected.Get("/ws", s.handleWS)
	})

	return r
}

// requireAuth authenticates the access cookie. An expired token answers
// 403 so the client runs its refresh cycle; a missing or garbage token
// answers 401, which the client treats as a dead session.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(accessCookie)
		if err != nil {
			utils.RespondError(w, http.StatusUnauthorized, api.CodeInvalidToken, "missing access token", nil)
			return
		}

		claims, err := s.auth.Validate(cookie.Value)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				utils.RespondError(w, http.StatusForbidden, api.CodeInvalidToken, "access token expired", nil)
				return
			}
			utils.RespondError(w, http.StatusUnauthorized, api.CodeInvalidToken, "invalid access token", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func claimsFrom(r *http.Request) *Claims {
	claims, _ := r.Context().Value(claimsKey).(*Claims)
	return claims
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	s.hub.Add(claims.UserID, conn)
}
