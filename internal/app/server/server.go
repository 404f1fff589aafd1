package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shjroemon/social-network-be/internal/app/registry"
	"github.com/shjroemon/social-network-be/internal/app/server/handlers"
	"github.com/shjroemon/social-network-be/internal/config"
	"github.com/shjroemon/social-network-be/internal/core/services"
	"github.com/shjroemon/social-network-be/pkg/middleware"
)

type Server struct {
	log         *slog.Logger
	mux         *http.ServeMux
	cfg         config.Config
	authHandler *handlers.AuthHandler
	userHandler *handlers.UserHandler
	postHandler *handlers.PostHandler
	chatHandler *handlers.ChatHandler
	wsHandler   *handlers.WSHandler
	tokenSvc    *services.TokenService
	httpServer  *http.Server
}

func NewServer(
	log *slog.Logger,
	cfg config.Config,
	userSvc *services.UserService,
	tokenSvc *services.TokenService,
	postSvc *services.PostService,
	membership *services.MembershipService,
	messages *services.MessageService,
	presence *services.PresenceTracker,
	hub *registry.Registry,
) *Server {
	s := &Server{
		log:         log,
		mux:         http.NewServeMux(),
		cfg:         cfg,
		authHandler: handlers.NewAuthHandler(userSvc, tokenSvc),
		userHandler: handlers.NewUserHandler(userSvc),
		postHandler: handlers.NewPostHandler(postSvc),
		chatHandler: handlers.NewChatHandler(membership, messages),
		wsHandler:   handlers.NewWSHandler(hub, membership, messages, presence, *cfg.Chat),
		tokenSvc:    tokenSvc,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)

	s.mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "welcome"})
	})

	// Public routes
	s.mux.HandleFunc("POST /api/v1/auth/register", s.authHandler.Register)
	s.mux.HandleFunc("POST /api/v1/auth/login", s.authHandler.Login)
	s.mux.HandleFunc("GET /api/v1/users/{id}", s.userHandler.GetProfile)
	s.mux.HandleFunc("GET /api/v1/posts", s.postHandler.ListPosts)
	s.mux.HandleFunc("GET /api/v1/posts/{id}", s.postHandler.GetPost)

	// Protected routes
	s.mux.Handle("PATCH /api/v1/users/{id}", auth(http.HandlerFunc(s.userHandler.UpdateProfile)))
	s.mux.Handle("POST /api/v1/posts", auth(http.HandlerFunc(s.postHandler.CreatePost)))
	s.mux.Handle("DELETE /api/v1/posts/{id}", auth(http.HandlerFunc(s.postHandler.DeletePost)))

	s.mux.Handle("POST /api/v1/chats", auth(http.HandlerFunc(s.chatHandler.CreateChat)))
	s.mux.Handle("POST /api/v1/chats/{id}/join", auth(http.HandlerFunc(s.chatHandler.JoinChat)))
	s.mux.Handle("POST /api/v1/chats/{id}/leave", auth(http.HandlerFunc(s.chatHandler.LeaveChat)))
	s.mux.Handle("GET /api/v1/chats/{id}/members", auth(http.HandlerFunc(s.chatHandler.Members)))
	s.mux.Handle("GET /api/v1/chats/{id}/messages", auth(http.HandlerFunc(s.chatHandler.Messages)))
	s.mux.Handle("POST /api/v1/messages", auth(http.HandlerFunc(s.chatHandler.SendMessage)))

	// Real-time gateway
	s.mux.Handle("/ws", auth(http.HandlerFunc(s.wsHandler.Handler)))
}

func (s *Server) Start() error {
	clientOrigin := "*"
	if s.cfg.Service.Env == "production" {
		clientOrigin = "https://deft-bubblegum-623f97.netlify.app"
	}
	handler := middleware.SecurityHeaders(
		middleware.CORS(clientOrigin)(
			middleware.TracerMiddleware(s.cfg.Service.Name)(
				middleware.RequestLogger(s.log)(s.mux),
			),
		),
	)
	s.httpServer = &http.Server{
		Addr:         s.cfg.Service.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket sessions manage their own deadlines
		IdleTimeout:  60 * time.Second,
	}
	s.log.Info("server starting", "addr", s.cfg.Service.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
