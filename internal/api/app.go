package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"

	"github.com/Knighty7-ciper/cmd-chat/internal/config"
	"github.com/Knighty7-ciper/cmd-chat/internal/server"
)

// ChatApp wires the HTTP surface: key exchange, room management, health,
// and the two websocket channels. The registry is injected, never global.
type ChatApp struct {
	log      *log.Logger
	reg      *server.Registry
	cfg      *config.Config
	srv      *http.Server
	upgrader websocket.Upgrader
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, reg *server.Registry, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log: logger,
		reg: reg,
		cfg: cfg,
	}

	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(cfg.AllowedOrigins) == 0 {
				return true
			}
			for _, allowed := range cfg.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	mux.HandleFunc("/get_key", s.getKey)
	mux.HandleFunc("GET /rooms", s.listRooms)
	mux.HandleFunc("POST /rooms", s.createRoom)
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /talk", s.serveTalk)
	mux.HandleFunc("GET /update", s.serveUpdate)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
	)(mux)

	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *ChatApp) Handler() http.Handler {
	return s.srv.Handler
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
