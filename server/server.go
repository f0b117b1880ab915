// Package server exposes the outbound event streams over HTTP: Server-Sent
// Events on /events and WebSocket on /ws, both JWT-authenticated.
package server

import (
	"chat-notify/contract"
	"context"
	_ "embed"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed index.html
var indexHTML []byte

type Server struct {
	log       *slog.Logger
	registry  contract.IRegistry
	verifier  contract.TokenVerifier
	keepalive time.Duration
}

func New(log *slog.Logger, registry contract.IRegistry,
	verifier contract.TokenVerifier, keepalive time.Duration) *Server {
	return &Server{log: log, registry: registry, verifier: verifier, keepalive: keepalive}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/", s.handleIndex)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.Authenticate)
		r.Get("/events", s.handleSSE)
		r.Get("/ws", s.handleWS)
	})

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// NewHTTPServer applies production defaults. WriteTimeout stays zero because
// streaming responses never finish inside a fixed window; per-connection
// liveness is the keepalive's job. Request contexts derive from ctx, so
// canceling it releases every open stream during shutdown.
func NewHTTPServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}
