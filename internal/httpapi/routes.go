package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/jeopardy-backend/internal/hub"
	"github.com/DoyleJ11/jeopardy-backend/internal/ws"
)

type Options struct {
	PublicURL      string
	OriginPatterns []string
	Log            *zap.Logger
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/lobbies", CreateLobby(h, opts))
	r.Get("/lobbies/{code}", GetLobby(h, opts))
	r.Get("/lobbies/{code}/qr.png", LobbyQR(h, opts))
	r.Get("/{role:(host|player)}/{screen}", ScreenRoute(h, opts))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, ws.Options{Log: opts.Log, OriginPatterns: opts.OriginPatterns}))
	return r
}
