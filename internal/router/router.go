package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"gearadvisor-backend/internal/handlers"
	"gearadvisor-backend/internal/middleware"
	"gearadvisor-backend/internal/websocket"
)

func New(
	sessionAuth *middleware.SessionAuth,
	chatLimiter *middleware.RateLimiter,
	pageHandler *handlers.PageHandler,
	chatHandler *handlers.ChatHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// ──── Page ────
	// The page is the only route that starts a session.
	r.With(sessionAuth.Middleware).Get("/", pageHandler.Index)

	r.Group(func(r chi.Router) {
		r.Use(sessionAuth.Resolve)

		r.With(chatLimiter.Middleware).Post("/chat", pageHandler.Submit)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/session", chatHandler.Transcript)

			r.With(chatLimiter.Middleware).Post("/chat", chatHandler.Send)

			// ──── WebSocket ────
			r.Get("/ws", wsHub.HandleWebSocket)
		})
	})

	return r
}
