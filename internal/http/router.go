package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/newsfeed/server/internal/http/handlers"
	"github.com/newsfeed/server/internal/http/response"
	"github.com/newsfeed/server/internal/metrics"
	"github.com/newsfeed/server/internal/middleware"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	authn middleware.Authenticator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(m.Instrument)
	r.Use(chimw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Resource not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, response.CodeMethodNotAllowed, "Method not allowed.")
	})

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health-check", healthHandler.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign-up", authHandler.HandleSignUp)
			r.Post("/sign-in", authHandler.HandleSignIn)
			r.Post("/send-verification", authHandler.HandleSendVerification)
			r.Post("/verify-email", authHandler.HandleVerifyEmail)
			r.Get("/check-email", authHandler.HandleCheckEmail)

			// refresh token holders only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRefreshToken(authn, logger))
				r.Post("/sign-out", authHandler.HandleSignOut)
				r.Post("/token", authHandler.HandleToken)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAccessToken(authn, logger))
			r.Get("/me", userHandler.HandleGetMe)
			r.Patch("/me", userHandler.HandleUpdateMe)
		})
	})

	return r
}
