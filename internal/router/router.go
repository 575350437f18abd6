package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appMiddleware "github.com/havenai/go-estate-assistant/app/middleware"
	"github.com/havenai/go-estate-assistant/internal/api/auth"
	"github.com/havenai/go-estate-assistant/internal/api/chat"
	"github.com/havenai/go-estate-assistant/internal/api/property"
	"github.com/havenai/go-estate-assistant/internal/types"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler            *auth.HandlerImpl
	PropertyHandler        *property.HandlerImpl
	ChatHandler            *chat.HandlerImpl
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are applied
// before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// Public routes: account lifecycle and read-only market data.
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.Refresh)
			r.Post("/auth/forgot-password", cfg.AuthHandler.ForgotPassword)
			r.Post("/auth/verify-otp", cfg.AuthHandler.VerifyOTP)
			r.Post("/auth/reset-password", cfg.AuthHandler.ResetPassword)

			r.Get("/properties/search", cfg.PropertyHandler.SearchProperties)
			r.Get("/properties/market/{city}", cfg.PropertyHandler.Market)
			r.Get("/properties/overview", cfg.PropertyHandler.Overview)
			r.Get("/properties/bedroom-stats", cfg.PropertyHandler.BedroomStats)
			r.Get("/properties/cheapest-segment/{city}", cfg.PropertyHandler.CheapestSegment)
			r.Get("/properties/recommend", cfg.PropertyHandler.Recommend)
			r.Get("/properties/{id}", cfg.PropertyHandler.GetProperty)
		})

		// Protected routes require a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/users/{email}", cfg.AuthHandler.Profile)

			r.Post("/chat", cfg.ChatHandler.Chat)
			r.Get("/chat/history", cfg.ChatHandler.History)
			r.Delete("/chat", cfg.ChatHandler.Reset)

			r.With(appMiddleware.RequireRole(types.RoleSeller, types.RoleAdmin)).
				Post("/properties", cfg.PropertyHandler.CreateProperty)
			r.Put("/properties/{id}", cfg.PropertyHandler.UpdateProperty)
			r.Delete("/properties/{id}", cfg.PropertyHandler.DeleteProperty)
		})
	})

	return r
}
