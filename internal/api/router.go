package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appmiddleware "lernbuddy.de/lernbuddy/internal/middleware"
)

func NewRouter(apiHandler *APIHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(appmiddleware.CORS(allowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		r.Post("/chat", apiHandler.ChatHandler)
		r.Post("/analytics", apiHandler.AnalyticsHandler)

		r.Get("/personas", apiHandler.PersonasHandler)

		r.Route("/profile/{clientID}", func(r chi.Router) {
			r.Get("/", apiHandler.GetProfileHandler)
			r.Put("/", apiHandler.UpdateProfileHandler)
			r.Delete("/", apiHandler.ResetProfileHandler)
		})
		r.Post("/onboarding/{clientID}", apiHandler.OnboardingHandler)
		r.Get("/greeting/{clientID}", apiHandler.GreetingHandler)
	})

	return r
}
