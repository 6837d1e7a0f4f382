package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/internal/web/handlers"
	"github.com/facegate/facegate/internal/web/middleware"
)

func (s *Server) setupRoutes(extractor handlers.FeatureExtractor) {
	enrollHandler := handlers.NewEnrollHandler(s.service, extractor)
	authenticateHandler := handlers.NewAuthenticateHandler(s.service, extractor)
	identityHandler := handlers.NewIdentityHandler(s.service)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/enroll", enrollHandler.Enroll)
		r.Post("/authenticate", authenticateHandler.Authenticate)

		// Routes behind a valid credential
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.issuer))

			r.Get("/identity", identityHandler.Get)
		})
	})
}
