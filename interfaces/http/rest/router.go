// Package rest wires the HTTP surface: routing, middleware and CORS.
package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"carelog-backend/application/ports"
	"carelog-backend/application/services"
	"carelog-backend/domain/entities"
	"carelog-backend/interfaces/http/rest/handlers"
	"carelog-backend/interfaces/http/rest/middleware"
	"carelog-backend/pkg/auth"
)

// Router creates and configures the HTTP router.
type Router struct {
	repos      *ports.Repositories
	tokens     *auth.TokenManager
	logger     *zap.Logger
	enableCORS bool
}

// NewRouter creates a new router instance.
func NewRouter(repos *ports.Repositories, tokens *auth.TokenManager, logger *zap.Logger, enableCORS bool) *Router {
	return &Router{
		repos:      repos,
		tokens:     tokens,
		logger:     logger,
		enableCORS: enableCORS,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)

	authHandler := handlers.NewAuthHandler(rt.repos.Users, rt.tokens, rt.logger)
	formHandler := handlers.NewFormHandler(rt.repos.Forms, rt.repos.Audit, rt.logger)
	episodeValidator := services.NewEpisodeValidator(rt.repos.Forms)
	episodeHandler := handlers.NewEpisodeHandler(rt.repos.Episodes, episodeValidator, rt.repos.Audit, rt.logger)
	userHandler := handlers.NewUserHandler(rt.repos.Users, rt.repos.Audit, rt.logger)
	auditHandler := handlers.NewAuditHandler(rt.repos.Audit, rt.logger)

	manageForms := middleware.RequireRole(entities.RoleClinician, entities.RoleSysadmin)
	sysadminOnly := middleware.RequireRole(entities.RoleSysadmin)

	loginLimiter := auth.NewTokenBucketLimiter(10, 6*time.Second)

	router.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimit(loginLimiter, rt.logger)).
			Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.tokens))

			r.Get("/auth/me", authHandler.Me)

			r.Route("/forms", func(r chi.Router) {
				r.Get("/", formHandler.ListForms)
				r.Get("/{formID}", formHandler.GetForm)
				r.Get("/{formID}/fields", formHandler.ListFields)

				r.Group(func(r chi.Router) {
					r.Use(manageForms)
					r.Post("/", formHandler.CreateForm)
					// Updates are merge-only-present either way; PUT matches
					// the original clients, PATCH the semantics.
					r.Put("/{formID}", formHandler.UpdateForm)
					r.Patch("/{formID}", formHandler.UpdateForm)
					r.Delete("/{formID}", formHandler.DeleteForm)
					r.Post("/{formID}/fields", formHandler.CreateField)
					r.Put("/{formID}/fields", formHandler.ReplaceFields)
					r.Put("/{formID}/fields/{fieldID}", formHandler.UpdateField)
					r.Patch("/{formID}/fields/{fieldID}", formHandler.UpdateField)
					r.Delete("/{formID}/fields/{fieldID}", formHandler.DeleteField)
				})
			})

			r.Route("/episodes", func(r chi.Router) {
				r.Get("/", episodeHandler.ListEpisodes)
				r.Post("/", episodeHandler.CreateEpisode)
				r.Get("/{episodeID}", episodeHandler.GetEpisode)
				r.Put("/{episodeID}", episodeHandler.UpdateEpisode)
				r.Patch("/{episodeID}", episodeHandler.UpdateEpisode)
				r.Delete("/{episodeID}", episodeHandler.DeleteEpisode)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(sysadminOnly)
				r.Get("/", userHandler.ListUsers)
				r.Post("/", userHandler.CreateUser)
				r.Get("/{userID}", userHandler.GetUser)
				r.Put("/{userID}", userHandler.UpdateUser)
				r.Patch("/{userID}", userHandler.UpdateUser)
				r.Delete("/{userID}", userHandler.DeleteUser)
			})

			r.With(sysadminOnly).Get("/audit/{date}", auditHandler.ListByDate)
		})
	})

	return router
}

// healthCheck reports liveness and the active storage backend.
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","backend":"` + rt.repos.Backend + `"}`))
}
