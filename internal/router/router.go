package router

import (
	"net/http"

	"ecoquest/internal/config"
	"ecoquest/internal/database"
	"ecoquest/internal/handlers/api/v1/challenges"
	"ecoquest/internal/middleware"
	"ecoquest/internal/response"
	"ecoquest/internal/services"
	"ecoquest/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Dependencies holds everything the router needs
type Dependencies struct {
	Services  *services.ServiceCollection
	Builder   *response.Builder
	Validator *validation.Validator
	Config    *config.Config
	Logger    *zap.Logger
}

// New builds the HTTP routing tree
func New(deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.StructuredLogger(deps.Logger))

	// Health stays reachable even when the store is down
	r.Get("/health", healthHandler(deps.Builder))

	controller := challenges.NewController(
		deps.Services,
		deps.Builder,
		deps.Validator,
		deps.Config.Upload,
		deps.Logger,
	)

	requireAuth := middleware.RequireAuth(deps.Config.Auth.JWTSecret, deps.Builder)
	adminOnly := middleware.RequireRole(deps.Builder, "admin")
	adminOrPartner := middleware.RequireRole(deps.Builder, "admin", "partner")

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireDatabase(database.IsConnected, deps.Builder))

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/", controller.List)

			r.With(requireAuth).Post("/submit", controller.Submit)
			r.With(requireAuth, adminOrPartner).Post("/", controller.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", controller.Get)
				r.Get("/participants", controller.Participants)

				r.With(requireAuth).Post("/join", controller.Join)

				r.With(requireAuth, adminOnly).Put("/", controller.Update)
				r.With(requireAuth, adminOnly).Delete("/", controller.Delete)
				r.With(requireAuth, adminOnly).Get("/submissions/pending", controller.ListPending)
				r.With(requireAuth, adminOnly).Put("/submissions/{participantId}/review", controller.Review)
			})
		})
	})

	return r
}

// healthHandler reports service and database health
func healthHandler(builder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbHealth := database.Health(r.Context())

		status := http.StatusOK
		if dbHealth.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}

		payload := map[string]interface{}{
			"status":   dbHealth.Status,
			"database": dbHealth,
		}

		resp := builder.Success(r.Context(), payload)
		resp.Success = status == http.StatusOK
		builder.WriteJSON(w, r, resp, status)
	}
}
