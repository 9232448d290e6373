package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"helpdesk/internal/config"
	"helpdesk/internal/handlers"
	"helpdesk/internal/middleware"
	"helpdesk/internal/models"
	"helpdesk/internal/repository"
	"helpdesk/internal/service"
)

func New(log zerolog.Logger, repos repository.Repos, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.Metrics())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Origin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(httprate.LimitByIP(200, time.Minute))
	r.Use(middleware.WithAuth(log, cfg))

	// Health + metrics
	r.Get("/healthz", handlers.Health(repos.Ping))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Services + handlers
	auth := service.NewAuthService(repos.Users, cfg.Secret)
	ah := handlers.NewAuthHTTP(auth, repos.Users, log)
	th := handlers.NewTicketHTTP(repos.Tickets, repos.Users, repos.Catalog, log)
	uh := handlers.NewUserHTTP(repos.Users, auth, log)
	ch := handlers.NewCatalogHTTP(repos.Catalog, log)

	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	r.Route("/auth", func(r chi.Router) {
		r.Use(httprate.LimitByIP(20, time.Minute))
		r.Post("/register", ah.Register())
		r.Post("/login", ah.Login())
		r.With(middleware.RequireAuth).Get("/me", ah.Me())
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", th.List())
			r.With(middleware.RequireRoles(models.RoleCustomer)).Post("/", th.Create())
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", th.Get())
				r.With(middleware.RequireRoles(models.RoleAgent, models.RoleAdmin)).Patch("/", th.Update())
				r.With(adminOnly).Delete("/", th.Delete())
				r.Get("/comments", th.Comments())
				r.Post("/comments", th.AddComment())
			})
		})

		r.Route("/statuses", func(r chi.Router) {
			r.Get("/", ch.Statuses())
			r.With(adminOnly).Post("/", ch.CreateStatus())
		})
		r.Route("/priorities", func(r chi.Router) {
			r.Get("/", ch.Priorities())
			r.With(adminOnly).Post("/", ch.CreatePriority())
		})

		r.Route("/users", func(r chi.Router) {
			r.With(adminOnly).Get("/", uh.List())
			r.With(adminOnly).Post("/", uh.Create())
			r.With(middleware.RequireSelfOrRoles(models.RoleAdmin)).Get("/{id}", uh.Get())
		})
	})

	return r
}
