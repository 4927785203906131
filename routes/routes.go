package routes

import (
	"net/http"

	_ "github.com/Dosada05/match-score/docs"
	"github.com/Dosada05/match-score/handlers"
	"github.com/Dosada05/match-score/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Player     *handlers.PlayerHandler
	Match      *handlers.MatchHandler
	Tournament *handlers.TournamentHandler
	Claim      *handlers.ClaimHandler
	Dashboard  *handlers.DashboardHandler
	WebSocket  *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	// nil отключает ограничение частоты запросов
	RateLimiter *middleware.RateLimiter
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(opts.JWTSecret))

	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	router.Route("/api", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Middleware)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.With(authenticate).Get("/me", h.Auth.Me)
		})

		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.Player.List)
			r.Get("/{playerID}", h.Player.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.With(middleware.RequireAdmin).Post("/", h.Player.Create)
				r.With(middleware.RequireAdmin).Delete("/{playerID}", h.Player.Delete)
				r.With(middleware.RequireAdminOrDirector).Patch("/{playerID}", h.Player.Update)
				r.With(middleware.RequireAdminOrDirector).Put("/{playerID}/avatar", h.Player.UploadAvatar)
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", h.Match.List)
			r.Get("/{matchID}", h.Match.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.RequireAdminOrDirector)
				r.Post("/", h.Match.Create)
				r.Post("/{matchID}/score", h.Match.UpdateScore)
				r.Patch("/{matchID}/date", h.Match.Reschedule)
				r.Post("/{matchID}/finish", h.Match.Finish)
			})
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.List)
			r.Get("/{tournamentID}", h.Tournament.GetByID)
			r.Get("/{tournamentID}/standings", h.Tournament.Standings)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.RequireAdminOrDirector)
				r.Post("/", h.Tournament.Create)
				r.Post("/{tournamentID}/next-round", h.Tournament.NextRound)
			})
		})

		r.Route("/claims", func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/player", h.Claim.CreatePlayerClaim)
			r.Post("/director", h.Claim.CreateDirectorClaim)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", h.Claim.ListPending)
				r.Post("/{claimID}/resolve", h.Claim.Resolve)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireAdmin)
			r.Get("/stats", h.Dashboard.Stats)
		})
	})

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
