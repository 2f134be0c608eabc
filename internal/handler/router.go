package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"pemilihan-be/internal/container"
	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/middleware"
	"pemilihan-be/pkg/errors"
)

// requestTimeout bounds every route except the results stream
const requestTimeout = 30 * time.Second

// NewRouter configures and returns the HTTP router
func NewRouter(c *container.Container) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()
	services := c.Services

	r := chi.NewRouter()

	r.Use(middleware.CORS(middleware.CORSOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		MaxAge:         24 * time.Hour,
	}, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	healthChecks := map[string]HealthChecker{}
	if c.DB != nil {
		healthChecks["database"] = c.DB.Health
	}
	if c.HasRedis() {
		healthChecks["redis"] = services.Cache.HealthCheck
	}

	healthHandler := NewHealthHandler(healthChecks, services.Aggregator.SubscriberCount, c.Mode(), log)
	votingHandler := NewVotingHandler(services.Voting, log)
	candidateHandler := NewCandidateHandler(services.Candidates, log)
	voterHandler := NewVoterHandler(services.Voters, log)
	electionHandler := NewElectionHandler(services.Election, log)

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		// Streams bypass compression and the request timeout
		r.Get("/results/stream", votingHandler.StreamResults)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Compress(5))
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.With(middleware.RateLimit(services.Limiter, log)).Post("/ballots", votingHandler.SubmitBallot)
			r.Get("/voters/status", votingHandler.VoterStatus)
			r.Get("/tally", votingHandler.GetTally)
			r.Get("/results", votingHandler.GetResults)
			r.Get("/stats", votingHandler.GetStats)
			r.Get("/election", electionHandler.Info)
			r.Get("/candidates", candidateHandler.List)
			r.Get("/candidates/{id}", candidateHandler.Get)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth, log))
				r.Use(middleware.RequireRole(log, domain.RoleAdmin, domain.RolePanitia))

				r.Post("/candidates", candidateHandler.Create)
				r.Put("/candidates/{id}", candidateHandler.Update)
				r.Delete("/candidates/{id}", candidateHandler.Delete)

				r.Get("/voters", voterHandler.List)
				r.Delete("/voters/{id}", voterHandler.Delete)

				r.Put("/election", electionHandler.Open)
				r.Post("/tally/resync", votingHandler.ResyncTally)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, errors.NewNotFoundError("Endpoint not found"), log)
	})

	log.Info("Router configured successfully")
	return r
}
