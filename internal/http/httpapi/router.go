package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"contentgen/internal/http/handlers"
	"contentgen/internal/infra"
	"contentgen/internal/middleware"
)

type Options struct {
	JWT              middleware.JWTConfig
	RateLimitPerMin  int
	CreateJobsPerMin int
	AllowedOrigins   []string
	Negotiator       *middleware.Negotiator
	Lookup           middleware.CountryLookup
	Logger           infra.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	negotiator := opts.Negotiator
	if negotiator == nil {
		negotiator = middleware.NewNegotiator(middleware.DefaultLocales, "en")
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
		middleware.I18N(negotiator, opts.Lookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/readyz", app.Ready)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWT))
		r.With(middleware.RateLimitBy(opts.CreateJobsPerMin, time.Minute, middleware.ByUser)).
			Post("/v1/jobs", app.CreateJob)
		r.Get("/v1/jobs/{job_id}", app.GetJob)
		r.Get("/v1/jobs/{job_id}/artifacts", app.JobArtifacts)
		r.Get("/v1/jobs/{job_id}/export", app.ExportJob)
		r.Get("/v1/credits", app.Credits)
	})

	return r
}
