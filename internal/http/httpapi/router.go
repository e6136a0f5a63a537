package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/asotbz/fuzzbin/internal/http/handlers"
	"github.com/asotbz/fuzzbin/internal/infra"
	appmw "github.com/asotbz/fuzzbin/internal/middleware"
)

// Options tunes the ambient middleware around the API routes.
type Options struct {
	Logger          infra.Logger
	RateLimitPerMin int
	AllowedOrigins  []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		appmw.Logger(opts.Logger),
	)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(appmw.CORS(opts.AllowedOrigins))
	}
	if opts.RateLimitPerMin > 0 {
		r.Use(appmw.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/videos", func(r chi.Router) {
		r.Post("/", app.ImportVideo)
		r.Get("/", app.ListVideos)
		r.Get("/{id}", app.GetVideo)
		r.Post("/{id}/enrich", app.EnrichVideo)
	})

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Get("/", app.ListJobs)
		r.Get("/{id}", app.GetJob)
		r.Delete("/{id}", app.CancelJob)
	})

	r.Post("/v1/backups", app.CreateBackup)

	return r
}
