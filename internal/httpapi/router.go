package httpapi

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/outreachly/sourcing-engine/internal/http/mw"
)

// RouterConfig carries the HTTP collaborator's own ambient settings
// (spec.md §8: "ambient HTTP surface beyond spec.md's literal two
// routes, grounded on the reference service's bootstrap").
type RouterConfig struct {
	BaseURL           string
	CORSOrigins       []string
	IPRateLimitPerMin int
	ReadTimeout       time.Duration
}

// NewRouter builds the full chi/huma router: request ID, real IP,
// structured logging, panic recovery, a request-size cap, per-IP rate
// limiting, then the engine's two documented routes.
func NewRouter(h *Handler, cfg RouterConfig) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(mw.Timeout(mw.TimeoutConfig{
		Default: cfg.ReadTimeout,
	}))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))
	router.Use(middleware.RequestSize(1 * 1024 * 1024))
	router.Use(mw.RateLimitByIP(cfg.IPRateLimitPerMin))
	router.Use(mw.APIVersion())

	humaConfig := huma.DefaultConfig("Sourcing Engine", "1.0.0")
	humaConfig.Info.Description = "Candidate sourcing pipeline: discover, normalize, score, and draft outreach for a job."
	if cfg.BaseURL != "" {
		humaConfig.Servers = []*huma.Server{{URL: cfg.BaseURL, Description: "API Server"}}
	}
	api := humachi.New(router, humaConfig)

	mw.PublicGet(api, "/health", h.Health, mw.WithSummary("Engine and per-source health"))
	mw.PublicPost(api, "/source-candidates", h.SourceCandidates, mw.WithSummary("Run one sourcing job synchronously"))

	return router
}
