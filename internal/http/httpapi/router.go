package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"adstory/internal/http/handlers"
	"adstory/internal/infra/geoip"
	"adstory/internal/middleware"
)

// Options tunes the router's middleware stack.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMin    int
	DefaultLanguage    string
	// Countries resolves client IPs; nil skips the lookup.
	Countries geoip.CountryResolver
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Device,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSAllowedOrigins),
		middleware.I18N(app.Catalog, opts.DefaultLanguage, countryLookup(opts.Countries)),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/catalog", app.ShowCatalog)
		r.Get("/schema/plan", app.PlanSchema)

		r.Route("/keys/device", func(r chi.Router) {
			r.Get("/", app.DeviceKeyStatus)
			r.Put("/", app.PutDeviceKey)
			r.Delete("/", app.DeleteDeviceKey)
		})

		// Generation calls cost provider quota and share one budget.
		limit := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)
		r.With(limit).Post("/plans", app.CreatePlan)
		r.With(limit).Post("/voices/preview", app.PreviewVoice)

		r.Route("/projects/{id}", func(r chi.Router) {
			r.Get("/", app.GetProject)
			r.Delete("/", app.DeleteProject)
			r.Patch("/settings", app.PatchSettings)
			r.With(limit).Post("/scenes/{index}/{kind}", app.TriggerScene)
			r.Get("/scenes/{index}/{kind}", app.DownloadScene)
			r.Get("/export.zip", app.ExportProject)
		})
	})

	return r
}

func countryLookup(c geoip.CountryResolver) middleware.CountryLookup {
	if c == nil {
		return nil
	}
	return c.CountryCode
}

