package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"samserver/internal/http/handlers"
	"samserver/internal/middleware"
)

type RouterOptions struct {
	App            *handlers.App
	CountryLookup  middleware.CountryLookup
	AllowedOrigins []string
	DefaultLocale  string
	RateLimit      int
}

// NewRouter wires the full HTTP surface. Auth is enforced inside the
// handlers (they need to tell NO_SESSION from INVALID_TOKEN), so the chain
// here is only the ambient middleware.
func NewRouter(opts RouterOptions) http.Handler {
	app := opts.App
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
	)
	r.Use(middleware.Locale(opts.DefaultLocale, opts.CountryLookup))
	r.Use(middleware.Logger(app.Logger))
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
	}
	r.Use(middleware.CORS(opts.AllowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", app.Generate)
		r.Get("/generate/history", app.History)
		r.Get("/features/{feature}", app.Feature)

		r.Post("/checkout", app.Checkout)
		r.Post("/checkout/mercadopago", app.CheckoutMercadoPago)
		r.Get("/pricing", app.Pricing)

		r.Post("/webhooks/stripe", app.StripeWebhook)
		r.Post("/webhooks/mercadopago", app.MercadoPagoWebhook)

		r.Get("/health", app.Health)
		r.Head("/health", app.HealthPing)
		r.Get("/metrics/usage-24h", app.Usage24h)
	})

	return r
}
