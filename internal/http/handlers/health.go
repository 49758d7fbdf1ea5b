package handlers

import (
	"net/http"
	"strings"
	"time"
)

type healthLLM struct {
	Configured bool     `json:"configured"`
	Providers  []string `json:"providers"`
}

type healthPayments struct {
	Stripe      bool `json:"stripe"`
	MercadoPago bool `json:"mercadopago"`
}

type healthDatabase struct {
	Postgres bool `json:"postgres"`
}

type healthWebhooks struct {
	Stripe      bool `json:"stripe"`
	MercadoPago bool `json:"mercadopago"`
}

type healthComponents struct {
	LLM      healthLLM      `json:"llm"`
	Payments healthPayments `json:"payments"`
	Database healthDatabase `json:"database"`
	Webhooks healthWebhooks `json:"webhooks"`
}

type healthStatus struct {
	Status      string           `json:"status"`
	Timestamp   time.Time        `json:"timestamp"`
	Environment string           `json:"environment"`
	Components  healthComponents `json:"components"`
	Readiness   string           `json:"readiness"`
	Issues      []string         `json:"issues"`
}

// Health handles GET /api/health: a component-by-component configuration
// report with an aggregate readiness verdict.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	health := healthStatus{
		Status:      "ok",
		Timestamp:   a.now().UTC(),
		Environment: a.Config.AppEnv,
		Readiness:   "ready",
		Issues:      []string{},
	}

	providers := []string{}
	if a.Providers != nil {
		providers = append(providers, a.Providers.ConfiguredNames()...)
	}
	health.Components.LLM = healthLLM{
		Configured: len(providers) > 0,
		Providers:  providers,
	}
	if !health.Components.LLM.Configured {
		health.Issues = append(health.Issues, "no LLM API key configured; generation will answer with the fallback stub")
		health.Readiness = "degraded"
	}

	stripeOK := a.Config.StripeSecretKey != "" && a.Config.StripeWebhookSecret != ""
	health.Components.Payments.Stripe = stripeOK
	health.Components.Webhooks.Stripe = a.Config.StripeWebhookSecret != ""
	if !stripeOK {
		health.Issues = append(health.Issues, "stripe not fully configured; need STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET")
		health.Readiness = "degraded"
	}

	mpOK := a.Config.MercadoPagoAccessToken != ""
	health.Components.Payments.MercadoPago = mpOK
	health.Components.Webhooks.MercadoPago = mpOK
	if !mpOK {
		health.Issues = append(health.Issues, "mercado pago not configured (optional); set MERCADO_PAGO_ACCESS_TOKEN for regional payments")
	}

	health.Components.Database.Postgres = a.Config.DatabaseURL != ""
	if !health.Components.Database.Postgres {
		health.Issues = append(health.Issues, "DATABASE_URL not configured; persistence is unavailable")
		health.Readiness = "degraded"
	}

	if !stripeOK && !mpOK {
		health.Issues = append(health.Issues, "no payment gateway configured; configure Stripe or Mercado Pago")
		health.Readiness = "error"
		health.Status = "error"
	}
	if a.Config.AppEnv == "production" && strings.Contains(a.Config.StripeSecretKey, "test") {
		health.Issues = append(health.Issues, "stripe test keys in production")
		health.Readiness = "error"
		health.Status = "error"
	}

	code := http.StatusOK
	if health.Readiness == "error" {
		code = http.StatusInternalServerError
	}
	a.json(w, code, health)
}

// HealthPing handles HEAD /api/health for load balancers.
func (a *App) HealthPing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
