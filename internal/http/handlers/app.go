package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v72"

	"samserver/internal/domain"
	"samserver/internal/generation"
	"samserver/internal/infra"
	"samserver/internal/middleware"
	"samserver/internal/payments"
)

// Orchestrator runs the credit-gated generation flow.
type Orchestrator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*generation.Outcome, error)
}

// MaterialLister serves the history view.
type MaterialLister interface {
	ListRecent(ctx context.Context, userID string) ([]domain.Material, error)
}

// FeatureChecker resolves per-user feature entitlement.
type FeatureChecker interface {
	Enabled(ctx context.Context, userID, feature string) (bool, error)
}

// CreditGranter adds credits after a confirmed payment.
type CreditGranter interface {
	Grant(ctx context.Context, userID string, amount int) (int, error)
}

// StripeGateway is the Stripe surface the handlers need.
type StripeGateway interface {
	CreateSession(priceID, userID string) (string, error)
	VerifyWebhook(payload []byte, signature string) (stripe.Event, error)
}

// MercadoPagoGateway is the Mercado Pago surface the handlers need.
type MercadoPagoGateway interface {
	Configured() bool
	CreatePreference(ctx context.Context, planType string) (*payments.Preference, error)
	Payment(ctx context.Context, paymentID string) (*payments.Payment, error)
}

// ProviderLister reports which generation providers have usable keys.
type ProviderLister interface {
	ConfiguredNames() []string
}

// App bundles the dependencies every handler needs. Gateways left nil mean
// the corresponding surface answers "not configured".
type App struct {
	SQL          infra.SQLExecutor
	Logger       zerolog.Logger
	Config       *infra.Config
	Orchestrator Orchestrator
	Materials    MaterialLister
	Entitlements FeatureChecker
	Ledger       CreditGranter
	Stripe       StripeGateway
	MercadoPago  MercadoPagoGateway
	Providers    ProviderLister

	// Now is swappable so pricing-window behavior is testable.
	Now func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// fail writes the error envelope. Code is the stable machine-readable
// discriminator; message is for humans and may change.
func (a *App) fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	a.json(w, status, errorBody{
		Error:     message,
		Code:      code,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

// session authenticates the request and writes the 401 itself on failure.
// The code distinguishes a missing session from a bad token.
func (a *App) session(w http.ResponseWriter, r *http.Request) (*middleware.TokenClaims, bool) {
	claims, err := middleware.Authenticate(a.Config.JWTSecret, r)
	if err != nil {
		code := "INVALID_TOKEN"
		if err == middleware.ErrNoSession {
			code = "NO_SESSION"
		}
		a.fail(w, r, http.StatusUnauthorized, code, "authentication required")
		return nil, false
	}
	return claims, true
}
