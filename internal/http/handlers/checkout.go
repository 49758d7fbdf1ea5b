package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"samserver/internal/payments"
)

type checkoutRequest struct {
	PriceID string `json:"priceId"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// Checkout handles POST /api/checkout: a Stripe subscription checkout
// session for the signed-in user.
func (a *App) Checkout(w http.ResponseWriter, r *http.Request) {
	claims, ok := a.session(w, r)
	if !ok {
		return
	}
	if a.Stripe == nil {
		a.fail(w, r, http.StatusInternalServerError, "PAYMENTS_UNAVAILABLE", "stripe is not configured")
		return
	}

	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.fail(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}

	url, err := a.Stripe.CreateSession(body.PriceID, claims.Sub)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", claims.Sub).Msg("stripe checkout failed")
		a.fail(w, r, http.StatusInternalServerError, "CHECKOUT_ERROR", "could not create checkout session")
		return
	}
	a.json(w, http.StatusOK, checkoutResponse{URL: url})
}

type mercadoPagoCheckoutRequest struct {
	PlanType string `json:"planType"`
}

// CheckoutMercadoPago handles POST /api/checkout/mercadopago.
func (a *App) CheckoutMercadoPago(w http.ResponseWriter, r *http.Request) {
	claims, ok := a.session(w, r)
	if !ok {
		return
	}
	if a.MercadoPago == nil || !a.MercadoPago.Configured() {
		a.fail(w, r, http.StatusInternalServerError, "PAYMENTS_UNAVAILABLE", "mercado pago is not configured")
		return
	}

	var body mercadoPagoCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.fail(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}

	pref, err := a.MercadoPago.CreatePreference(r.Context(), body.PlanType)
	if err != nil {
		if errors.Is(err, payments.ErrMercadoPagoNotConfigured) {
			a.fail(w, r, http.StatusInternalServerError, "PAYMENTS_UNAVAILABLE", "mercado pago is not configured")
			return
		}
		a.Logger.Error().Err(err).Str("user_id", claims.Sub).Msg("mercado pago checkout failed")
		a.fail(w, r, http.StatusBadRequest, "CHECKOUT_ERROR", "could not create payment preference")
		return
	}
	a.json(w, http.StatusOK, pref)
}

// Pricing handles GET /api/pricing.
func (a *App) Pricing(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, payments.CurrentPricing(a.now()))
}
