package handlers

import (
	"io"
	"net/http"
)

const maxWebhookBytes = 1 << 16

// StripeWebhook handles POST /api/webhooks/stripe. A completed checkout
// session grants the monthly credit allowance to the account named in the
// session's client reference; every other verified event is logged.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if a.Stripe == nil {
		a.fail(w, r, http.StatusBadRequest, "WEBHOOK_ERROR", "stripe is not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, "WEBHOOK_ERROR", "cannot read body")
		return
	}
	event, err := a.Stripe.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("stripe webhook signature rejected")
		a.fail(w, r, http.StatusBadRequest, "WEBHOOK_ERROR", "signature verification failed")
		return
	}

	log := a.Logger.With().Str("event_type", event.Type).Str("event_id", event.ID).Logger()
	switch event.Type {
	case "checkout.session.completed":
		userID, _ := event.Data.Object["client_reference_id"].(string)
		if userID == "" {
			log.Warn().Msg("checkout completed without client reference, no credits granted")
			break
		}
		balance, err := a.Ledger.Grant(r.Context(), userID, a.Config.MonthlyCreditGrant)
		if err != nil {
			// Stripe retries on non-2xx, so a failed grant asks for redelivery.
			log.Error().Err(err).Str("user_id", userID).Msg("credit grant failed")
			a.fail(w, r, http.StatusInternalServerError, "WEBHOOK_ERROR", "credit grant failed")
			return
		}
		log.Info().Str("user_id", userID).Int("balance", balance).Msg("subscription credits granted")
	case "customer.subscription.created", "invoice.paid":
		log.Info().Msg("stripe event received")
	default:
		log.Debug().Msg("unhandled stripe event")
	}

	a.json(w, http.StatusOK, map[string]any{"received": true, "type": event.Type})
}

// MercadoPagoWebhook handles POST /api/webhooks/mercadopago. Payment
// notifications are enriched with the payment details; everything answers
// 200 so Mercado Pago does not retry endlessly.
func (a *App) MercadoPagoWebhook(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	id := r.URL.Query().Get("id")
	if topic == "" || id == "" {
		a.fail(w, r, http.StatusBadRequest, "WEBHOOK_ERROR", "missing topic or id")
		return
	}

	log := a.Logger.With().Str("topic", topic).Str("mp_id", id).Logger()
	switch topic {
	case "payment":
		if a.MercadoPago == nil || !a.MercadoPago.Configured() {
			log.Warn().Msg("mercado pago notification received without configuration")
			break
		}
		payment, err := a.MercadoPago.Payment(r.Context(), id)
		if err != nil {
			log.Error().Err(err).Msg("mercado pago payment lookup failed")
			break
		}
		log.Info().
			Str("status", payment.Status).
			Str("status_detail", payment.StatusDetail).
			Float64("amount", payment.Amount).
			Str("currency", payment.Currency).
			Str("external_reference", payment.ExternalReference).
			Msg("mercado pago payment notification")
	case "plan", "subscription", "invoice":
		log.Info().Msg("mercado pago notification")
	default:
		log.Info().Msg("mercado pago notification with unknown topic")
	}

	a.json(w, http.StatusOK, map[string]string{"status": "received"})
}
