package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samserver/internal/payments"
)

type stubStripe struct {
	url        string
	createErr  error
	gotPrice   string
	gotUser    string
	event      stripe.Event
	verifyErr  error
	gotPayload []byte
}

func (s *stubStripe) CreateSession(priceID, userID string) (string, error) {
	s.gotPrice = priceID
	s.gotUser = userID
	return s.url, s.createErr
}

func (s *stubStripe) VerifyWebhook(payload []byte, _ string) (stripe.Event, error) {
	s.gotPayload = payload
	return s.event, s.verifyErr
}

type stubMercadoPago struct {
	configured bool
	pref       *payments.Preference
	prefErr    error
	payment    *payments.Payment
	paymentErr error
	gotPlan    string
	gotPayID   string
}

func (s *stubMercadoPago) Configured() bool { return s.configured }

func (s *stubMercadoPago) CreatePreference(_ context.Context, planType string) (*payments.Preference, error) {
	s.gotPlan = planType
	return s.pref, s.prefErr
}

func (s *stubMercadoPago) Payment(_ context.Context, id string) (*payments.Payment, error) {
	s.gotPayID = id
	return s.payment, s.paymentErr
}

type stubGranter struct {
	balance  int
	err      error
	gotUser  string
	gotGrant int
}

func (s *stubGranter) Grant(_ context.Context, userID string, amount int) (int, error) {
	s.gotUser = userID
	s.gotGrant = amount
	if s.err != nil {
		return 0, s.err
	}
	s.balance += amount
	return s.balance, nil
}

func TestCheckoutCreatesSession(t *testing.T) {
	app, _, _ := testApp(t)
	gw := &stubStripe{url: "https://checkout.stripe.com/s/123"}
	app.Stripe = gw

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"priceId":"price_basic"}`))
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := serve(app.Checkout, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.stripe.com/s/123", resp.URL)
	assert.Equal(t, "price_basic", gw.gotPrice)
	assert.Equal(t, "user-1", gw.gotUser)
}

func TestCheckoutWithoutStripe(t *testing.T) {
	app, _, _ := testApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := serve(app.Checkout, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PAYMENTS_UNAVAILABLE", body.Code)
}

func TestCheckoutRequiresSession(t *testing.T) {
	app, _, _ := testApp(t)
	app.Stripe = &stubStripe{url: "https://checkout"}

	rec := serve(app.Checkout, httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutMercadoPago(t *testing.T) {
	app, _, _ := testApp(t)
	gw := &stubMercadoPago{
		configured: true,
		pref:       &payments.Preference{ID: "pref-1", URL: "https://mp/checkout"},
	}
	app.MercadoPago = gw

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/mercadopago", strings.NewReader(`{"planType":"MONTHLY"}`))
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := serve(app.CheckoutMercadoPago, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp payments.Preference
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pref-1", resp.ID)
	assert.Equal(t, "https://mp/checkout", resp.URL)
	assert.Equal(t, "MONTHLY", gw.gotPlan)
}

func TestCheckoutMercadoPagoNotConfigured(t *testing.T) {
	app, _, _ := testApp(t)
	app.MercadoPago = &stubMercadoPago{configured: false}

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/mercadopago", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := serve(app.CheckoutMercadoPago, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPricingWindow(t *testing.T) {
	app, _, _ := testApp(t)
	app.Now = func() time.Time { return payments.EarlyBirdEnd.Add(-time.Hour) }

	rec := serve(app.Pricing, httptest.NewRequest(http.MethodGet, "/api/pricing", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var pricing payments.Pricing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pricing))
	assert.Equal(t, payments.EarlyBirdPriceCLP, pricing.ActivePrice)
	assert.True(t, pricing.IsActive)

	app.Now = func() time.Time { return payments.EarlyBirdEnd.Add(time.Hour) }
	rec = serve(app.Pricing, httptest.NewRequest(http.MethodGet, "/api/pricing", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pricing))
	assert.Equal(t, payments.RegularPriceCLP, pricing.ActivePrice)
}

func stripeEvent(t *testing.T, eventType string, object map[string]any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripe.Event{
		ID:   "evt_1",
		Type: eventType,
		Data: &stripe.EventData{Object: object, Raw: raw},
	}
}

func TestStripeWebhookGrantsCredits(t *testing.T) {
	app, _, _ := testApp(t)
	app.Config.MonthlyCreditGrant = 200
	granter := &stubGranter{}
	app.Ledger = granter
	app.Stripe = &stubStripe{event: stripeEvent(t, "checkout.session.completed", map[string]any{
		"id":                  "cs_123",
		"client_reference_id": "user-1",
	})}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := serve(app.StripeWebhook, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", granter.gotUser)
	assert.Equal(t, 200, granter.gotGrant)
}

func TestStripeWebhookBadSignature(t *testing.T) {
	app, _, _ := testApp(t)
	app.Stripe = &stubStripe{verifyErr: errors.New("bad signature")}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{}`))
	rec := serve(app.StripeWebhook, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStripeWebhookGrantFailureAsksForRetry(t *testing.T) {
	app, _, _ := testApp(t)
	app.Config.MonthlyCreditGrant = 200
	app.Ledger = &stubGranter{err: errors.New("ledger down")}
	app.Stripe = &stubStripe{event: stripeEvent(t, "checkout.session.completed", map[string]any{
		"client_reference_id": "user-1",
	})}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{}`))
	rec := serve(app.StripeWebhook, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStripeWebhookIgnoresOtherEvents(t *testing.T) {
	app, _, _ := testApp(t)
	granter := &stubGranter{}
	app.Ledger = granter
	app.Stripe = &stubStripe{event: stripeEvent(t, "invoice.paid", map[string]any{"id": "in_1"})}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{}`))
	rec := serve(app.StripeWebhook, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, granter.gotUser, "only completed checkouts grant credits")
}

func TestMercadoPagoWebhookFetchesPayment(t *testing.T) {
	app, _, _ := testApp(t)
	gw := &stubMercadoPago{
		configured: true,
		payment:    &payments.Payment{ID: 12345, Status: "approved"},
	}
	app.MercadoPago = gw

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago?topic=payment&id=12345", nil)
	rec := serve(app.MercadoPagoWebhook, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", gw.gotPayID)
}

func TestMercadoPagoWebhookMissingParams(t *testing.T) {
	app, _, _ := testApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago", nil)
	rec := serve(app.MercadoPagoWebhook, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMercadoPagoWebhookPaymentLookupFailureStill200(t *testing.T) {
	app, _, _ := testApp(t)
	app.MercadoPago = &stubMercadoPago{configured: true, paymentErr: errors.New("timeout")}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago?topic=payment&id=9", nil)
	rec := serve(app.MercadoPagoWebhook, req)

	assert.Equal(t, http.StatusOK, rec.Code, "mercado pago retries on non-200, intake failures are absorbed")
}
