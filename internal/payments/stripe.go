package payments

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
)

var ErrStripeNotConfigured = errors.New("stripe is not configured")

// StripeCheckout creates subscription checkout sessions and verifies webhook
// signatures. During the early-bird window the discounted price id replaces
// whatever the client asked for.
type StripeCheckout struct {
	client           *client.API
	webhookSecret    string
	baseURL          string
	earlyBirdPriceID string
	now              func() time.Time
}

type StripeOptions struct {
	SecretKey        string
	WebhookSecret    string
	BaseURL          string
	EarlyBirdPriceID string
	Now              func() time.Time
}

func NewStripeCheckout(opts StripeOptions) (*StripeCheckout, error) {
	if strings.TrimSpace(opts.SecretKey) == "" {
		return nil, ErrStripeNotConfigured
	}
	api := &client.API{}
	api.Init(opts.SecretKey, nil)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &StripeCheckout{
		client:           api,
		webhookSecret:    opts.WebhookSecret,
		baseURL:          strings.TrimRight(opts.BaseURL, "/"),
		earlyBirdPriceID: strings.TrimSpace(opts.EarlyBirdPriceID),
		now:              now,
	}, nil
}

// CreateSession starts a subscription checkout for the given price and
// returns the hosted checkout URL. The user id rides along as the client
// reference so the webhook can credit the right account.
func (s *StripeCheckout) CreateSession(priceID, userID string) (string, error) {
	priceID = strings.TrimSpace(priceID)
	if s.earlyBirdPriceID != "" && EarlyBirdActive(s.now()) {
		priceID = s.earlyBirdPriceID
	}
	if priceID == "" {
		return "", errors.New("price id is required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.baseURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.baseURL + "/cancel"),
	}
	if userID = strings.TrimSpace(userID); userID != "" {
		params.ClientReferenceID = stripe.String(userID)
	}
	session, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe checkout: %w", err)
	}
	return session.URL, nil
}

// VerifyWebhook checks the Stripe-Signature header against the raw payload
// and returns the decoded event.
func (s *StripeCheckout) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, ErrStripeNotConfigured
	}
	return webhook.ConstructEvent(payload, signature, s.webhookSecret)
}
