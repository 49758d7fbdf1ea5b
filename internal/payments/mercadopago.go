package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrMercadoPagoNotConfigured = errors.New("mercado pago is not configured")

const (
	PlanMonthly   = "MONTHLY"
	PlanEarlyBird = "EARLY_BIRD"

	mercadoPagoAPIURL = "https://api.mercadopago.com"

	mpMaxResponseBytes = 1 << 20
)

// Plan describes a purchasable subscription option.
type Plan struct {
	ID          string
	Title       string
	Description string
	Price       int
	Currency    string
}

var mercadoPagoPlans = map[string]Plan{
	PlanMonthly: {
		ID:          PlanMonthly,
		Title:       "Plan Mensual SAM",
		Description: "Acceso mensual a SAM - Evaluación con IA",
		Price:       RegularPriceCLP,
		Currency:    "CLP",
	},
	PlanEarlyBird: {
		ID:          PlanEarlyBird,
		Title:       "Plan Early Bird - SAM",
		Description: "Acceso mensual con descuento Early Bird",
		Price:       EarlyBirdPriceCLP,
		Currency:    "CLP",
	},
}

// MercadoPago creates checkout preferences and fetches payment details via
// the Mercado Pago REST API.
type MercadoPago struct {
	accessToken string
	baseURL     string
	apiURL      string
	http        *http.Client
	now         func() time.Time
}

type MercadoPagoOptions struct {
	AccessToken string
	// BaseURL is the public site URL used for the back_urls redirects.
	BaseURL    string
	APIURL     string
	HTTPClient *http.Client
	Now        func() time.Time
}

func NewMercadoPago(opts MercadoPagoOptions) *MercadoPago {
	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = mercadoPagoAPIURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MercadoPago{
		accessToken: strings.TrimSpace(opts.AccessToken),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiURL:      apiURL,
		http:        httpClient,
		now:         now,
	}
}

// Configured reports whether an access token is available.
func (m *MercadoPago) Configured() bool {
	return m.accessToken != ""
}

// Preference is the created checkout handle: the init point is the URL the
// buyer is redirected to.
type Preference struct {
	ID  string `json:"preferenceId"`
	URL string `json:"url"`
}

type preferenceItem struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Desc       string `json:"description"`
	CategoryID string `json:"category_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int    `json:"unit_price"`
	CurrencyID string `json:"currency_id"`
}

type preferenceBackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceRequest struct {
	Items             []preferenceItem   `json:"items"`
	BackURLs          preferenceBackURLs `json:"back_urls"`
	AutoReturn        string             `json:"auto_return"`
	ExternalReference string             `json:"external_reference"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// CreatePreference builds a checkout preference for the given plan. A
// MONTHLY request inside the early-bird window is silently upgraded to the
// discounted plan.
func (m *MercadoPago) CreatePreference(ctx context.Context, planType string) (*Preference, error) {
	if !m.Configured() {
		return nil, ErrMercadoPagoNotConfigured
	}
	planType = strings.ToUpper(strings.TrimSpace(planType))
	if planType == "" {
		planType = PlanMonthly
	}
	if planType == PlanMonthly && EarlyBirdActive(m.now()) {
		planType = PlanEarlyBird
	}
	plan, ok := mercadoPagoPlans[planType]
	if !ok {
		return nil, fmt.Errorf("invalid plan type %q", planType)
	}

	payload := preferenceRequest{
		Items: []preferenceItem{{
			ID:         plan.ID,
			Title:      plan.Title,
			Desc:       plan.Description,
			CategoryID: "services",
			Quantity:   1,
			UnitPrice:  plan.Price,
			CurrencyID: plan.Currency,
		}},
		BackURLs: preferenceBackURLs{
			Success: m.baseURL + "/gracias",
			Failure: m.baseURL + "/subscribe",
			Pending: m.baseURL + "/pending",
		},
		AutoReturn:        "approved",
		ExternalReference: fmt.Sprintf("sam-subscription-%d", m.now().UnixMilli()),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode preference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build preference request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", fmt.Sprintf("%s-%d", plan.ID, m.now().UnixMilli()))

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, mpMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read preference response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("create preference: status %d", resp.StatusCode)
	}

	var pref preferenceResponse
	if err := json.Unmarshal(raw, &pref); err != nil {
		return nil, fmt.Errorf("decode preference: %w", err)
	}
	if pref.InitPoint == "" {
		return nil, errors.New("preference response missing init_point")
	}
	return &Preference{ID: pref.ID, URL: pref.InitPoint}, nil
}

// Payment is the subset of a Mercado Pago payment the webhook handler acts
// on.
type Payment struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	Amount            float64 `json:"transaction_amount"`
	Currency          string  `json:"currency_id"`
	ExternalReference string  `json:"external_reference"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// Payment fetches payment details for a webhook notification id.
func (m *MercadoPago) Payment(ctx context.Context, paymentID string) (*Payment, error) {
	if !m.Configured() {
		return nil, ErrMercadoPagoNotConfigured
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, errors.New("payment id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.apiURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.accessToken)

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch payment: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, mpMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read payment response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch payment: status %d", resp.StatusCode)
	}

	var payment Payment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	return &payment, nil
}
