package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"samserver/internal/domain"
	"samserver/internal/middleware"
	"samserver/internal/sqlinline"
)

type generateRequest struct {
	Prompt string `json:"prompt"`
	Mode   string `json:"mode"`
}

type generateResponse struct {
	Material         string `json:"material"`
	CreditsRemaining int    `json:"creditsRemaining"`
	Mode             string `json:"mode"`
	RequestID        string `json:"requestId"`
	LLMUsed          bool   `json:"llmUsed"`
	LatencyMS        int64  `json:"latency_ms"`
	Provider         string `json:"provider,omitempty"`
	Refunded         bool   `json:"refunded,omitempty"`
}

// Generate handles POST /api/generate.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	claims, ok := a.session(w, r)
	if !ok {
		return
	}

	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.fail(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}
	mode, err := domain.ParseMode(body.Mode)
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, "INVALID_MODE", "mode must be basic, advanced or premium")
		return
	}

	ctx := r.Context()
	req := domain.GenerationRequest{
		RequestID: middleware.RequestIDFromContext(ctx),
		UserID:    claims.Sub,
		Prompt:    body.Prompt,
		Mode:      mode,
		Locale:    middleware.LocaleFromContext(ctx),
		Country:   middleware.CountryFromContext(ctx),
	}

	outcome, err := a.Orchestrator.Generate(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyPrompt):
			a.fail(w, r, http.StatusBadRequest, "EMPTY_PROMPT", "prompt is required")
		case errors.Is(err, domain.ErrInvalidMode):
			a.fail(w, r, http.StatusBadRequest, "INVALID_MODE", "mode must be basic, advanced or premium")
		case errors.Is(err, domain.ErrNoSession):
			a.fail(w, r, http.StatusUnauthorized, "NO_SESSION", "authentication required")
		case errors.Is(err, domain.ErrFeatureDisabled):
			a.fail(w, r, http.StatusForbidden, "FEATURE_NOT_ENABLED", "the generation feature is not enabled for this account")
		case errors.Is(err, domain.ErrInsufficientCredits):
			a.fail(w, r, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS", "not enough credits for this mode")
		case errors.Is(err, domain.ErrLedgerUnavailable):
			a.fail(w, r, http.StatusInternalServerError, "CREDIT_ERROR", "credit ledger unavailable")
		default:
			a.fail(w, r, http.StatusInternalServerError, "SERVER_ERROR", "generation failed")
		}
		a.recordUsage(r, req, false, 0)
		return
	}

	a.recordUsage(r, req, outcome.LLMUsed, outcome.Latency)
	a.json(w, http.StatusOK, generateResponse{
		Material:         outcome.Material,
		CreditsRemaining: outcome.CreditsRemaining,
		Mode:             string(mode),
		RequestID:        req.RequestID,
		LLMUsed:          outcome.LLMUsed,
		LatencyMS:        outcome.Latency.Milliseconds(),
		Provider:         outcome.Provider,
		Refunded:         outcome.Refunded,
	})
}

// recordUsage appends to the usage audit trail. Failures are logged only;
// they never affect the response.
func (a *App) recordUsage(r *http.Request, req domain.GenerationRequest, success bool, latency time.Duration) {
	if req.UserID == "" {
		return
	}
	props, _ := json.Marshal(map[string]string{
		"mode":    string(req.Mode),
		"locale":  req.Locale,
		"country": req.Country,
	})
	_, err := a.SQL.Exec(r.Context(), sqlinline.QInsertUsageEvent,
		req.UserID, req.RequestID, "generate", success, latency.Milliseconds(), props)
	if err != nil {
		a.Logger.Error().Err(err).Str("request_id", req.RequestID).Msg("usage event insert failed")
	}
}

type historyMaterial struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Material  string    `json:"material"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	OK        bool              `json:"ok"`
	Materials []historyMaterial `json:"materials"`
	Count     int               `json:"count"`
}

// History handles GET /api/generate/history.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := a.session(w, r)
	if !ok {
		return
	}

	items, err := a.Materials.ListRecent(r.Context(), claims.Sub)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", claims.Sub).Msg("history lookup failed")
		a.fail(w, r, http.StatusInternalServerError, "SERVER_ERROR", "could not load history")
		return
	}

	materials := make([]historyMaterial, 0, len(items))
	for _, m := range items {
		materials = append(materials, historyMaterial{
			ID:        m.ID,
			Prompt:    m.Prompt,
			Material:  m.Material,
			Mode:      string(m.Mode),
			CreatedAt: m.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, historyResponse{OK: true, Materials: materials, Count: len(materials)})
}
