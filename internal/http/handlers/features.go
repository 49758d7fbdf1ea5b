package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type featureResponse struct {
	Enabled bool `json:"enabled"`
}

// Feature handles GET /api/features/{feature}. A user-level override wins
// over the global flag; a feature nobody flagged is disabled.
func (a *App) Feature(w http.ResponseWriter, r *http.Request) {
	claims, ok := a.session(w, r)
	if !ok {
		return
	}

	feature := strings.TrimSpace(chi.URLParam(r, "feature"))
	if feature == "" {
		a.fail(w, r, http.StatusBadRequest, "INVALID_FEATURE", "feature name is required")
		return
	}

	enabled, err := a.Entitlements.Enabled(r.Context(), claims.Sub, feature)
	if err != nil {
		a.Logger.Error().Err(err).Str("feature", feature).Msg("feature check failed")
		a.fail(w, r, http.StatusInternalServerError, "SERVER_ERROR", "could not resolve feature flag")
		return
	}
	a.json(w, http.StatusOK, featureResponse{Enabled: enabled})
}
