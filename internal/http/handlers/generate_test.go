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

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samserver/internal/domain"
	"samserver/internal/generation"
	"samserver/internal/infra"
	"samserver/internal/middleware"
)

const testSecret = "handler-test-secret"

type recordingSQL struct {
	execs [][]any
}

func (s *recordingSQL) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, args)
	return pgconn.CommandTag{}, nil
}

func (s *recordingSQL) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (s *recordingSQL) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubOrchestrator struct {
	outcome *generation.Outcome
	err     error
	gotReq  domain.GenerationRequest
}

func (s *stubOrchestrator) Generate(_ context.Context, req domain.GenerationRequest) (*generation.Outcome, error) {
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	out := *s.outcome
	out.RequestID = req.RequestID
	return &out, nil
}

type stubMaterials struct {
	items []domain.Material
	err   error
}

func (s *stubMaterials) ListRecent(context.Context, string) ([]domain.Material, error) {
	return s.items, s.err
}

type stubFeatures struct {
	enabled bool
	err     error
}

func (s *stubFeatures) Enabled(context.Context, string, string) (bool, error) {
	return s.enabled, s.err
}

func testApp(t *testing.T) (*App, *stubOrchestrator, *recordingSQL) {
	t.Helper()
	orch := &stubOrchestrator{outcome: &generation.Outcome{
		Material:         "una guía de ejercicios",
		Provider:         "gemini",
		Model:            "gemini-1.5-flash",
		LLMUsed:          true,
		Latency:          250 * time.Millisecond,
		CreditsRemaining: 9,
	}}
	sql := &recordingSQL{}
	app := &App{
		SQL:          sql,
		Logger:       zerolog.Nop(),
		Config:       &infra.Config{JWTSecret: testSecret, AppEnv: "test"},
		Orchestrator: orch,
		Materials:    &stubMaterials{},
		Entitlements: &stubFeatures{enabled: true},
	}
	return app, orch, sql
}

func bearerToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := middleware.SignJWT(testSecret, middleware.TokenClaims{Sub: sub})
	require.NoError(t, err)
	return "Bearer " + token
}

// serve routes the request through the request-id middleware the way the
// router does, so handlers see a correlation id.
func serve(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	middleware.RequestID(handler).ServeHTTP(rec, req)
	return rec
}

func generateReq(t *testing.T, body string, authed bool) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	if authed {
		req.Header.Set("Authorization", bearerToken(t, "user-1"))
	}
	return req
}

func TestGenerateSuccess(t *testing.T) {
	app, orch, sql := testApp(t)

	rec := serve(app.Generate, generateReq(t, `{"prompt":"plan de clase","mode":"basic"}`, true))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp generateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "una guía de ejercicios", resp.Material)
	assert.Equal(t, 9, resp.CreditsRemaining)
	assert.Equal(t, "basic", resp.Mode)
	assert.True(t, resp.LLMUsed)
	assert.Equal(t, "gemini", resp.Provider)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), resp.RequestID)

	assert.Equal(t, "user-1", orch.gotReq.UserID)
	require.Len(t, sql.execs, 1, "one usage event per request")
}

func TestGenerateDefaultsToBasicMode(t *testing.T) {
	app, orch, _ := testApp(t)

	rec := serve(app.Generate, generateReq(t, `{"prompt":"plan de clase"}`, true))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ModeBasic, orch.gotReq.Mode)
}

func TestGenerateStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"feature disabled", domain.ErrFeatureDisabled, http.StatusForbidden, "FEATURE_NOT_ENABLED"},
		{"insufficient credits", domain.ErrInsufficientCredits, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS"},
		{"ledger unavailable", domain.ErrLedgerUnavailable, http.StatusInternalServerError, "CREDIT_ERROR"},
		{"empty prompt", domain.ErrEmptyPrompt, http.StatusBadRequest, "EMPTY_PROMPT"},
		{"unknown failure", errors.New("boom"), http.StatusInternalServerError, "SERVER_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, orch, _ := testApp(t)
			orch.err = tc.err

			rec := serve(app.Generate, generateReq(t, `{"prompt":"x"}`, true))

			assert.Equal(t, tc.wantStatus, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestGenerateInvalidModeRejectedBeforeOrchestration(t *testing.T) {
	app, orch, sql := testApp(t)

	rec := serve(app.Generate, generateReq(t, `{"prompt":"x","mode":"ultra"}`, true))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_MODE", body.Code)
	assert.Empty(t, orch.gotReq.UserID, "orchestrator must not run for an invalid mode")
	assert.Empty(t, sql.execs)
}

func TestGenerateNoSession(t *testing.T) {
	app, _, _ := testApp(t)

	rec := serve(app.Generate, generateReq(t, `{"prompt":"x"}`, false))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NO_SESSION", body.Code)
}

func TestGenerateInvalidToken(t *testing.T) {
	app, _, _ := testApp(t)
	req := generateReq(t, `{"prompt":"x"}`, false)
	req.Header.Set("Authorization", "Bearer not-a-token")

	rec := serve(app.Generate, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_TOKEN", body.Code)
}

func TestHistoryReturnsStoredOrder(t *testing.T) {
	app, _, _ := testApp(t)
	now := time.Now()
	app.Materials = &stubMaterials{items: []domain.Material{
		{ID: "mat-2", Prompt: "p2", Material: "m2", Mode: domain.ModeAdvanced, CreatedAt: now},
		{ID: "mat-1", Prompt: "p1", Material: "m1", Mode: domain.ModeBasic, CreatedAt: now.Add(-time.Hour)},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/generate/history", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := serve(app.History, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Materials, 2)
	assert.Equal(t, "mat-2", resp.Materials[0].ID)
	assert.Equal(t, "advanced", resp.Materials[0].Mode)
}

func TestHistoryRequiresSession(t *testing.T) {
	app, _, _ := testApp(t)

	rec := serve(app.History, httptest.NewRequest(http.MethodGet, "/api/generate/history", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryStoreFailure(t *testing.T) {
	app, _, _ := testApp(t)
	app.Materials = &stubMaterials{err: errors.New("connection refused")}

	req := httptest.NewRequest(http.MethodGet, "/api/generate/history", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := serve(app.History, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func featureRequest(t *testing.T, feature string, authed bool) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/features/"+feature, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("feature", feature)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	if authed {
		req.Header.Set("Authorization", bearerToken(t, "user-1"))
	}
	return req
}

func TestFeatureEnabled(t *testing.T) {
	app, _, _ := testApp(t)

	rec := serve(app.Feature, featureRequest(t, "generador", true))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp featureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Enabled)
}

func TestFeatureCheckFailureIs500(t *testing.T) {
	app, _, _ := testApp(t)
	app.Entitlements = &stubFeatures{err: errors.New("connection refused")}

	rec := serve(app.Feature, featureRequest(t, "generador", true))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFeatureRequiresSession(t *testing.T) {
	app, _, _ := testApp(t)

	rec := serve(app.Feature, featureRequest(t, "generador", false))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
