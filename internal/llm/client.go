package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"samserver/internal/domain"
)

// FallbackMarker is present in every stub material so clients and tests can
// tell a degraded response from a genuine completion.
const FallbackMarker = "[FALLBACK]"

const maxResponseBytes = 1 << 20

// Client runs the provider fallback loop. It never returns an error to the
// caller: when every attempt fails (or nothing is configured) the result
// carries the deterministic fallback stub with LLMUsed=false.
type Client struct {
	registry *Registry
	http     *http.Client
	logger   zerolog.Logger
}

type ClientOptions struct {
	Registry   *Registry
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Per-attempt deadlines come from the request context; the transport
		// itself stays unbounded.
		httpClient = &http.Client{}
	}
	return &Client{
		registry: opts.Registry,
		http:     httpClient,
		logger:   opts.Logger,
	}
}

// Generate tries each eligible provider in priority order, each model alias in
// listed order, one attempt per alias. The whole loop runs under an umbrella
// deadline equal to the sum of the budgets of the attempts that can run.
func (c *Client) Generate(ctx context.Context, prompt string, mode domain.Mode) domain.GenerationResult {
	start := time.Now()
	budget := BudgetFor(mode)
	eligible := c.registry.Eligible()
	if len(eligible) == 0 {
		c.logger.Warn().Str("mode", string(mode)).Msg("llm: no provider configured, returning stub")
		return stubResult(prompt, mode, start)
	}

	attempts := 0
	for _, p := range eligible {
		attempts += len(p.Models)
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(attempts)*budget.Timeout)
	defer cancel()

	for _, provider := range eligible {
		for _, model := range provider.Models {
			text, err := c.attempt(ctx, provider, model, prompt, budget)
			if err != nil {
				c.logger.Warn().Err(err).
					Str("provider", provider.Name).
					Str("model", model).
					Msg("llm: attempt failed, falling through")
				continue
			}
			return domain.GenerationResult{
				Material: text,
				Provider: provider.Name,
				Model:    model,
				LLMUsed:  true,
				Latency:  time.Since(start),
			}
		}
	}

	c.logger.Error().Str("mode", string(mode)).Msg("llm: all providers exhausted, returning stub")
	return stubResult(prompt, mode, start)
}

// attempt performs one bounded call against one provider/model pair. Success
// requires a 2xx status AND non-empty extracted text.
func (c *Client) attempt(ctx context.Context, p Provider, model, prompt string, budget Budget) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, budget.Timeout)
	defer cancel()

	req, err := newAttemptRequest(attemptCtx, p, model, prompt, budget)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("http: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	ex, ok := extractors[p.Scheme]
	if !ok {
		return "", fmt.Errorf("no extractor for scheme %q", p.Scheme)
	}
	text := ex.ExtractText(body)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

func stubResult(prompt string, mode domain.Mode, start time.Time) domain.GenerationResult {
	return domain.GenerationResult{
		Material: FallbackMaterial(prompt, mode),
		LLMUsed:  false,
		Latency:  time.Since(start),
	}
}

// FallbackMaterial builds the deterministic stub returned when generation is
// impossible. The prompt excerpt keeps the response recognizably tied to the
// request.
func FallbackMaterial(prompt string, mode domain.Mode) string {
	return fmt.Sprintf(
		"%s Material de ejemplo (modo %s). Los proveedores de IA no están disponibles en este momento; intenta nuevamente más tarde.\n\nSolicitud: %s",
		FallbackMarker, mode, truncatePrompt(prompt, 50),
	)
}

func truncatePrompt(prompt string, limit int) string {
	runes := []rune(strings.TrimSpace(prompt))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}
