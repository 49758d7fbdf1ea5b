package llm

import (
	"strings"
	"time"

	"samserver/internal/domain"
)

// Scheme identifies the wire format a provider speaks. It selects both the
// request builder and the response extractor for every attempt.
type Scheme string

const (
	SchemeGemini    Scheme = "gemini"
	SchemeOpenAI    Scheme = "openai"
	SchemeAnthropic Scheme = "anthropic"
)

// Provider is a static descriptor for one LLM backend. The ordered registry
// slice defines fallback priority; model aliases are tried in listed order.
type Provider struct {
	Name    string
	Scheme  Scheme
	BaseURL string
	APIKey  string
	Models  []string
}

// Configured reports whether the provider can be attempted at all.
func (p Provider) Configured() bool {
	return strings.TrimSpace(p.APIKey) != "" && len(p.Models) > 0
}

// Budget bounds a single provider attempt. Richer tiers buy both a larger
// output window and a longer deadline.
type Budget struct {
	MaxTokens int
	Timeout   time.Duration
}

var modeBudgets = map[domain.Mode]Budget{
	domain.ModeBasic:    {MaxTokens: 1024, Timeout: 10 * time.Second},
	domain.ModeAdvanced: {MaxTokens: 2048, Timeout: 20 * time.Second},
	domain.ModePremium:  {MaxTokens: 4096, Timeout: 30 * time.Second},
}

// BudgetFor returns the attempt budget for a mode.
func BudgetFor(mode domain.Mode) Budget {
	if b, ok := modeBudgets[mode]; ok {
		return b
	}
	return modeBudgets[domain.ModeBasic]
}

// RegistryOptions carries everything the registry needs, resolved once at
// process start. Keys maps provider name to API key; providers without a key
// are kept in the table but never attempted.
type RegistryOptions struct {
	Keys              map[string]string
	GeminiBaseURL     string
	OpenAIBaseURL     string
	DeepSeekBaseURL   string
	AnthropicBaseURL  string
	PerplexityBaseURL string
}

// Registry holds the prioritized provider table.
type Registry struct {
	providers []Provider
}

// NewRegistry builds the static provider table. Order is fallback priority:
// cheapest and historically most available first.
func NewRegistry(opts RegistryOptions) *Registry {
	key := func(name string) string {
		if opts.Keys == nil {
			return ""
		}
		return strings.TrimSpace(opts.Keys[name])
	}
	base := func(v, fallback string) string {
		if strings.TrimSpace(v) != "" {
			return strings.TrimRight(v, "/")
		}
		return fallback
	}
	return &Registry{providers: []Provider{
		{
			Name:    "gemini",
			Scheme:  SchemeGemini,
			BaseURL: base(opts.GeminiBaseURL, "https://generativelanguage.googleapis.com/v1"),
			APIKey:  key("gemini"),
			Models:  []string{"gemini-1.5-flash", "gemini-1.5-flash-8b"},
		},
		{
			Name:    "openai",
			Scheme:  SchemeOpenAI,
			BaseURL: base(opts.OpenAIBaseURL, "https://api.openai.com/v1"),
			APIKey:  key("openai"),
			Models:  []string{"gpt-4o-mini"},
		},
		{
			Name:    "deepseek",
			Scheme:  SchemeOpenAI,
			BaseURL: base(opts.DeepSeekBaseURL, "https://api.deepseek.com/v1"),
			APIKey:  key("deepseek"),
			Models:  []string{"deepseek-chat"},
		},
		{
			Name:    "anthropic",
			Scheme:  SchemeAnthropic,
			BaseURL: base(opts.AnthropicBaseURL, "https://api.anthropic.com"),
			APIKey:  key("anthropic"),
			Models:  []string{"claude-3-5-haiku-latest"},
		},
		{
			Name:    "perplexity",
			Scheme:  SchemeOpenAI,
			BaseURL: base(opts.PerplexityBaseURL, "https://api.perplexity.ai"),
			APIKey:  key("perplexity"),
			Models:  []string{"sonar"},
		},
	}}
}

// Eligible returns the providers that have a resolvable API key, in priority
// order. Health re-evaluation across requests is intentionally absent.
func (r *Registry) Eligible() []Provider {
	var out []Provider
	for _, p := range r.providers {
		if p.Configured() {
			out = append(out, p)
		}
	}
	return out
}

// ConfiguredNames lists eligible provider names, for health reporting.
func (r *Registry) ConfiguredNames() []string {
	var names []string
	for _, p := range r.Eligible() {
		names = append(names, p.Name)
	}
	return names
}
