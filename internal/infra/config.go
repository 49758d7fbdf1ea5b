package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
// Provider API keys are resolved once here; nothing downstream reads the
// process environment at call time.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string
	BaseURL     string

	AllowedOrigins []string
	GeoIPDBPath    string
	DefaultLocale  string

	GenerationFeature     string
	CreditDefaultBalance  int
	CreditRefundOnFailure bool
	MonthlyCreditGrant    int

	ProviderKeys      map[string]string
	GeminiBaseURL     string
	OpenAIBaseURL     string
	DeepSeekBaseURL   string
	AnthropicBaseURL  string
	PerplexityBaseURL string

	StripeSecretKey        string
	StripeWebhookSecret    string
	StripeEarlyBirdPriceID string
	MercadoPagoAccessToken string
	MercadoPagoBaseURL     string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// llmKeyAliases maps a provider name to the environment variables that may
// carry its API key, in lookup order. The alias spread mirrors the different
// deployment environments the app has lived in.
var llmKeyAliases = map[string][]string{
	"gemini":     {"LLM_API_KEY_GEMINI", "GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"openai":     {"LLM_API_KEY_OPENAI", "OPENAI_API_KEY"},
	"deepseek":   {"LLM_API_KEY_DEEPSEEK", "DEEPSEEK_API_KEY"},
	"anthropic":  {"LLM_API_KEY_ANTHROPIC", "ANTHROPIC_API_KEY"},
	"perplexity": {"LLM_API_KEY_PERPLEXITY", "PERPLEXITY_API_KEY"},
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:  getEnv("DEFAULT_LOCALE", "es"),

		GenerationFeature:     getEnv("GENERATION_FEATURE", "generador"),
		CreditDefaultBalance:  getEnvInt("CREDIT_DEFAULT_BALANCE", 10),
		CreditRefundOnFailure: getEnvBool("CREDIT_REFUND_ON_FAILURE", false),
		MonthlyCreditGrant:    getEnvInt("MONTHLY_CREDIT_GRANT", 200),

		ProviderKeys:      resolveProviderKeys(),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		DeepSeekBaseURL:   getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		AnthropicBaseURL:  getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		PerplexityBaseURL: getEnv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),

		StripeSecretKey:        os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:    os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeEarlyBirdPriceID: os.Getenv("STRIPE_EARLY_BIRD_PRICE_ID"),
		MercadoPagoAccessToken: os.Getenv("MERCADO_PAGO_ACCESS_TOKEN"),
		MercadoPagoBaseURL:     getEnv("MERCADO_PAGO_BASE_URL", "https://api.mercadopago.com"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// ProviderKey returns the resolved API key for a provider, or "" when none of
// its aliases were set.
func (c *Config) ProviderKey(provider string) string {
	if c == nil || c.ProviderKeys == nil {
		return ""
	}
	return c.ProviderKeys[provider]
}

func resolveProviderKeys() map[string]string {
	keys := make(map[string]string, len(llmKeyAliases))
	for provider, aliases := range llmKeyAliases {
		for _, alias := range aliases {
			if v := strings.TrimSpace(os.Getenv(alias)); v != "" {
				keys[provider] = v
				break
			}
		}
	}
	return keys
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
