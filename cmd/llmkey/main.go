package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"samserver/internal/infra"
	"samserver/internal/infra/credentials"
)

// envFallbacks mirrors the key aliases the API resolves at startup, so the
// CLI can pick up the same environment a deployment already has.
var envFallbacks = map[string][]string{
	credentials.ProviderGemini:     {"LLM_API_KEY_GEMINI", "GOOGLE_API_KEY", "GEMINI_API_KEY"},
	credentials.ProviderOpenAI:     {"LLM_API_KEY_OPENAI", "OPENAI_API_KEY"},
	credentials.ProviderDeepSeek:   {"LLM_API_KEY_DEEPSEEK", "DEEPSEEK_API_KEY"},
	credentials.ProviderAnthropic:  {"LLM_API_KEY_ANTHROPIC", "ANTHROPIC_API_KEY"},
	credentials.ProviderPerplexity: {"LLM_API_KEY_PERPLEXITY", "PERPLEXITY_API_KEY"},
}

func main() {
	var (
		keyFlag      string
		providerFlag string
	)
	flag.StringVar(&keyFlag, "key", "", "API key for the selected provider (falls back to environment)")
	flag.StringVar(&providerFlag, "provider", credentials.ProviderGemini, "provider to configure (gemini, openai, deepseek, anthropic, perplexity)")
	flag.Parse()

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	if provider == "" {
		provider = credentials.ProviderGemini
	}
	if !credentials.IsKnownProvider(provider) {
		fmt.Fprintf(os.Stderr, "unsupported provider %q\n", providerFlag)
		os.Exit(1)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		for _, env := range envFallbacks[provider] {
			if v := strings.TrimSpace(os.Getenv(env)); v != "" {
				key = v
				break
			}
		}
	}
	if key == "" {
		fmt.Fprintf(os.Stderr, "%s API key is required via -key or environment\n", strings.ToUpper(provider))
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "llmkey").Str("provider", provider).Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()
	if err := store.SetToken(ctxExec, provider, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist %s api key: %v\n", provider, err)
		os.Exit(1)
	}

	fmt.Printf("%s API key stored successfully\n", strings.ToUpper(provider))
}
