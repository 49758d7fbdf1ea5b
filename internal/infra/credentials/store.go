package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"samserver/internal/infra"
	"samserver/internal/sqlinline"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderDeepSeek   = "deepseek"
	ProviderAnthropic  = "anthropic"
	ProviderPerplexity = "perplexity"
)

// KnownProviders lists the providers a token may be stored for, in the same
// order the generation fallback chain consults them.
var KnownProviders = []string{
	ProviderGemini,
	ProviderOpenAI,
	ProviderDeepSeek,
	ProviderAnthropic,
	ProviderPerplexity,
}

// Store keeps provider API keys in the database. Environment keys take
// precedence at startup; stored keys cover providers the environment omits.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored key for the provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetToken stores or replaces the key for a known provider.
func (s *Store) SetToken(ctx context.Context, provider, key string) error {
	provider = strings.TrimSpace(strings.ToLower(provider))
	if !IsKnownProvider(provider) {
		return fmt.Errorf("unsupported provider %q", provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is required")
	}
	return s.upsert(ctx, provider, key, nil)
}

// Tokens loads every stored key, keyed by provider. Providers without a
// stored key are absent from the map.
func (s *Store) Tokens(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(KnownProviders))
	for _, provider := range KnownProviders {
		token, err := s.Token(ctx, provider)
		if err != nil {
			return nil, fmt.Errorf("load %s token: %w", provider, err)
		}
		if token != "" {
			out[provider] = token
		}
	}
	return out, nil
}

func IsKnownProvider(provider string) bool {
	for _, known := range KnownProviders {
		if provider == known {
			return true
		}
	}
	return false
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
