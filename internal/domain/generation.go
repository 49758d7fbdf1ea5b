package domain

import (
	"strings"
	"time"
)

// Mode selects the generation tier. The tier determines the credit cost and
// the per-attempt token/timeout budget given to providers.
type Mode string

const (
	ModeBasic    Mode = "basic"
	ModeAdvanced Mode = "advanced"
	ModePremium  Mode = "premium"
)

// creditCosts is the authoritative mode → cost table.
var creditCosts = map[Mode]int{
	ModeBasic:    1,
	ModeAdvanced: 2,
	ModePremium:  3,
}

// ParseMode validates a client-supplied mode string. An empty string defaults
// to basic; anything unrecognized is rejected before any side effect.
func ParseMode(raw string) (Mode, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ModeBasic, nil
	}
	mode := Mode(raw)
	if _, ok := creditCosts[mode]; !ok {
		return "", ErrInvalidMode
	}
	return mode, nil
}

// Cost returns the credit cost of the mode.
func (m Mode) Cost() int {
	return creditCosts[m]
}

// GenerationRequest is the transient value object consumed by a single
// orchestration pass. It is never persisted; only its result is.
type GenerationRequest struct {
	RequestID string
	UserID    string
	Prompt    string
	Mode      Mode
	Locale    string
	Country   string
}

// GenerationResult is what the provider fallback loop produces. LLMUsed is
// false when the material is the deterministic fallback stub.
type GenerationResult struct {
	Material string
	Provider string
	Model    string
	LLMUsed  bool
	Latency  time.Duration
}

// Material is the persisted record of a generation, append-only per user.
type Material struct {
	ID        string
	UserID    string
	RequestID string
	Prompt    string
	Material  string
	Mode      Mode
	Provider  string
	LLMUsed   bool
	LatencyMS int64
	CreatedAt time.Time
}
