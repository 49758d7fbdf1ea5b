package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"samserver/internal/credit"
	"samserver/internal/domain"
)

// Ledger is the credit side of the flow. Debit must be atomic with respect to
// concurrent debits for the same user; that guarantee lives in the store.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount int) (credit.DebitResult, error)
	Refund(ctx context.Context, userID string, amount int) (int, error)
}

// Entitlements gates access to the generation feature.
type Entitlements interface {
	Enabled(ctx context.Context, userID, feature string) (bool, error)
}

// Generator produces material. Implementations absorb provider failures and
// signal them through LLMUsed=false instead of an error.
type Generator interface {
	Generate(ctx context.Context, prompt string, mode domain.Mode) domain.GenerationResult
}

// Materials is the append-only log of generated artifacts.
type Materials interface {
	Insert(ctx context.Context, m domain.Material) (string, error)
}

// Outcome is the result of a completed orchestration pass. It only exists for
// requests that got past the credit debit; everything earlier surfaces as a
// typed error.
type Outcome struct {
	RequestID        string
	Material         string
	Provider         string
	Model            string
	LLMUsed          bool
	Latency          time.Duration
	CreditsRemaining int
	Refunded         bool
}

// Orchestrator sequences entitlement check → atomic debit → provider fallback
// → best-effort persistence. Credits spent before a failed generation are not
// returned unless RefundOnFailure is set; the service otherwise absorbs
// provider-side failures and answers with the fallback stub.
type Orchestrator struct {
	ledger       Ledger
	entitlements Entitlements
	generator    Generator
	materials    Materials
	logger       zerolog.Logger

	feature         string
	refundOnFailure bool
}

type Options struct {
	Ledger          Ledger
	Entitlements    Entitlements
	Generator       Generator
	Materials       Materials
	Logger          zerolog.Logger
	Feature         string
	RefundOnFailure bool
}

func NewOrchestrator(opts Options) *Orchestrator {
	feature := strings.TrimSpace(opts.Feature)
	if feature == "" {
		feature = "generador"
	}
	return &Orchestrator{
		ledger:          opts.Ledger,
		entitlements:    opts.Entitlements,
		generator:       opts.Generator,
		materials:       opts.Materials,
		logger:          opts.Logger,
		feature:         feature,
		refundOnFailure: opts.RefundOnFailure,
	}
}

// Generate runs one orchestration pass. Typed errors map failure points:
// ErrEmptyPrompt/ErrInvalidMode before any side effect, ErrFeatureDisabled
// before any debit, ErrInsufficientCredits/ErrLedgerUnavailable with the
// balance untouched or exactly restored.
func (o *Orchestrator) Generate(ctx context.Context, req domain.GenerationRequest) (*Outcome, error) {
	log := o.logger.With().
		Str("request_id", req.RequestID).
		Str("user_id", req.UserID).
		Str("mode", string(req.Mode)).
		Logger()

	if strings.TrimSpace(req.UserID) == "" {
		return nil, domain.ErrNoSession
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrEmptyPrompt
	}
	cost := req.Mode.Cost()
	if cost <= 0 {
		return nil, domain.ErrInvalidMode
	}
	log.Debug().Msg("generation received")

	enabled, err := o.entitlements.Enabled(ctx, req.UserID, o.feature)
	if err != nil {
		// Fail closed: an unanswerable check must never read as enabled.
		log.Error().Err(err).Str("feature", o.feature).Msg("entitlement check failed")
		return nil, fmt.Errorf("%w: check failed", domain.ErrFeatureDisabled)
	}
	if !enabled {
		log.Info().Str("feature", o.feature).Msg("generation rejected: feature not enabled")
		return nil, domain.ErrFeatureDisabled
	}
	log.Debug().Msg("generation entitled")

	debit, err := o.ledger.Debit(ctx, req.UserID, cost)
	if err != nil {
		log.Error().Err(err).Int("cost", cost).Msg("credit debit failed")
		return nil, err
	}
	if !debit.Success {
		log.Info().Int("cost", cost).Int("balance", debit.NewBalance).Msg("generation rejected: insufficient credits")
		return nil, domain.ErrInsufficientCredits
	}
	log.Info().Int("cost", cost).Int("balance", debit.NewBalance).Msg("credits debited")

	result := o.generator.Generate(ctx, req.Prompt, req.Mode)
	log.Info().
		Bool("llm_used", result.LLMUsed).
		Str("provider", result.Provider).
		Dur("latency", result.Latency).
		Msg("generation finished")

	outcome := &Outcome{
		RequestID:        req.RequestID,
		Material:         result.Material,
		Provider:         result.Provider,
		Model:            result.Model,
		LLMUsed:          result.LLMUsed,
		Latency:          result.Latency,
		CreditsRemaining: debit.NewBalance,
	}

	if !result.LLMUsed && o.refundOnFailure {
		balance, refundErr := o.ledger.Refund(ctx, req.UserID, cost)
		if refundErr != nil {
			log.Error().Err(refundErr).Int("cost", cost).Msg("refund after total failure did not apply")
		} else {
			outcome.CreditsRemaining = balance
			outcome.Refunded = true
			log.Info().Int("cost", cost).Int("balance", balance).Msg("credits refunded after total failure")
		}
	}

	if _, persistErr := o.materials.Insert(ctx, domain.Material{
		UserID:    req.UserID,
		RequestID: req.RequestID,
		Prompt:    req.Prompt,
		Material:  result.Material,
		Mode:      req.Mode,
		Provider:  result.Provider,
		LLMUsed:   result.LLMUsed,
		LatencyMS: result.Latency.Milliseconds(),
	}); persistErr != nil {
		// Audit-log failures never fail an already-paid request.
		log.Error().Err(persistErr).Msg("material persistence failed")
	} else {
		log.Debug().Msg("material persisted")
	}

	return outcome, nil
}
