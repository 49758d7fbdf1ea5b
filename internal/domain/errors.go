package domain

import "errors"

var (
	ErrNoSession           = errors.New("no session")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidMode         = errors.New("invalid mode")
	ErrEmptyPrompt         = errors.New("empty prompt")
	ErrFeatureDisabled     = errors.New("feature not enabled")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrLedgerUnavailable   = errors.New("credit ledger unavailable")
)
