package credit

import (
	"context"
	"fmt"

	"samserver/internal/domain"
	"samserver/internal/infra"
	"samserver/internal/sqlinline"
)

// DebitResult reports the outcome of an attempted debit. Success=false with a
// nil error means the balance was insufficient; the balance is untouched.
type DebitResult struct {
	Success    bool
	NewBalance int
}

// Ledger manages per-user credit balances. The balance is only ever mutated
// through single-statement conditional updates; the ledger never does a
// read-then-write from application code.
type Ledger struct {
	sql            infra.SQLExecutor
	defaultBalance int
}

func NewLedger(sql infra.SQLExecutor, defaultBalance int) *Ledger {
	if defaultBalance < 0 {
		defaultBalance = 0
	}
	return &Ledger{sql: sql, defaultBalance: defaultBalance}
}

// Debit atomically charges amount credits. The balance row is created lazily
// with the default allowance on a user's first debit.
func (l *Ledger) Debit(ctx context.Context, userID string, amount int) (DebitResult, error) {
	if amount <= 0 {
		return DebitResult{}, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	if _, err := l.sql.Exec(ctx, sqlinline.QEnsureCreditBalance, userID, l.defaultBalance); err != nil {
		return DebitResult{}, fmt.Errorf("%w: ensure balance: %v", domain.ErrLedgerUnavailable, err)
	}
	var res DebitResult
	row := l.sql.QueryRow(ctx, sqlinline.QDebitCredits, userID, amount)
	if err := row.Scan(&res.Success, &res.NewBalance); err != nil {
		return DebitResult{}, fmt.Errorf("%w: debit: %v", domain.ErrLedgerUnavailable, err)
	}
	return res, nil
}

// Refund returns amount credits to the user. Used only when the service is
// configured to refund total generation failures.
func (l *Ledger) Refund(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("refund amount must be positive, got %d", amount)
	}
	var balance int
	row := l.sql.QueryRow(ctx, sqlinline.QRefundCredits, userID, amount)
	if err := row.Scan(&balance); err != nil {
		return 0, fmt.Errorf("%w: refund: %v", domain.ErrLedgerUnavailable, err)
	}
	return balance, nil
}

// Grant adds credits to the user's balance, creating the row if needed.
// Billing events (webhooks, operator CLI) are the only callers.
func (l *Ledger) Grant(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant amount must be positive, got %d", amount)
	}
	var balance int
	row := l.sql.QueryRow(ctx, sqlinline.QGrantCredits, userID, amount)
	if err := row.Scan(&balance); err != nil {
		return 0, fmt.Errorf("%w: grant: %v", domain.ErrLedgerUnavailable, err)
	}
	return balance, nil
}

// Balance returns the user's current balance. A missing row reads as the
// default allowance the row would be created with.
func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	row := l.sql.QueryRow(ctx, sqlinline.QSelectCreditBalance, userID)
	if err := row.Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return l.defaultBalance, nil
		}
		return 0, fmt.Errorf("%w: balance: %v", domain.ErrLedgerUnavailable, err)
	}
	return balance, nil
}
