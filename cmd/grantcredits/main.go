package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"samserver/internal/credit"
	"samserver/internal/infra"
)

func main() {
	var (
		idFlag     string
		amountFlag int
	)

	flag.StringVar(&idFlag, "id", "", "user ID to credit (UUID)")
	flag.IntVar(&amountFlag, "amount", 200, "credits to add")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	if userID == "" {
		exitWithError(errors.New("-id is required"))
	}
	if _, err := uuid.Parse(userID); err != nil {
		exitWithError(fmt.Errorf("invalid user id %q: %w", userID, err))
	}
	if amountFlag <= 0 {
		exitWithError(errors.New("-amount must be positive"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "grantcredits").Logger()
	ledger := credit.NewLedger(infra.NewSQLRunner(pool, logger), 0)

	grantCtx, cancelGrant := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelGrant()
	balance, err := ledger.Grant(grantCtx, userID, amountFlag)
	if err != nil {
		exitWithError(fmt.Errorf("failed to grant credits: %w", err))
	}

	fmt.Printf("User %s credited with %d, balance is now %d\n", userID, amountFlag, balance)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
