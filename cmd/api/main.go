package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"samserver/internal/credit"
	"samserver/internal/entitlement"
	"samserver/internal/generation"
	"samserver/internal/http/handlers"
	httpapi "samserver/internal/http/httpapi"
	"samserver/internal/infra"
	"samserver/internal/infra/credentials"
	"samserver/internal/infra/geoip"
	"samserver/internal/llm"
	"samserver/internal/material"
	"samserver/internal/middleware"
	"samserver/internal/payments"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	// Stored keys cover providers the environment did not configure.
	keyStore := credentials.NewStore(runner)
	if stored, err := keyStore.Tokens(ctx); err != nil {
		logger.Warn().Err(err).Msg("stored provider keys unavailable")
	} else {
		for provider, key := range stored {
			if cfg.ProviderKeys[provider] == "" {
				cfg.ProviderKeys[provider] = key
			}
		}
	}

	registry := llm.NewRegistry(llm.RegistryOptions{
		Keys:              cfg.ProviderKeys,
		GeminiBaseURL:     cfg.GeminiBaseURL,
		OpenAIBaseURL:     cfg.OpenAIBaseURL,
		DeepSeekBaseURL:   cfg.DeepSeekBaseURL,
		AnthropicBaseURL:  cfg.AnthropicBaseURL,
		PerplexityBaseURL: cfg.PerplexityBaseURL,
	})
	generator := llm.NewClient(llm.ClientOptions{
		Registry: registry,
		Logger:   logger.With().Str("component", "llm").Logger(),
	})
	logger.Info().Strs("providers", registry.ConfiguredNames()).Msg("llm providers configured")

	ledger := credit.NewLedger(runner, cfg.CreditDefaultBalance)
	checker := entitlement.NewChecker(runner)
	materials := material.NewStore(runner)
	orchestrator := generation.NewOrchestrator(generation.Options{
		Ledger:          ledger,
		Entitlements:    checker,
		Generator:       generator,
		Materials:       materials,
		Logger:          logger.With().Str("component", "generation").Logger(),
		Feature:         cfg.GenerationFeature,
		RefundOnFailure: cfg.CreditRefundOnFailure,
	})

	app := &handlers.App{
		SQL:          runner,
		Logger:       logger,
		Config:       cfg,
		Orchestrator: orchestrator,
		Materials:    materials,
		Entitlements: checker,
		Ledger:       ledger,
		Providers:    registry,
	}
	if cfg.StripeSecretKey != "" {
		stripeGW, err := payments.NewStripeCheckout(payments.StripeOptions{
			SecretKey:        cfg.StripeSecretKey,
			WebhookSecret:    cfg.StripeWebhookSecret,
			BaseURL:          cfg.BaseURL,
			EarlyBirdPriceID: cfg.StripeEarlyBirdPriceID,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("stripe initialization failed")
		}
		app.Stripe = stripeGW
	}
	if cfg.MercadoPagoAccessToken != "" {
		app.MercadoPago = payments.NewMercadoPago(payments.MercadoPagoOptions{
			AccessToken: cfg.MercadoPagoAccessToken,
			BaseURL:     cfg.BaseURL,
			APIURL:      cfg.MercadoPagoBaseURL,
		})
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		lookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(httpapi.RouterOptions{
		App:            app,
		CountryLookup:  lookup,
		AllowedOrigins: cfg.AllowedOrigins,
		DefaultLocale:  cfg.DefaultLocale,
		RateLimit:      cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != os.ErrClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
