package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thedailydev/dailydev-backend/api/routes"
	"github.com/thedailydev/dailydev-backend/internal/access"
	"github.com/thedailydev/dailydev-backend/internal/answers"
	"github.com/thedailydev/dailydev-backend/internal/contributions"
	"github.com/thedailydev/dailydev-backend/internal/ledger"
	"github.com/thedailydev/dailydev-backend/internal/reconcile"
	"github.com/thedailydev/dailydev-backend/internal/trialsetup"
	"github.com/thedailydev/dailydev-backend/internal/users"
	revenuecatwebhook "github.com/thedailydev/dailydev-backend/internal/webhooks/revenuecat"
	stripewebhook "github.com/thedailydev/dailydev-backend/internal/webhooks/stripe"
	"github.com/thedailydev/dailydev-backend/pkg/config"
	"github.com/thedailydev/dailydev-backend/pkg/db"
	"github.com/thedailydev/dailydev-backend/pkg/env"
	"github.com/thedailydev/dailydev-backend/pkg/instance"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
	"github.com/thedailydev/dailydev-backend/pkg/metrics"
	"github.com/thedailydev/dailydev-backend/pkg/migrate"
	"github.com/thedailydev/dailydev-backend/pkg/redis"
	"github.com/thedailydev/dailydev-backend/pkg/revenuecat"
	pkgstripe "github.com/thedailydev/dailydev-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap stripe", err)
		os.Exit(1)
	}
	stripeGateway, err := pkgstripe.NewGateway(stripeClient)
	if err != nil {
		logg.Error(ctx, "failed to create stripe gateway", err)
		os.Exit(1)
	}

	rcClient, err := revenuecat.NewClient(cfg.RevenueCat, &http.Client{Timeout: cfg.Reconcile.NetworkTimeout})
	if err != nil {
		logg.Error(ctx, "failed to create revenuecat client", err)
		os.Exit(1)
	}

	freeDay, _ := cfg.Access.Weekday()
	loc, _ := cfg.Access.Location()

	registry := prometheus.DefaultRegisterer
	webhookMetrics := metrics.NewWebhookMetrics(registry)
	reconcileMetrics := metrics.NewReconcileMetrics(registry)

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	answersRepo := answers.NewRepository(dbClient.DB())

	sessions, err := reconcile.NewSessions(reconcile.Params{
		Ledger:         ledgerRepo,
		Provider:       rcClient,
		EntitlementID:  cfg.RevenueCat.EntitlementID,
		CacheWindow:    cfg.Reconcile.CacheWindow,
		NetworkTimeout: cfg.Reconcile.NetworkTimeout,
		IdleTTL:        cfg.Reconcile.IdleTTL,
		Logger:         logg,
		Metrics:        reconcileMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create reconciliation sessions", err)
		os.Exit(1)
	}

	revenueCatService, err := revenuecatwebhook.NewService(revenuecatwebhook.ServiceParams{
		Ledger:   ledgerRepo,
		Users:    usersRepo,
		Logger:   logg,
		Metrics:  webhookMetrics,
		Sessions: sessions,
	})
	if err != nil {
		logg.Error(ctx, "failed to create revenuecat webhook service", err)
		os.Exit(1)
	}

	stripeService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Ledger:       ledgerRepo,
		StripeClient: stripeGateway,
		Logger:       logg,
		Metrics:      webhookMetrics,
		Sessions:     sessions,
	})
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	stripeGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Redis.WebhookIdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(ctx, "failed to create stripe idempotency guard", err)
		os.Exit(1)
	}

	trialService, err := trialsetup.NewService(trialsetup.ServiceParams{
		Ledger:         ledgerRepo,
		Gateway:        stripeGateway,
		DefaultPriceID: cfg.Stripe.PriceID,
		TrialDays:      cfg.Stripe.TrialDays,
		Logger:         logg,
		Sessions:       sessions,
	})
	if err != nil {
		logg.Error(ctx, "failed to create trial setup service", err)
		os.Exit(1)
	}

	answerService, err := answers.NewService(answers.ServiceParams{Repo: answersRepo, Location: loc})
	if err != nil {
		logg.Error(ctx, "failed to create answer service", err)
		os.Exit(1)
	}

	accessService, err := access.NewService(access.ServiceParams{
		Snapshots: sessions,
		Answers:   answerService,
		FreeDay:   freeDay,
		Location:  loc,
	})
	if err != nil {
		logg.Error(ctx, "failed to create access service", err)
		os.Exit(1)
	}

	contributionsService, err := contributions.NewService(contributions.ServiceParams{Answers: answersRepo, Location: loc})
	if err != nil {
		logg.Error(ctx, "failed to create contributions service", err)
		os.Exit(1)
	}

	bootstrapService, err := users.NewBootstrapService(dbClient, usersRepo, ledgerRepo)
	if err != nil {
		logg.Error(ctx, "failed to create bootstrap service", err)
		os.Exit(1)
	}

	addr := env.ListenAddr(cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   instance.GetID(),
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:             cfg,
			Logger:             logg,
			DB:                 dbClient,
			Redis:              redisClient,
			RevenueCatWebhooks: revenueCatService,
			StripeWebhooks:     stripeService,
			StripeClient:       stripeClient,
			StripeGuard:        stripeGuard,
			TrialSetup:         trialService,
			Sessions:           sessions,
			Access:             accessService,
			Contributions:      contributionsService,
			Answers:            answerService,
			Accounts:           bootstrapService,
		}),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}
