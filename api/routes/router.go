package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thedailydev/dailydev-backend/api/controllers"
	appcontrollers "github.com/thedailydev/dailydev-backend/api/controllers/app"
	webhookcontrollers "github.com/thedailydev/dailydev-backend/api/controllers/webhooks"
	"github.com/thedailydev/dailydev-backend/api/middleware"
	"github.com/thedailydev/dailydev-backend/pkg/config"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
)

// redisStore is the slice of pkg/redis the HTTP layer uses.
type redisStore interface {
	middleware.IdempotencyStore
	middleware.RevocationChecker
	appcontrollers.TokenRevoker
	controllers.Pinger
}

type stripeSigner interface {
	SigningSecret() string
}

type stripeGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type subscriptionSessions interface {
	appcontrollers.SubscriptionSessions
	appcontrollers.SessionSigner
}

// RouterParams carries everything the API routes are wired to.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger
	DB     controllers.Pinger
	Redis  redisStore
	// Gatherer serves /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer

	RevenueCatWebhooks webhookcontrollers.RevenueCatWebhookService
	StripeWebhooks     webhookcontrollers.StripeWebhookService
	StripeClient       stripeSigner
	StripeGuard        stripeGuard

	TrialSetup    appcontrollers.TrialSetupService
	Sessions      subscriptionSessions
	Access        appcontrollers.AccessService
	Contributions appcontrollers.ContributionsService
	Answers       appcontrollers.AnswerService
	Accounts      appcontrollers.AccountBootstrapper
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    p.DB,
			"redis": p.Redis,
		}, logg))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Post("/revenuecat-webhook", webhookcontrollers.RevenueCatWebhook(p.RevenueCatWebhooks, cfg.RevenueCat.WebhookSecret, logg))
	r.Post("/stripe-webhook", webhookcontrollers.StripeWebhook(p.StripeWebhooks, p.StripeClient, p.StripeGuard, logg))

	auth := middleware.Auth(cfg.JWT, p.Redis, logg)
	idempotency := middleware.Idempotency(p.Redis, logg)

	r.Group(func(r chi.Router) {
		r.Use(auth, idempotency)
		r.Post("/complete-trial-setup", appcontrollers.CompleteTrialSetup(p.TrialSetup, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth, idempotency)

		r.Route("/subscription", func(r chi.Router) {
			r.Get("/", appcontrollers.SubscriptionStatus(p.Sessions, logg))
			r.Post("/invalidate", appcontrollers.InvalidateSubscription(p.Sessions, logg))
		})
		r.Get("/access", appcontrollers.QuestionAccess(p.Access, logg))
		r.Get("/contributions", appcontrollers.Contributions(p.Contributions, logg))
		r.Post("/answers", appcontrollers.RecordAnswer(p.Answers, logg))
		r.Post("/me/bootstrap", appcontrollers.Bootstrap(p.Accounts, logg))
		r.Post("/auth/signout", appcontrollers.SignOut(p.Sessions, p.Redis, revocationTTL(cfg), logg))
	})

	return r
}

func revocationTTL(cfg *config.Config) time.Duration {
	if cfg.JWT.RevocationTTL > 0 {
		return cfg.JWT.RevocationTTL
	}
	return 24 * time.Hour
}
