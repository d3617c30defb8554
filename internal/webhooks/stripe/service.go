package stripewebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
	"github.com/thedailydev/dailydev-backend/pkg/metrics"
)

const provider = "stripe"

type subscriptionGetter interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

type cacheInvalidator interface {
	Invalidate(userID uuid.UUID)
}

type ServiceParams struct {
	Ledger       ledger.Repository
	StripeClient subscriptionGetter
	Logger       *logger.Logger
	Metrics      *metrics.WebhookMetrics
	Sessions     cacheInvalidator
	Clock        func() time.Time
}

type Service struct {
	ledger   ledger.Repository
	stripe   subscriptionGetter
	logg     *logger.Logger
	metrics  *metrics.WebhookMetrics
	sessions cacheInvalidator
	clock    func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		ledger:   params.Ledger,
		stripe:   params.StripeClient,
		logg:     logg,
		metrics:  params.Metrics,
		sessions: params.Sessions,
		clock:    clock,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"provider":   provider,
		"event_id":   event.ID,
		"event_type": string(event.Type),
	})

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted,
		stripe.EventTypeCustomerSubscriptionPaused,
		stripe.EventTypeCustomerSubscriptionResumed:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription event")
		}
		observedAt := s.clock()
		if event.Created > 0 {
			observedAt = time.Unix(event.Created, 0)
		}
		return s.syncSubscription(ctx, event, &sub, observedAt)
	case stripe.EventTypeInvoicePaid, stripe.EventTypeInvoicePaymentFailed:
		subscriptionID := invoiceSubscriptionID(event)
		if subscriptionID == "" {
			s.logg.Info(ctx, "invoice without subscription ignored")
			s.metrics.Observe(provider, string(event.Type), "ignored")
			return nil
		}
		sub, err := s.stripe.GetSubscription(ctx, subscriptionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe subscription")
		}
		// A fresh read reflects the state as of now, not as of the invoice.
		return s.syncSubscription(ctx, event, sub, s.clock())
	default:
		s.metrics.Observe(provider, string(event.Type), "ignored")
		return nil
	}
}

func (s *Service) syncSubscription(ctx context.Context, event *stripe.Event, sub *stripe.Subscription, observedAt time.Time) error {
	if sub == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}
	customer := customerID(sub)
	if customer == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription customer missing")
	}
	row, err := s.ledger.FindByStripeCustomerID(ctx, customer)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup ledger by stripe customer")
	}
	if row == nil {
		s.metrics.Observe(provider, string(event.Type), "unknown_customer")
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "no account for stripe customer %s", customer)
	}

	ctx = s.logg.WithUserID(ctx, row.UserID.String())
	res, err := s.ledger.Apply(ctx, row.UserID, UpdateFromSubscription(sub, observedAt))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert subscription ledger")
	}
	if !res.Applied() {
		s.logg.Info(ctx, "stripe event older than ledger; dropped")
		s.metrics.Observe(provider, string(event.Type), "stale")
		return nil
	}
	if s.sessions != nil {
		s.sessions.Invalidate(row.UserID)
	}
	s.logg.Info(ctx, "stripe subscription synced")
	s.metrics.Observe(provider, string(event.Type), "mutated")
	return nil
}

func invoiceSubscriptionID(event *stripe.Event) string {
	if id := event.GetObjectValue("subscription"); id != "" {
		return id
	}
	return event.GetObjectValue("parent", "subscription_details", "subscription")
}
