package trialsetup

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	stripewebhook "github.com/thedailydev/dailydev-backend/internal/webhooks/stripe"
	"github.com/thedailydev/dailydev-backend/pkg/db"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
	pkgstripe "github.com/thedailydev/dailydev-backend/pkg/stripe"
)

// Gateway is the set of Stripe calls the trial flow makes.
type Gateway interface {
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	CreateTrialSubscription(ctx context.Context, customerID, priceID, paymentMethodID string, trialDays int64) (*stripe.Subscription, error)
}

type ServiceParams struct {
	Ledger         ledger.Repository
	Gateway        Gateway
	DefaultPriceID string
	TrialDays      int64
	Logger         *logger.Logger
	Sessions       interface{ Invalidate(userID uuid.UUID) }
	Clock          func() time.Time
}

// Service turns a completed Stripe Checkout setup session into a trialing
// subscription recorded on the ledger.
type Service struct {
	ledger    ledger.Repository
	gateway   Gateway
	priceID   string
	trialDays int64
	logg      *logger.Logger
	sessions  interface{ Invalidate(userID uuid.UUID) }
	clock     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe gateway required")
	}
	if params.TrialDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "trial days must be non-negative")
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
		ledger:    params.Ledger,
		gateway:   params.Gateway,
		priceID:   strings.TrimSpace(params.DefaultPriceID),
		trialDays: params.TrialDays,
		logg:      logg,
		sessions:  params.Sessions,
		clock:     clock,
	}, nil
}

// Request is the validated body of a complete-trial-setup call.
type Request struct {
	UserID    uuid.UUID
	SessionID string
	PriceID   string
}

// Result is what was written to the ledger.
type Result struct {
	StripeCustomerID     string                   `json:"stripe_customer_id"`
	StripeSubscriptionID string                   `json:"stripe_subscription_id"`
	Status               enums.SubscriptionStatus `json:"status"`
	TrialEnd             *time.Time               `json:"trial_end,omitempty"`
	CurrentPeriodEnd     *time.Time               `json:"current_period_end,omitempty"`
}

// Complete runs the trial setup for the authenticated caller.
func (s *Service) Complete(ctx context.Context, callerID uuid.UUID, req Request) (*Result, error) {
	if callerID == uuid.Nil || callerID != req.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token does not match user")
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	priceID := strings.TrimSpace(req.PriceID)
	if priceID == "" {
		priceID = s.priceID
	}
	if priceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "no subscription price configured")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"user_id": callerID.String(), "checkout_session_id": sessionID})

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if pkgstripe.IsResourceMissing(err) || pkgstripe.IsInvalidRequest(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout session")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "retrieve checkout session")
	}
	customerID, paymentMethodID, err := sessionPaymentDetails(session)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.AttachPaymentMethod(ctx, paymentMethodID, customerID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach payment method")
	}
	if err := s.gateway.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set default payment method")
	}
	sub, err := s.gateway.CreateTrialSubscription(ctx, customerID, priceID, paymentMethodID, s.trialDays)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create trial subscription")
	}

	status := enums.SubscriptionStatusTrialing
	entitlement := enums.EntitlementStatusActive
	var trialEnd *time.Time
	if sub.TrialEnd > 0 {
		v := time.Unix(sub.TrialEnd, 0).UTC()
		trialEnd = &v
	}
	periodEnd := stripewebhook.PeriodEnd(sub)
	// Observed on Stripe's clock, matching the subscription.created event.
	observedAt := s.clock().UTC()
	if sub.Created > 0 {
		observedAt = time.Unix(sub.Created, 0).UTC()
	}
	update := ledger.Update{
		Status:               &status,
		EntitlementStatus:    &entitlement,
		TrialEnd:             trialEnd,
		CurrentPeriodEnd:     periodEnd,
		StripeCustomerID:     &customerID,
		StripeSubscriptionID: &sub.ID,
		ObservedAt:           observedAt,
	}
	if err := s.ledger.Upsert(ctx, callerID, update); err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "account is not bootstrapped")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record trial subscription")
	}
	if s.sessions != nil {
		s.sessions.Invalidate(callerID)
	}
	s.logg.Info(ctx, "trial subscription created")

	return &Result{
		StripeCustomerID:     customerID,
		StripeSubscriptionID: sub.ID,
		Status:               status,
		TrialEnd:             trialEnd,
		CurrentPeriodEnd:     periodEnd,
	}, nil
}

func sessionPaymentDetails(session *stripe.CheckoutSession) (string, string, error) {
	if session == nil {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "checkout session not found")
	}
	if session.Status != stripe.CheckoutSessionStatusComplete {
		return "", "", pkgerrors.Newf(pkgerrors.CodeValidation, "checkout session is %s", session.Status)
	}
	if session.Customer == nil || session.Customer.ID == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no customer")
	}
	if session.SetupIntent == nil || session.SetupIntent.PaymentMethod == nil || session.SetupIntent.PaymentMethod.ID == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no payment method")
	}
	return session.Customer.ID, session.SetupIntent.PaymentMethod.ID, nil
}
