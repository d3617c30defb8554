package stripe

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/paymentmethod"
	"github.com/stripe/stripe-go/v84/subscription"
)

// Gateway issues the Stripe API calls the billing flows need. It relies on the
// API key installed by NewClient.
type Gateway struct{}

// NewGateway returns a Gateway bound to an initialized Client.
func NewGateway(client *Client) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("stripe client is required")
	}
	return &Gateway{}, nil
}

// GetSubscription retrieves a subscription with its items.
func (g *Gateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return subscription.Get(id, params)
}

// GetCheckoutSession retrieves a Checkout Session with its setup intent expanded.
func (g *Gateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("setup_intent")
	return checkoutsession.Get(id, params)
}

// AttachPaymentMethod attaches pm to the customer. Attaching an already
// attached method is reported by Stripe and surfaced to the caller.
func (g *Gateway) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	_, err := paymentmethod.Attach(paymentMethodID, params)
	return err
}

// SetDefaultPaymentMethod makes pm the customer's invoice default.
func (g *Gateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx
	_, err := customer.Update(customerID, params)
	return err
}

// CreateTrialSubscription starts a subscription on priceID with a free trial.
func (g *Gateway) CreateTrialSubscription(ctx context.Context, customerID, priceID, paymentMethodID string, trialDays int64) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		DefaultPaymentMethod: stripe.String(paymentMethodID),
	}
	if trialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(trialDays)
	}
	params.Context = ctx
	return subscription.New(params)
}

// IsResourceMissing reports whether err is Stripe's resource_missing error.
func IsResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}

// IsInvalidRequest reports whether Stripe rejected the request parameters.
func IsInvalidRequest(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Type == stripe.ErrorTypeInvalidRequest
	}
	return false
}
