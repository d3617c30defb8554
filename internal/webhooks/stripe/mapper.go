package stripewebhook

import (
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
)

// MapStatus folds Stripe's subscription states onto the ledger's.
func MapStatus(status stripe.SubscriptionStatus) (enums.SubscriptionStatus, enums.EntitlementStatus) {
	switch status {
	case stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusTrialing, enums.EntitlementStatusActive
	case stripe.SubscriptionStatusActive:
		return enums.SubscriptionStatusActive, enums.EntitlementStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return enums.SubscriptionStatusPastDue, enums.EntitlementStatusBillingIssue
	case stripe.SubscriptionStatusPaused:
		return enums.SubscriptionStatusPaused, enums.EntitlementStatusPaused
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return enums.SubscriptionStatusInactive, enums.EntitlementStatusExpired
	default:
		return enums.SubscriptionStatusInactive, enums.EntitlementStatusInactive
	}
}

// UpdateFromSubscription builds the ledger patch for a Stripe subscription.
func UpdateFromSubscription(sub *stripe.Subscription, observedAt time.Time) ledger.Update {
	status, ent := MapStatus(sub.Status)
	update := ledger.Update{
		Status:            &status,
		EntitlementStatus: &ent,
		ObservedAt:        observedAt.UTC(),
	}
	if sub.ID != "" {
		id := sub.ID
		update.StripeSubscriptionID = &id
	}
	if status == enums.SubscriptionStatusTrialing && sub.TrialEnd > 0 {
		trialEnd := time.Unix(sub.TrialEnd, 0).UTC()
		update.TrialEnd = &trialEnd
	}
	if end := PeriodEnd(sub); end != nil {
		update.CurrentPeriodEnd = end
	}
	return update
}

// PeriodEnd reads the current period end from the first subscription item.
func PeriodEnd(sub *stripe.Subscription) *time.Time {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0] == nil {
		return nil
	}
	if sub.Items.Data[0].CurrentPeriodEnd <= 0 {
		return nil
	}
	end := time.Unix(sub.Items.Data[0].CurrentPeriodEnd, 0).UTC()
	return &end
}

func customerID(sub *stripe.Subscription) string {
	if sub == nil || sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}
