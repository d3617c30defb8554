package revenuecatwebhook

import (
	"time"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
)

// MapEvent translates an event into the ledger patch it implies. ok is false
// for event types that never mutate the ledger.
func MapEvent(evt *Event, now time.Time) (update ledger.Update, ok bool) {
	if evt == nil {
		return ledger.Update{}, false
	}
	update.ObservedAt = evt.ObservedAt(now)
	if evt.AppUserID != "" {
		update.RevenueCatUserID = strPtr(evt.AppUserID)
	}

	switch evt.NormalizedType() {
	case enums.RevenueCatEventInitialPurchase:
		if evt.InTrial() {
			setStatus(&update, enums.SubscriptionStatusTrialing, enums.EntitlementStatusActive)
			update.TrialEnd = evt.TrialEnd()
		} else {
			setStatus(&update, enums.SubscriptionStatusActive, enums.EntitlementStatusActive)
		}
		update.CurrentPeriodEnd = evt.Expiry()
		setTransactionIDs(&update, evt)
	case enums.RevenueCatEventRenewal:
		setStatus(&update, enums.SubscriptionStatusActive, enums.EntitlementStatusActive)
		update.CurrentPeriodEnd = evt.Expiry()
	case enums.RevenueCatEventCancellation:
		setStatus(&update, enums.SubscriptionStatusInactive, enums.EntitlementStatusExpired)
	case enums.RevenueCatEventUncancellation:
		setStatus(&update, enums.SubscriptionStatusActive, enums.EntitlementStatusActive)
	case enums.RevenueCatEventNonRenewingPurchase:
		setStatus(&update, enums.SubscriptionStatusActive, enums.EntitlementStatusActive)
		update.CurrentPeriodEnd = evt.Expiry()
		setTransactionIDs(&update, evt)
	case enums.RevenueCatEventBillingIssue:
		setStatus(&update, enums.SubscriptionStatusPastDue, enums.EntitlementStatusBillingIssue)
	case enums.RevenueCatEventSubscriptionPaused:
		setStatus(&update, enums.SubscriptionStatusPaused, enums.EntitlementStatusPaused)
	case enums.RevenueCatEventSubscriptionResumed:
		setStatus(&update, enums.SubscriptionStatusActive, enums.EntitlementStatusActive)
	case enums.RevenueCatEventProductChange:
		setStatus(&update, enums.SubscriptionStatusActive, enums.EntitlementStatusActive)
		if evt.TransactionID != "" {
			update.RevenueCatSubscriptionID = strPtr(evt.TransactionID)
		}
	case enums.RevenueCatEventExpiration:
		setStatus(&update, enums.SubscriptionStatusInactive, enums.EntitlementStatusExpired)
		ended := update.ObservedAt
		update.CurrentPeriodEnd = &ended
	default:
		return ledger.Update{}, false
	}
	return update, true
}

func setStatus(u *ledger.Update, status enums.SubscriptionStatus, ent enums.EntitlementStatus) {
	u.Status = &status
	u.EntitlementStatus = &ent
}

func setTransactionIDs(u *ledger.Update, evt *Event) {
	if evt.TransactionID != "" {
		u.RevenueCatSubscriptionID = strPtr(evt.TransactionID)
	}
	if evt.OriginalTransactionID != "" {
		u.OriginalTransactionID = strPtr(evt.OriginalTransactionID)
	}
}

func strPtr(v string) *string {
	return &v
}
