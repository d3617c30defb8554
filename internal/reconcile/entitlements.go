package reconcile

import (
	"time"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
	"github.com/thedailydev/dailydev-backend/pkg/revenuecat"
)

// ResolveEntitlement picks the entitlement that decides access: the expected
// id when it is active, otherwise the first active entitlement of any id,
// otherwise the (inactive) expected one.
func ResolveEntitlement(sub *revenuecat.Subscriber, expectedID string, now time.Time) (revenuecat.Entitlement, bool) {
	if sub == nil {
		return revenuecat.Entitlement{}, false
	}
	expected, hasExpected := sub.Entitlement(expectedID)
	if hasExpected && expected.IsActive(now) {
		return expected, true
	}
	for _, ent := range sub.Entitlements {
		if ent.IsActive(now) {
			return ent, true
		}
	}
	return expected, hasExpected
}

// SyncUpdateFromSubscriber maps the provider's view of a subscriber onto the
// columns a client sync may write. The observation time is RevenueCat's
// request date, so it orders against webhook event timestamps.
func SyncUpdateFromSubscriber(sub *revenuecat.Subscriber, appUserID, expectedID string, now time.Time) ledger.Update {
	status := enums.SubscriptionStatusInactive
	entStatus := enums.EntitlementStatusInactive
	update := ledger.Update{ObservedAt: sub.ObservedAt(now)}
	if appUserID != "" {
		update.RevenueCatUserID = &appUserID
	}

	ent, ok := ResolveEntitlement(sub, expectedID, now)
	if ok {
		active := ent.IsActive(now)
		switch {
		case active && ent.InTrial() && ent.WillRenew:
			status = enums.SubscriptionStatusTrialing
		case active && !ent.InTrial():
			status = enums.SubscriptionStatusActive
		}
		switch {
		case active && ent.BillingIssue:
			entStatus = enums.EntitlementStatusBillingIssue
		case active:
			entStatus = enums.EntitlementStatusActive
		default:
			entStatus = enums.EntitlementStatusExpired
		}
		if ent.ExpiresAt != nil {
			end := ent.ExpiresAt.UTC()
			update.CurrentPeriodEnd = &end
			if status == enums.SubscriptionStatusTrialing {
				trialEnd := end
				update.TrialEnd = &trialEnd
			}
		}
	}

	update.Status = &status
	update.EntitlementStatus = &entStatus
	return update
}
