package enums

import "strings"

// RevenueCatEventType enumerates the webhook event types the ledger reacts to.
type RevenueCatEventType string

const (
	RevenueCatEventInitialPurchase     RevenueCatEventType = "INITIAL_PURCHASE"
	RevenueCatEventRenewal             RevenueCatEventType = "RENEWAL"
	RevenueCatEventCancellation        RevenueCatEventType = "CANCELLATION"
	RevenueCatEventUncancellation      RevenueCatEventType = "UNCANCELLATION"
	RevenueCatEventNonRenewingPurchase RevenueCatEventType = "NON_RENEWING_PURCHASE"
	RevenueCatEventBillingIssue        RevenueCatEventType = "BILLING_ISSUE"
	RevenueCatEventSubscriptionPaused  RevenueCatEventType = "SUBSCRIPTION_PAUSED"
	RevenueCatEventSubscriptionResumed RevenueCatEventType = "SUBSCRIPTION_UNPAUSED"
	RevenueCatEventProductChange       RevenueCatEventType = "PRODUCT_CHANGE"
	RevenueCatEventExpiration          RevenueCatEventType = "EXPIRATION"
	RevenueCatEventTest                RevenueCatEventType = "TEST"
	RevenueCatEventTransfer            RevenueCatEventType = "TRANSFER"
)

var revenueCatEventAliases = map[string]RevenueCatEventType{
	"UNPAUSE":              RevenueCatEventSubscriptionResumed,
	"SUBSCRIPTION_RESUMED": RevenueCatEventSubscriptionResumed,
}

// String implements fmt.Stringer.
func (t RevenueCatEventType) String() string {
	return string(t)
}

// NormalizeRevenueCatEventType upper-cases the raw type and resolves known aliases.
func NormalizeRevenueCatEventType(raw string) RevenueCatEventType {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if alias, ok := revenueCatEventAliases[normalized]; ok {
		return alias
	}
	return RevenueCatEventType(normalized)
}
