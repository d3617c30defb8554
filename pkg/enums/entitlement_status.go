package enums

import "fmt"

// EntitlementStatus mirrors the purchase provider's entitlement state. It may lag
// SubscriptionStatus by one webhook cycle.
type EntitlementStatus string

const (
	EntitlementStatusActive       EntitlementStatus = "active"
	EntitlementStatusInactive     EntitlementStatus = "inactive"
	EntitlementStatusExpired      EntitlementStatus = "expired"
	EntitlementStatusBillingIssue EntitlementStatus = "billing_issue"
	EntitlementStatusPaused       EntitlementStatus = "paused"
)

var validEntitlementStatuses = []EntitlementStatus{
	EntitlementStatusActive,
	EntitlementStatusInactive,
	EntitlementStatusExpired,
	EntitlementStatusBillingIssue,
	EntitlementStatusPaused,
}

// String implements fmt.Stringer.
func (s EntitlementStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s EntitlementStatus) IsValid() bool {
	for _, candidate := range validEntitlementStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEntitlementStatus converts raw input into an EntitlementStatus.
func ParseEntitlementStatus(value string) (EntitlementStatus, error) {
	for _, candidate := range validEntitlementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entitlement status %q", value)
}
