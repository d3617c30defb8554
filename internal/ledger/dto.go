package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/pkg/db/models"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
)

// NeverObserved is the updated_at stamped on rows that no provider has
// reported on yet, so any later observation wins the staleness guard.
var NeverObserved = time.Unix(0, 0).UTC()

// Update is a partial write to a ledger row. Nil fields are left untouched.
type Update struct {
	Status                   *enums.SubscriptionStatus
	EntitlementStatus        *enums.EntitlementStatus
	TrialEnd                 *time.Time
	CurrentPeriodEnd         *time.Time
	RevenueCatUserID         *string
	RevenueCatSubscriptionID *string
	OriginalTransactionID    *string
	StripeCustomerID         *string
	StripeSubscriptionID     *string
	FirstName                *string
	LastName                 *string

	// ObservedAt is when the provider reported this state. State columns older
	// than the row's current observation are dropped; identifiers are not.
	ObservedAt time.Time
}

// WriteResult reports which parts of an Update reached the row.
type WriteResult struct {
	// State is false when the row already held a newer observation.
	State bool
	IDs   bool
}

// Applied reports whether the write changed anything.
func (w WriteResult) Applied() bool {
	return w.State || w.IDs
}

// IsEmpty reports whether the update touches no column.
func (u Update) IsEmpty() bool {
	return len(u.columns()) == 0
}

// WithoutProviderIDs strips the columns only webhooks may author.
func (u Update) WithoutProviderIDs() Update {
	u.RevenueCatSubscriptionID = nil
	u.OriginalTransactionID = nil
	u.StripeCustomerID = nil
	u.StripeSubscriptionID = nil
	return u
}

func (u Update) columns() []string {
	var cols []string
	add := func(set bool, name string) {
		if set {
			cols = append(cols, name)
		}
	}
	add(u.Status != nil, "status")
	add(u.EntitlementStatus != nil, "entitlement_status")
	add(u.TrialEnd != nil, "trial_end")
	add(u.CurrentPeriodEnd != nil, "current_period_end")
	add(u.RevenueCatUserID != nil, "revenuecat_user_id")
	add(u.RevenueCatSubscriptionID != nil, "revenuecat_subscription_id")
	add(u.OriginalTransactionID != nil, "original_transaction_id")
	add(u.StripeCustomerID != nil, "stripe_customer_id")
	add(u.StripeSubscriptionID != nil, "stripe_subscription_id")
	add(u.FirstName != nil, "first_name")
	add(u.LastName != nil, "last_name")
	return cols
}

// assignments splits the update into observation-guarded state columns and
// provider identifiers, which apply whenever they are present.
func (u Update) assignments() (state, ids map[string]any) {
	state = map[string]any{}
	ids = map[string]any{}
	if u.Status != nil {
		state["status"] = *u.Status
	}
	if u.EntitlementStatus != nil {
		state["entitlement_status"] = *u.EntitlementStatus
	}
	if u.TrialEnd != nil {
		state["trial_end"] = u.TrialEnd.UTC()
	}
	if u.CurrentPeriodEnd != nil {
		state["current_period_end"] = u.CurrentPeriodEnd.UTC()
	}
	if u.FirstName != nil {
		state["first_name"] = *u.FirstName
	}
	if u.LastName != nil {
		state["last_name"] = *u.LastName
	}
	setID := func(name string, v *string) {
		if v != nil {
			ids[name] = *v
		}
	}
	setID("revenuecat_user_id", u.RevenueCatUserID)
	setID("revenuecat_subscription_id", u.RevenueCatSubscriptionID)
	setID("original_transaction_id", u.OriginalTransactionID)
	setID("stripe_customer_id", u.StripeCustomerID)
	setID("stripe_subscription_id", u.StripeSubscriptionID)
	return state, ids
}

func (u Update) toModel(userID uuid.UUID) *models.UserSubscription {
	row := &models.UserSubscription{
		UserID:                   userID,
		Status:                   enums.SubscriptionStatusInactive,
		EntitlementStatus:        enums.EntitlementStatusInactive,
		TrialEnd:                 utc(u.TrialEnd),
		CurrentPeriodEnd:         utc(u.CurrentPeriodEnd),
		RevenueCatUserID:         u.RevenueCatUserID,
		RevenueCatSubscriptionID: u.RevenueCatSubscriptionID,
		OriginalTransactionID:    u.OriginalTransactionID,
		StripeCustomerID:         u.StripeCustomerID,
		StripeSubscriptionID:     u.StripeSubscriptionID,
		FirstName:                u.FirstName,
		LastName:                 u.LastName,
		UpdatedAt:                u.ObservedAt.UTC(),
	}
	if state, _ := u.assignments(); len(state) == 0 {
		row.UpdatedAt = NeverObserved
	}
	if u.Status != nil {
		row.Status = *u.Status
	}
	if u.EntitlementStatus != nil {
		row.EntitlementStatus = *u.EntitlementStatus
	}
	return row
}

// SubscriptionSnapshot is the read model of a ledger row.
type SubscriptionSnapshot struct {
	UserID                   uuid.UUID                `json:"user_id"`
	Status                   enums.SubscriptionStatus `json:"status"`
	EntitlementStatus        enums.EntitlementStatus  `json:"entitlement_status"`
	TrialEnd                 *time.Time               `json:"trial_end,omitempty"`
	CurrentPeriodEnd         *time.Time               `json:"current_period_end,omitempty"`
	RevenueCatUserID         *string                  `json:"revenuecat_user_id,omitempty"`
	RevenueCatSubscriptionID *string                  `json:"revenuecat_subscription_id,omitempty"`
	OriginalTransactionID    *string                  `json:"original_transaction_id,omitempty"`
	StripeCustomerID         *string                  `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID     *string                  `json:"stripe_subscription_id,omitempty"`
	FirstName                *string                  `json:"first_name,omitempty"`
	LastName                 *string                  `json:"last_name,omitempty"`
	UpdatedAt                time.Time                `json:"updated_at"`
	CreatedAt                time.Time                `json:"created_at"`
}

// HasAccess is the single definition of a paying (or trialing) user.
func (s *SubscriptionSnapshot) HasAccess() bool {
	return s != nil && s.Status.GrantsAccess()
}

// FromModel maps a persisted row into its snapshot.
func FromModel(row *models.UserSubscription) *SubscriptionSnapshot {
	if row == nil {
		return nil
	}
	return &SubscriptionSnapshot{
		UserID:                   row.UserID,
		Status:                   row.Status,
		EntitlementStatus:        row.EntitlementStatus,
		TrialEnd:                 utc(row.TrialEnd),
		CurrentPeriodEnd:         utc(row.CurrentPeriodEnd),
		RevenueCatUserID:         row.RevenueCatUserID,
		RevenueCatSubscriptionID: row.RevenueCatSubscriptionID,
		OriginalTransactionID:    row.OriginalTransactionID,
		StripeCustomerID:         row.StripeCustomerID,
		StripeSubscriptionID:     row.StripeSubscriptionID,
		FirstName:                row.FirstName,
		LastName:                 row.LastName,
		UpdatedAt:                row.UpdatedAt.UTC(),
		CreatedAt:                row.CreatedAt.UTC(),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
