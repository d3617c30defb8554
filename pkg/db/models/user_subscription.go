package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/pkg/enums"
)

// UserSubscription is the single authoritative ledger row per user. UpdatedAt
// holds the observation time of the last applied write, not the wall clock.
type UserSubscription struct {
	UserID                   uuid.UUID                `gorm:"column:user_id;type:uuid;primaryKey"`
	Status                   enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'inactive'"`
	EntitlementStatus        enums.EntitlementStatus  `gorm:"column:entitlement_status;type:entitlement_status;not null;default:'inactive'"`
	TrialEnd                 *time.Time               `gorm:"column:trial_end"`
	CurrentPeriodEnd         *time.Time               `gorm:"column:current_period_end"`
	RevenueCatUserID         *string                  `gorm:"column:revenuecat_user_id;index"`
	RevenueCatSubscriptionID *string                  `gorm:"column:revenuecat_subscription_id"`
	OriginalTransactionID    *string                  `gorm:"column:original_transaction_id"`
	StripeCustomerID         *string                  `gorm:"column:stripe_customer_id;index"`
	StripeSubscriptionID     *string                  `gorm:"column:stripe_subscription_id"`
	FirstName                *string                  `gorm:"column:first_name"`
	LastName                 *string                  `gorm:"column:last_name"`
	CreatedAt                time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time                `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (UserSubscription) TableName() string { return "user_subscriptions" }
