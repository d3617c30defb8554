package access

import (
	"time"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
)

// DefaultFreeDay is the weekday on which questions are open to everyone.
const DefaultFreeDay = time.Friday

// Reason explains which rule granted (or withheld) access.
type Reason string

const (
	ReasonSubscribed    Reason = "subscribed"
	ReasonFirstQuestion Reason = "first_question"
	ReasonFreeDay       Reason = "free_day"
	ReasonPaywall       Reason = "paywall"
)

// CanAccess reports whether a user may answer today's question.
func CanAccess(snapshot *ledger.SubscriptionSnapshot, hasEverAnswered bool, today time.Time, freeDay time.Weekday) bool {
	return Evaluate(snapshot, hasEverAnswered, today, freeDay) != ReasonPaywall
}

// Evaluate returns the first rule that grants access, or ReasonPaywall.
// today must already be expressed in the product's timezone.
func Evaluate(snapshot *ledger.SubscriptionSnapshot, hasEverAnswered bool, today time.Time, freeDay time.Weekday) Reason {
	switch {
	case snapshot.HasAccess():
		return ReasonSubscribed
	case !hasEverAnswered:
		return ReasonFirstQuestion
	case today.Weekday() == freeDay:
		return ReasonFreeDay
	default:
		return ReasonPaywall
	}
}
