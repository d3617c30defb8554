package app

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/api/responses"
	"github.com/thedailydev/dailydev-backend/api/validators"
	"github.com/thedailydev/dailydev-backend/internal/ledger"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
)

// SubscriptionSessions is the per-user reconciliation registry.
type SubscriptionSessions interface {
	FetchStatus(ctx context.Context, userID uuid.UUID, forceRefresh bool) (*ledger.SubscriptionSnapshot, error)
	Invalidate(userID uuid.UUID)
}

type subscriptionResponse struct {
	Subscription *ledger.SubscriptionSnapshot `json:"subscription"`
	HasAccess    bool                         `json:"has_access"`
}

// SubscriptionStatus returns the reconciled snapshot. refresh=true skips the
// cache window. A user with no ledger row yet gets a null subscription.
func SubscriptionStatus(sessions SubscriptionSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription sessions unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refresh, err := validators.ParseQueryBool(r, "refresh")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := sessions.FetchStatus(r.Context(), userID, refresh)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subscriptionResponse{
			Subscription: snapshot,
			HasAccess:    snapshot.HasAccess(),
		})
	}
}

// InvalidateSubscription forces the next status read to go to the providers.
func InvalidateSubscription(sessions SubscriptionSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription sessions unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessions.Invalidate(userID)
		responses.WriteSuccess(w, map[string]bool{"invalidated": true})
	}
}
