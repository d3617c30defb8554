package app

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/api/middleware"
	"github.com/thedailydev/dailydev-backend/api/responses"
	"github.com/thedailydev/dailydev-backend/api/validators"
	"github.com/thedailydev/dailydev-backend/internal/trialsetup"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
)

type TrialSetupService interface {
	Complete(ctx context.Context, callerID uuid.UUID, req trialsetup.Request) (*trialsetup.Result, error)
}

type completeTrialSetupRequest struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	SessionID string `json:"session_id" validate:"required,startswith=cs_"`
	PriceID   string `json:"price_id,omitempty" validate:"omitempty,startswith=price_"`
}

// CompleteTrialSetup finishes a web checkout: the saved card becomes the
// customer's default and a trial subscription is created.
func CompleteTrialSetup(svc TrialSetupService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "trial setup service unavailable"))
			return
		}

		var payload completeTrialSetupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
			return
		}

		result, err := svc.Complete(r.Context(), middleware.UserIDFromContext(r.Context()), trialsetup.Request{
			UserID:    userID,
			SessionID: payload.SessionID,
			PriceID:   payload.PriceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
