package app

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/api/responses"
	"github.com/thedailydev/dailydev-backend/internal/access"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
)

type AccessService interface {
	CanAccessQuestions(ctx context.Context, userID uuid.UUID) (*access.Decision, error)
}

func QuestionAccess(svc AccessService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := svc.CanAccessQuestions(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decision)
	}
}
