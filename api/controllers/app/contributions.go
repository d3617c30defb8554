package app

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/api/responses"
	"github.com/thedailydev/dailydev-backend/api/validators"
	"github.com/thedailydev/dailydev-backend/internal/contributions"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
)

type ContributionsService interface {
	Build(ctx context.Context, userID uuid.UUID, year int) (*contributions.Calendar, error)
}

// Contributions renders the 52x7 answer grid. Without ?year the current
// year's rolling window is returned.
func Contributions(svc ContributionsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contributions service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		year, err := validators.ParseQueryInt(r, "year", 0, 0, 9999)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		calendar, err := svc.Build(r.Context(), userID, year)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, calendar)
	}
}
