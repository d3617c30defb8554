package app

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/api/responses"
	"github.com/thedailydev/dailydev-backend/api/validators"
	"github.com/thedailydev/dailydev-backend/internal/answers"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
)

type AnswerService interface {
	RecordToday(ctx context.Context, userID uuid.UUID, questionID *string) (answers.RecordResult, error)
}

type recordAnswerRequest struct {
	QuestionID *string `json:"question_id,omitempty" validate:"omitempty,max=128"`
}

// RecordAnswer marks today as answered. Repeats on the same day return 200
// with recorded=false.
func RecordAnswer(svc AnswerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "answer service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload recordAnswerRequest
		if err := decodeOptionalBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordToday(r.Context(), userID, validators.SanitizeOptional(payload.QuestionID, 128))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.Recorded {
			responses.WriteSuccessStatus(w, http.StatusCreated, result)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
