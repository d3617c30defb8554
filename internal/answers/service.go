package answers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/pkg/db"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
)

type ServiceParams struct {
	Repo     Repository
	Location *time.Location
	Clock    func() time.Time
}

// Service records daily answers in the product's calendar timezone.
type Service struct {
	repo  Repository
	loc   *time.Location
	clock func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "answers repo required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: params.Repo, loc: loc, clock: clock}, nil
}

// RecordResult describes the outcome of recording today's answer.
type RecordResult struct {
	Day      time.Time `json:"day"`
	Recorded bool      `json:"recorded"`
}

// RecordToday marks today (in the configured timezone) as answered.
func (s *Service) RecordToday(ctx context.Context, userID uuid.UUID, questionID *string) (RecordResult, error) {
	today := DayKey(s.clock().In(s.loc))
	created, err := s.repo.Record(ctx, userID, today, questionID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return RecordResult{}, pkgerrors.New(pkgerrors.CodeConflict, "account is not bootstrapped")
		}
		return RecordResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record answer")
	}
	return RecordResult{Day: today, Recorded: created}, nil
}

// HasEverAnswered reports whether the user answered at least once.
func (s *Service) HasEverAnswered(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.repo.HasEverAnswered(ctx, userID)
}
