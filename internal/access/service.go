package access

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
)

type snapshotSource interface {
	FetchStatus(ctx context.Context, userID uuid.UUID, forceRefresh bool) (*ledger.SubscriptionSnapshot, error)
}

type answerHistory interface {
	HasEverAnswered(ctx context.Context, userID uuid.UUID) (bool, error)
}

type ServiceParams struct {
	Snapshots snapshotSource
	Answers   answerHistory
	FreeDay   time.Weekday
	Location  *time.Location
	Clock     func() time.Time
}

type Service struct {
	snapshots snapshotSource
	answers   answerHistory
	freeDay   time.Weekday
	loc       *time.Location
	clock     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Snapshots == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "snapshot source required")
	}
	if params.Answers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "answers repo required")
	}
	if params.FreeDay < time.Sunday || params.FreeDay > time.Saturday {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "free day out of range")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		snapshots: params.Snapshots,
		answers:   params.Answers,
		freeDay:   params.FreeDay,
		loc:       loc,
		clock:     clock,
	}, nil
}

// Decision is the access verdict returned to the app.
type Decision struct {
	Allowed bool                     `json:"allowed"`
	Reason  Reason                   `json:"reason"`
	Status  enums.SubscriptionStatus `json:"status"`
	FreeDay string                   `json:"free_day"`
	Today   string                   `json:"today"`
}

// CanAccessQuestions decides whether userID may answer today's question.
func (s *Service) CanAccessQuestions(ctx context.Context, userID uuid.UUID) (*Decision, error) {
	snapshot, err := s.snapshots.FetchStatus(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	answered, err := s.answers.HasEverAnswered(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load answer history")
	}

	today := s.clock().In(s.loc)
	reason := Evaluate(snapshot, answered, today, s.freeDay)
	status := enums.SubscriptionStatusInactive
	if snapshot != nil {
		status = snapshot.Status
	}
	return &Decision{
		Allowed: reason != ReasonPaywall,
		Reason:  reason,
		Status:  status,
		FreeDay: s.freeDay.String(),
		Today:   today.Format(time.DateOnly),
	}, nil
}
