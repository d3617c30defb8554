package revenuecatwebhook

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
	"github.com/thedailydev/dailydev-backend/pkg/metrics"
)

const provider = "revenuecat"

// Outcome reports what handling an event did to the ledger.
type Outcome string

const (
	OutcomeMutated          Outcome = "mutated"
	OutcomeNoOpUnknownUser  Outcome = "noop_unknown_user"
	OutcomeNoOpUnknownEvent Outcome = "noop_unknown_event"
	OutcomeNoOpStale        Outcome = "noop_stale"
)

type userDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type cacheInvalidator interface {
	Invalidate(userID uuid.UUID)
}

type ServiceParams struct {
	Ledger   ledger.Repository
	Users    userDirectory
	Logger   *logger.Logger
	Metrics  *metrics.WebhookMetrics
	// Sessions, when set, drops the user's cached snapshot after a write.
	Sessions cacheInvalidator
	Clock    func() time.Time
}

// Service applies RevenueCat webhook events to the subscription ledger.
type Service struct {
	ledger   ledger.Repository
	users    userDirectory
	logg     *logger.Logger
	metrics  *metrics.WebhookMetrics
	sessions cacheInvalidator
	clock    func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		ledger:   params.Ledger,
		users:    params.Users,
		logg:     logg,
		metrics:  params.Metrics,
		sessions: params.Sessions,
		clock:    clock,
	}, nil
}

// HandleEvent resolves the user the event refers to and upserts the mapped
// patch. Unknown users and event types are no-ops, never errors.
func (s *Service) HandleEvent(ctx context.Context, evt *Event) (Outcome, error) {
	if evt == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "revenuecat event required")
	}
	eventType := evt.NormalizedType()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"provider":    provider,
		"event_id":    evt.ID,
		"event_type":  eventType.String(),
		"app_user_id": evt.AppUserID,
	})

	update, ok := MapEvent(evt, s.clock())
	if !ok {
		s.logg.Info(ctx, "revenuecat event ignored")
		s.metrics.Observe(provider, eventType.String(), string(OutcomeNoOpUnknownEvent))
		return OutcomeNoOpUnknownEvent, nil
	}

	userID, err := s.resolveUser(ctx, evt)
	if err != nil {
		return "", err
	}
	if userID == uuid.Nil {
		s.logg.Warn(ctx, "revenuecat event for unknown user")
		s.metrics.Observe(provider, eventType.String(), string(OutcomeNoOpUnknownUser))
		return OutcomeNoOpUnknownUser, nil
	}

	ctx = s.logg.WithUserID(ctx, userID.String())
	res, err := s.ledger.Apply(ctx, userID, update)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert subscription ledger")
	}
	if !res.Applied() {
		s.logg.Info(ctx, "revenuecat event older than ledger; dropped")
		s.metrics.Observe(provider, eventType.String(), string(OutcomeNoOpStale))
		return OutcomeNoOpStale, nil
	}
	if !res.State {
		s.logg.Info(ctx, "revenuecat event older than ledger; identifiers recorded")
	}
	if s.sessions != nil {
		s.sessions.Invalidate(userID)
	}
	s.logg.Info(ctx, "revenuecat event applied")
	s.metrics.Observe(provider, eventType.String(), string(OutcomeMutated))
	return OutcomeMutated, nil
}

// resolveUser tries each candidate id against the ledger's RevenueCat link and
// then as an account id. uuid.Nil means nothing matched.
func (s *Service) resolveUser(ctx context.Context, evt *Event) (uuid.UUID, error) {
	for _, candidate := range evt.candidateIDs() {
		row, err := s.ledger.FindByRevenueCatUserID(ctx, candidate)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup ledger by revenuecat id")
		}
		if row != nil {
			return row.UserID, nil
		}

		id, parseErr := uuid.Parse(candidate)
		if parseErr != nil {
			continue
		}
		exists, err := s.users.Exists(ctx, id)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
		}
		if exists {
			return id, nil
		}
	}
	return uuid.Nil, nil
}
